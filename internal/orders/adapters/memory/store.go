package memory

import (
	"context"
	"maps"
	"slices"
	"sync"
)

// Store keeps orders, payments, tracking records and catalog products in
// memory. It backs local development and tests; every repository view shares
// the same lock so WithinTx can roll back all of them together.
type Store struct {
	mu   sync.Mutex
	txMu sync.Mutex

	orders   map[string]orderRow
	payments []paymentRow
	tracking []trackingRow
	products map[string]productRow
	sequence int64
}

// NewStore constructs an empty store.
func NewStore() *Store {
	return &Store{
		orders:   make(map[string]orderRow),
		products: make(map[string]productRow),
	}
}

func (s *Store) Orders() *OrderRepository      { return &OrderRepository{store: s} }
func (s *Store) Payments() *PaymentRepository  { return &PaymentRepository{store: s} }
func (s *Store) Tracking() *TrackingRepository { return &TrackingRepository{store: s} }
func (s *Store) Catalog() *Catalog             { return &Catalog{store: s} }

func (s *Store) next() int64 {
	s.sequence++
	return s.sequence
}

type snapshot struct {
	orders   map[string]orderRow
	payments []paymentRow
	tracking []trackingRow
	products map[string]productRow
	sequence int64
}

func (s *Store) snapshot() snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	orders := make(map[string]orderRow, len(s.orders))
	for id, row := range s.orders {
		orders[id] = row.clone()
	}
	return snapshot{
		orders:   orders,
		payments: slices.Clone(s.payments),
		tracking: slices.Clone(s.tracking),
		products: maps.Clone(s.products),
		sequence: s.sequence,
	}
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = snap.orders
	s.payments = snap.payments
	s.tracking = snap.tracking
	s.products = snap.products
	s.sequence = snap.sequence
}

// WithinTx runs fn with transactions serialized. Any error returned by fn
// restores the store to its state before fn ran.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	snap := s.snapshot()
	if err := fn(ctx); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}
