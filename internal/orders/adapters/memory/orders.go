package memory

import (
	"context"
	"slices"
	"time"

	"github.com/dejobratic/marketplace/internal/orders/domain"
	"github.com/dejobratic/marketplace/internal/orders/ports"
)

type orderRow struct {
	order domain.Order
	seq   int64
}

func (r orderRow) clone() orderRow {
	r.order.Items = slices.Clone(r.order.Items)
	return r
}

// OrderRepository is the order ledger view of a Store.
type OrderRepository struct {
	store *Store
}

func (r *OrderRepository) Create(_ context.Context, order domain.Order) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	row := orderRow{order: order, seq: r.store.next()}
	r.store.orders[order.ID] = row.clone()
	return nil
}

func (r *OrderRepository) GetByID(_ context.Context, id string) (*domain.Order, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	row, ok := r.store.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	order := row.clone().order
	return &order, nil
}

// List returns matching orders newest first. Pagination is 1-based and only
// applied when PageSize is positive.
func (r *OrderRepository) List(_ context.Context, filter ports.ListFilter) ([]domain.Order, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	rows := make([]orderRow, 0, len(r.store.orders))
	for _, row := range r.store.orders {
		order := row.order
		if filter.Status != nil && order.Status != *filter.Status {
			continue
		}
		if filter.WholesalerID != "" && order.WholesalerID != filter.WholesalerID {
			continue
		}
		if filter.VendorID != "" && order.VendorID != filter.VendorID {
			continue
		}
		rows = append(rows, row.clone())
	}

	slices.SortFunc(rows, func(a, b orderRow) int {
		if c := b.order.CreatedAt.Compare(a.order.CreatedAt); c != 0 {
			return c
		}
		return int(b.seq - a.seq)
	})

	if filter.PageSize > 0 {
		start := min(filter.Offset(), len(rows))
		end := min(start+filter.PageSize, len(rows))
		rows = rows[start:end]
	}

	result := make([]domain.Order, len(rows))
	for i, row := range rows {
		result[i] = row.order
	}
	return result, nil
}

func (r *OrderRepository) UpdateStatus(_ context.Context, id string, status domain.OrderStatus, at time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	row, ok := r.store.orders[id]
	if !ok {
		return domain.ErrOrderNotFound
	}
	row.order.Status = status
	row.order.UpdatedAt = at
	r.store.orders[id] = row
	return nil
}
