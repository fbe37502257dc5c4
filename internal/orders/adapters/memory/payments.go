package memory

import (
	"context"
	"time"

	"github.com/dejobratic/marketplace/internal/orders/domain"
)

type paymentRow = domain.Payment

// PaymentRepository is the escrow view of a Store.
type PaymentRepository struct {
	store *Store
}

func (r *PaymentRepository) Create(_ context.Context, payment domain.Payment) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.payments = append(r.store.payments, clonePayment(payment))
	return nil
}

func (r *PaymentRepository) GetByOrderID(_ context.Context, orderID string) (*domain.Payment, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for i := len(r.store.payments) - 1; i >= 0; i-- {
		if r.store.payments[i].OrderID == orderID {
			payment := clonePayment(r.store.payments[i])
			return &payment, nil
		}
	}
	return nil, domain.ErrPaymentNotFound
}

func (r *PaymentRepository) GetByReference(_ context.Context, reference string) (*domain.Payment, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for i := len(r.store.payments) - 1; i >= 0; i-- {
		if r.store.payments[i].GatewayReference == reference {
			payment := clonePayment(r.store.payments[i])
			return &payment, nil
		}
	}
	return nil, domain.ErrPaymentNotFound
}

func (r *PaymentRepository) MarkCompleted(_ context.Context, reference string, at, heldUntil time.Time) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	found := false
	for i := range r.store.payments {
		if r.store.payments[i].GatewayReference != reference {
			continue
		}
		held := heldUntil
		r.store.payments[i].Status = domain.PaymentCompleted
		r.store.payments[i].EscrowHeldUntil = &held
		r.store.payments[i].UpdatedAt = at
		found = true
	}
	return found, nil
}

func (r *PaymentRepository) UpdateStatus(_ context.Context, id string, status domain.PaymentStatus, at time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for i := range r.store.payments {
		if r.store.payments[i].ID == id {
			r.store.payments[i].Status = status
			r.store.payments[i].UpdatedAt = at
			return nil
		}
	}
	return domain.ErrPaymentNotFound
}

func clonePayment(p domain.Payment) domain.Payment {
	if p.EscrowHeldUntil != nil {
		held := *p.EscrowHeldUntil
		p.EscrowHeldUntil = &held
	}
	return p
}
