package ports

import (
	"context"
	"time"

	"github.com/dejobratic/marketplace/internal/orders/domain"
)

// OrderRepository exposes persistence operations required by the order ledger.
type OrderRepository interface {
	Create(ctx context.Context, order domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	List(ctx context.Context, filter ListFilter) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, id string, status domain.OrderStatus, at time.Time) error
}

// ListFilter narrows list queries by party, status and pagination.
// A PageSize of zero or less returns every match.
type ListFilter struct {
	WholesalerID string
	VendorID     string
	Status       *domain.OrderStatus
	Page         int
	PageSize     int
}

// Offset returns the row offset for the filter's page, starting from page 1.
func (f ListFilter) Offset() int {
	if f.PageSize <= 0 || f.Page <= 1 {
		return 0
	}
	return (f.Page - 1) * f.PageSize
}

// PaymentRepository persists escrow payments.
type PaymentRepository interface {
	Create(ctx context.Context, payment domain.Payment) error
	// GetByOrderID returns the most recent payment for the order.
	GetByOrderID(ctx context.Context, orderID string) (*domain.Payment, error)
	GetByReference(ctx context.Context, reference string) (*domain.Payment, error)
	// MarkCompleted completes the payment carrying reference. found is false
	// when no payment matches.
	MarkCompleted(ctx context.Context, reference string, at, heldUntil time.Time) (found bool, err error)
	// UpdateStatus sets the status of the payment with id, leaving any other
	// payment of the same order untouched.
	UpdateStatus(ctx context.Context, id string, status domain.PaymentStatus, at time.Time) error
}

// TrackingRepository persists logistics tracking records.
type TrackingRepository interface {
	Create(ctx context.Context, tracking domain.Tracking) error
	// GetLatestByOrderID returns the most recently created record for the order.
	GetLatestByOrderID(ctx context.Context, orderID string) (*domain.Tracking, error)
	Update(ctx context.Context, tracking domain.Tracking) error
}

// CatalogLookup reads product snapshots from the externally owned catalog.
type CatalogLookup interface {
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
}

// Transactor runs fn inside a single store transaction. Repositories called
// with the ctx passed to fn take part in that transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
