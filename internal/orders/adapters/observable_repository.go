package adapters

import (
	"context"
	"time"

	"github.com/dejobratic/marketplace/internal/database"
	"github.com/dejobratic/marketplace/internal/orders/domain"
	"github.com/dejobratic/marketplace/internal/orders/ports"
	"github.com/dejobratic/marketplace/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// observeQuery traces and times a single repository call. Not-found results
// are expected outcomes and do not mark the span or count as errors.
func observeQuery(ctx context.Context, metrics *database.Metrics, table, operation string, call func(context.Context) error, attrs ...attribute.KeyValue) error {
	ctx, span := telemetry.StartSpan(ctx, table+"."+operation)
	defer span.End()

	telemetry.AddSpanAttributes(span, append([]attribute.KeyValue{
		attribute.String("db.table", table),
		attribute.String("operation", operation),
	}, attrs...)...)

	start := time.Now()
	err := call(ctx)
	duration := time.Since(start).Seconds()

	failed := err != nil && !domain.IsNotFound(err)
	metrics.RecordQuery(ctx, table, operation, duration, failed)

	if failed {
		telemetry.RecordSpanError(span, err)
		return err
	}

	telemetry.SetSpanSuccess(span)
	return err
}

type ObservableOrderRepository struct {
	repo    ports.OrderRepository
	metrics *database.Metrics
}

func NewObservableOrderRepository(repo ports.OrderRepository, metrics *database.Metrics) *ObservableOrderRepository {
	return &ObservableOrderRepository{
		repo:    repo,
		metrics: metrics,
	}
}

func (r *ObservableOrderRepository) Create(ctx context.Context, order domain.Order) error {
	return observeQuery(ctx, r.metrics, "orders", "create", func(ctx context.Context) error {
		return r.repo.Create(ctx, order)
	}, attribute.String("order.id", order.ID))
}

func (r *ObservableOrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	var order *domain.Order
	err := observeQuery(ctx, r.metrics, "orders", "get_by_id", func(ctx context.Context) error {
		var err error
		order, err = r.repo.GetByID(ctx, id)
		return err
	}, attribute.String("order.id", id))
	return order, err
}

func (r *ObservableOrderRepository) List(ctx context.Context, filter ports.ListFilter) ([]domain.Order, error) {
	attrs := []attribute.KeyValue{
		attribute.Int("page", filter.Page),
		attribute.Int("page_size", filter.PageSize),
	}
	if filter.Status != nil {
		attrs = append(attrs, attribute.String("filter.status", string(*filter.Status)))
	}

	var orders []domain.Order
	err := observeQuery(ctx, r.metrics, "orders", "list", func(ctx context.Context) error {
		var err error
		orders, err = r.repo.List(ctx, filter)
		return err
	}, attrs...)
	return orders, err
}

func (r *ObservableOrderRepository) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus, at time.Time) error {
	return observeQuery(ctx, r.metrics, "orders", "update_status", func(ctx context.Context) error {
		return r.repo.UpdateStatus(ctx, id, status, at)
	}, attribute.String("order.id", id), attribute.String("order.new_status", string(status)))
}

type ObservablePaymentRepository struct {
	repo    ports.PaymentRepository
	metrics *database.Metrics
}

func NewObservablePaymentRepository(repo ports.PaymentRepository, metrics *database.Metrics) *ObservablePaymentRepository {
	return &ObservablePaymentRepository{
		repo:    repo,
		metrics: metrics,
	}
}

func (r *ObservablePaymentRepository) Create(ctx context.Context, payment domain.Payment) error {
	return observeQuery(ctx, r.metrics, "payments", "create", func(ctx context.Context) error {
		return r.repo.Create(ctx, payment)
	}, attribute.String("order.id", payment.OrderID))
}

func (r *ObservablePaymentRepository) GetByOrderID(ctx context.Context, orderID string) (*domain.Payment, error) {
	var payment *domain.Payment
	err := observeQuery(ctx, r.metrics, "payments", "get_by_order_id", func(ctx context.Context) error {
		var err error
		payment, err = r.repo.GetByOrderID(ctx, orderID)
		return err
	}, attribute.String("order.id", orderID))
	return payment, err
}

func (r *ObservablePaymentRepository) GetByReference(ctx context.Context, reference string) (*domain.Payment, error) {
	var payment *domain.Payment
	err := observeQuery(ctx, r.metrics, "payments", "get_by_reference", func(ctx context.Context) error {
		var err error
		payment, err = r.repo.GetByReference(ctx, reference)
		return err
	}, attribute.String("payment.reference", reference))
	return payment, err
}

func (r *ObservablePaymentRepository) MarkCompleted(ctx context.Context, reference string, at, heldUntil time.Time) (bool, error) {
	var found bool
	err := observeQuery(ctx, r.metrics, "payments", "mark_completed", func(ctx context.Context) error {
		var err error
		found, err = r.repo.MarkCompleted(ctx, reference, at, heldUntil)
		return err
	}, attribute.String("payment.reference", reference))
	return found, err
}

func (r *ObservablePaymentRepository) UpdateStatus(ctx context.Context, id string, status domain.PaymentStatus, at time.Time) error {
	return observeQuery(ctx, r.metrics, "payments", "update_status", func(ctx context.Context) error {
		return r.repo.UpdateStatus(ctx, id, status, at)
	}, attribute.String("payment.id", id), attribute.String("payment.status", string(status)))
}

type ObservableTrackingRepository struct {
	repo    ports.TrackingRepository
	metrics *database.Metrics
}

func NewObservableTrackingRepository(repo ports.TrackingRepository, metrics *database.Metrics) *ObservableTrackingRepository {
	return &ObservableTrackingRepository{
		repo:    repo,
		metrics: metrics,
	}
}

func (r *ObservableTrackingRepository) Create(ctx context.Context, tracking domain.Tracking) error {
	return observeQuery(ctx, r.metrics, "logistics_tracking", "create", func(ctx context.Context) error {
		return r.repo.Create(ctx, tracking)
	}, attribute.String("order.id", tracking.OrderID))
}

func (r *ObservableTrackingRepository) GetLatestByOrderID(ctx context.Context, orderID string) (*domain.Tracking, error) {
	var tracking *domain.Tracking
	err := observeQuery(ctx, r.metrics, "logistics_tracking", "get_latest_by_order_id", func(ctx context.Context) error {
		var err error
		tracking, err = r.repo.GetLatestByOrderID(ctx, orderID)
		return err
	}, attribute.String("order.id", orderID))
	return tracking, err
}

func (r *ObservableTrackingRepository) Update(ctx context.Context, tracking domain.Tracking) error {
	return observeQuery(ctx, r.metrics, "logistics_tracking", "update", func(ctx context.Context) error {
		return r.repo.Update(ctx, tracking)
	}, attribute.String("order.id", tracking.OrderID), attribute.String("shipment.status", string(tracking.Status)))
}
