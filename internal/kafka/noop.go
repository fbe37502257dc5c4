package kafka

import (
	"context"
	"log/slog"

	"github.com/dejobratic/marketplace/internal/orders/domain"
)

// NoopEventBus logs events at debug level instead of sending them. Used when
// no brokers are configured.
type NoopEventBus struct {
	logger *slog.Logger
}

func NewNoopEventBus(logger *slog.Logger) *NoopEventBus {
	return &NoopEventBus{logger: logger}
}

func (n *NoopEventBus) PublishOrderPlaced(ctx context.Context, order domain.Order) error {
	n.logger.DebugContext(ctx, "event::order_placed", "order_id", order.ID)
	return nil
}

func (n *NoopEventBus) PublishOrderStatusChanged(ctx context.Context, orderID string, from, to domain.OrderStatus) error {
	n.logger.DebugContext(ctx, "event::order_status_changed", "order_id", orderID, "from", string(from), "to", string(to))
	return nil
}

func (n *NoopEventBus) PublishPaymentConfirmed(ctx context.Context, payment domain.Payment) error {
	n.logger.DebugContext(ctx, "event::payment_confirmed", "order_id", payment.OrderID)
	return nil
}

func (n *NoopEventBus) PublishShipmentUpdated(ctx context.Context, tracking domain.Tracking) error {
	n.logger.DebugContext(ctx, "event::shipment_updated", "order_id", tracking.OrderID, "status", string(tracking.Status))
	return nil
}
