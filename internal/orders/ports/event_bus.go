package ports

import (
	"context"

	"github.com/dejobratic/marketplace/internal/orders/domain"
)

// EventBus defines the contract for publishing fulfillment lifecycle events.
type EventBus interface {
	PublishOrderPlaced(ctx context.Context, order domain.Order) error
	PublishOrderStatusChanged(ctx context.Context, orderID string, from, to domain.OrderStatus) error
	PublishPaymentConfirmed(ctx context.Context, payment domain.Payment) error
	PublishShipmentUpdated(ctx context.Context, tracking domain.Tracking) error
}
