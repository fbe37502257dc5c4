package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dejobratic/marketplace/internal/orders/app/commands"
	"github.com/dejobratic/marketplace/internal/orders/app/escrow"
	"github.com/dejobratic/marketplace/internal/orders/app/logistics"
	"github.com/dejobratic/marketplace/internal/orders/app/queries"
	"github.com/dejobratic/marketplace/internal/orders/domain"
	"github.com/dejobratic/marketplace/internal/orders/metrics"
	"github.com/dejobratic/marketplace/internal/orders/ports"
)

const (
	// PickupLocation is sent to the carrier until vendors have addresses on file.
	PickupLocation = "Vendor Warehouse"
	// NominalWeight is the shipment weight used for every order.
	NominalWeight = 1.0
)

// Dependencies are the collaborators the fulfillment service is built from.
type Dependencies struct {
	Orders      ports.OrderRepository
	Catalog     ports.CatalogLookup
	Transactor  ports.Transactor
	Events      ports.EventBus
	Idempotency ports.IdempotencyStore
	Escrow      *escrow.Coordinator
	Logistics   *logistics.Dispatcher
	Clock       commands.Clock
}

// Service coordinates the order ledger, escrow and logistics across the
// fulfillment workflow.
type Service struct {
	tx        ports.Transactor
	events    ports.EventBus
	idemStore ports.IdempotencyStore
	escrow    *escrow.Coordinator
	logistics *logistics.Dispatcher
	logger    *slog.Logger
	metrics   *metrics.Metrics

	createOrderHandler  commands.CommandHandler
	updateStatusHandler *commands.UpdateOrderStatusCommandHandler
	getOrderHandler     *queries.GetOrderQueryHandler
	listOrdersHandler   *queries.ListOrdersQueryHandler
}

// NewService wires required dependencies.
func NewService(deps Dependencies, logger *slog.Logger, metrics *metrics.Metrics) *Service {
	createOpts := []commands.CreateOrderOption{}
	if deps.Clock != nil {
		createOpts = append(createOpts, commands.WithCreateClock(deps.Clock))
	}
	coreHandler := commands.NewCreateOrderCommandHandler(deps.Orders, deps.Catalog, createOpts...)

	return &Service{
		tx:                  deps.Transactor,
		events:              deps.Events,
		idemStore:           deps.Idempotency,
		escrow:              deps.Escrow,
		logistics:           deps.Logistics,
		logger:              logger,
		metrics:             metrics,
		createOrderHandler:  commands.NewObservableCommandHandler(coreHandler, logger, metrics),
		updateStatusHandler: commands.NewUpdateOrderStatusCommandHandler(deps.Orders, deps.Clock),
		getOrderHandler:     queries.NewGetOrderQueryHandler(deps.Orders),
		listOrdersHandler:   queries.NewListOrdersQueryHandler(deps.Orders),
	}
}

// PlaceOrderInput captures payload for placing an order.
type PlaceOrderInput struct {
	WholesalerID    string
	VendorID        string
	Items           []commands.OrderItemRequest
	DeliveryAddress string
}

// Placement is a newly placed order and its shipment. Tracking is nil when
// the shipment could not be stored.
type Placement struct {
	Order    *domain.Order
	Tracking *domain.Tracking
}

// PlaceOrder records the order and then registers its shipment. A failed
// registration is logged and never undoes the order.
func (s *Service) PlaceOrder(ctx context.Context, input PlaceOrderInput) (*Placement, error) {
	order, err := s.createOrderHandler.Handle(ctx, commands.CreateOrderCommand{
		WholesalerID:    input.WholesalerID,
		VendorID:        input.VendorID,
		Items:           input.Items,
		DeliveryAddress: input.DeliveryAddress,
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, "order.placed", order.ID, s.events.PublishOrderPlaced(ctx, *order))

	tracking, err := s.logistics.RegisterShipment(ctx, logistics.Shipment{
		OrderID:          order.ID,
		PickupLocation:   PickupLocation,
		DeliveryLocation: order.DeliveryAddress,
		Weight:           NominalWeight,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "shipment registration failed after order placement",
			"order_id", order.ID,
			"error", err,
		)
		return &Placement{Order: order}, nil
	}
	s.publish(ctx, "shipment.updated", order.ID, s.events.PublishShipmentUpdated(ctx, *tracking))

	return &Placement{Order: order, Tracking: tracking}, nil
}

// GetOrder retrieves an order by ID.
func (s *Service) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	return s.getOrderHandler.Handle(ctx, queries.GetOrderQuery{OrderID: id})
}

// OrderDetails is an order together with its payment and tracking, either of
// which may be absent.
type OrderDetails struct {
	Order    *domain.Order    `json:"order"`
	Payment  *domain.Payment  `json:"payment"`
	Tracking *domain.Tracking `json:"tracking"`
}

func (s *Service) GetOrderDetails(ctx context.Context, id string) (*OrderDetails, error) {
	order, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	details := &OrderDetails{Order: order}

	details.Payment, err = s.escrow.GetPayment(ctx, id)
	if err != nil && !domain.IsNotFound(err) {
		return nil, fmt.Errorf("load payment: %w", err)
	}
	details.Tracking, err = s.logistics.GetTrackingForOrder(ctx, id)
	if err != nil && !domain.IsNotFound(err) {
		return nil, fmt.Errorf("load tracking: %w", err)
	}
	return details, nil
}

// ListOrders returns orders using a filter.
func (s *Service) ListOrders(ctx context.Context, filter ports.ListFilter) ([]domain.Order, error) {
	return s.listOrdersHandler.Handle(ctx, filter)
}

// UpdateOrderStatus moves the order through the transition table. Callers
// authorize the change before calling.
func (s *Service) UpdateOrderStatus(ctx context.Context, id string, status domain.OrderStatus) (*domain.Order, error) {
	change, err := s.updateStatusHandler.Handle(ctx, commands.UpdateOrderStatusCommand{OrderID: id, Status: status})
	if err != nil {
		return nil, err
	}
	s.statusChanged(ctx, change)
	return change.Order, nil
}

// CancelOrder cancels any order that has not reached a terminal status.
func (s *Service) CancelOrder(ctx context.Context, id string) (*domain.Order, error) {
	return s.UpdateOrderStatus(ctx, id, domain.StatusCancelled)
}

// InitiatePayment starts payment of the order total. Only pending orders can
// be paid.
func (s *Service) InitiatePayment(ctx context.Context, orderID, email string) (*escrow.Initiation, error) {
	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != domain.StatusPending {
		return nil, fmt.Errorf("%w: order is %s", domain.ErrOrderNotPayable, order.Status)
	}
	return s.escrow.Initiate(ctx, order.ID, order.Total, email)
}

// ConfirmPayment verifies reference with the gateway and, on success, completes
// the payment and marks a pending order paid in one transaction. The order is
// the one named in the gateway metadata, falling back to the stored payment's
// order when the metadata carries none. Orders past pending are left as they are.
func (s *Service) ConfirmPayment(ctx context.Context, reference string) (*escrow.Verdict, error) {
	verdict, err := s.escrow.Verify(ctx, reference)
	if err != nil {
		s.metrics.RecordPayment(ctx, "confirm", false)
		return nil, err
	}
	if !verdict.Confirmed {
		s.metrics.RecordPayment(ctx, "confirm", false)
		s.logger.InfoContext(ctx, "payment not confirmed by gateway", "reference", reference)
		return verdict, nil
	}

	var (
		payment *domain.Payment
		change  *commands.StatusChange
	)
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		payment, change = nil, nil

		found, err := s.escrow.Complete(ctx, reference)
		if err != nil {
			return err
		}
		verdict.PaymentFound = found

		if found {
			if payment, err = s.escrow.PaymentByReference(ctx, reference); err != nil {
				return err
			}
			switch {
			case verdict.OrderID == "":
				verdict.OrderID = payment.OrderID
			case verdict.OrderID != payment.OrderID:
				s.logger.WarnContext(ctx, "gateway metadata names a different order than the stored payment",
					"reference", reference,
					"order_id", verdict.OrderID,
					"payment_order_id", payment.OrderID,
				)
			}
		}
		orderID := verdict.OrderID
		if orderID == "" {
			return nil
		}

		order, err := s.GetOrder(ctx, orderID)
		if err != nil {
			if domain.IsNotFound(err) {
				s.logger.WarnContext(ctx, "confirmed payment references unknown order", "order_id", orderID)
				return nil
			}
			return err
		}
		if order.Status != domain.StatusPending {
			return nil
		}
		change, err = s.updateStatusHandler.Handle(ctx, commands.UpdateOrderStatusCommand{OrderID: orderID, Status: domain.StatusPaid})
		return err
	})
	if err != nil {
		s.metrics.RecordPayment(ctx, "confirm", false)
		return nil, fmt.Errorf("confirm payment: %w", err)
	}

	s.metrics.RecordPayment(ctx, "confirm", true)
	s.logger.InfoContext(ctx, "payment confirmed",
		"reference", reference,
		"order_id", verdict.OrderID,
		"payment_found", verdict.PaymentFound,
	)
	if payment != nil {
		s.publish(ctx, "payment.confirmed", payment.OrderID, s.events.PublishPaymentConfirmed(ctx, *payment))
	}
	if change != nil {
		s.statusChanged(ctx, change)
	}
	return verdict, nil
}

func (s *Service) ReleasePayment(ctx context.Context, orderID string) (*domain.Payment, error) {
	return s.escrow.Release(ctx, orderID)
}

func (s *Service) RefundPayment(ctx context.Context, orderID string) (*domain.Payment, error) {
	return s.escrow.Refund(ctx, orderID)
}

func (s *Service) GetTracking(ctx context.Context, orderID string) (*domain.Tracking, error) {
	return s.logistics.GetTrackingForOrder(ctx, orderID)
}

// AdvanceShipment applies a shipment status update and announces it.
func (s *Service) AdvanceShipment(ctx context.Context, orderID string, update logistics.StatusUpdate) (*domain.Tracking, error) {
	tracking, err := s.logistics.AdvanceStatus(ctx, orderID, update)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, "shipment.updated", orderID, s.events.PublishShipmentUpdated(ctx, *tracking))
	return tracking, nil
}

// SaveIdempotentResponse writes response details for a key.
func (s *Service) SaveIdempotentResponse(ctx context.Context, key string, response ports.StoredResponse) error {
	return s.idemStore.Save(ctx, key, response)
}

// GetIdempotentResponse retrieves previously stored response data.
func (s *Service) GetIdempotentResponse(ctx context.Context, key string) (*ports.StoredResponse, error) {
	return s.idemStore.Get(ctx, key)
}

func (s *Service) statusChanged(ctx context.Context, change *commands.StatusChange) {
	if !change.Changed() {
		return
	}
	s.metrics.RecordOrderTransition(ctx, string(change.Order.Status))
	s.logger.InfoContext(ctx, "order status changed",
		"order_id", change.Order.ID,
		"from", string(change.Previous),
		"to", string(change.Order.Status),
	)
	err := s.events.PublishOrderStatusChanged(ctx, change.Order.ID, change.Previous, change.Order.Status)
	s.publish(ctx, "order.status_changed", change.Order.ID, err)
}

// publish logs event delivery failures. Events are notifications; the state
// change they describe is already committed.
func (s *Service) publish(ctx context.Context, event, orderID string, err error) {
	if err != nil {
		s.logger.WarnContext(ctx, "failed to publish event",
			"event", event,
			"order_id", orderID,
			"error", err,
		)
	}
}
