package adapters

import (
	"context"
	"time"

	"github.com/dejobratic/marketplace/internal/kafka"
	"github.com/dejobratic/marketplace/internal/orders/domain"
	"github.com/dejobratic/marketplace/internal/orders/ports"
	"github.com/dejobratic/marketplace/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type ObservableEventBus struct {
	bus     ports.EventBus
	metrics *kafka.Metrics
}

func NewObservableEventBus(bus ports.EventBus, metrics *kafka.Metrics) *ObservableEventBus {
	return &ObservableEventBus{
		bus:     bus,
		metrics: metrics,
	}
}

func (e *ObservableEventBus) PublishOrderPlaced(ctx context.Context, order domain.Order) error {
	return e.observe(ctx, kafka.TopicOrderPlaced, order.ID, func(ctx context.Context) error {
		return e.bus.PublishOrderPlaced(ctx, order)
	})
}

func (e *ObservableEventBus) PublishOrderStatusChanged(ctx context.Context, orderID string, from, to domain.OrderStatus) error {
	return e.observe(ctx, kafka.TopicOrderStatusChanged, orderID, func(ctx context.Context) error {
		return e.bus.PublishOrderStatusChanged(ctx, orderID, from, to)
	}, attribute.String("order.previous_status", string(from)), attribute.String("order.new_status", string(to)))
}

func (e *ObservableEventBus) PublishPaymentConfirmed(ctx context.Context, payment domain.Payment) error {
	return e.observe(ctx, kafka.TopicPaymentConfirmed, payment.OrderID, func(ctx context.Context) error {
		return e.bus.PublishPaymentConfirmed(ctx, payment)
	}, attribute.String("payment.reference", payment.GatewayReference))
}

func (e *ObservableEventBus) PublishShipmentUpdated(ctx context.Context, tracking domain.Tracking) error {
	return e.observe(ctx, kafka.TopicShipmentUpdated, tracking.OrderID, func(ctx context.Context) error {
		return e.bus.PublishShipmentUpdated(ctx, tracking)
	}, attribute.String("shipment.status", string(tracking.Status)))
}

func (e *ObservableEventBus) observe(ctx context.Context, topic, orderID string, publish func(context.Context) error, extra ...attribute.KeyValue) error {
	ctx, span := telemetry.StartSpan(ctx, "EventBus.Publish "+topic,
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(append([]attribute.KeyValue{
			attribute.String("order.id", orderID),
			attribute.String("event.type", topic),
		}, extra...)...),
	)

	start := time.Now()
	err := publish(ctx)
	e.metrics.RecordPublish(ctx, topic, time.Since(start).Seconds(), err == nil)

	telemetry.EndSpan(span, err)
	return err
}
