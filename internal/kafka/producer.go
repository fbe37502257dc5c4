package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dejobratic/marketplace/internal/orders/domain"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
)

// MessageWriter is the part of *kafka.Writer the event bus needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewWriter builds a writer that picks the topic per message.
func NewWriter(brokers []string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		BatchTimeout:           10 * time.Millisecond,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
}

// EventBus publishes fulfillment events as JSON envelopes keyed by order id so
// every event of an order lands on the same partition.
type EventBus struct {
	writer      MessageWriter
	topicPrefix string
	now         func() time.Time
}

func NewEventBus(writer MessageWriter, topicPrefix string) *EventBus {
	return &EventBus{
		writer:      writer,
		topicPrefix: topicPrefix,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (b *EventBus) PublishOrderPlaced(ctx context.Context, order domain.Order) error {
	return b.publish(ctx, TopicOrderPlaced, order.ID, OrderPlaced{
		OrderID:      order.ID,
		WholesalerID: order.WholesalerID,
		VendorID:     order.VendorID,
		Total:        order.Total,
		ItemCount:    len(order.Items),
	})
}

func (b *EventBus) PublishOrderStatusChanged(ctx context.Context, orderID string, from, to domain.OrderStatus) error {
	return b.publish(ctx, TopicOrderStatusChanged, orderID, OrderStatusChanged{
		OrderID: orderID,
		From:    string(from),
		To:      string(to),
	})
}

func (b *EventBus) PublishPaymentConfirmed(ctx context.Context, payment domain.Payment) error {
	return b.publish(ctx, TopicPaymentConfirmed, payment.OrderID, PaymentConfirmed{
		OrderID:         payment.OrderID,
		PaymentID:       payment.ID,
		Reference:       payment.GatewayReference,
		Amount:          payment.Amount,
		EscrowHeldUntil: payment.EscrowHeldUntil,
	})
}

func (b *EventBus) PublishShipmentUpdated(ctx context.Context, tracking domain.Tracking) error {
	return b.publish(ctx, TopicShipmentUpdated, tracking.OrderID, ShipmentUpdated{
		OrderID:        tracking.OrderID,
		TrackingNumber: tracking.TrackingNumber,
		Carrier:        tracking.Carrier,
		Status:         string(tracking.Status),
		Location:       tracking.Location,
	})
}

func (b *EventBus) Close() error {
	return b.writer.Close()
}

func (b *EventBus) publish(ctx context.Context, eventType, key string, data any) error {
	now := b.now()
	value, err := json.Marshal(Envelope{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: now,
		Data:       data,
	})
	if err != nil {
		return fmt.Errorf("encode %s event: %w", eventType, err)
	}

	headers := headerCarrier{{Key: "event_type", Value: []byte(eventType)}}
	otel.GetTextMapPropagator().Inject(ctx, &headers)

	err = b.writer.WriteMessages(ctx, kafka.Message{
		Topic:   b.topicPrefix + eventType,
		Key:     []byte(key),
		Value:   value,
		Headers: headers,
		Time:    now,
	})
	if err != nil {
		return fmt.Errorf("publish %s event: %w", eventType, err)
	}
	return nil
}

// headerCarrier lets the otel propagator write trace context into message headers.
type headerCarrier []kafka.Header

func (c *headerCarrier) Get(key string) string {
	for _, h := range *c {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c *headerCarrier) Set(key, value string) {
	for i, h := range *c {
		if h.Key == key {
			(*c)[i].Value = []byte(value)
			return
		}
	}
	*c = append(*c, kafka.Header{Key: key, Value: []byte(value)})
}

func (c *headerCarrier) Keys() []string {
	keys := make([]string, len(*c))
	for i, h := range *c {
		keys[i] = h.Key
	}
	return keys
}
