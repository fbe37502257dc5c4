package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

type Metrics struct {
	ordersPlacedTotal      metric.Int64Counter
	orderPlacementDuration metric.Float64Histogram
	orderTransitionsTotal  metric.Int64Counter
	paymentsTotal          metric.Int64Counter
	shipmentsTotal         metric.Int64Counter
	externalCallDuration   metric.Float64Histogram
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.ordersPlacedTotal, err = meter.Int64Counter(
		"orders_placed_total",
		metric.WithDescription("Total number of order placement attempts"),
		metric.WithUnit("{order}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create orders_placed_total counter: %w", err)
	}

	m.orderPlacementDuration, err = meter.Float64Histogram(
		"order_placement_duration_seconds",
		metric.WithDescription("Duration of order placement including shipment registration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create order_placement_duration histogram: %w", err)
	}

	m.orderTransitionsTotal, err = meter.Int64Counter(
		"order_status_transitions_total",
		metric.WithDescription("Order status transitions by target status"),
		metric.WithUnit("{transition}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create order_status_transitions_total counter: %w", err)
	}

	m.paymentsTotal, err = meter.Int64Counter(
		"escrow_payments_total",
		metric.WithDescription("Escrow payment operations by operation and outcome"),
		metric.WithUnit("{payment}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create escrow_payments_total counter: %w", err)
	}

	m.shipmentsTotal, err = meter.Int64Counter(
		"shipments_registered_total",
		metric.WithDescription("Shipments registered by carrier"),
		metric.WithUnit("{shipment}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create shipments_registered_total counter: %w", err)
	}

	m.externalCallDuration, err = meter.Float64Histogram(
		"external_call_duration_seconds",
		metric.WithDescription("Duration of calls to the payment gateway and carrier"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create external_call_duration histogram: %w", err)
	}

	return m, nil
}

// NewNoopMetrics returns Metrics backed by a no-op meter, for tests and for
// running with metrics disabled.
func NewNoopMetrics() *Metrics {
	m, _ := NewMetrics(noop.NewMeterProvider().Meter("noop"))
	return m
}

func outcome(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

func (m *Metrics) RecordOrderPlaced(ctx context.Context, success bool) {
	m.ordersPlacedTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("status", outcome(success)),
	))
}

func (m *Metrics) RecordOrderPlacementDuration(ctx context.Context, durationSeconds float64) {
	m.orderPlacementDuration.Record(ctx, durationSeconds)
}

func (m *Metrics) RecordOrderTransition(ctx context.Context, to string) {
	m.orderTransitionsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("to", to),
	))
}

// RecordPayment counts an escrow operation such as initiate, confirm, release or refund.
func (m *Metrics) RecordPayment(ctx context.Context, operation string, success bool) {
	m.paymentsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("status", outcome(success)),
	))
}

func (m *Metrics) RecordShipmentRegistered(ctx context.Context, carrier string) {
	m.shipmentsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("carrier", carrier),
	))
}

func (m *Metrics) RecordExternalCall(ctx context.Context, provider, operation string, durationSeconds float64, success bool) {
	m.externalCallDuration.Record(ctx, durationSeconds, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("operation", operation),
		attribute.String("status", outcome(success)),
	))
}
