package kafka

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics tracks outbound fulfillment events.
type Metrics struct {
	publishLatency metric.Float64Histogram
	eventsTotal    metric.Int64Counter
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	latency, err := meter.Float64Histogram(
		"kafka_producer_latency_seconds",
		metric.WithDescription("Time spent handing a fulfillment event to the broker"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka_producer_latency histogram: %w", err)
	}

	events, err := meter.Int64Counter(
		"fulfillment_events_published_total",
		metric.WithDescription("Fulfillment events published, by event type and outcome"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create fulfillment_events_published counter: %w", err)
	}

	return &Metrics{publishLatency: latency, eventsTotal: events}, nil
}

// RecordPublish records one publish attempt of eventType.
func (m *Metrics) RecordPublish(ctx context.Context, eventType string, durationSeconds float64, success bool) {
	outcome := "success"
	if !success {
		outcome = "error"
	}
	attrs := metric.WithAttributes(
		attribute.String("event_type", eventType),
		attribute.String("status", outcome),
	)
	m.publishLatency.Record(ctx, durationSeconds, attrs)
	m.eventsTotal.Add(ctx, 1, attrs)
}
