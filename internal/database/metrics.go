package database

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type Metrics struct {
	queryDuration metric.Float64Histogram
	queryErrors   metric.Int64Counter
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.queryDuration, err = meter.Float64Histogram(
		"db_query_duration_seconds",
		metric.WithDescription("Database query duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create db_query_duration histogram: %w", err)
	}

	m.queryErrors, err = meter.Int64Counter(
		"db_query_errors_total",
		metric.WithDescription("Database queries that returned an error other than not found"),
		metric.WithUnit("{query}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create db_query_errors_total counter: %w", err)
	}

	return m, nil
}

// RecordQuery records one repository call against table.
func (m *Metrics) RecordQuery(ctx context.Context, table, operation string, durationSeconds float64, failed bool) {
	attrs := metric.WithAttributes(
		attribute.String("table", table),
		attribute.String("operation", operation),
	)
	m.queryDuration.Record(ctx, durationSeconds, attrs)
	if failed {
		m.queryErrors.Add(ctx, 1, attrs)
	}
}
