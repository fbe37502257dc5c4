package kafka

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestRecordPublish(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	metrics, err := NewMetrics(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	metrics.RecordPublish(ctx, TopicOrderPlaced, 0.2, true)
	metrics.RecordPublish(ctx, TopicOrderPlaced, 0.1, true)
	metrics.RecordPublish(ctx, TopicPaymentConfirmed, 0.3, false)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	data := map[string]metricdata.Aggregation{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			data[m.Name] = m.Data
		}
	}

	histogram, ok := data["kafka_producer_latency_seconds"].(metricdata.Histogram[float64])
	require.True(t, ok, "latency histogram missing")
	assert.Len(t, histogram.DataPoints, 2)

	events, ok := data["fulfillment_events_published_total"].(metricdata.Sum[int64])
	require.True(t, ok, "events counter missing")
	require.Len(t, events.DataPoints, 2)

	counts := map[string]int64{}
	for _, dp := range events.DataPoints {
		eventType, _ := dp.Attributes.Value(attribute.Key("event_type"))
		status, _ := dp.Attributes.Value(attribute.Key("status"))
		counts[eventType.AsString()+"/"+status.AsString()] = dp.Value
	}
	assert.Equal(t, map[string]int64{
		TopicOrderPlaced + "/success":    2,
		TopicPaymentConfirmed + "/error": 1,
	}, counts)
}
