package adapters

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dejobratic/marketplace/internal/database"
	"github.com/dejobratic/marketplace/internal/kafka"
	"github.com/dejobratic/marketplace/internal/orders/adapters/memory"
	"github.com/dejobratic/marketplace/internal/orders/domain"
	"github.com/dejobratic/marketplace/internal/orders/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := map[string]metricdata.Aggregation{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

type brokenOrders struct {
	ports.OrderRepository
}

func (brokenOrders) UpdateStatus(context.Context, string, domain.OrderStatus, time.Time) error {
	return errors.New("connection refused")
}

func TestObservableRepositories(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	dbMetrics, err := database.NewMetrics(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test"))
	require.NoError(t, err)

	store := memory.NewStore()
	orders := NewObservableOrderRepository(store.Orders(), dbMetrics)
	payments := NewObservablePaymentRepository(store.Payments(), dbMetrics)
	tracking := NewObservableTrackingRepository(store.Tracking(), dbMetrics)
	ctx := context.Background()

	_, err = orders.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)

	found, err := payments.MarkCompleted(ctx, "nope", time.Now(), time.Now())
	require.NoError(t, err)
	assert.False(t, found)

	_, err = tracking.GetLatestByOrderID(ctx, "missing")
	assert.True(t, domain.IsNotFound(err))

	broken := NewObservableOrderRepository(brokenOrders{}, dbMetrics)
	assert.Error(t, broken.UpdateStatus(ctx, "o-1", domain.StatusPaid, time.Now()))

	data := collect(t, reader)

	histogram, ok := data["db_query_duration_seconds"].(metricdata.Histogram[float64])
	require.True(t, ok)
	assert.Len(t, histogram.DataPoints, 4)

	errorsSum, ok := data["db_query_errors_total"].(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, errorsSum.DataPoints, 1)
	op, _ := errorsSum.DataPoints[0].Attributes.Value(attribute.Key("operation"))
	assert.Equal(t, "update_status", op.AsString())
}

type failingBus struct {
	ports.EventBus
}

func (failingBus) PublishOrderPlaced(context.Context, domain.Order) error {
	return errors.New("broker down")
}

func TestObservableEventBus(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	kafkaMetrics, err := kafka.NewMetrics(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test"))
	require.NoError(t, err)

	bus := NewObservableEventBus(failingBus{}, kafkaMetrics)
	err = bus.PublishOrderPlaced(context.Background(), domain.Order{ID: "o-1"})
	assert.EqualError(t, err, "broker down")

	histogram, ok := collect(t, reader)["kafka_producer_latency_seconds"].(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, histogram.DataPoints, 1)
	status, _ := histogram.DataPoints[0].Attributes.Value(attribute.Key("status"))
	assert.Equal(t, "error", status.AsString())
}
