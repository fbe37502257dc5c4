package commands

import (
	"context"
	"log/slog"
	"time"

	"github.com/dejobratic/marketplace/internal/orders/domain"
	"github.com/dejobratic/marketplace/internal/orders/metrics"
	"github.com/dejobratic/marketplace/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

type ObservableCommandHandler struct {
	handler CommandHandler
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewObservableCommandHandler(handler CommandHandler, logger *slog.Logger, metrics *metrics.Metrics) *ObservableCommandHandler {
	return &ObservableCommandHandler{
		handler: handler,
		logger:  logger,
		metrics: metrics,
	}
}

func (o *ObservableCommandHandler) Handle(ctx context.Context, cmd CreateOrderCommand) (*domain.Order, error) {
	ctx, span := telemetry.StartSpan(ctx, "CreateOrderCommand.Handle")
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.String("order.wholesaler_id", cmd.WholesalerID),
		attribute.String("order.vendor_id", cmd.VendorID),
		attribute.Int("order.item_count", len(cmd.Items)),
	)

	start := time.Now()
	var success bool
	defer func() {
		o.metrics.RecordOrderPlacementDuration(ctx, time.Since(start).Seconds())
		o.metrics.RecordOrderPlaced(ctx, success)
	}()

	o.logger.InfoContext(ctx, "creating order",
		"wholesaler_id", cmd.WholesalerID,
		"vendor_id", cmd.VendorID,
		"item_count", len(cmd.Items),
	)

	order, err := o.handler.Handle(ctx, cmd)
	if err != nil {
		telemetry.RecordSpanError(span, err)
		o.logger.ErrorContext(ctx, "failed to create order",
			"error", err,
			"wholesaler_id", cmd.WholesalerID,
			"vendor_id", cmd.VendorID,
		)
		return nil, err
	}

	telemetry.AddSpanAttributes(span,
		attribute.String("order.id", order.ID),
		attribute.String("order.total", order.Total.String()),
		attribute.String("order.status", string(order.Status)),
	)

	o.logger.InfoContext(ctx, "order created",
		"order_id", order.ID,
		"total", order.Total.String(),
	)

	success = true
	telemetry.SetSpanSuccess(span)

	return order, nil
}
