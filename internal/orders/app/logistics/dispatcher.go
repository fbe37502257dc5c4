// Package logistics registers shipments with the carrier and tracks their
// progress. Carrier outages never fail a registration: the dispatcher falls
// back to a locally numbered record instead.
package logistics

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dejobratic/marketplace/internal/orders/domain"
	"github.com/dejobratic/marketplace/internal/orders/metrics"
	"github.com/dejobratic/marketplace/internal/orders/ports"
	"github.com/google/uuid"
)

const (
	DefaultDeliveryWindow = 72 * time.Hour
	DefaultCallTimeout    = 10 * time.Second

	providerName = "gig_logistics"
)

// Shipment describes what to hand to the carrier.
type Shipment struct {
	OrderID          string
	PickupLocation   string
	DeliveryLocation string
	Weight           float64
}

// StatusUpdate moves a shipment. A nil Status advances one step along the
// progression; a nil Location keeps the current one for explicit updates.
type StatusUpdate struct {
	Status   *domain.ShipmentStatus
	Location *string
}

type Dispatcher struct {
	tracking ports.TrackingRepository
	carrier  ports.Carrier
	logger   *slog.Logger
	metrics  *metrics.Metrics

	now     func() time.Time
	window  time.Duration
	timeout time.Duration
}

type Option func(*Dispatcher)

func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

// WithDeliveryWindow sets the offset used for the estimated delivery date.
func WithDeliveryWindow(window time.Duration) Option {
	return func(d *Dispatcher) { d.window = window }
}

func WithCallTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) { d.timeout = timeout }
}

func NewDispatcher(
	tracking ports.TrackingRepository,
	carrier ports.Carrier,
	logger *slog.Logger,
	metrics *metrics.Metrics,
	opts ...Option,
) *Dispatcher {
	d := &Dispatcher{
		tracking: tracking,
		carrier:  carrier,
		logger:   logger,
		metrics:  metrics,
		now:      func() time.Time { return time.Now().UTC() },
		window:   DefaultDeliveryWindow,
		timeout:  DefaultCallTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// RegisterShipment books the shipment with the carrier and stores a pending
// tracking record. Only store failures are returned.
func (d *Dispatcher) RegisterShipment(ctx context.Context, shipment Shipment) (*domain.Tracking, error) {
	if strings.TrimSpace(shipment.OrderID) == "" {
		return nil, fmt.Errorf("%w: order_id is required", domain.ErrValidation)
	}

	now := d.now()
	tracking := domain.Tracking{
		ID:                uuid.NewString(),
		OrderID:           shipment.OrderID,
		Status:            domain.ShipmentPending,
		EstimatedDelivery: now.Add(d.window),
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	receipt, err := d.book(ctx, shipment)
	if err != nil {
		d.logger.WarnContext(ctx, "carrier registration failed, using local tracking",
			"order_id", shipment.OrderID,
			"error", err,
		)
		tracking.TrackingNumber = domain.LocalTrackingNumber(now)
		tracking.Carrier = domain.CarrierLocal
	} else {
		tracking.TrackingNumber = receipt.TrackingNumber
		tracking.Carrier = domain.CarrierGIGLogistics
		tracking.ExternalRef = receipt.ShipmentID
	}

	if err := d.tracking.Create(ctx, tracking); err != nil {
		return nil, fmt.Errorf("persist tracking: %w", err)
	}

	d.metrics.RecordShipmentRegistered(ctx, tracking.Carrier)
	d.logger.InfoContext(ctx, "shipment registered",
		"order_id", tracking.OrderID,
		"tracking_number", tracking.TrackingNumber,
		"carrier", tracking.Carrier,
	)
	return &tracking, nil
}

func (d *Dispatcher) book(ctx context.Context, shipment Shipment) (*ports.ShipmentReceipt, error) {
	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	start := time.Now()
	receipt, err := d.carrier.CreateShipment(callCtx, ports.ShipmentRequest{
		Reference:        shipment.OrderID,
		PickupLocation:   shipment.PickupLocation,
		DeliveryLocation: shipment.DeliveryLocation,
		Weight:           shipment.Weight,
	})
	d.metrics.RecordExternalCall(ctx, providerName, "create_shipment", time.Since(start).Seconds(), err == nil)
	if err != nil {
		return nil, err
	}
	if receipt == nil || strings.TrimSpace(receipt.TrackingNumber) == "" {
		return nil, fmt.Errorf("%w: empty tracking number", domain.ErrCarrierUnavailable)
	}
	return receipt, nil
}

// GetTrackingForOrder returns the most recent tracking record for the order.
func (d *Dispatcher) GetTrackingForOrder(ctx context.Context, orderID string) (*domain.Tracking, error) {
	return d.tracking.GetLatestByOrderID(ctx, orderID)
}

// AdvanceStatus applies update to the order's latest tracking record.
// Advancing a delivered shipment returns it unchanged.
func (d *Dispatcher) AdvanceStatus(ctx context.Context, orderID string, update StatusUpdate) (*domain.Tracking, error) {
	tracking, err := d.tracking.GetLatestByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	now := d.now()
	if update.Status != nil {
		status, err := domain.ParseShipmentStatus(string(*update.Status))
		if err != nil {
			return nil, err
		}
		tracking.Status = status
		if update.Location != nil {
			tracking.Location = *update.Location
		}
		tracking.UpdatedAt = now
	} else if !tracking.Advance(now) {
		return tracking, nil
	}

	if err := d.tracking.Update(ctx, *tracking); err != nil {
		return nil, fmt.Errorf("update tracking: %w", err)
	}

	d.logger.InfoContext(ctx, "shipment status updated",
		"order_id", orderID,
		"status", string(tracking.Status),
		"location", tracking.Location,
	)
	return tracking, nil
}
