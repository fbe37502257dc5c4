package domain

import (
	"fmt"
	"strings"
	"time"
)

// ShipmentStatus is a position in the fixed delivery progression.
type ShipmentStatus string

const (
	ShipmentPending        ShipmentStatus = "pending"
	ShipmentPickedUp       ShipmentStatus = "picked_up"
	ShipmentInTransit      ShipmentStatus = "in_transit"
	ShipmentOutForDelivery ShipmentStatus = "out_for_delivery"
	ShipmentDelivered      ShipmentStatus = "delivered"
)

const (
	CarrierGIGLogistics = "gig_logistics"
	CarrierLocal        = "local"
)

type progressionStep struct {
	status   ShipmentStatus
	location string
}

var shipmentProgression = []progressionStep{
	{ShipmentPending, ""},
	{ShipmentPickedUp, "Warehouse"},
	{ShipmentInTransit, "Distribution Hub"},
	{ShipmentOutForDelivery, "Last Mile"},
	{ShipmentDelivered, "Delivered"},
}

// ShipmentProgression returns the ordered list of shipment statuses.
func ShipmentProgression() []ShipmentStatus {
	out := make([]ShipmentStatus, len(shipmentProgression))
	for i, step := range shipmentProgression {
		out[i] = step.status
	}
	return out
}

// ParseShipmentStatus converts raw input into a known ShipmentStatus.
func ParseShipmentStatus(raw string) (ShipmentStatus, error) {
	status := ShipmentStatus(strings.TrimSpace(raw))
	if status.position() < 0 {
		return "", fmt.Errorf("%w: %q", ErrInvalidShipmentStatus, raw)
	}
	return status, nil
}

func (s ShipmentStatus) position() int {
	for i, step := range shipmentProgression {
		if step.status == s {
			return i
		}
	}
	return -1
}

// Next returns the following status and its canned location. ok is false at the
// terminal position. Unknown statuses restart from the first step after pending.
func (s ShipmentStatus) Next() (next ShipmentStatus, location string, ok bool) {
	pos := s.position()
	if pos == len(shipmentProgression)-1 {
		return s, "", false
	}
	if pos < 0 {
		pos = 0
	}
	step := shipmentProgression[pos+1]
	return step.status, step.location, true
}

// Tracking is the single shipment attached to an order.
type Tracking struct {
	ID                string         `json:"id"`
	OrderID           string         `json:"order_id"`
	TrackingNumber    string         `json:"tracking_number"`
	Carrier           string         `json:"carrier"`
	ExternalRef       string         `json:"external_ref,omitempty"`
	Status            ShipmentStatus `json:"status"`
	Location          string         `json:"location,omitempty"`
	EstimatedDelivery time.Time      `json:"estimated_delivery"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// IsLocal reports whether the record was created without a carrier booking.
func (t Tracking) IsLocal() bool {
	return t.Carrier == CarrierLocal
}

// Advance moves the tracking one step along the progression. It reports false
// and leaves the record untouched when already delivered.
func (t *Tracking) Advance(at time.Time) bool {
	next, location, ok := t.Status.Next()
	if !ok {
		return false
	}
	t.Status = next
	t.Location = location
	t.UpdatedAt = at
	return true
}

// LocalTrackingNumber derives a fallback tracking number from the clock.
func LocalTrackingNumber(at time.Time) string {
	return fmt.Sprintf("TRK%d", at.UnixMilli())
}
