package kafka

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	TopicOrderPlaced        = "order.placed"
	TopicOrderStatusChanged = "order.status_changed"
	TopicPaymentConfirmed   = "payment.confirmed"
	TopicShipmentUpdated    = "shipment.updated"
)

// Envelope wraps every event published by the service.
type Envelope struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Data       any       `json:"data"`
}

type OrderPlaced struct {
	OrderID      string          `json:"order_id"`
	WholesalerID string          `json:"wholesaler_id"`
	VendorID     string          `json:"vendor_id"`
	Total        decimal.Decimal `json:"total"`
	ItemCount    int             `json:"item_count"`
}

type OrderStatusChanged struct {
	OrderID string `json:"order_id"`
	From    string `json:"from"`
	To      string `json:"to"`
}

type PaymentConfirmed struct {
	OrderID         string          `json:"order_id"`
	PaymentID       string          `json:"payment_id"`
	Reference       string          `json:"reference"`
	Amount          decimal.Decimal `json:"amount"`
	EscrowHeldUntil *time.Time      `json:"escrow_held_until,omitempty"`
}

type ShipmentUpdated struct {
	OrderID        string `json:"order_id"`
	TrackingNumber string `json:"tracking_number"`
	Carrier        string `json:"carrier"`
	Status         string `json:"status"`
	Location       string `json:"location,omitempty"`
}
