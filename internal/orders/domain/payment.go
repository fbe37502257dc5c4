package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus tracks the escrow lifecycle of a payment.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
	// PaymentReleased is only reachable from PaymentCompleted.
	PaymentReleased PaymentStatus = "released"
)

// PaymentMethodPaystack is recorded for every payment initiated through the gateway.
const PaymentMethodPaystack = "paystack"

// Payment is the monetary instrument backing exactly one order.
type Payment struct {
	ID               string          `json:"id"`
	OrderID          string          `json:"order_id"`
	Amount           decimal.Decimal `json:"amount"`
	Status           PaymentStatus   `json:"status"`
	Method           string          `json:"payment_method"`
	GatewayReference string          `json:"gateway_reference"`
	EscrowHeldUntil  *time.Time      `json:"escrow_held_until,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// MinorUnits converts a decimal amount into the gateway's integer minor units (x100).
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// Complete marks the payment as completed and starts the escrow hold.
func (p *Payment) Complete(at time.Time, hold time.Duration) {
	heldUntil := at.Add(hold)
	p.Status = PaymentCompleted
	p.EscrowHeldUntil = &heldUntil
	p.UpdatedAt = at
}
