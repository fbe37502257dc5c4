package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus captures the lifecycle of an order in the system.
type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusPaid       OrderStatus = "paid"
	StatusProcessing OrderStatus = "processing"
	StatusShipped    OrderStatus = "shipped"
	StatusDelivered  OrderStatus = "delivered"
	StatusCancelled  OrderStatus = "cancelled"
)

// orderTransitions lists the statuses reachable from each status.
var orderTransitions = map[OrderStatus][]OrderStatus{
	StatusPending:    {StatusPaid, StatusCancelled},
	StatusPaid:       {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusShipped, StatusCancelled},
	StatusShipped:    {StatusDelivered, StatusCancelled},
	StatusDelivered:  {},
	StatusCancelled:  {},
}

// ParseOrderStatus converts raw input into a known OrderStatus.
func ParseOrderStatus(raw string) (OrderStatus, error) {
	status := OrderStatus(strings.TrimSpace(raw))
	if _, ok := orderTransitions[status]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidOrderStatus, raw)
	}
	return status, nil
}

// CanTransitionTo reports whether target is reachable from s. Re-applying the
// current status is allowed so retried callers stay idempotent.
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	if s == target {
		return true
	}
	for _, allowed := range orderTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// LineItem is a snapshot of a catalog product taken when the order was placed.
type LineItem struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

// Subtotal returns unit price times quantity.
func (i LineItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Order represents a wholesaler's purchase request from a single vendor.
type Order struct {
	ID              string          `json:"id"`
	WholesalerID    string          `json:"wholesaler_id"`
	VendorID        string          `json:"vendor_id"`
	Status          OrderStatus     `json:"status"`
	Total           decimal.Decimal `json:"total"`
	Items           []LineItem      `json:"items"`
	DeliveryAddress string          `json:"delivery_address"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// TotalOf sums the subtotals of the given line items.
func TotalOf(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// Validate ensures the order adheres to business constraints.
func (o Order) Validate() error {
	if strings.TrimSpace(o.WholesalerID) == "" {
		return fmt.Errorf("%w: wholesaler_id is required", ErrValidation)
	}
	if strings.TrimSpace(o.VendorID) == "" {
		return fmt.Errorf("%w: vendor_id is required", ErrValidation)
	}
	if strings.TrimSpace(o.DeliveryAddress) == "" {
		return ErrMissingDeliveryAddress
	}
	if len(o.Items) == 0 {
		return ErrEmptyOrder
	}
	for _, item := range o.Items {
		if item.Quantity <= 0 {
			return fmt.Errorf("%w: product %s", ErrInvalidQuantity, item.ProductID)
		}
	}
	if !o.Total.IsPositive() {
		return fmt.Errorf("%w: total must be positive", ErrValidation)
	}
	return nil
}

// IsTerminal indicates whether the order is in a terminal state.
func (o Order) IsTerminal() bool {
	return len(orderTransitions[o.Status]) == 0
}

// TransitionTo moves the order to target, stamping UpdatedAt.
func (o *Order) TransitionTo(target OrderStatus, at time.Time) error {
	if _, ok := orderTransitions[target]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidOrderStatus, target)
	}
	if !o.Status.CanTransitionTo(target) {
		return fmt.Errorf("%w: cannot transition from %s to %s", ErrInvalidTransition, o.Status, target)
	}
	o.Status = target
	o.UpdatedAt = at
	return nil
}
