package domain_test

import (
	"errors"
	"testing"
	"time"

	"github.com/dejobratic/marketplace/internal/orders/domain"
	"github.com/shopspring/decimal"
)

func validOrder() domain.Order {
	items := []domain.LineItem{
		{ProductID: "p-1", Name: "Rice 50kg", UnitPrice: decimal.NewFromInt(100), Quantity: 3},
	}
	return domain.Order{
		ID:              "test-id",
		WholesalerID:    "w-1",
		VendorID:        "v-1",
		Status:          domain.StatusPending,
		Total:           domain.TotalOf(items),
		Items:           items,
		DeliveryAddress: "12 Marina Rd, Lagos",
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}
}

func TestOrderValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(o *domain.Order)
		wantErr error
	}{
		{
			name:   "valid order",
			mutate: func(o *domain.Order) {},
		},
		{
			name:    "missing wholesaler",
			mutate:  func(o *domain.Order) { o.WholesalerID = " " },
			wantErr: domain.ErrValidation,
		},
		{
			name:    "missing vendor",
			mutate:  func(o *domain.Order) { o.VendorID = "" },
			wantErr: domain.ErrValidation,
		},
		{
			name:    "missing delivery address",
			mutate:  func(o *domain.Order) { o.DeliveryAddress = "" },
			wantErr: domain.ErrMissingDeliveryAddress,
		},
		{
			name:    "no items",
			mutate:  func(o *domain.Order) { o.Items = nil },
			wantErr: domain.ErrEmptyOrder,
		},
		{
			name:    "zero quantity",
			mutate:  func(o *domain.Order) { o.Items[0].Quantity = 0 },
			wantErr: domain.ErrInvalidQuantity,
		},
		{
			name:    "zero total",
			mutate:  func(o *domain.Order) { o.Total = decimal.Zero },
			wantErr: domain.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := validOrder()
			tt.mutate(&order)
			err := order.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Order.Validate() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Order.Validate() error = %v, want %v", err, tt.wantErr)
			}
			if !errors.Is(err, domain.ErrValidation) {
				t.Errorf("expected validation kind, got %v", err)
			}
		})
	}
}

func TestTotalOf(t *testing.T) {
	items := []domain.LineItem{
		{ProductID: "a", UnitPrice: decimal.NewFromInt(100), Quantity: 3},
		{ProductID: "b", UnitPrice: decimal.NewFromInt(50), Quantity: 1},
	}

	got := domain.TotalOf(items)
	if !got.Equal(decimal.NewFromInt(350)) {
		t.Errorf("TotalOf() = %s, want 350", got)
	}
}

func TestOrderStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to domain.OrderStatus
		want     bool
	}{
		{domain.StatusPending, domain.StatusPaid, true},
		{domain.StatusPending, domain.StatusCancelled, true},
		{domain.StatusPending, domain.StatusShipped, false},
		{domain.StatusPaid, domain.StatusProcessing, true},
		{domain.StatusPaid, domain.StatusPending, false},
		{domain.StatusProcessing, domain.StatusShipped, true},
		{domain.StatusShipped, domain.StatusDelivered, true},
		{domain.StatusShipped, domain.StatusCancelled, true},
		{domain.StatusDelivered, domain.StatusCancelled, false},
		{domain.StatusCancelled, domain.StatusPaid, false},
		{domain.StatusPaid, domain.StatusPaid, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
				t.Errorf("CanTransitionTo() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOrderTransitionTo(t *testing.T) {
	t.Run("stamps updated time", func(t *testing.T) {
		order := validOrder()
		at := order.UpdatedAt.Add(time.Minute)

		if err := order.TransitionTo(domain.StatusPaid, at); err != nil {
			t.Fatalf("TransitionTo() failed: %v", err)
		}
		if order.Status != domain.StatusPaid {
			t.Errorf("expected status paid, got %s", order.Status)
		}
		if !order.UpdatedAt.Equal(at) {
			t.Errorf("expected updated_at %v, got %v", at, order.UpdatedAt)
		}
	})

	t.Run("rejects illegal move", func(t *testing.T) {
		order := validOrder()
		err := order.TransitionTo(domain.StatusDelivered, time.Now())
		if !errors.Is(err, domain.ErrInvalidTransition) {
			t.Fatalf("expected ErrInvalidTransition, got %v", err)
		}
		if order.Status != domain.StatusPending {
			t.Errorf("status changed on failed transition: %s", order.Status)
		}
	})

	t.Run("rejects unknown status", func(t *testing.T) {
		order := validOrder()
		err := order.TransitionTo(domain.OrderStatus("lost"), time.Now())
		if !errors.Is(err, domain.ErrInvalidOrderStatus) {
			t.Fatalf("expected ErrInvalidOrderStatus, got %v", err)
		}
	})
}

func TestOrderIsTerminal(t *testing.T) {
	tests := []struct {
		name   string
		status domain.OrderStatus
		want   bool
	}{
		{"delivered is terminal", domain.StatusDelivered, true},
		{"cancelled is terminal", domain.StatusCancelled, true},
		{"pending is not terminal", domain.StatusPending, false},
		{"shipped is not terminal", domain.StatusShipped, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := domain.Order{Status: tt.status}
			if got := order.IsTerminal(); got != tt.want {
				t.Errorf("Order.IsTerminal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseOrderStatus(t *testing.T) {
	if got, err := domain.ParseOrderStatus(" shipped "); err != nil || got != domain.StatusShipped {
		t.Errorf("ParseOrderStatus() = %q, %v", got, err)
	}
	if _, err := domain.ParseOrderStatus("completed"); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}
