package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/dejobratic/marketplace/internal/orders/domain"
	"github.com/dejobratic/marketplace/internal/orders/ports"
)

type UpdateOrderStatusCommand struct {
	OrderID string
	Status  domain.OrderStatus
}

// StatusChange reports the order after a transition together with the status
// it left.
type StatusChange struct {
	Order    *domain.Order
	Previous domain.OrderStatus
}

// Changed reports whether the status actually moved.
func (c StatusChange) Changed() bool {
	return c.Order != nil && c.Order.Status != c.Previous
}

type UpdateOrderStatusCommandHandler struct {
	repo ports.OrderRepository
	now  Clock
}

func NewUpdateOrderStatusCommandHandler(repo ports.OrderRepository, clock Clock) *UpdateOrderStatusCommandHandler {
	if clock == nil {
		clock = utcNow
	}
	return &UpdateOrderStatusCommandHandler{repo: repo, now: clock}
}

// Handle applies the transition table to the stored order. Re-applying the
// current status succeeds and only refreshes the updated time.
func (h *UpdateOrderStatusCommandHandler) Handle(ctx context.Context, cmd UpdateOrderStatusCommand) (*StatusChange, error) {
	if strings.TrimSpace(cmd.OrderID) == "" {
		return nil, fmt.Errorf("%w: order_id is required", domain.ErrValidation)
	}

	order, err := h.repo.GetByID(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}

	previous := order.Status
	if err := order.TransitionTo(cmd.Status, h.now()); err != nil {
		return nil, err
	}

	if err := h.repo.UpdateStatus(ctx, order.ID, order.Status, order.UpdatedAt); err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}

	return &StatusChange{Order: order, Previous: previous}, nil
}
