package queries

import (
	"context"
	"fmt"

	"github.com/dejobratic/marketplace/internal/orders/domain"
	"github.com/dejobratic/marketplace/internal/orders/ports"
)

// MaxPageSize caps the page size a caller may request.
const MaxPageSize = 100

// ListOrdersQueryHandler lists orders newest first.
type ListOrdersQueryHandler struct {
	repo ports.OrderRepository
}

func NewListOrdersQueryHandler(repo ports.OrderRepository) *ListOrdersQueryHandler {
	return &ListOrdersQueryHandler{repo: repo}
}

func (h *ListOrdersQueryHandler) Handle(ctx context.Context, filter ports.ListFilter) ([]domain.Order, error) {
	if filter.Page < 0 || filter.PageSize < 0 {
		return nil, fmt.Errorf("%w: page and page_size must not be negative", domain.ErrValidation)
	}
	if filter.PageSize > MaxPageSize {
		filter.PageSize = MaxPageSize
	}
	if filter.Status != nil {
		if _, err := domain.ParseOrderStatus(string(*filter.Status)); err != nil {
			return nil, err
		}
	}
	orders, err := h.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	return orders, nil
}
