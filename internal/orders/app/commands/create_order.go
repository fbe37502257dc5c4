package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dejobratic/marketplace/internal/orders/domain"
	"github.com/dejobratic/marketplace/internal/orders/ports"
	"github.com/google/uuid"
)

// OrderItemRequest is a single requested product and quantity.
type OrderItemRequest struct {
	ProductID string
	Quantity  int
}

type CreateOrderCommand struct {
	WholesalerID    string
	VendorID        string
	Items           []OrderItemRequest
	DeliveryAddress string
}

func (c CreateOrderCommand) Validate() error {
	if strings.TrimSpace(c.WholesalerID) == "" {
		return fmt.Errorf("%w: wholesaler_id is required", domain.ErrValidation)
	}
	if strings.TrimSpace(c.VendorID) == "" {
		return fmt.Errorf("%w: vendor_id is required", domain.ErrValidation)
	}
	if strings.TrimSpace(c.DeliveryAddress) == "" {
		return domain.ErrMissingDeliveryAddress
	}
	if len(c.Items) == 0 {
		return domain.ErrEmptyOrder
	}
	for _, item := range c.Items {
		if strings.TrimSpace(item.ProductID) == "" {
			return fmt.Errorf("%w: product_id is required", domain.ErrInvalidProduct)
		}
		if item.Quantity <= 0 {
			return fmt.Errorf("%w: product %s", domain.ErrInvalidQuantity, item.ProductID)
		}
	}
	return nil
}

type CommandHandler interface {
	Handle(ctx context.Context, cmd CreateOrderCommand) (*domain.Order, error)
}

// Clock returns the current time. Handlers default to UTC wall time.
type Clock func() time.Time

func utcNow() time.Time { return time.Now().UTC() }

type CreateOrderCommandHandler struct {
	repo    ports.OrderRepository
	catalog ports.CatalogLookup
	now     Clock
	newID   func() string
}

type CreateOrderOption func(*CreateOrderCommandHandler)

func WithCreateClock(clock Clock) CreateOrderOption {
	return func(h *CreateOrderCommandHandler) { h.now = clock }
}

func WithIDGenerator(gen func() string) CreateOrderOption {
	return func(h *CreateOrderCommandHandler) { h.newID = gen }
}

func NewCreateOrderCommandHandler(
	repo ports.OrderRepository,
	catalog ports.CatalogLookup,
	opts ...CreateOrderOption,
) *CreateOrderCommandHandler {
	h := &CreateOrderCommandHandler{
		repo:    repo,
		catalog: catalog,
		now:     utcNow,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Handle snapshots every requested product from the catalog, prices the order
// from those snapshots and persists it as pending. Nothing is written unless
// every item passes.
func (h *CreateOrderCommandHandler) Handle(ctx context.Context, cmd CreateOrderCommand) (*domain.Order, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	items := make([]domain.LineItem, 0, len(cmd.Items))
	for _, req := range cmd.Items {
		product, err := h.catalog.GetProduct(ctx, req.ProductID)
		if err != nil {
			if domain.IsNotFound(err) {
				return nil, fmt.Errorf("%w: %s", domain.ErrInvalidProduct, req.ProductID)
			}
			return nil, fmt.Errorf("lookup product %s: %w", req.ProductID, err)
		}
		if product.VendorID != cmd.VendorID {
			return nil, fmt.Errorf("%w: product %s", domain.ErrVendorMismatch, req.ProductID)
		}
		if req.Quantity > product.Quantity {
			return nil, fmt.Errorf("%w: product %s has %d, requested %d",
				domain.ErrInsufficientStock, req.ProductID, product.Quantity, req.Quantity)
		}
		items = append(items, domain.LineItem{
			ProductID: product.ID,
			Name:      product.Name,
			UnitPrice: product.Price,
			Quantity:  req.Quantity,
		})
	}

	now := h.now()
	order := domain.Order{
		ID:              h.newID(),
		WholesalerID:    cmd.WholesalerID,
		VendorID:        cmd.VendorID,
		Status:          domain.StatusPending,
		Total:           domain.TotalOf(items),
		Items:           items,
		DeliveryAddress: cmd.DeliveryAddress,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := order.Validate(); err != nil {
		return nil, err
	}

	if err := h.repo.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("persist order: %w", err)
	}

	return &order, nil
}
