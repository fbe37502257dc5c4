package commands_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dejobratic/marketplace/internal/orders/adapters/memory"
	"github.com/dejobratic/marketplace/internal/orders/app/commands"
	"github.com/dejobratic/marketplace/internal/orders/domain"
	"github.com/dejobratic/marketplace/internal/orders/ports"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
)

type mockRepository struct {
	createFn func(ctx context.Context, order domain.Order) error
	created  []domain.Order
}

func (m *mockRepository) Create(ctx context.Context, order domain.Order) error {
	if m.createFn != nil {
		if err := m.createFn(ctx, order); err != nil {
			return err
		}
	}
	m.created = append(m.created, order)
	return nil
}

func (m *mockRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	return nil, domain.ErrOrderNotFound
}

func (m *mockRepository) List(ctx context.Context, filter ports.ListFilter) ([]domain.Order, error) {
	return nil, nil
}

func (m *mockRepository) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus, at time.Time) error {
	return nil
}

type mockCatalog struct {
	products map[string]domain.Product
	err      error
}

func (m *mockCatalog) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	product, ok := m.products[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	return &product, nil
}

func newCatalog() *mockCatalog {
	return &mockCatalog{products: map[string]domain.Product{
		"A": {ID: "A", VendorID: "v-1", Name: "Yam tubers", Price: decimal.NewFromInt(100), Quantity: 10},
		"B": {ID: "B", VendorID: "v-1", Name: "Garri 25kg", Price: decimal.NewFromInt(50), Quantity: 2},
		"C": {ID: "C", VendorID: "v-2", Name: "Beans", Price: decimal.NewFromInt(70), Quantity: 5},
	}}
}

func validCommand() commands.CreateOrderCommand {
	return commands.CreateOrderCommand{
		WholesalerID:    "w-1",
		VendorID:        "v-1",
		Items:           []commands.OrderItemRequest{{ProductID: "A", Quantity: 3}, {ProductID: "B", Quantity: 1}},
		DeliveryAddress: "14 Broad St, Lagos",
	}
}

func TestCreateOrder(t *testing.T) {
	fixed := time.Date(2026, 4, 10, 8, 0, 0, 0, time.UTC)

	t.Run("creates pending order priced from catalog snapshot", func(t *testing.T) {
		repo := &mockRepository{}
		handler := commands.NewCreateOrderCommandHandler(repo, newCatalog(),
			commands.WithCreateClock(func() time.Time { return fixed }),
			commands.WithIDGenerator(func() string { return "order-1" }),
		)

		order, err := handler.Handle(context.Background(), validCommand())
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}

		if order.ID != "order-1" {
			t.Errorf("expected order ID order-1, got %s", order.ID)
		}
		if order.Status != domain.StatusPending {
			t.Errorf("expected status %s, got %s", domain.StatusPending, order.Status)
		}
		if !order.Total.Equal(decimal.NewFromInt(350)) {
			t.Errorf("expected total 350, got %s", order.Total)
		}
		if !order.CreatedAt.Equal(fixed) || !order.UpdatedAt.Equal(fixed) {
			t.Errorf("expected timestamps %v, got %v/%v", fixed, order.CreatedAt, order.UpdatedAt)
		}
		if len(order.Items) != 2 || order.Items[0].Name != "Yam tubers" || !order.Items[0].UnitPrice.Equal(decimal.NewFromInt(100)) {
			t.Errorf("unexpected line items: %+v", order.Items)
		}
		if len(repo.created) != 1 {
			t.Fatalf("expected one stored order, got %d", len(repo.created))
		}
	})

	t.Run("generates uuid identifiers by default", func(t *testing.T) {
		handler := commands.NewCreateOrderCommandHandler(&mockRepository{}, newCatalog())

		first, err := handler.Handle(context.Background(), validCommand())
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		second, err := handler.Handle(context.Background(), validCommand())
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if len(first.ID) != 36 || first.ID == second.ID {
			t.Errorf("expected distinct uuids, got %q and %q", first.ID, second.ID)
		}
	})

	failures := []struct {
		name    string
		mutate  func(cmd *commands.CreateOrderCommand)
		wantErr error
	}{
		{
			name:    "unknown product",
			mutate:  func(cmd *commands.CreateOrderCommand) { cmd.Items[1].ProductID = "Z" },
			wantErr: domain.ErrInvalidProduct,
		},
		{
			name:    "product from another vendor",
			mutate:  func(cmd *commands.CreateOrderCommand) { cmd.Items[1].ProductID = "C" },
			wantErr: domain.ErrVendorMismatch,
		},
		{
			name:    "more than available stock",
			mutate:  func(cmd *commands.CreateOrderCommand) { cmd.Items[1].Quantity = 3 },
			wantErr: domain.ErrInsufficientStock,
		},
		{
			name:    "no items",
			mutate:  func(cmd *commands.CreateOrderCommand) { cmd.Items = nil },
			wantErr: domain.ErrEmptyOrder,
		},
		{
			name:    "zero quantity",
			mutate:  func(cmd *commands.CreateOrderCommand) { cmd.Items[0].Quantity = 0 },
			wantErr: domain.ErrInvalidQuantity,
		},
		{
			name:    "missing delivery address",
			mutate:  func(cmd *commands.CreateOrderCommand) { cmd.DeliveryAddress = "  " },
			wantErr: domain.ErrMissingDeliveryAddress,
		},
		{
			name:    "missing wholesaler",
			mutate:  func(cmd *commands.CreateOrderCommand) { cmd.WholesalerID = "" },
			wantErr: domain.ErrValidation,
		},
	}

	for _, tt := range failures {
		t.Run("rejects "+tt.name+" without writing", func(t *testing.T) {
			repo := &mockRepository{}
			handler := commands.NewCreateOrderCommandHandler(repo, newCatalog())

			cmd := validCommand()
			tt.mutate(&cmd)

			order, err := handler.Handle(context.Background(), cmd)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got: %v", tt.wantErr, err)
			}
			if !errors.Is(err, domain.ErrValidation) {
				t.Errorf("expected validation kind, got: %v", err)
			}
			if order != nil {
				t.Errorf("expected nil order, got %+v", order)
			}
			if len(repo.created) != 0 {
				t.Errorf("expected no stored order, got %d", len(repo.created))
			}
		})
	}

	t.Run("returns error when repository fails", func(t *testing.T) {
		repoErr := errors.New("database connection failed")
		repo := &mockRepository{
			createFn: func(ctx context.Context, order domain.Order) error { return repoErr },
		}
		handler := commands.NewCreateOrderCommandHandler(repo, newCatalog())

		order, err := handler.Handle(context.Background(), validCommand())
		if !errors.Is(err, repoErr) {
			t.Errorf("expected error to wrap repository error, got: %v", err)
		}
		if order != nil {
			t.Errorf("expected nil order, got %+v", order)
		}
	})

	t.Run("propagates catalog failures that are not a miss", func(t *testing.T) {
		catalogErr := errors.New("catalog timeout")
		handler := commands.NewCreateOrderCommandHandler(&mockRepository{}, &mockCatalog{err: catalogErr})

		_, err := handler.Handle(context.Background(), validCommand())
		if !errors.Is(err, catalogErr) {
			t.Fatalf("expected catalog error, got: %v", err)
		}
		if errors.Is(err, domain.ErrInvalidProduct) {
			t.Error("catalog outage must not be reported as an invalid product")
		}
	})

	t.Run("stored order keeps its price after catalog changes", func(t *testing.T) {
		store := memory.NewStore()
		catalog := store.Catalog()
		catalog.Put(domain.Product{ID: "A", VendorID: "v-1", Name: "Yam tubers", Price: decimal.NewFromInt(100), Quantity: 10})
		handler := commands.NewCreateOrderCommandHandler(store.Orders(), catalog)

		cmd := validCommand()
		cmd.Items = cmd.Items[:1]
		order, err := handler.Handle(context.Background(), cmd)
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}

		catalog.Put(domain.Product{ID: "A", VendorID: "v-1", Name: "Yam tubers", Price: decimal.NewFromInt(999), Quantity: 10})

		stored, err := store.Orders().GetByID(context.Background(), order.ID)
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if !stored.Total.Equal(decimal.NewFromInt(300)) || !stored.Items[0].UnitPrice.Equal(decimal.NewFromInt(100)) {
			t.Errorf("stored order repriced: total %s, unit %s", stored.Total, stored.Items[0].UnitPrice)
		}
	})
}

func TestCreateOrderTotalProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("total equals sum of snapshot price times quantity", prop.ForAll(
		func(pricesMinor []int, quantities []int) bool {
			n := min(len(pricesMinor), len(quantities))
			if n == 0 {
				return true
			}

			catalog := &mockCatalog{products: map[string]domain.Product{}}
			cmd := validCommand()
			cmd.Items = nil
			want := decimal.Zero
			for i := 0; i < n; i++ {
				id := string(rune('a' + i))
				price := decimal.New(int64(pricesMinor[i]), -2)
				catalog.products[id] = domain.Product{ID: id, VendorID: "v-1", Name: id, Price: price, Quantity: quantities[i]}
				cmd.Items = append(cmd.Items, commands.OrderItemRequest{ProductID: id, Quantity: quantities[i]})
				want = want.Add(price.Mul(decimal.NewFromInt(int64(quantities[i]))))
			}

			order, err := commands.NewCreateOrderCommandHandler(&mockRepository{}, catalog).Handle(context.Background(), cmd)
			if err != nil {
				return false
			}
			return order.Total.Equal(want) && order.Total.Equal(domain.TotalOf(order.Items))
		},
		gen.SliceOfN(5, gen.IntRange(1, 10_000_000)),
		gen.SliceOfN(5, gen.IntRange(1, 500)),
	))

	properties.TestingRun(t)
}
