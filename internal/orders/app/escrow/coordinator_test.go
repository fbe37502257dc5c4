package escrow_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/dejobratic/marketplace/internal/orders/adapters/memory"
	"github.com/dejobratic/marketplace/internal/orders/app/escrow"
	"github.com/dejobratic/marketplace/internal/orders/domain"
	"github.com/dejobratic/marketplace/internal/orders/metrics"
	"github.com/dejobratic/marketplace/internal/orders/ports"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	initializeFn func(ctx context.Context, req ports.InitializeRequest) (*ports.InitializeResponse, error)
	verifyFn     func(ctx context.Context, reference string) (*ports.Verification, error)
	initialized  []ports.InitializeRequest
}

func (f *fakeGateway) InitializeTransaction(ctx context.Context, req ports.InitializeRequest) (*ports.InitializeResponse, error) {
	f.initialized = append(f.initialized, req)
	if f.initializeFn != nil {
		return f.initializeFn(ctx, req)
	}
	return &ports.InitializeResponse{
		Reference:        req.Reference,
		AuthorizationURL: "https://checkout.example/" + req.Reference,
	}, nil
}

func (f *fakeGateway) VerifyTransaction(ctx context.Context, reference string) (*ports.Verification, error) {
	if f.verifyFn != nil {
		return f.verifyFn(ctx, reference)
	}
	return &ports.Verification{Status: "success", OrderID: reference}, nil
}

var confirmedAt = time.Date(2026, 6, 1, 15, 30, 0, 0, time.UTC)

func newCoordinator(gateway ports.PaymentGateway, opts ...escrow.Option) (*escrow.Coordinator, *memory.PaymentRepository) {
	payments := memory.NewStore().Payments()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	opts = append([]escrow.Option{escrow.WithClock(func() time.Time { return confirmedAt })}, opts...)
	return escrow.NewCoordinator(payments, gateway, logger, metrics.NewNoopMetrics(), opts...), payments
}

func TestInitiate(t *testing.T) {
	ctx := context.Background()

	t.Run("stores pending payment keyed by gateway reference", func(t *testing.T) {
		gateway := &fakeGateway{}
		coordinator, payments := newCoordinator(gateway)

		initiation, err := coordinator.Initiate(ctx, "order-1", decimal.RequireFromString("350.505"), "buyer@example.com")
		require.NoError(t, err)

		assert.Equal(t, "https://checkout.example/order-1", initiation.AuthorizationURL)
		require.Len(t, gateway.initialized, 1)
		assert.Equal(t, int64(35051), gateway.initialized[0].AmountMinor)
		assert.Equal(t, "order-1", gateway.initialized[0].OrderID)

		stored, err := payments.GetByOrderID(ctx, "order-1")
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentPending, stored.Status)
		assert.Equal(t, domain.PaymentMethodPaystack, stored.Method)
		assert.Equal(t, "order-1", stored.GatewayReference)
		assert.Nil(t, stored.EscrowHeldUntil)
	})

	t.Run("gateway failure stores nothing", func(t *testing.T) {
		gateway := &fakeGateway{
			initializeFn: func(ctx context.Context, req ports.InitializeRequest) (*ports.InitializeResponse, error) {
				return nil, errors.New("502 bad gateway")
			},
		}
		coordinator, payments := newCoordinator(gateway)

		_, err := coordinator.Initiate(ctx, "order-1", decimal.NewFromInt(10), "buyer@example.com")
		require.ErrorIs(t, err, domain.ErrPaymentInitiationFailed)
		assert.ErrorIs(t, err, domain.ErrExternalService)

		_, err = payments.GetByOrderID(ctx, "order-1")
		assert.ErrorIs(t, err, domain.ErrPaymentNotFound)
	})

	t.Run("gateway timeout is an initiation failure", func(t *testing.T) {
		gateway := &fakeGateway{
			initializeFn: func(ctx context.Context, req ports.InitializeRequest) (*ports.InitializeResponse, error) {
				<-ctx.Done()
				return nil, ctx.Err()
			},
		}
		coordinator, _ := newCoordinator(gateway, escrow.WithCallTimeout(20*time.Millisecond))

		_, err := coordinator.Initiate(ctx, "order-1", decimal.NewFromInt(10), "buyer@example.com")
		require.ErrorIs(t, err, domain.ErrPaymentInitiationFailed)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("rejects non-positive amount before calling gateway", func(t *testing.T) {
		gateway := &fakeGateway{}
		coordinator, _ := newCoordinator(gateway)

		_, err := coordinator.Initiate(ctx, "order-1", decimal.Zero, "buyer@example.com")
		require.ErrorIs(t, err, domain.ErrInvalidPaymentAmount)
		assert.Empty(t, gateway.initialized)
	})
}

func TestConfirm(t *testing.T) {
	ctx := context.Background()

	t.Run("success completes payment and starts the hold", func(t *testing.T) {
		coordinator, payments := newCoordinator(&fakeGateway{})
		_, err := coordinator.Initiate(ctx, "order-1", decimal.NewFromInt(350), "buyer@example.com")
		require.NoError(t, err)

		verdict, err := coordinator.Confirm(ctx, "order-1")
		require.NoError(t, err)
		assert.True(t, verdict.Confirmed)
		assert.True(t, verdict.PaymentFound)
		assert.Equal(t, "order-1", verdict.OrderID)

		stored, err := payments.GetByReference(ctx, "order-1")
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentCompleted, stored.Status)
		require.NotNil(t, stored.EscrowHeldUntil)
		assert.True(t, stored.EscrowHeldUntil.Equal(confirmedAt.AddDate(0, 0, 3)))
	})

	t.Run("non-success verdict leaves payment pending", func(t *testing.T) {
		gateway := &fakeGateway{
			verifyFn: func(ctx context.Context, reference string) (*ports.Verification, error) {
				return &ports.Verification{Status: "abandoned", OrderID: reference}, nil
			},
		}
		coordinator, payments := newCoordinator(gateway)
		_, err := coordinator.Initiate(ctx, "order-1", decimal.NewFromInt(350), "buyer@example.com")
		require.NoError(t, err)

		verdict, err := coordinator.Confirm(ctx, "order-1")
		require.NoError(t, err)
		assert.False(t, verdict.Confirmed)

		stored, err := payments.GetByReference(ctx, "order-1")
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentPending, stored.Status)
		assert.Nil(t, stored.EscrowHeldUntil)
	})

	t.Run("unknown reference still reports the verdict", func(t *testing.T) {
		coordinator, payments := newCoordinator(&fakeGateway{})

		verdict, err := coordinator.Confirm(ctx, "ghost-ref")
		require.NoError(t, err)
		assert.True(t, verdict.Confirmed)
		assert.False(t, verdict.PaymentFound)

		_, err = payments.GetByReference(ctx, "ghost-ref")
		assert.ErrorIs(t, err, domain.ErrPaymentNotFound)
	})

	t.Run("verification failure surfaces", func(t *testing.T) {
		gateway := &fakeGateway{
			verifyFn: func(ctx context.Context, reference string) (*ports.Verification, error) {
				return nil, errors.New("connection reset")
			},
		}
		coordinator, _ := newCoordinator(gateway)

		_, err := coordinator.Confirm(ctx, "order-1")
		require.ErrorIs(t, err, domain.ErrPaymentVerificationFailed)
	})

	t.Run("repeated confirmation re-sets the hold", func(t *testing.T) {
		now := confirmedAt
		coordinator, payments := newCoordinator(&fakeGateway{}, escrow.WithClock(func() time.Time { return now }))
		_, err := coordinator.Initiate(ctx, "order-1", decimal.NewFromInt(350), "buyer@example.com")
		require.NoError(t, err)

		_, err = coordinator.Confirm(ctx, "order-1")
		require.NoError(t, err)

		now = confirmedAt.Add(24 * time.Hour)
		_, err = coordinator.Confirm(ctx, "order-1")
		require.NoError(t, err)

		stored, err := payments.GetByReference(ctx, "order-1")
		require.NoError(t, err)
		assert.True(t, stored.EscrowHeldUntil.Equal(now.Add(escrow.DefaultHold)))
	})
}

func TestReleaseAndRefund(t *testing.T) {
	ctx := context.Background()

	t.Run("release requires a completed payment", func(t *testing.T) {
		coordinator, _ := newCoordinator(&fakeGateway{})
		_, err := coordinator.Initiate(ctx, "order-1", decimal.NewFromInt(350), "buyer@example.com")
		require.NoError(t, err)

		_, err = coordinator.Release(ctx, "order-1")
		require.ErrorIs(t, err, domain.ErrPaymentNotCompleted)

		_, err = coordinator.Confirm(ctx, "order-1")
		require.NoError(t, err)

		released, err := coordinator.Release(ctx, "order-1")
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentReleased, released.Status)
	})

	t.Run("only the latest payment of an order changes", func(t *testing.T) {
		coordinator, payments := newCoordinator(&fakeGateway{})
		require.NoError(t, payments.Create(ctx, domain.Payment{
			ID:               "pay-stale",
			OrderID:          "order-1",
			Amount:           decimal.NewFromInt(350),
			Status:           domain.PaymentFailed,
			Method:           domain.PaymentMethodPaystack,
			GatewayReference: "stale-ref",
			CreatedAt:        confirmedAt.Add(-time.Hour),
			UpdatedAt:        confirmedAt.Add(-time.Hour),
		}))
		_, err := coordinator.Initiate(ctx, "order-1", decimal.NewFromInt(350), "buyer@example.com")
		require.NoError(t, err)
		_, err = coordinator.Confirm(ctx, "order-1")
		require.NoError(t, err)

		released, err := coordinator.Release(ctx, "order-1")
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentReleased, released.Status)

		stale, err := payments.GetByReference(ctx, "stale-ref")
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentFailed, stale.Status)

		_, err = coordinator.Refund(ctx, "order-1")
		require.NoError(t, err)
		stale, err = payments.GetByReference(ctx, "stale-ref")
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentFailed, stale.Status)
	})

	t.Run("release and refund of missing payment are not found", func(t *testing.T) {
		coordinator, _ := newCoordinator(&fakeGateway{})

		_, err := coordinator.Release(ctx, "nope")
		assert.ErrorIs(t, err, domain.ErrPaymentNotFound)
		_, err = coordinator.Refund(ctx, "nope")
		assert.ErrorIs(t, err, domain.ErrPaymentNotFound)
	})

	t.Run("refunding twice succeeds both times", func(t *testing.T) {
		coordinator, payments := newCoordinator(&fakeGateway{})
		_, err := coordinator.Initiate(ctx, "order-1", decimal.NewFromInt(350), "buyer@example.com")
		require.NoError(t, err)

		for range 2 {
			refunded, err := coordinator.Refund(ctx, "order-1")
			require.NoError(t, err)
			assert.Equal(t, domain.PaymentRefunded, refunded.Status)
		}

		stored, err := payments.GetByOrderID(ctx, "order-1")
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentRefunded, stored.Status)
	})
}
