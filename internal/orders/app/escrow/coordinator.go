// Package escrow coordinates the payment that backs an order: initiation
// with the gateway, confirmation into escrow and the release or refund that
// closes it.
package escrow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dejobratic/marketplace/internal/orders/domain"
	"github.com/dejobratic/marketplace/internal/orders/metrics"
	"github.com/dejobratic/marketplace/internal/orders/ports"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	DefaultHold        = 72 * time.Hour
	DefaultCallTimeout = 10 * time.Second

	providerName = "paystack"
)

// Initiation is the result of starting a payment.
type Initiation struct {
	Payment          domain.Payment
	AuthorizationURL string
}

// Verdict is the outcome of confirming a gateway reference. PaymentFound is
// false when the gateway settled a reference no stored payment carries.
type Verdict struct {
	Confirmed    bool
	OrderID      string
	Reference    string
	PaymentFound bool
}

type Coordinator struct {
	payments ports.PaymentRepository
	gateway  ports.PaymentGateway
	logger   *slog.Logger
	metrics  *metrics.Metrics

	now     func() time.Time
	hold    time.Duration
	timeout time.Duration
}

type Option func(*Coordinator)

func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// WithHold sets how long confirmed funds stay in escrow.
func WithHold(hold time.Duration) Option {
	return func(c *Coordinator) { c.hold = hold }
}

// WithCallTimeout bounds every gateway call.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Coordinator) { c.timeout = timeout }
}

func NewCoordinator(
	payments ports.PaymentRepository,
	gateway ports.PaymentGateway,
	logger *slog.Logger,
	metrics *metrics.Metrics,
	opts ...Option,
) *Coordinator {
	c := &Coordinator{
		payments: payments,
		gateway:  gateway,
		logger:   logger,
		metrics:  metrics,
		now:      func() time.Time { return time.Now().UTC() },
		hold:     DefaultHold,
		timeout:  DefaultCallTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Initiate opens a gateway transaction for the order and records a pending
// payment. No payment is stored when the gateway call fails.
func (c *Coordinator) Initiate(ctx context.Context, orderID string, amount decimal.Decimal, email string) (*Initiation, error) {
	if strings.TrimSpace(orderID) == "" {
		return nil, fmt.Errorf("%w: order_id is required", domain.ErrValidation)
	}
	if !amount.IsPositive() {
		return nil, domain.ErrInvalidPaymentAmount
	}
	if !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: a valid payer email is required", domain.ErrValidation)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.gateway.InitializeTransaction(callCtx, ports.InitializeRequest{
		Reference:   orderID,
		AmountMinor: domain.MinorUnits(amount),
		Email:       email,
		OrderID:     orderID,
	})
	c.metrics.RecordExternalCall(ctx, providerName, "initialize", time.Since(start).Seconds(), err == nil)
	if err != nil {
		c.metrics.RecordPayment(ctx, "initiate", false)
		c.logger.ErrorContext(ctx, "payment initialization failed", "order_id", orderID, "error", err)
		return nil, fmt.Errorf("%w: %w", domain.ErrPaymentInitiationFailed, err)
	}

	now := c.now()
	payment := domain.Payment{
		ID:               uuid.NewString(),
		OrderID:          orderID,
		Amount:           amount,
		Status:           domain.PaymentPending,
		Method:           domain.PaymentMethodPaystack,
		GatewayReference: resp.Reference,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := c.payments.Create(ctx, payment); err != nil {
		c.metrics.RecordPayment(ctx, "initiate", false)
		return nil, fmt.Errorf("persist payment: %w", err)
	}

	c.metrics.RecordPayment(ctx, "initiate", true)
	c.logger.InfoContext(ctx, "payment initiated",
		"order_id", orderID,
		"reference", payment.GatewayReference,
		"amount", amount.String(),
	)

	return &Initiation{Payment: payment, AuthorizationURL: resp.AuthorizationURL}, nil
}

// Verify asks the gateway for its verdict on reference without touching the store.
func (c *Coordinator) Verify(ctx context.Context, reference string) (*Verdict, error) {
	if strings.TrimSpace(reference) == "" {
		return nil, fmt.Errorf("%w: reference is required", domain.ErrValidation)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	verification, err := c.gateway.VerifyTransaction(callCtx, reference)
	c.metrics.RecordExternalCall(ctx, providerName, "verify", time.Since(start).Seconds(), err == nil)
	if err != nil {
		c.logger.ErrorContext(ctx, "payment verification failed", "reference", reference, "error", err)
		return nil, fmt.Errorf("%w: %w", domain.ErrPaymentVerificationFailed, err)
	}

	return &Verdict{
		Confirmed: verification.Succeeded(),
		OrderID:   verification.OrderID,
		Reference: reference,
	}, nil
}

// Complete moves the payment carrying reference into escrow. A reference with
// no stored payment is not an error; found reports whether one matched.
// Completing again restarts the hold.
func (c *Coordinator) Complete(ctx context.Context, reference string) (found bool, err error) {
	now := c.now()
	found, err = c.payments.MarkCompleted(ctx, reference, now, now.Add(c.hold))
	if err != nil {
		return false, fmt.Errorf("complete payment: %w", err)
	}
	if !found {
		c.logger.WarnContext(ctx, "confirmed reference has no stored payment", "reference", reference)
	}
	return found, nil
}

// Confirm verifies reference and, when the gateway reports success, completes
// the matching payment. Any other verdict leaves the store untouched.
func (c *Coordinator) Confirm(ctx context.Context, reference string) (*Verdict, error) {
	verdict, err := c.Verify(ctx, reference)
	if err != nil {
		c.metrics.RecordPayment(ctx, "confirm", false)
		return nil, err
	}
	if !verdict.Confirmed {
		c.metrics.RecordPayment(ctx, "confirm", false)
		return verdict, nil
	}

	verdict.PaymentFound, err = c.Complete(ctx, reference)
	if err != nil {
		c.metrics.RecordPayment(ctx, "confirm", false)
		return nil, err
	}
	c.metrics.RecordPayment(ctx, "confirm", true)
	return verdict, nil
}

// Release hands escrowed funds to the vendor. Only the order's latest payment
// is considered and it must be completed.
func (c *Coordinator) Release(ctx context.Context, orderID string) (*domain.Payment, error) {
	payment, err := c.payments.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if payment.Status != domain.PaymentCompleted {
		c.metrics.RecordPayment(ctx, "release", false)
		return nil, fmt.Errorf("%w: payment is %s", domain.ErrPaymentNotCompleted, payment.Status)
	}
	return c.setStatus(ctx, payment, domain.PaymentReleased, "release")
}

// Refund marks the order's payment refunded regardless of its current status.
func (c *Coordinator) Refund(ctx context.Context, orderID string) (*domain.Payment, error) {
	payment, err := c.payments.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return c.setStatus(ctx, payment, domain.PaymentRefunded, "refund")
}

func (c *Coordinator) GetPayment(ctx context.Context, orderID string) (*domain.Payment, error) {
	return c.payments.GetByOrderID(ctx, orderID)
}

func (c *Coordinator) setStatus(ctx context.Context, payment *domain.Payment, status domain.PaymentStatus, operation string) (*domain.Payment, error) {
	now := c.now()
	if err := c.payments.UpdateStatus(ctx, payment.ID, status, now); err != nil {
		c.metrics.RecordPayment(ctx, operation, false)
		return nil, fmt.Errorf("%s payment: %w", operation, err)
	}
	payment.Status = status
	payment.UpdatedAt = now

	c.metrics.RecordPayment(ctx, operation, true)
	c.logger.InfoContext(ctx, "payment status updated",
		"order_id", payment.OrderID,
		"status", string(status),
	)
	return payment, nil
}

func (c *Coordinator) PaymentByReference(ctx context.Context, reference string) (*domain.Payment, error) {
	return c.payments.GetByReference(ctx, reference)
}
