package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dejobratic/marketplace/internal/database"
	"github.com/dejobratic/marketplace/internal/orders/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const paymentColumns = `id, order_id, amount::text, status, payment_method, gateway_reference, escrow_held_until, created_at, updated_at`

type PaymentRepository struct {
	pool *pgxpool.Pool
}

func NewPaymentRepository(pool *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{pool: pool}
}

func (r *PaymentRepository) Create(ctx context.Context, payment domain.Payment) error {
	query := `
		INSERT INTO payments (id, order_id, amount, status, payment_method, gateway_reference, escrow_held_until, created_at, updated_at)
		VALUES ($1, $2, $3::numeric, $4, $5, $6, $7, $8, $9)
	`

	_, err := database.Conn(ctx, r.pool).Exec(ctx, query,
		payment.ID,
		payment.OrderID,
		payment.Amount.String(),
		string(payment.Status),
		payment.Method,
		payment.GatewayReference,
		payment.EscrowHeldUntil,
		payment.CreatedAt,
		payment.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

func (r *PaymentRepository) GetByOrderID(ctx context.Context, orderID string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE order_id = $1 ORDER BY created_at DESC, id DESC LIMIT 1`
	return r.getOne(ctx, query, orderID)
}

func (r *PaymentRepository) GetByReference(ctx context.Context, reference string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE gateway_reference = $1 ORDER BY created_at DESC, id DESC LIMIT 1`
	return r.getOne(ctx, query, reference)
}

func (r *PaymentRepository) getOne(ctx context.Context, query string, arg string) (*domain.Payment, error) {
	var (
		payment domain.Payment
		amount  string
		status  string
	)
	err := database.Conn(ctx, r.pool).QueryRow(ctx, query, arg).Scan(
		&payment.ID,
		&payment.OrderID,
		&amount,
		&status,
		&payment.Method,
		&payment.GatewayReference,
		&payment.EscrowHeldUntil,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("select payment: %w", err)
	}

	payment.Status = domain.PaymentStatus(status)
	if payment.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("parse payment amount: %w", err)
	}
	return &payment, nil
}

func (r *PaymentRepository) MarkCompleted(ctx context.Context, reference string, at, heldUntil time.Time) (bool, error) {
	query := `
		UPDATE payments
		SET status = $1, escrow_held_until = $2, updated_at = $3
		WHERE gateway_reference = $4
	`

	result, err := database.Conn(ctx, r.pool).Exec(ctx, query, string(domain.PaymentCompleted), heldUntil, at, reference)
	if err != nil {
		return false, fmt.Errorf("complete payment: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

func (r *PaymentRepository) UpdateStatus(ctx context.Context, id string, status domain.PaymentStatus, at time.Time) error {
	query := `
		UPDATE payments
		SET status = $1, updated_at = $2
		WHERE id = $3
	`

	result, err := database.Conn(ctx, r.pool).Exec(ctx, query, string(status), at, id)
	if err != nil {
		return fmt.Errorf("update payment status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrPaymentNotFound
	}
	return nil
}
