package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dejobratic/marketplace/internal/database"
	"github.com/dejobratic/marketplace/internal/orders/domain"
	"github.com/dejobratic/marketplace/internal/orders/ports"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const orderColumns = `id, wholesaler_id, vendor_id, status, total::text, items, delivery_address, created_at, updated_at`

type OrderRepository struct {
	pool *pgxpool.Pool
}

func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

func (r *OrderRepository) Create(ctx context.Context, order domain.Order) error {
	query := `
		INSERT INTO orders (id, wholesaler_id, vendor_id, status, total, items, delivery_address, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8, $9)
	`

	items, err := json.Marshal(order.Items)
	if err != nil {
		return fmt.Errorf("encode order items: %w", err)
	}

	_, err = database.Conn(ctx, r.pool).Exec(ctx, query,
		order.ID,
		order.WholesalerID,
		order.VendorID,
		string(order.Status),
		order.Total.String(),
		items,
		order.DeliveryAddress,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	return nil
}

func (r *OrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	order, err := scanOrder(database.Conn(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, fmt.Errorf("select order: %w", err)
	}

	return order, nil
}

// List returns matching orders newest first. LIMIT is only applied when the
// filter asks for a page.
func (r *OrderRepository) List(ctx context.Context, filter ports.ListFilter) ([]domain.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE ($1::text IS NULL OR status = $1)
		  AND ($2::text IS NULL OR wholesaler_id = $2)
		  AND ($3::text IS NULL OR vendor_id = $3)
		ORDER BY created_at DESC, id DESC
		LIMIT $4 OFFSET $5
	`

	var statusFilter *string
	if filter.Status != nil {
		s := string(*filter.Status)
		statusFilter = &s
	}

	var limit *int
	if filter.PageSize > 0 {
		limit = &filter.PageSize
	}

	rows, err := database.Conn(ctx, r.pool).Query(ctx, query,
		statusFilter,
		nullIfEmpty(filter.WholesalerID),
		nullIfEmpty(filter.VendorID),
		limit,
		filter.Offset(),
	)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	orders := []domain.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}

	return orders, nil
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus, at time.Time) error {
	query := `
		UPDATE orders
		SET status = $1, updated_at = $2
		WHERE id = $3
	`

	result, err := database.Conn(ctx, r.pool).Exec(ctx, query, string(status), at, id)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.ErrOrderNotFound
	}

	return nil
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var (
		order  domain.Order
		status string
		total  string
		items  []byte
	)
	if err := row.Scan(
		&order.ID,
		&order.WholesalerID,
		&order.VendorID,
		&status,
		&total,
		&items,
		&order.DeliveryAddress,
		&order.CreatedAt,
		&order.UpdatedAt,
	); err != nil {
		return nil, err
	}

	order.Status = domain.OrderStatus(status)

	var err error
	if order.Total, err = decimal.NewFromString(total); err != nil {
		return nil, fmt.Errorf("parse order total: %w", err)
	}
	if err := json.Unmarshal(items, &order.Items); err != nil {
		return nil, fmt.Errorf("decode order items: %w", err)
	}
	return &order, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
