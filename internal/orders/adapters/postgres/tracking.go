package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/dejobratic/marketplace/internal/database"
	"github.com/dejobratic/marketplace/internal/orders/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TrackingRepository struct {
	pool *pgxpool.Pool
}

func NewTrackingRepository(pool *pgxpool.Pool) *TrackingRepository {
	return &TrackingRepository{pool: pool}
}

func (r *TrackingRepository) Create(ctx context.Context, tracking domain.Tracking) error {
	query := `
		INSERT INTO logistics_tracking
			(id, order_id, tracking_number, carrier, external_ref, status, location, estimated_delivery, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := database.Conn(ctx, r.pool).Exec(ctx, query,
		tracking.ID,
		tracking.OrderID,
		tracking.TrackingNumber,
		tracking.Carrier,
		nullIfEmpty(tracking.ExternalRef),
		string(tracking.Status),
		nullIfEmpty(tracking.Location),
		tracking.EstimatedDelivery,
		tracking.CreatedAt,
		tracking.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert tracking: %w", err)
	}
	return nil
}

func (r *TrackingRepository) GetLatestByOrderID(ctx context.Context, orderID string) (*domain.Tracking, error) {
	query := `
		SELECT id, order_id, tracking_number, carrier, external_ref, status, location, estimated_delivery, created_at, updated_at
		FROM logistics_tracking
		WHERE order_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`

	var (
		tracking    domain.Tracking
		externalRef *string
		location    *string
		status      string
	)
	err := database.Conn(ctx, r.pool).QueryRow(ctx, query, orderID).Scan(
		&tracking.ID,
		&tracking.OrderID,
		&tracking.TrackingNumber,
		&tracking.Carrier,
		&externalRef,
		&status,
		&location,
		&tracking.EstimatedDelivery,
		&tracking.CreatedAt,
		&tracking.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTrackingNotFound
		}
		return nil, fmt.Errorf("select tracking: %w", err)
	}

	tracking.Status = domain.ShipmentStatus(status)
	if externalRef != nil {
		tracking.ExternalRef = *externalRef
	}
	if location != nil {
		tracking.Location = *location
	}
	return &tracking, nil
}

func (r *TrackingRepository) Update(ctx context.Context, tracking domain.Tracking) error {
	query := `
		UPDATE logistics_tracking
		SET status = $1, location = $2, updated_at = $3
		WHERE id = $4
	`

	result, err := database.Conn(ctx, r.pool).Exec(ctx, query,
		string(tracking.Status),
		nullIfEmpty(tracking.Location),
		tracking.UpdatedAt,
		tracking.ID,
	)
	if err != nil {
		return fmt.Errorf("update tracking: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrTrackingNotFound
	}
	return nil
}
