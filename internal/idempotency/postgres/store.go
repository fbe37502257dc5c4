package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dejobratic/marketplace/internal/database"
	"github.com/dejobratic/marketplace/internal/orders/ports"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store keeps placement responses in the idempotency_keys table. Rows older
// than ttl are invisible to Get and may be overwritten by Save; a ttl of zero
// keeps them forever.
type Store struct {
	pool *pgxpool.Pool
	ttl  time.Duration
}

func NewStore(pool *pgxpool.Pool, ttl time.Duration) *Store {
	return &Store{pool: pool, ttl: ttl}
}

func (s *Store) ttlSeconds() int64 {
	return int64(s.ttl.Seconds())
}

func (s *Store) Get(ctx context.Context, key string) (*ports.StoredResponse, error) {
	const query = `
		SELECT status_code, body, order_id
		FROM idempotency_keys
		WHERE key = $1
		  AND ($2::bigint <= 0 OR created_at > now() - make_interval(secs => $2::bigint))
	`

	var resp ports.StoredResponse
	err := database.Conn(ctx, s.pool).
		QueryRow(ctx, query, key, s.ttlSeconds()).
		Scan(&resp.StatusCode, &resp.Body, &resp.OrderID)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("select idempotency key %q: %w", key, err)
	}
	return &resp, nil
}

// Save stores response under key unless a live response already holds it.
func (s *Store) Save(ctx context.Context, key string, response ports.StoredResponse) error {
	const query = `
		INSERT INTO idempotency_keys (key, status_code, body, order_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (key) DO UPDATE
		SET status_code = EXCLUDED.status_code,
		    body = EXCLUDED.body,
		    order_id = EXCLUDED.order_id,
		    created_at = now()
		WHERE $5::bigint > 0
		  AND idempotency_keys.created_at <= now() - make_interval(secs => $5::bigint)
	`

	_, err := database.Conn(ctx, s.pool).Exec(ctx, query,
		key, response.StatusCode, response.Body, response.OrderID, s.ttlSeconds())
	if err != nil {
		return fmt.Errorf("upsert idempotency key %q: %w", key, err)
	}
	return nil
}

// PurgeExpired deletes rows past the ttl and reports how many went.
func (s *Store) PurgeExpired(ctx context.Context) (int64, error) {
	if s.ttl <= 0 {
		return 0, nil
	}
	tag, err := database.Conn(ctx, s.pool).Exec(ctx,
		`DELETE FROM idempotency_keys WHERE created_at <= now() - make_interval(secs => $1::bigint)`,
		s.ttlSeconds())
	if err != nil {
		return 0, fmt.Errorf("purge idempotency keys: %w", err)
	}
	return tag.RowsAffected(), nil
}
