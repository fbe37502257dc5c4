package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const healthTimeout = 2 * time.Second

func CheckHealth(ctx context.Context, pool *pgxpool.Pool) error {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	return pool.Ping(ctx)
}

// HealthChecker adapts CheckHealth for readiness probes.
type HealthChecker struct {
	pool *pgxpool.Pool
}

func NewHealthChecker(pool *pgxpool.Pool) *HealthChecker {
	return &HealthChecker{pool: pool}
}

func (h *HealthChecker) Check(ctx context.Context) error {
	return CheckHealth(ctx, h.pool)
}
