package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/dejobratic/marketplace/internal/database"
	"github.com/dejobratic/marketplace/internal/orders/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// CatalogLookup reads the products table owned by the catalog service.
type CatalogLookup struct {
	pool *pgxpool.Pool
}

func NewCatalogLookup(pool *pgxpool.Pool) *CatalogLookup {
	return &CatalogLookup{pool: pool}
}

func (c *CatalogLookup) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	query := `SELECT id, vendor_id, name, price::text, quantity FROM products WHERE id = $1`

	var (
		product domain.Product
		price   string
	)
	err := database.Conn(ctx, c.pool).QueryRow(ctx, query, id).Scan(
		&product.ID,
		&product.VendorID,
		&product.Name,
		&price,
		&product.Quantity,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrProductNotFound
		}
		return nil, fmt.Errorf("select product: %w", err)
	}

	if product.Price, err = decimal.NewFromString(price); err != nil {
		return nil, fmt.Errorf("parse product price: %w", err)
	}
	return &product, nil
}
