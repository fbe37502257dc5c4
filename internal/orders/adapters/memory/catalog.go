package memory

import (
	"context"

	"github.com/dejobratic/marketplace/internal/orders/domain"
)

type productRow = domain.Product

// Catalog is an in-memory product catalog.
type Catalog struct {
	store *Store
}

// Put inserts or replaces a product.
func (c *Catalog) Put(product domain.Product) {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	c.store.products[product.ID] = product
}

func (c *Catalog) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	product, ok := c.store.products[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	return &product, nil
}
