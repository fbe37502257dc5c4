package domain

import "github.com/shopspring/decimal"

// Product is the catalog snapshot consumed when an order is placed. The catalog
// itself is owned elsewhere.
type Product struct {
	ID       string          `json:"id"`
	VendorID string          `json:"vendor_id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}
