package ports

import "context"

// StoredResponse is the response replayed when a client retries with a key
// it already used.
type StoredResponse struct {
	StatusCode int
	Body       []byte
	OrderID    string
}

// IdempotencyStore lets order placement be retried without creating a second order.
// Get returns nil, nil when the key is unknown.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) (*StoredResponse, error)
	Save(ctx context.Context, key string, response StoredResponse) error
}
