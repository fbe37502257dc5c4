package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/dejobratic/marketplace/internal/orders/ports"
)

// Store keeps idempotency responses in process memory. The first response
// saved for a key wins.
type Store struct {
	mu    sync.RWMutex
	items map[string]ports.StoredResponse
}

func NewStore() *Store {
	return &Store{items: make(map[string]ports.StoredResponse)}
}

// Get returns the stored response for key, or nil when the key is unknown.
func (s *Store) Get(_ context.Context, key string) (*ports.StoredResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.items[key]
	if !ok {
		return nil, nil
	}
	value.Body = slices.Clone(value.Body)
	return &value, nil
}

func (s *Store) Save(_ context.Context, key string, response ports.StoredResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.items[key]; exists {
		return nil
	}
	response.Body = slices.Clone(response.Body)
	s.items[key] = response
	return nil
}
