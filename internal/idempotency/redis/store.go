// Package redis stores idempotency responses in Redis with a per-key expiry.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dejobratic/marketplace/internal/orders/ports"
	goredis "github.com/redis/go-redis/v9"
)

const keyPrefix = "idempotency:"

type record struct {
	StatusCode int    `json:"status_code"`
	Body       []byte `json:"body"`
	OrderID    string `json:"order_id"`
}

type Store struct {
	client goredis.UniversalClient
	ttl    time.Duration
}

// NewStore wraps client. A ttl of zero keeps keys until evicted.
func NewStore(client goredis.UniversalClient, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

// NewClient connects to a single Redis node and checks it is reachable.
func NewClient(ctx context.Context, addr, password string, db int) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func (s *Store) Get(ctx context.Context, key string) (*ports.StoredResponse, error) {
	raw, err := s.client.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get idempotency key: %w", err)
	}

	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode idempotency record: %w", err)
	}
	return &ports.StoredResponse{StatusCode: rec.StatusCode, Body: rec.Body, OrderID: rec.OrderID}, nil
}

// Save stores response unless key already holds one.
func (s *Store) Save(ctx context.Context, key string, response ports.StoredResponse) error {
	raw, err := json.Marshal(record{
		StatusCode: response.StatusCode,
		Body:       response.Body,
		OrderID:    response.OrderID,
	})
	if err != nil {
		return fmt.Errorf("encode idempotency record: %w", err)
	}

	if err := s.client.SetNX(ctx, keyPrefix+key, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("set idempotency key: %w", err)
	}
	return nil
}
