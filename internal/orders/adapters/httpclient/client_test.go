package httpclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dejobratic/marketplace/internal/orders/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var echoSchema = MustCompileSchema("test-echo", `{
	"type": "object",
	"required": ["name"],
	"properties": {"name": {"type": "string"}}
}`)

func TestClientDo(t *testing.T) {
	t.Run("sends bearer json and decodes a valid response", func(t *testing.T) {
		var gotAuth, gotType, gotBody string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			gotType = r.Header.Get("Content-Type")
			b, _ := io.ReadAll(r.Body)
			gotBody = string(b)
			_, _ = w.Write([]byte(`{"name":"ok"}`))
		}))
		defer server.Close()

		client := New(Config{BaseURL: server.URL + "/", Token: "secret", Timeout: time.Second})

		var out struct {
			Name string `json:"name"`
		}
		err := client.Do(context.Background(), http.MethodPost, "/things", map[string]int{"n": 1}, echoSchema, &out)
		require.NoError(t, err)
		assert.Equal(t, "ok", out.Name)
		assert.Equal(t, "Bearer secret", gotAuth)
		assert.Equal(t, "application/json", gotType)
		assert.JSONEq(t, `{"n":1}`, gotBody)
	})

	t.Run("non-2xx is an external service error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusBadGateway)
		}))
		defer server.Close()

		err := New(Config{BaseURL: server.URL}).Do(context.Background(), http.MethodGet, "/x", nil, nil, nil)

		var statusErr *StatusError
		require.True(t, errors.As(err, &statusErr))
		assert.Equal(t, http.StatusBadGateway, statusErr.Code)
		assert.ErrorIs(t, err, domain.ErrExternalService)
	})

	t.Run("schema mismatch fails closed", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"name":42}`))
		}))
		defer server.Close()

		err := New(Config{BaseURL: server.URL}).Do(context.Background(), http.MethodGet, "/x", nil, echoSchema, &struct{}{})
		assert.ErrorIs(t, err, domain.ErrExternalService)
	})

	t.Run("invalid json fails closed", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`<html>`))
		}))
		defer server.Close()

		err := New(Config{BaseURL: server.URL}).Do(context.Background(), http.MethodGet, "/x", nil, nil, nil)
		assert.ErrorIs(t, err, domain.ErrExternalService)
	})

	t.Run("cancelled context stops the rate limiter wait", func(t *testing.T) {
		client := New(Config{BaseURL: "http://127.0.0.1:1", RatePerSecond: 0.001, Burst: 1})
		client.limiter.Allow()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		err := client.Do(ctx, http.MethodGet, "/x", nil, nil, nil)
		assert.ErrorIs(t, err, domain.ErrExternalService)
	})
}

func TestCompileSchemaRejectsInvalidSource(t *testing.T) {
	_, err := CompileSchema("broken", `{"type": 12}`)
	assert.Error(t, err)
}
