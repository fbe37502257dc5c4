package paystack

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dejobratic/marketplace/internal/orders/adapters/httpclient"
	"github.com/dejobratic/marketplace/internal/orders/domain"
	"github.com/dejobratic/marketplace/internal/orders/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(httpclient.Config{BaseURL: server.URL, Token: "sk_test", Timeout: time.Second})
}

func TestInitializeTransaction(t *testing.T) {
	t.Run("posts the transaction and returns the authorization url", func(t *testing.T) {
		var got initializeRequest
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/transaction/initialize", r.URL.Path)
			assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			_, _ = w.Write([]byte(`{"status":true,"message":"ok","data":{"reference":"PAY-1","authorization_url":"https://checkout.test/PAY-1"}}`))
		})

		resp, err := client.InitializeTransaction(context.Background(), ports.InitializeRequest{
			Reference:   "PAY-1",
			AmountMinor: 35000,
			Email:       "buyer@example.com",
			OrderID:     "order-1",
		})

		require.NoError(t, err)
		assert.Equal(t, "https://checkout.test/PAY-1", resp.AuthorizationURL)
		assert.Equal(t, int64(35000), got.Amount)
		assert.Equal(t, "order-1", got.Metadata.OrderID)
	})

	t.Run("gateway refusal surfaces as external error", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"status":false,"message":"Invalid key","data":null}`))
		})

		_, err := client.InitializeTransaction(context.Background(), ports.InitializeRequest{Reference: "x"})
		assert.ErrorIs(t, err, domain.ErrExternalService)
	})

	t.Run("success without data violates the schema", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"status":true,"message":"ok"}`))
		})

		_, err := client.InitializeTransaction(context.Background(), ports.InitializeRequest{Reference: "x"})
		assert.ErrorIs(t, err, domain.ErrExternalService)
	})

	t.Run("unauthorized status", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})

		_, err := client.InitializeTransaction(context.Background(), ports.InitializeRequest{Reference: "x"})
		assert.ErrorIs(t, err, domain.ErrExternalService)
	})
}

func TestVerifyTransaction(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantStatus  string
		wantOrderID string
		wantErr     bool
	}{
		{
			name:        "success with metadata",
			body:        `{"status":true,"message":"ok","data":{"status":"success","reference":"PAY-1","metadata":{"orderId":"order-1"}}}`,
			wantStatus:  "success",
			wantOrderID: "order-1",
		},
		{
			name:       "abandoned with empty metadata",
			body:       `{"status":true,"message":"ok","data":{"status":"abandoned","reference":"PAY-1","metadata":""}}`,
			wantStatus: "abandoned",
		},
		{
			name:       "success with null metadata",
			body:       `{"status":true,"message":"ok","data":{"status":"success","reference":"PAY-1","metadata":null}}`,
			wantStatus: "success",
		},
		{
			name:    "numeric order id in metadata",
			body:    `{"status":true,"message":"ok","data":{"status":"success","reference":"PAY-1","metadata":{"orderId":42}}}`,
			wantErr: true,
		},
		{
			name:    "metadata without order id",
			body:    `{"status":true,"message":"ok","data":{"status":"success","reference":"PAY-1","metadata":{"cart":"c-1"}}}`,
			wantErr: true,
		},
		{
			name:    "metadata of the wrong shape",
			body:    `{"status":true,"message":"ok","data":{"status":"success","reference":"PAY-1","metadata":["order-1"]}}`,
			wantErr: true,
		},
		{
			name:    "missing data status",
			body:    `{"status":true,"message":"ok","data":{"reference":"PAY-1"}}`,
			wantErr: true,
		},
		{
			name:    "not found at gateway",
			body:    `{"status":false,"message":"Transaction reference not found"}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/transaction/verify/PAY-1", r.URL.Path)
				_, _ = w.Write([]byte(tt.body))
			})

			v, err := client.VerifyTransaction(context.Background(), "PAY-1")
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrExternalService)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, v.Status)
			assert.Equal(t, tt.wantOrderID, v.OrderID)
		})
	}
}
