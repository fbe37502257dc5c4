// Package paystack implements the payment gateway port against a
// Paystack-compatible transaction API.
package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/dejobratic/marketplace/internal/orders/adapters/httpclient"
	"github.com/dejobratic/marketplace/internal/orders/domain"
	"github.com/dejobratic/marketplace/internal/orders/ports"
)

var initializeSchema = httpclient.MustCompileSchema("paystack-initialize", `{
	"type": "object",
	"required": ["status"],
	"properties": {
		"status": {"type": "boolean"},
		"message": {"type": "string"},
		"data": {
			"type": ["object", "null"],
			"properties": {
				"reference": {"type": "string"},
				"authorization_url": {"type": "string"}
			}
		}
	},
	"if": {"properties": {"status": {"const": true}}},
	"then": {
		"required": ["data"],
		"properties": {"data": {"type": "object", "required": ["reference", "authorization_url"]}}
	}
}`)

var verifySchema = httpclient.MustCompileSchema("paystack-verify", `{
	"type": "object",
	"required": ["status"],
	"properties": {
		"status": {"type": "boolean"},
		"message": {"type": "string"},
		"data": {
			"type": ["object", "null"],
			"properties": {
				"status": {"type": "string"},
				"reference": {"type": "string"},
				"metadata": {
					"anyOf": [
						{"type": "null"},
						{"const": ""},
						{
							"type": "object",
							"required": ["orderId"],
							"properties": {"orderId": {"type": "string"}}
						}
					]
				}
			}
		}
	},
	"if": {"properties": {"status": {"const": true}}},
	"then": {
		"required": ["data"],
		"properties": {"data": {"type": "object", "required": ["status"]}}
	}
}`)

type metadata struct {
	OrderID string `json:"orderId"`
}

type initializeRequest struct {
	Reference string   `json:"reference"`
	Amount    int64    `json:"amount"`
	Email     string   `json:"email"`
	Metadata  metadata `json:"metadata"`
}

type initializeResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    *struct {
		Reference        string `json:"reference"`
		AuthorizationURL string `json:"authorization_url"`
	} `json:"data"`
}

type verifyResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    *struct {
		Status    string          `json:"status"`
		Reference string          `json:"reference"`
		Metadata  json.RawMessage `json:"metadata"`
	} `json:"data"`
}

type Client struct {
	api *httpclient.Client
}

var _ ports.PaymentGateway = (*Client)(nil)

func NewClient(cfg httpclient.Config) *Client {
	return &Client{api: httpclient.New(cfg)}
}

func (c *Client) InitializeTransaction(ctx context.Context, req ports.InitializeRequest) (*ports.InitializeResponse, error) {
	var resp initializeResponse
	err := c.api.Do(ctx, http.MethodPost, "/transaction/initialize", initializeRequest{
		Reference: req.Reference,
		Amount:    req.AmountMinor,
		Email:     req.Email,
		Metadata:  metadata{OrderID: req.OrderID},
	}, initializeSchema, &resp)
	if err != nil {
		return nil, fmt.Errorf("paystack initialize: %w", err)
	}
	if !resp.Status {
		return nil, fmt.Errorf("%w: paystack initialize rejected: %s", domain.ErrExternalService, resp.Message)
	}

	return &ports.InitializeResponse{
		Reference:        resp.Data.Reference,
		AuthorizationURL: resp.Data.AuthorizationURL,
	}, nil
}

func (c *Client) VerifyTransaction(ctx context.Context, reference string) (*ports.Verification, error) {
	var resp verifyResponse
	err := c.api.Do(ctx, http.MethodGet, "/transaction/verify/"+url.PathEscape(reference), nil, verifySchema, &resp)
	if err != nil {
		return nil, fmt.Errorf("paystack verify: %w", err)
	}
	if !resp.Status {
		return nil, fmt.Errorf("%w: paystack verify rejected: %s", domain.ErrExternalService, resp.Message)
	}

	meta, err := decodeMetadata(resp.Data.Metadata)
	if err != nil {
		return nil, err
	}

	return &ports.Verification{
		Status:  resp.Data.Status,
		OrderID: meta.OrderID,
	}, nil
}

// decodeMetadata accepts absent, null, "" or an object carrying a string
// orderId. Paystack sends "" when no metadata was attached.
func decodeMetadata(raw json.RawMessage) (metadata, error) {
	var meta metadata
	switch string(bytes.TrimSpace(raw)) {
	case "", "null", `""`:
		return meta, nil
	}
	if err := json.Unmarshal(raw, &meta); err != nil {
		return meta, fmt.Errorf("%w: paystack verify metadata: %w", domain.ErrExternalService, err)
	}
	return meta, nil
}
