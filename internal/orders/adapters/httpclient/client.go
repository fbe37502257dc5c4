// Package httpclient is the shared JSON client behind the payment gateway and
// carrier adapters. Every call is throttled, traced, authenticated with a
// bearer token and checked against a JSON Schema before it is decoded.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dejobratic/marketplace/internal/orders/domain"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"
)

const maxResponseBytes = 1 << 20

type Config struct {
	BaseURL       string
	Token         string
	Timeout       time.Duration
	RatePerSecond float64
	Burst         int
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
	limiter *rate.Limiter
}

func New(cfg Config) *Client {
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		limiter: rate.NewLimiter(limit, burst),
	}
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

func (e *StatusError) Unwrap() error { return domain.ErrExternalService }

// Do sends body as JSON to path, validates the response document against
// schema and decodes it into out.
func (c *Client) Do(ctx context.Context, method, path string, body any, schema *jsonschema.Schema, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: rate limit wait: %w", domain.ErrExternalService, err)
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", domain.ErrExternalService, method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%w: read response: %w", domain.ErrExternalService, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("%w: response is not json: %w", domain.ErrExternalService, err)
	}
	if schema != nil {
		if err := schema.Validate(doc); err != nil {
			return fmt.Errorf("%w: response failed schema validation: %w", domain.ErrExternalService, err)
		}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: decode response: %w", domain.ErrExternalService, err)
	}
	return nil
}

// CompileSchema compiles a Draft 2020-12 schema registered under name.
func CompileSchema(name, source string) (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	url := fmt.Sprintf("https://marketplace.schemas.local/%s.schema.json", name)
	if err := c.AddResource(url, strings.NewReader(source)); err != nil {
		return nil, fmt.Errorf("load %s schema: %w", name, err)
	}
	schema, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile %s schema: %w", name, err)
	}
	return schema, nil
}

// MustCompileSchema is CompileSchema for package-level schemas.
func MustCompileSchema(name, source string) *jsonschema.Schema {
	schema, err := CompileSchema(name, source)
	if err != nil {
		panic(err)
	}
	return schema
}
