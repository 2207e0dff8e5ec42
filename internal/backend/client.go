// Package backend is the REST client for the studio backend. All
// repositories go through one shared Client, which owns the base URL,
// CSRF token handling, JSON content negotiation, and error mapping.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/agentstudio/agentstudio/console/internal/config"
)

var tracer = otel.Tracer("agentstudio-console")

// csrfCookieName is the cookie the backend sets for CSRF protection.
const csrfCookieName = "csrftoken"

// Client is the shared HTTP client for the studio backend.
type Client struct {
	baseURL string
	http    *http.Client

	// csrfFallback is used when no csrftoken cookie is present. In the
	// browser this is the page-injected token; here it comes from config.
	csrfFallback string

	// retryBudget caps exponential backoff for idempotent reads.
	// Zero disables retries.
	retryBudget time.Duration
}

// New creates a Client from backend configuration. The client carries a
// cookie jar so a csrftoken cookie set by the backend is replayed on
// mutating requests.
func New(cfg config.BackendConfig) *Client {
	jar, _ := cookiejar.New(nil)
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http: &http.Client{
			Timeout: cfg.Timeout(),
			Jar:     jar,
		},
		csrfFallback: cfg.CSRFToken,
		retryBudget:  cfg.MaxRetryElapsed(),
	}
}

// BaseURL returns the configured backend base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// ── Requests ─────────────────────────────────────────────────

// Get issues a GET and decodes the JSON response into out. Transient
// failures (network errors, 5xx) are retried within the retry budget.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	if c.retryBudget <= 0 {
		return c.do(ctx, http.MethodGet, path, nil, out)
	}

	op := func() error {
		err := c.do(ctx, http.MethodGet, path, nil, out)
		if err == nil {
			return nil
		}
		var apiErr *APIError
		if AsAPIError(err, &apiErr) && apiErr.Status < 500 {
			return backoff.Permanent(err)
		}
		return err
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = c.retryBudget
	return backoff.Retry(op, backoff.WithContext(bo, ctx))
}

// Post issues a POST with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

// Put issues a PUT with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPut, path, body, out)
}

// Patch issues a PATCH with a JSON body.
func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPatch, path, body, out)
}

// Delete issues a DELETE.
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	ctx, span := tracer.Start(ctx, method+" "+path,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.path", path),
		),
	)
	defer span.End()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
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
	if method != http.MethodGet {
		req.Header.Set("X-CSRFToken", c.csrfToken())
	}

	resp, err := c.http.Do(req)
	if err != nil {
		span.SetAttributes(attribute.Bool("error", true))
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := newAPIError(resp.StatusCode, respBody)
		log.Debug().
			Str("method", method).
			Str("path", path).
			Int("status", resp.StatusCode).
			Str("detail", apiErr.Detail).
			Msg("backend request failed")
		return apiErr
	}

	// 204 is an empty success payload.
	if resp.StatusCode == http.StatusNoContent || len(respBody) == 0 || out == nil {
		return nil
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

// csrfToken returns the csrftoken cookie value when the jar has one,
// falling back to the configured token.
func (c *Client) csrfToken() string {
	u, err := url.Parse(c.baseURL)
	if err == nil && c.http.Jar != nil {
		for _, cookie := range c.http.Jar.Cookies(u) {
			if cookie.Name == csrfCookieName {
				return cookie.Value
			}
		}
	}
	return c.csrfFallback
}

// ── Collection decoding ──────────────────────────────────────

// GetCollection fetches a list endpoint and normalizes the two response
// shapes every collection endpoint may return: a bare array, or a
// paginated envelope {"results": [...]}.
func GetCollection[T any](ctx context.Context, c *Client, path string) ([]T, error) {
	var raw json.RawMessage
	if err := c.Get(ctx, path, &raw); err != nil {
		return nil, err
	}
	return DecodeCollection[T](raw)
}

// DecodeCollection decodes a collection payload shaped either as a bare
// array or as {"results": [...]}.
func DecodeCollection[T any](raw json.RawMessage) ([]T, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, nil
	}

	if trimmed[0] == '[' {
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("decode collection: %w", err)
		}
		return items, nil
	}

	var envelope struct {
		Results []T `json:"results"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, fmt.Errorf("decode collection envelope: %w", err)
	}
	return envelope.Results, nil
}
