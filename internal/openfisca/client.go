// Package openfisca is the HTTP client for an OpenFisca web API instance.
// It covers the calculation endpoint used on every submission plus the
// metadata endpoints used by configuration-time tooling.
package openfisca

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rulesascode/journey/internal/fisca"
)

// maxResponseBytes caps how much of a calculation response is read.
const maxResponseBytes = 10 << 20

// Options configures a Client.
type Options struct {
	// BaseURI is the root of the OpenFisca instance. Leading and trailing
	// slashes are trimmed before use.
	BaseURI string

	// Authorization, when set, is sent verbatim as the Authorization
	// header on every request.
	Authorization string

	Timeout time.Duration

	BreakerFailureThreshold int
	BreakerSuccessThreshold int
	BreakerCooldown         time.Duration
}

// Client calls a single OpenFisca instance. Calls share one underlying
// HTTP client and one circuit breaker; per-journey endpoint overrides are
// derived with ForEndpoint and keep sharing both.
type Client struct {
	baseURI       string
	authorization string
	http          *http.Client
	breaker       *CircuitBreaker
	logger        *zap.Logger
}

// NewClient builds a client for the given instance.
func NewClient(opts Options, logger *zap.Logger) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxConnsPerHost:     50,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	return &Client{
		baseURI:       TrimBaseURI(opts.BaseURI),
		authorization: opts.Authorization,
		http: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		breaker: NewCircuitBreaker(
			opts.BreakerFailureThreshold,
			opts.BreakerSuccessThreshold,
			opts.BreakerCooldown,
		),
		logger: logger,
	}
}

// TrimBaseURI strips leading and trailing slashes from an instance URI.
func TrimBaseURI(uri string) string {
	return strings.Trim(uri, "/")
}

// ForEndpoint returns a client with the base URI and authorization header
// replaced. Empty arguments keep the current values. The HTTP transport
// and circuit breaker are shared with the parent.
func (c *Client) ForEndpoint(baseURI, authorization string) *Client {
	derived := *c
	if baseURI != "" {
		derived.baseURI = TrimBaseURI(baseURI)
	}
	if authorization != "" {
		derived.authorization = authorization
	}
	return &derived
}

// BaseURI returns the trimmed instance URI.
func (c *Client) BaseURI() string {
	return c.baseURI
}

// BreakerState exposes the circuit breaker state for health reporting.
func (c *Client) BreakerState() BreakerState {
	return c.breaker.State()
}

// Calculate posts a request document to /calculate and decodes the
// response into a document. Transport failures, non-2xx statuses and
// undecodable bodies all return a nil document with an error; callers
// treat that as "no result" and fall back to default confirmation
// behavior rather than failing the submission.
func (c *Client) Calculate(ctx context.Context, payload *fisca.Document) (*fisca.Document, error) {
	return c.postDocument(ctx, "/calculate", payload)
}

// Trace posts a request document to /trace, which returns the full
// computation tree for debugging.
func (c *Client) Trace(ctx context.Context, payload *fisca.Document) (*fisca.Document, error) {
	return c.postDocument(ctx, "/trace", payload)
}

// Variable fetches the metadata of a single variable.
func (c *Client) Variable(ctx context.Context, name string) (map[string]any, error) {
	return c.getJSON(ctx, "/variable/"+url.PathEscape(name))
}

// Variables fetches the instance's variable catalogue.
func (c *Client) Variables(ctx context.Context) (map[string]any, error) {
	return c.getJSON(ctx, "/variables")
}

// Parameter fetches the metadata of a single parameter.
func (c *Client) Parameter(ctx context.Context, name string) (map[string]any, error) {
	return c.getJSON(ctx, "/parameter/"+url.PathEscape(name))
}

// Parameters fetches the instance's parameter catalogue.
func (c *Client) Parameters(ctx context.Context) (map[string]any, error) {
	return c.getJSON(ctx, "/parameters")
}

// Entities fetches the instance's entity catalogue.
func (c *Client) Entities(ctx context.Context) (map[string]any, error) {
	return c.getJSON(ctx, "/entities")
}

// Spec fetches the instance's OpenAPI document as raw bytes.
func (c *Client) Spec(ctx context.Context) ([]byte, error) {
	return c.execute(ctx, http.MethodGet, "/spec", nil)
}

func (c *Client) postDocument(ctx context.Context, path string, payload *fisca.Document) (*fisca.Document, error) {
	body, err := payload.ToJSON(false)
	if err != nil {
		return nil, fmt.Errorf("openfisca: encode payload: %w", err)
	}
	raw, err := c.execute(ctx, http.MethodPost, path, []byte(body))
	if err != nil {
		return nil, err
	}
	doc, err := fisca.FromJSON(string(raw))
	if err != nil {
		return nil, fmt.Errorf("openfisca: decode response: %w", err)
	}
	return doc, nil
}

func (c *Client) getJSON(ctx context.Context, path string) (map[string]any, error) {
	raw, err := c.execute(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("openfisca: decode response: %w", err)
	}
	return out, nil
}

func (c *Client) execute(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	if err := c.breaker.Allow(); err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURI+path, reader)
	if err != nil {
		return nil, fmt.Errorf("openfisca: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.authorization != "" {
		req.Header.Set("Authorization", sanitizeHeader(c.authorization))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.breaker.RecordFailure()
		c.logger.Warn("openfisca request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, fmt.Errorf("openfisca: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		c.breaker.RecordFailure()
		return nil, fmt.Errorf("openfisca: read response: %w", err)
	}

	if resp.StatusCode >= 500 {
		c.breaker.RecordFailure()
	} else if resp.StatusCode < 400 {
		// 4xx statuses are request problems, not instance problems, and
		// count neither way.
		c.breaker.RecordSuccess()
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("openfisca returned non-success status",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
		)
		return nil, fmt.Errorf("openfisca: %s %s: status %d", method, path, resp.StatusCode)
	}
	return raw, nil
}

// sanitizeHeader strips newlines and carriage returns to prevent header
// injection from configured authorization values.
func sanitizeHeader(s string) string {
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\n", "")
	return s
}
