// Package integration hosts end-to-end tests that exercise the full HTTP
// surface of the journey server against a mock OpenFisca instance. The
// harness wires real components exactly as main does, with definitions
// loaded from testdata fixtures.
package integration

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rulesascode/journey/internal/config"
	"github.com/rulesascode/journey/internal/definition"
	"github.com/rulesascode/journey/internal/journey"
	"github.com/rulesascode/journey/internal/observability"
	"github.com/rulesascode/journey/internal/openfisca"
	"github.com/rulesascode/journey/internal/transport"
)

const (
	testSecretEnv = "JOURNEY_INTEGRATION_JWT_SECRET"
	testSecret    = "integration-shared-secret"
	testIssuer    = "https://auth.journey.test"
	testAudience  = "journey-api"
)

// TestHarness holds the running server and the components a scenario may
// want to script or inspect directly.
type TestHarness struct {
	t      *testing.T
	server *httptest.Server

	Fisca    *MockFisca
	Registry *definition.Registry
	Client   *openfisca.Client
	Config   *config.Config
}

type harnessConfig struct {
	authEnabled    bool
	handlerTimeout time.Duration
	breaker        config.CircuitBreakerConfig
}

// HarnessOption customizes harness construction.
type HarnessOption func(*harnessConfig)

// WithAuth enables bearer token verification on the journey API.
func WithAuth() HarnessOption {
	return func(hc *harnessConfig) { hc.authEnabled = true }
}

// WithHandlerTimeout overrides the per-request deadline.
func WithHandlerTimeout(d time.Duration) HarnessOption {
	return func(hc *harnessConfig) { hc.handlerTimeout = d }
}

// WithBreaker overrides the circuit breaker settings of the OpenFisca client.
func WithBreaker(cfg config.CircuitBreakerConfig) HarnessOption {
	return func(hc *harnessConfig) { hc.breaker = cfg }
}

// NewTestHarness builds the full stack and starts an HTTP server for it.
// The server and the mock OpenFisca instance are torn down with the test.
func NewTestHarness(t *testing.T, opts ...HarnessOption) *TestHarness {
	t.Helper()

	hc := harnessConfig{
		handlerTimeout: 10 * time.Second,
		breaker: config.CircuitBreakerConfig{
			FailureThreshold: 3,
			SuccessThreshold: 1,
			Cooldown:         time.Minute,
		},
	}
	for _, opt := range opts {
		opt(&hc)
	}

	fisca := newMockFisca(t)

	defs, err := definition.NewLoader().LoadAll([]string{filepath.Join(testdataDir(), "definitions")})
	require.NoError(t, err)
	require.NotEmpty(t, defs)
	registry := definition.NewRegistry(defs)

	client := openfisca.NewClient(openfisca.Options{
		BaseURI:                 fisca.URL(),
		Timeout:                 5 * time.Second,
		BreakerFailureThreshold: hc.breaker.FailureThreshold,
		BreakerSuccessThreshold: hc.breaker.SuccessThreshold,
		BreakerCooldown:         hc.breaker.Cooldown,
	}, zap.NewNop())

	metrics := observability.InitMetrics(prometheus.NewRegistry())
	service := journey.NewService(registry, client, metrics, zap.NewNop())

	t.Setenv(testSecretEnv, testSecret)
	cfg := config.Defaults()
	cfg.Server.HandlerTimeout = hc.handlerTimeout
	cfg.OpenFisca.BaseURI = fisca.URL()
	cfg.OpenFisca.CircuitBreaker = hc.breaker
	if hc.authEnabled {
		cfg.Auth = config.AuthConfig{
			Enabled:   true,
			SecretEnv: testSecretEnv,
			Issuer:    testIssuer,
			Audience:  testAudience,
		}
	}

	router := transport.NewRouter(transport.Dependencies{
		Config:  cfg,
		Service: service,
		Metrics: metrics,
		Logger:  zap.NewNop(),
		Ready: observability.ReadinessChecks{
			DefinitionsLoaded: func() bool { return registry.Count() > 0 },
			BreakerClosed:     func() bool { return client.BreakerState() == openfisca.BreakerClosed },
		},
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &TestHarness{
		t:        t,
		server:   server,
		Fisca:    fisca,
		Registry: registry,
		Client:   client,
		Config:   cfg,
	}
}

// BaseURL returns the harness server's base URL.
func (h *TestHarness) BaseURL() string {
	return h.server.URL
}

// Get issues a GET request against the harness server.
func (h *TestHarness) Get(path, token string) *http.Response {
	return h.do(http.MethodGet, path, nil, token)
}

// PostJSON issues a POST with the given body marshalled as JSON.
func (h *TestHarness) PostJSON(path string, body any, token string) *http.Response {
	return h.do(http.MethodPost, path, body, token)
}

func (h *TestHarness) do(method, path string, body any, token string) *http.Response {
	h.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(h.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, h.server.URL+path, reader)
	require.NoError(h.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := h.server.Client().Do(req)
	require.NoError(h.t, err)
	h.t.Cleanup(func() { resp.Body.Close() })
	return resp
}

// DecodeJSON reads the response body into dst.
func (h *TestHarness) DecodeJSON(resp *http.Response, dst any) {
	h.t.Helper()
	require.NoError(h.t, json.NewDecoder(resp.Body).Decode(dst))
}

func testdataDir() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "testdata")
}
