package integration

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// MockFisca is a scriptable stand-in for an OpenFisca web API instance. It
// records every calculation request body and serves configurable responses
// for the calculation and metadata endpoints.
type MockFisca struct {
	mu sync.Mutex

	srv *httptest.Server

	calculateStatus int
	calculateBody   string
	variablesBody   string
	specBody        string

	requests []string
}

const defaultSpec = `{
	"openapi": "3.0.0",
	"info": {"title": "openfisca", "version": "1.0.0"},
	"paths": {
		"/calculate": {"post": {"responses": {"200": {"description": "ok"}}}}
	}
}`

func newMockFisca(t *testing.T) *MockFisca {
	t.Helper()

	m := &MockFisca{
		calculateStatus: http.StatusOK,
		calculateBody:   "{}",
		variablesBody:   "{}",
		specBody:        defaultSpec,
	}
	m.srv = httptest.NewServer(http.HandlerFunc(m.handle))
	t.Cleanup(m.srv.Close)
	return m
}

func (m *MockFisca) handle(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch r.URL.Path {
	case "/calculate":
		raw, _ := io.ReadAll(r.Body)
		m.requests = append(m.requests, string(raw))
		w.WriteHeader(m.calculateStatus)
		if m.calculateStatus < 300 {
			w.Write([]byte(m.calculateBody))
		}
	case "/variables":
		w.Write([]byte(m.variablesBody))
	case "/spec":
		w.Write([]byte(m.specBody))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// URL returns the mock instance's base URL.
func (m *MockFisca) URL() string {
	return m.srv.URL
}

// RespondWith sets the calculation response body and resets the status to 200.
func (m *MockFisca) RespondWith(body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calculateStatus = http.StatusOK
	m.calculateBody = body
}

// FailWith makes the calculation endpoint return the given status with no body.
func (m *MockFisca) FailWith(status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calculateStatus = status
}

// LastRequest returns the most recent calculation request body.
func (m *MockFisca) LastRequest() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return ""
	}
	return m.requests[len(m.requests)-1]
}

// RequestCount returns how many calculation requests have arrived.
func (m *MockFisca) RequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}
