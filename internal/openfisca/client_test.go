package openfisca

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/rulesascode/journey/internal/fisca"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := NewClient(Options{
		BaseURI:                 srv.URL,
		BreakerFailureThreshold: 3,
	}, zap.NewNop())
	return client, srv
}

func TestClient_calculate(t *testing.T) {
	var gotPath, gotContentType, gotAuth string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"persons":{"personA":{"age":{"2025-01":30}}}}`))
	})
	client = client.ForEndpoint("", "Bearer token")

	payload := fisca.NewDocument()
	payload.SetValue([]string{"persons", "personA", "age", "2025-01"}, nil)

	doc, err := client.Calculate(context.Background(), payload)
	if err != nil {
		t.Fatalf("Calculate() error = %v", err)
	}
	if gotPath != "/calculate" {
		t.Errorf("request path = %q, want /calculate", gotPath)
	}
	if gotContentType != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", gotContentType)
	}
	if gotAuth != "Bearer token" {
		t.Errorf("Authorization = %q, want Bearer token", gotAuth)
	}
	if got := doc.Value([]string{"persons", "personA", "age", "2025-01"}); got != 30.0 {
		t.Errorf("response value = %v, want 30", got)
	}
}

func TestClient_serverErrorsOpenBreaker(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	payload := fisca.NewDocument()
	for i := 0; i < 3; i++ {
		if _, err := client.Calculate(context.Background(), payload); err == nil {
			t.Fatal("Calculate() succeeded against a failing server")
		}
	}

	if got := client.BreakerState(); got != BreakerOpen {
		t.Fatalf("BreakerState() = %v, want open", got)
	}
	_, err := client.Calculate(context.Background(), payload)
	if err != ErrBreakerOpen {
		t.Errorf("Calculate() error = %v, want ErrBreakerOpen", err)
	}
}

func TestClient_clientErrorsDoNotTripBreaker(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for i := 0; i < 5; i++ {
		if _, err := client.Variables(context.Background()); err == nil {
			t.Fatal("Variables() succeeded against 404")
		}
	}
	if got := client.BreakerState(); got != BreakerClosed {
		t.Errorf("BreakerState() = %v after 4xx responses, want closed", got)
	}
}

func TestClient_forEndpointSharesBreaker(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	derived := client.ForEndpoint("", "")

	payload := fisca.NewDocument()
	for i := 0; i < 3; i++ {
		derived.Calculate(context.Background(), payload)
	}
	if got := client.BreakerState(); got != BreakerOpen {
		t.Errorf("parent BreakerState() = %v, want open via derived client", got)
	}
}

func TestClient_variables(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/variables" {
			t.Errorf("request path = %q, want /variables", r.URL.Path)
		}
		w.Write([]byte(`{"age":{"description":"age"},"income":{}}`))
	})

	catalogue, err := client.Variables(context.Background())
	if err != nil {
		t.Fatalf("Variables() error = %v", err)
	}
	if len(catalogue) != 2 {
		t.Errorf("catalogue has %d entries, want 2", len(catalogue))
	}
}

func TestTrimBaseURI(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"https://fisca.example.org/", "https://fisca.example.org"},
		{"https://fisca.example.org", "https://fisca.example.org"},
		{"/fisca/", "fisca"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := TrimBaseURI(tt.in); got != tt.want {
			t.Errorf("TrimBaseURI(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitizeHeader(t *testing.T) {
	if got := sanitizeHeader("Bearer a\r\nX-Evil: 1"); got != "Bearer aX-Evil: 1" {
		t.Errorf("sanitizeHeader() = %q", got)
	}
}
