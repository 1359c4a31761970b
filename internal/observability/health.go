package observability

import (
	"encoding/json"
	"net/http"
	"time"
)

// Build-time variables injected via ldflags.
var (
	Version = "dev"
	Commit  = "unknown"
)

// HealthResponse is the JSON response for the liveness endpoint.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Commit  string `json:"commit"`
}

// ReadinessResponse is the JSON response for the readiness endpoint.
type ReadinessResponse struct {
	Status string                 `json:"status"`
	Checks map[string]CheckResult `json:"checks"`
}

// CheckResult is the result of a single readiness check.
type CheckResult struct {
	Status    string `json:"status"`
	LatencyMs int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

// ReadinessChecks holds the dependency checks for the readiness endpoint.
type ReadinessChecks struct {
	// DefinitionsLoaded reports whether at least one journey is available.
	DefinitionsLoaded func() bool

	// BreakerClosed reports whether the calculation service breaker is not
	// open. An open breaker degrades readiness but is reported, not fatal:
	// submissions still complete with default confirmation behavior.
	BreakerClosed func() bool
}

// HandleHealth returns an HTTP handler for the liveness endpoint.
func HandleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(HealthResponse{
			Status:  "ok",
			Version: Version,
			Commit:  Commit,
		})
	}
}

// HandleReady returns an HTTP handler for the readiness endpoint. Only a
// missing definition set makes the service not ready.
func HandleReady(checks ReadinessChecks) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		results := make(map[string]CheckResult)

		start := time.Now()
		if checks.DefinitionsLoaded != nil && checks.DefinitionsLoaded() {
			results["definitions"] = CheckResult{Status: "ok", LatencyMs: time.Since(start).Milliseconds()}
		} else {
			results["definitions"] = CheckResult{
				Status:    "error",
				LatencyMs: time.Since(start).Milliseconds(),
				Error:     "no journey definitions loaded",
			}
		}

		if checks.BreakerClosed != nil {
			if checks.BreakerClosed() {
				results["openfisca_breaker"] = CheckResult{Status: "ok"}
			} else {
				results["openfisca_breaker"] = CheckResult{Status: "degraded", Error: "circuit breaker is open"}
			}
		}

		status := "ready"
		httpStatus := http.StatusOK
		if results["definitions"].Status != "ok" {
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(httpStatus)
		json.NewEncoder(w).Encode(ReadinessResponse{
			Status: status,
			Checks: results,
		})
	}
}
