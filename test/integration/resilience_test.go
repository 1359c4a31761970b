package integration

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rulesascode/journey/internal/config"
	"github.com/rulesascode/journey/internal/openfisca"
)

// A calculation outage must never surface as an error to the form user:
// every submission still gets a 200 pointing at the default confirmation.
func TestResilience_backendOutageFallsBack(t *testing.T) {
	h := NewTestHarness(t)
	h.Fisca.FailWith(http.StatusInternalServerError)

	submit := map[string]any{"data": map[string]any{"citizen": "true"}}

	for i := 0; i < 3; i++ {
		resp := h.PostJSON("/journeys/benefits/submit", submit, "")
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var result submitResult
		h.DecodeJSON(resp, &result)
		require.Equal(t, "/confirmation?utm=journey", result.ConfirmationURL)
		require.Empty(t, result.Query)
	}
	require.Equal(t, 3, h.Fisca.RequestCount())
	require.Equal(t, openfisca.BreakerOpen, h.Client.BreakerState())

	// With the breaker open the backend is no longer called, but the user
	// still lands on the confirmation page.
	resp := h.PostJSON("/journeys/benefits/submit", submit, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result submitResult
	h.DecodeJSON(resp, &result)
	require.Equal(t, "/confirmation?utm=journey", result.ConfirmationURL)
	require.Equal(t, 3, h.Fisca.RequestCount())
}

func TestResilience_breakerRecoversAfterCooldown(t *testing.T) {
	h := NewTestHarness(t, WithBreaker(config.CircuitBreakerConfig{
		FailureThreshold: 2,
		SuccessThreshold: 1,
		Cooldown:         30 * time.Millisecond,
	}))
	h.Fisca.FailWith(http.StatusInternalServerError)

	submit := map[string]any{"data": map[string]any{"citizen": "true"}}
	for i := 0; i < 2; i++ {
		h.PostJSON("/journeys/benefits/submit", submit, "")
	}
	require.Equal(t, openfisca.BreakerOpen, h.Client.BreakerState())

	h.Fisca.RespondWith(responseBenefitDenied)
	time.Sleep(50 * time.Millisecond)

	resp := h.PostJSON("/journeys/benefits/submit", submit, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result submitResult
	h.DecodeJSON(resp, &result)
	require.Equal(t, 0, result.TotalBenefits)
	require.Equal(t, openfisca.BreakerClosed, h.Client.BreakerState())
}

// An open breaker degrades readiness but does not fail it; only missing
// definitions take the instance out of rotation.
func TestResilience_readinessDuringOutage(t *testing.T) {
	h := NewTestHarness(t)
	h.Fisca.FailWith(http.StatusInternalServerError)

	submit := map[string]any{"data": map[string]any{"citizen": "true"}}
	for i := 0; i < 3; i++ {
		h.PostJSON("/journeys/benefits/submit", submit, "")
	}
	require.Equal(t, openfisca.BreakerOpen, h.Client.BreakerState())

	resp := h.Get("/ready", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
