package integration

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rulesascode/journey/model"
)

func TestSecurity_apiRequiresToken(t *testing.T) {
	h := NewTestHarness(t, WithAuth())

	resp := h.Get("/journeys/benefits", "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = h.Get("/journeys/benefits", "not-a-token")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = h.Get("/journeys/benefits", h.GenerateToken(TestClaims{SubjectID: "tester"}))
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSecurity_expiredTokenRejected(t *testing.T) {
	h := NewTestHarness(t, WithAuth())

	token := h.GenerateExpiredToken(TestClaims{SubjectID: "tester"})
	resp := h.Get("/journeys/benefits", token)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSecurity_operationalEndpointsStayOpen(t *testing.T) {
	h := NewTestHarness(t, WithAuth())

	for _, path := range []string{"/health", "/ready", "/metrics"} {
		resp := h.Get(path, "")
		require.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}

func TestSecurity_debugChannelRequiresRole(t *testing.T) {
	h := NewTestHarness(t, WithAuth())
	h.Fisca.RespondWith(responseBenefitGranted)

	submit := map[string]any{"data": map[string]any{"citizen": "true"}}

	resp := h.PostJSON("/journeys/benefits/submit", submit,
		h.GenerateToken(TestClaims{SubjectID: "tester"}))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result submitResult
	h.DecodeJSON(resp, &result)
	require.Nil(t, result.Debug)

	resp = h.PostJSON("/journeys/benefits/submit", submit,
		h.GenerateToken(TestClaims{SubjectID: "tester", Roles: []string{model.DebugRole}}))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	h.DecodeJSON(resp, &result)
	require.NotNil(t, result.Debug)
	require.Contains(t, result.Debug, "endpoint")
	require.Contains(t, result.Debug, "request")
}

func TestSecurity_responseHeaders(t *testing.T) {
	h := NewTestHarness(t)

	resp := h.Get("/health", "")
	require.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	require.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
	require.NotEmpty(t, resp.Header.Get("X-Correlation-Id"))
}
