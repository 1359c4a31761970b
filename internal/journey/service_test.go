package journey

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rulesascode/journey/internal/definition"
	"github.com/rulesascode/journey/internal/observability"
	"github.com/rulesascode/journey/internal/openfisca"
	"github.com/rulesascode/journey/model"
)

func testDefinition() model.JourneyDefinition {
	return model.JourneyDefinition{
		ID:              "benefits",
		Version:         "1.0.0",
		ConfirmationURL: "/confirmation",
		FieldMappings: []model.FieldMapping{
			{Field: "citizen", Key: "persons.personA.citizen"},
			{Field: "allowance_benefit", Key: "persons.personA.allowance"},
		},
		Variables: map[string]model.VariableDefinition{
			"citizen":   {DefinitionPeriod: "DAY"},
			"allowance": {DefinitionPeriod: "MONTH"},
		},
		ResultKeys: []string{"persons.personA.allowance"},
		RedirectRules: []model.RedirectRule{
			{Redirect: "/eligible", Rules: []model.RuleCondition{
				{Variable: "persons.personA.allowance", Value: "1"},
			}},
		},
	}
}

func newTestService(t *testing.T, def model.JourneyDefinition, handler http.HandlerFunc) *Service {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := openfisca.NewClient(openfisca.Options{BaseURI: srv.URL}, zap.NewNop())
	metrics := observability.InitMetrics(prometheus.NewRegistry())
	registry := definition.NewRegistry([]model.JourneyDefinition{def})

	s := NewService(registry, client, metrics, zap.NewNop())
	s.now = func() time.Time { return time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC) }
	return s
}

func respondWith(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}
}

func TestSubmit_redirectRuleMatch(t *testing.T) {
	s := newTestService(t, testDefinition(), respondWith(`{
		"persons": {
			"personA": {
				"citizen": {"2025-01-15": true},
				"allowance": {"2025-01": 1}
			}
		}
	}`))

	outcome, err := s.Submit(context.Background(), SubmitRequest{
		JourneyID: "benefits",
		Data:      map[string]any{"citizen": "true"},
	})
	require.NoError(t, err)

	require.Equal(t, "/eligible", outcome.ConfirmationURL)
	require.True(t, outcome.RedirectMatched)
	require.Equal(t, 1, outcome.TotalBenefits)
	require.False(t, outcome.ImmediateExit)
	require.Equal(t, "citizen=1&allowance_benefit=1&total_benefit=1", outcome.Query)
	require.Equal(t, "/eligible?citizen=1&allowance_benefit=1&total_benefit=1", outcome.Destination())
	require.Nil(t, outcome.Debug)
}

func TestSubmit_defaultConfirmation(t *testing.T) {
	s := newTestService(t, testDefinition(), respondWith(`{
		"persons": {"personA": {"allowance": {"2025-01": 0}}}
	}`))

	outcome, err := s.Submit(context.Background(), SubmitRequest{
		JourneyID: "benefits",
		Data:      map[string]any{"citizen": "true"},
	})
	require.NoError(t, err)

	require.Equal(t, "/confirmation", outcome.ConfirmationURL)
	require.False(t, outcome.RedirectMatched)
	require.Equal(t, 0, outcome.TotalBenefits)
}

func TestSubmit_calculationFailure(t *testing.T) {
	s := newTestService(t, testDefinition(), func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	outcome, err := s.Submit(context.Background(), SubmitRequest{
		JourneyID: "benefits",
		Data:      map[string]any{"citizen": "true"},
	})
	require.NoError(t, err)

	require.Equal(t, "/confirmation", outcome.ConfirmationURL)
	require.Empty(t, outcome.Query)
	require.Zero(t, outcome.TotalBenefits)
	require.False(t, outcome.RedirectMatched)
}

func TestSubmit_unknownJourney(t *testing.T) {
	s := newTestService(t, testDefinition(), respondWith(`{}`))

	_, err := s.Submit(context.Background(), SubmitRequest{JourneyID: "absent"})
	require.Error(t, err)

	var envelope *model.ErrorEnvelope
	require.ErrorAs(t, err, &envelope)
	require.Equal(t, model.ErrNotFound, envelope.Code)
}

func TestSubmit_immediateExit(t *testing.T) {
	def := testDefinition()
	def.Variables["exit_flag"] = model.VariableDefinition{DefinitionPeriod: "DAY"}
	def.ImmediateExitKeys = []string{"persons.personA.exit_flag"}

	s := newTestService(t, def, respondWith(`{
		"persons": {
			"personA": {
				"allowance": {"2025-01": 5},
				"exit_flag": {"2025-01-15": true}
			}
		}
	}`))

	outcome, err := s.Submit(context.Background(), SubmitRequest{
		JourneyID: "benefits",
		Data:      map[string]any{"citizen": "true"},
	})
	require.NoError(t, err)

	require.True(t, outcome.ImmediateExit)
	require.Equal(t, -1, outcome.TotalBenefits)
}

func TestSubmit_debugChannel(t *testing.T) {
	def := testDefinition()
	def.Debug = true

	s := newTestService(t, def, respondWith(`{
		"persons": {"personA": {"allowance": {"2025-01": 1}}}
	}`))

	outcome, err := s.Submit(context.Background(), SubmitRequest{
		JourneyID: "benefits",
		Data:      map[string]any{"citizen": "true"},
	})
	require.NoError(t, err)

	require.NotNil(t, outcome.Debug)
	for _, key := range []string{
		"endpoint", "request", "response", "result_values", "fisca_fields",
		"query_append", "total_benefits", "immediate_exit", "query",
		"confirmation_url", "redirect_matched",
	} {
		require.Contains(t, outcome.Debug, key)
	}
	require.Contains(t, outcome.Debug["request"], `"citizen"`)
}

func TestSubmit_sendsBuiltPayload(t *testing.T) {
	var gotBody string
	s := newTestService(t, testDefinition(), func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		gotBody = string(raw)
		w.Write([]byte(`{}`))
	})

	_, err := s.Submit(context.Background(), SubmitRequest{
		JourneyID: "benefits",
		Data:      map[string]any{"citizen": "true"},
	})
	require.NoError(t, err)

	require.JSONEq(t, `{
		"persons": {
			"personA": {
				"citizen": {"2025-01-15": true},
				"allowance": {"2025-01": null}
			}
		}
	}`, gotBody)
}
