// Package journey orchestrates the submission pipeline: build the request
// payload, call the calculation service, interpret the response, and
// resolve the redirect destination.
package journey

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/rulesascode/journey/internal/definition"
	"github.com/rulesascode/journey/internal/fisca"
	"github.com/rulesascode/journey/internal/observability"
	"github.com/rulesascode/journey/internal/openfisca"
	"github.com/rulesascode/journey/internal/redirect"
	"github.com/rulesascode/journey/model"
)

// Submission outcome labels for metrics.
const (
	OutcomeRedirect      = "redirect"
	OutcomeImmediateExit = "immediate_exit"
	OutcomeDefault       = "default"
	OutcomeFiscaFailed   = "openfisca_failed"
)

// Service runs the journey pipeline. All state is request-scoped; the
// service itself only holds collaborators and is safe for concurrent use.
type Service struct {
	registry *definition.Registry
	client   *openfisca.Client
	metrics  *observability.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates a journey Service.
func NewService(registry *definition.Registry, client *openfisca.Client, metrics *observability.Metrics, logger *zap.Logger) *Service {
	return &Service{
		registry: registry,
		client:   client,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}
}

// SubmitRequest is one completed form submission.
type SubmitRequest struct {
	JourneyID string
	Data      map[string]any

	// PeriodOverride is the ?period= query parameter, if supplied.
	PeriodOverride string
}

// Outcome is the result of processing a submission.
type Outcome struct {
	// ConfirmationURL is the destination without its query string.
	ConfirmationURL string
	// Query is the composed confirmation query in decoded form.
	Query string

	TotalBenefits   int
	ImmediateExit   bool
	RedirectMatched bool

	// Debug carries the diagnostic channel: endpoint, request and response
	// JSON, extracted values and the chosen destination. Populated only
	// when the journey definition enables debug; the transport layer
	// decides who may see it.
	Debug map[string]any

	fiscaFailed bool
}

// Destination returns the full confirmation URL with the query appended.
func (o Outcome) Destination() string {
	return redirect.Destination{URL: o.ConfirmationURL, Query: o.Query}.String()
}

// Submit runs the full pipeline for a submission. Calculation service
// failures do not error: the journey falls back to its default
// confirmation URL, because a form user must never see a hard failure.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (Outcome, error) {
	def, ok := s.registry.Journey(req.JourneyID)
	if !ok {
		return Outcome{}, model.NewNotFoundError("unknown journey " + req.JourneyID)
	}

	start := s.now()
	outcome := s.run(ctx, def, req)
	s.metrics.RecordSubmission(def.ID, outcomeLabel(outcome), s.now().Sub(start))
	if outcome.ImmediateExit {
		s.metrics.RecordImmediateExit(def.ID)
	}
	if outcome.RedirectMatched {
		s.metrics.RecordRedirectMatch(def.ID)
	}
	return outcome, nil
}

func (s *Service) run(ctx context.Context, def model.JourneyDefinition, req SubmitRequest) Outcome {
	ctx, span := observability.StartSpan(ctx, "journey.submit",
		observability.AttrJourneyID.String(def.ID))
	defer span.End()

	logger := observability.RequestLogger(ctx, s.logger).With(zap.String("journey_id", def.ID))

	payload, queryAppend := fisca.Build(fisca.BuildInput{
		Submission:     req.Data,
		Definition:     def,
		PeriodOverride: req.PeriodOverride,
		Now:            s.now(),
	})

	client := s.client.ForEndpoint(def.APIEndpoint, def.AuthorizationHeader)
	span.SetAttributes(observability.AttrFiscaEndpoint.String(client.BaseURI()))

	response, err := client.Calculate(ctx, payload)
	s.metrics.SetCircuitBreakerState(float64(client.BreakerState()))
	if err != nil {
		s.metrics.RecordFiscaFailure("/calculate")
		logger.Warn("calculation failed, using default confirmation", zap.Error(err))
		return Outcome{ConfirmationURL: def.ConfirmationURL, fiscaFailed: true}
	}
	s.metrics.RecordFiscaRequest("/calculate", 200)

	interp := fisca.Interpret(response, payload, def)

	candidates := make(map[string]any)
	collect(candidates, interp.ResultValues)
	collect(candidates, interp.FiscaFields)
	collect(candidates, interp.QueryAppend)

	target := def.ConfirmationURL
	matched := false
	if url, ok := redirect.Resolve(candidates, def.RedirectRules); ok {
		target = url
		matched = true
	}

	dest := redirect.ComposeDestination(target, interp.FiscaFields, interp.QueryAppend)

	outcome := Outcome{
		ConfirmationURL: dest.URL,
		Query:           dest.Query,
		TotalBenefits:   interp.TotalBenefits,
		ImmediateExit:   interp.ImmediateExit,
		RedirectMatched: matched,
	}
	span.SetAttributes(
		observability.AttrTotalBenefits.Int(outcome.TotalBenefits),
		observability.AttrImmediateExit.Bool(outcome.ImmediateExit),
		observability.AttrRedirect.Bool(matched),
	)

	if def.Debug || def.Logging {
		outcome.Debug = debugChannel(client.BaseURI(), payload, response, interp, queryAppend, dest, matched)
		if def.Logging {
			logger.Debug("journey debug channel", zap.Any("debug", outcome.Debug))
		}
	}
	return outcome
}

// debugChannel assembles the diagnostic view of one pipeline run. It lives
// on the response document's side-table as well, so payload-level tests can
// reach it, but is never part of the wire payload.
func debugChannel(endpoint string, payload, response *fisca.Document, interp fisca.Interpretation, queryAppend *fisca.OrderedMap, dest redirect.Destination, matched bool) map[string]any {
	requestJSON, _ := payload.ToJSON(false)
	responseJSON, _ := response.ToJSON(false)

	debug := map[string]any{
		"endpoint":         endpoint,
		"request":          requestJSON,
		"response":         responseJSON,
		"result_values":    interp.ResultValues,
		"fisca_fields":     interp.FiscaFields,
		"query_append":     queryAppend,
		"total_benefits":   interp.TotalBenefits,
		"immediate_exit":   interp.ImmediateExit,
		"query":            dest.Query,
		"confirmation_url": dest.URL,
		"redirect_matched": matched,
	}
	for k, v := range debug {
		response.SetDebugData(k, v)
	}
	return debug
}

func collect(dst map[string]any, src *fisca.OrderedMap) {
	for _, key := range src.Keys() {
		v, _ := src.Get(key)
		dst[key] = v
	}
}

func outcomeLabel(o Outcome) string {
	switch {
	case o.fiscaFailed:
		return OutcomeFiscaFailed
	case o.ImmediateExit:
		return OutcomeImmediateExit
	case o.RedirectMatched:
		return OutcomeRedirect
	default:
		return OutcomeDefault
	}
}
