package journey

import (
	"context"
	"regexp"

	"github.com/rulesascode/journey/model"
)

// Immediate probe actions.
const (
	ActionRedirect = "redirect"
	ActionContinue = "continue"
)

// ImmediateRequest is a mid-journey probe fired by a form control that has
// immediate response enabled.
type ImmediateRequest struct {
	JourneyID string
	Data      map[string]any

	// TriggerName and TriggerSelector identify the form control that fired
	// the probe, so a continue action can hand control back to it.
	TriggerName     string
	TriggerSelector string

	PeriodOverride string
}

// ImmediateOutcome tells the client either to redirect now or to let the
// triggering control's deferred behavior resume.
type ImmediateOutcome struct {
	Action string `json:"action"`

	// Redirect action.
	ConfirmationURL string `json:"confirmation_url,omitempty"`
	Query           string `json:"query,omitempty"`

	// Continue action.
	Name             string `json:"name,omitempty"`
	OriginalSelector string `json:"original_selector,omitempty"`

	Debug map[string]any `json:"debug,omitempty"`
}

// Immediate runs the pipeline against a partial submission. Any nonzero
// benefit total, including the immediate-exit sentinel, means the journey
// is already decided and the client should redirect; otherwise the form
// continues and the triggering control is echoed back.
func (s *Service) Immediate(ctx context.Context, req ImmediateRequest) (ImmediateOutcome, error) {
	def, ok := s.registry.Journey(req.JourneyID)
	if !ok {
		return ImmediateOutcome{}, model.NewNotFoundError("unknown journey " + req.JourneyID)
	}

	outcome := s.run(ctx, def, SubmitRequest{
		JourneyID:      req.JourneyID,
		Data:           req.Data,
		PeriodOverride: req.PeriodOverride,
	})

	if outcome.TotalBenefits != 0 {
		if outcome.ImmediateExit {
			s.metrics.RecordImmediateExit(def.ID)
		}
		return ImmediateOutcome{
			Action:          ActionRedirect,
			ConfirmationURL: outcome.ConfirmationURL,
			Query:           outcome.Query,
			Debug:           outcome.Debug,
		}, nil
	}

	return ImmediateOutcome{
		Action:           ActionContinue,
		Name:             req.TriggerName,
		OriginalSelector: StripSelectorHash(req.TriggerSelector),
		Debug:            outcome.Debug,
	}, nil
}

// selectorHash matches the rebuild hash a form framework appends to control
// selectors: a trailing "--" followed by exactly eleven alphanumerics.
var selectorHash = regexp.MustCompile(`--[a-zA-Z0-9]{11}$`)

// StripSelectorHash removes the trailing rebuild hash from a control
// selector ("elem--kKbQQzB2BAc" becomes "elem"), restoring the selector the
// page was originally rendered with. Double dashes inside the name itself
// are left alone.
func StripSelectorHash(selector string) string {
	return selectorHash.ReplaceAllString(selector, "")
}

// Metadata describes a journey to its client: which fields fire immediate
// probes and whether the client should show an AJAX indicator.
type Metadata struct {
	ID                      string   `json:"id"`
	Version                 string   `json:"version"`
	ImmediateResponseFields []string `json:"immediate_response_fields"`
	AjaxIndicator           bool     `json:"ajax_indicator"`
}

// Describe returns the client-facing metadata of a journey.
func (s *Service) Describe(journeyID string) (Metadata, error) {
	def, ok := s.registry.Journey(journeyID)
	if !ok {
		return Metadata{}, model.NewNotFoundError("unknown journey " + journeyID)
	}

	fields := make([]string, 0, len(def.ImmediateResponse))
	for _, m := range def.FieldMappings {
		if def.FieldHasImmediateResponse(m.Field) {
			fields = append(fields, m.Field)
		}
	}
	return Metadata{
		ID:                      def.ID,
		Version:                 def.Version,
		ImmediateResponseFields: fields,
		AjaxIndicator:           def.ImmediateAjaxIndicator,
	}, nil
}
