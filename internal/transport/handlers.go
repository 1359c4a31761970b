package transport

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rulesascode/journey/internal/journey"
	"github.com/rulesascode/journey/model"
)

// maxBodyBytes caps how much of a submission body is read.
const maxBodyBytes = 1 << 20

// submitRequest is the body of POST /journeys/{journeyID}/submit.
type submitRequest struct {
	Data map[string]any `json:"data"`
}

// immediateRequest is the body of POST /journeys/{journeyID}/immediate.
type immediateRequest struct {
	Data    map[string]any `json:"data"`
	Trigger struct {
		Name string `json:"name"`
		ID   string `json:"id"`
	} `json:"trigger"`
}

// submitResponse is the result of a processed submission.
type submitResponse struct {
	ConfirmationURL string         `json:"confirmation_url"`
	Query           string         `json:"query"`
	TotalBenefits   int            `json:"total_benefits"`
	ImmediateExit   bool           `json:"immediate_exit"`
	Debug           map[string]any `json:"debug,omitempty"`
}

// Handlers holds the journey service and implements the HTTP endpoints.
type Handlers struct {
	service *journey.Service
}

// NewHandlers creates the handler set for the journey API.
func NewHandlers(service *journey.Service) *Handlers {
	return &Handlers{service: service}
}

// HandleDescribe serves GET /journeys/{journeyID}.
func (h *Handlers) HandleDescribe(w http.ResponseWriter, r *http.Request) {
	meta, err := h.service.Describe(chi.URLParam(r, "journeyID"))
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, meta)
}

// HandleSubmit serves POST /journeys/{journeyID}/submit. A calculation
// service failure still responds 200 with the journey's default
// confirmation URL; the submitting user never sees a hard error.
func (h *Handlers) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	var body submitRequest
	if !decodeBody(w, r, &body) {
		return
	}
	if body.Data == nil {
		WriteBadRequest(w, "data is required")
		return
	}

	outcome, err := h.service.Submit(r.Context(), journey.SubmitRequest{
		JourneyID:      chi.URLParam(r, "journeyID"),
		Data:           body.Data,
		PeriodOverride: r.URL.Query().Get("period"),
	})
	if err != nil {
		WriteError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, submitResponse{
		ConfirmationURL: outcome.ConfirmationURL,
		Query:           outcome.Query,
		TotalBenefits:   outcome.TotalBenefits,
		ImmediateExit:   outcome.ImmediateExit,
		Debug:           debugForCaller(r, outcome.Debug),
	})
}

// HandleImmediate serves POST /journeys/{journeyID}/immediate.
func (h *Handlers) HandleImmediate(w http.ResponseWriter, r *http.Request) {
	var body immediateRequest
	if !decodeBody(w, r, &body) {
		return
	}
	if body.Data == nil {
		WriteBadRequest(w, "data is required")
		return
	}

	outcome, err := h.service.Immediate(r.Context(), journey.ImmediateRequest{
		JourneyID:       chi.URLParam(r, "journeyID"),
		Data:            body.Data,
		TriggerName:     body.Trigger.Name,
		TriggerSelector: body.Trigger.ID,
		PeriodOverride:  r.URL.Query().Get("period"),
	})
	if err != nil {
		WriteError(w, err)
		return
	}

	outcome.Debug = debugForCaller(r, outcome.Debug)
	WriteJSON(w, http.StatusOK, outcome)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		WriteBadRequest(w, "unreadable request body")
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		WriteBadRequest(w, "malformed JSON body")
		return false
	}
	return true
}

// debugForCaller gates the diagnostic channel: only callers carrying the
// debug role see it. Everyone else gets the plain outcome regardless of
// what the journey definition logs internally.
func debugForCaller(r *http.Request, debug map[string]any) map[string]any {
	if debug == nil {
		return nil
	}
	rctx := model.RequestContextFrom(r.Context())
	if rctx == nil || !rctx.HasRole(model.DebugRole) {
		return nil
	}
	return debug
}
