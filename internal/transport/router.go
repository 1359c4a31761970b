package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/rulesascode/journey/internal/config"
	"github.com/rulesascode/journey/internal/journey"
	"github.com/rulesascode/journey/internal/observability"
)

// Dependencies holds all injected dependencies for the HTTP transport layer.
type Dependencies struct {
	Config  *config.Config
	Service *journey.Service
	Metrics *observability.Metrics
	Logger  *zap.Logger
	Ready   observability.ReadinessChecks
}

// NewRouter creates a chi.Router with the full middleware pipeline and all
// route registrations. Health, readiness, and metrics endpoints bypass the
// authentication middleware.
func NewRouter(deps Dependencies) chi.Router {
	r := chi.NewRouter()

	// Global middleware: applied to all routes including health.
	r.Use(Recovery(deps.Logger))
	r.Use(CORS(deps.Config.Server.CORS))
	r.Use(RequestID)
	r.Use(SecurityHeaders)

	// Public routes — bypass authentication.
	r.Get("/health", observability.HandleHealth())
	r.Get("/ready", observability.HandleReady(deps.Ready))
	if deps.Config.Observability.Metrics.Enabled {
		path := deps.Config.Observability.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		r.Method(http.MethodGet, path, observability.Handler())
	}

	handlers := NewHandlers(deps.Service)

	// Journey API — full middleware chain.
	r.Group(func(r chi.Router) {
		r.Use(observability.TracingMiddleware)
		r.Use(deps.Metrics.MetricsMiddleware)
		r.Use(Authenticate(deps.Config.Auth))
		r.Use(BuildRequestContext)
		r.Use(HandlerTimeout(deps.Config.Server.HandlerTimeout))
		r.Use(RequestLogging(deps.Logger))

		r.Get("/journeys/{journeyID}", handlers.HandleDescribe)
		r.Post("/journeys/{journeyID}/submit", handlers.HandleSubmit)
		r.Post("/journeys/{journeyID}/immediate", handlers.HandleImmediate)
	})

	return r
}
