// Package httptransport wires the HTTP surface: middleware stack, routes,
// health, and metrics. Handlers stay thin and delegate to domain services.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"verifid/internal/platform/health"
	"verifid/internal/platform/middleware"
	verificationhandler "verifid/internal/verification/handler"
)

// Deps bundles everything the router needs.
type Deps struct {
	Verification *verificationhandler.Handler
	Health       *health.Handler
	Validator    middleware.TokenValidator
	Logger       *slog.Logger
}

// NewRouter wires all public endpoints with middleware.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(d.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(d.Logger))
	r.Use(middleware.Timeout(60 * time.Second))

	// Operational endpoints: no auth, no JSON content-type requirement.
	if d.Health != nil {
		d.Health.Register(r)
	}
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/verification", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(d.Validator, d.Logger))
			r.Use(middleware.ContentTypeJSON)
			d.Verification.Register(r)
		})
		d.Verification.RegisterDiagnostics(r)
	})

	return r
}
