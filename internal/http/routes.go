package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bhoomi-id/bhoomi/internal/app"
	"github.com/bhoomi-id/bhoomi/internal/http/handlers"
)

// NewRouter arma el árbol de rutas completo con la cadena de middlewares.
func NewRouter(c *app.Container) http.Handler {
	r := chi.NewRouter()

	// Health + métricas (fuera del rate limit)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", handlers.NewReadyzHandler(c))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		// Auth del subject
		r.Post("/auth/register", handlers.NewRegisterHandler(c))
		r.Post("/auth/verify-otp", handlers.NewVerifyOTPHandler(c))
		r.Post("/auth/login", handlers.NewLoginHandler(c))

		r.Get("/me", handlers.NewMeHandler(c))
		r.Patch("/me", handlers.NewUpdateProfileHandler(c))
		r.Get("/me/access-logs", handlers.NewAccessLogHandler(c))

		// Documentos (metadata)
		r.Post("/documents", handlers.NewUploadDocumentHandler(c))
		r.Get("/documents", handlers.NewListDocumentsHandler(c))

		// Registry de services
		r.Post("/services", handlers.NewRegisterServiceHandler(c))
		r.Get("/services", handlers.NewListServicesHandler(c))

		// Consent
		r.Get("/authorize", handlers.NewAuthorizeHandler(c))
		r.Post("/consents", handlers.NewGrantConsentHandler(c))
		r.Get("/consents", handlers.NewListConsentsHandler(c))
		r.Delete("/consents/{client_id}", handlers.NewRevokeConsentHandler(c))

		// Proyección scoped
		r.Get("/data", handlers.NewProjectDataHandler(c))

		// Workflows
		r.Post("/loans", handlers.NewApplyLoanHandler(c))
		r.Get("/loans", handlers.NewMyRequestsHandler(c, "LOAN"))
		r.Get("/loans/requirements", handlers.NewLoanRequirementsHandler(c))
		r.Post("/advisory", handlers.NewApplyAdvisoryHandler(c))
		r.Get("/advisory", handlers.NewMyRequestsHandler(c, "ADVISORY"))
		r.Post("/requests/{id}/withdraw-document", handlers.NewWithdrawDocumentHandler(c))

		// Lado service (Basic auth)
		r.Get("/service/requests", handlers.NewServiceRequestsHandler(c))
		r.Post("/service/requests/{id}/decision", handlers.NewDecideRequestHandler(c))
		r.Get("/service/requests/{id}/documents", handlers.NewRequestDocumentsHandler(c))
	})

	// Cadena de middlewares, de afuera hacia adentro
	var h http.Handler = r
	h = WithRateLimit(h, c.Limiter)
	h = WithObservability(h)
	h = WithSecurityHeaders(h)
	h = WithCORS(h, c.Cfg.Server.CORSAllowedOrigins)
	h = WithRecover(h)
	h = WithRequestID(h)
	return h
}
