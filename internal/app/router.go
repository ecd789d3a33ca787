package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sitecomply/sitecomply/internal/companies"
	"github.com/sitecomply/sitecomply/internal/platform/httpx"
)

// Mounter is implemented by the module HTTP handlers.
type Mounter interface {
	MountRoutes(r chi.Router)
}

// RouterConfig collects the handlers the API surface is assembled from.
type RouterConfig struct {
	Logger         *slog.Logger
	Config         *Config
	Companies      *companies.Handler
	Subcontractors Mounter
	Requirements   Mounter
	Calendar       Mounter
	Compliance     Mounter
}

// NewRouter assembles the HTTP surface: the middleware stack, the ops
// endpoints, and the versioned API behind the identity middleware.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	for _, mw := range MiddlewareStack(MiddlewareConfig{Logger: cfg.Logger, Config: cfg.Config}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(IdentityMiddleware(cfg.Logger))
		r.Route("/companies", func(r chi.Router) {
			cfg.Companies.MountRoutes(r)
			r.Route("/{companyID}", func(r chi.Router) {
				cfg.Companies.MountCompanyRoutes(r)
				cfg.Subcontractors.MountRoutes(r)
				cfg.Requirements.MountRoutes(r)
				cfg.Calendar.MountRoutes(r)
				cfg.Compliance.MountRoutes(r)
			})
		})
	})
	return r
}
