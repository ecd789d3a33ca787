package companies

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sitecomply/sitecomply/internal/platform/httpx"
)

// Handler wires the company listing and module-flag endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers the collection routes on the /companies router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
}

// MountCompanyRoutes registers the per-company routes, mounted under
// /companies/{companyID} next to the module handlers.
func (h *Handler) MountCompanyRoutes(r chi.Router) {
	r.Get("/", h.get)
	r.Put("/compliance-enabled", h.setComplianceEnabled)
}

type flagRequest struct {
	Enabled bool `json:"enabled"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"companies": list})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	company, err := h.service.Get(r.Context(), chi.URLParam(r, "companyID"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, company)
}

func (h *Handler) setComplianceEnabled(w http.ResponseWriter, r *http.Request) {
	var body flagRequest
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.RespondError(w, httpx.ErrBadRequest)
		return
	}
	companyID := chi.URLParam(r, "companyID")
	if err := h.service.SetComplianceEnabled(r.Context(), companyID, body.Enabled); err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("compliance module flag changed",
		slog.String("company_id", companyID),
		slog.Bool("enabled", body.Enabled))
	w.WriteHeader(http.StatusNoContent)
}
