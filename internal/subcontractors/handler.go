package subcontractors

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sitecomply/sitecomply/internal/platform/httpx"
)

// Handler wires the subcontractor admin endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers routes under /companies/{companyID}.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/subcontractors", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Get("/{id}", h.get)
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.deactivate)
	})
}

type createRequest struct {
	Name     string   `json:"name"`
	TaxID    string   `json:"tax_id"`
	UserUIDs []string `json:"user_uids"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	includeInactive := r.URL.Query().Get("include_inactive") == "true"
	subs, err := h.service.List(r.Context(), chi.URLParam(r, "companyID"), includeInactive)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"subcontractors": subs})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	sub, err := h.service.Get(r.Context(), chi.URLParam(r, "companyID"), chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sub)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrBadRequest)
		return
	}
	sub, err := h.service.Create(r.Context(), CreateInput{
		CompanyID: chi.URLParam(r, "companyID"),
		Name:      req.Name,
		TaxID:     req.TaxID,
		UserUIDs:  req.UserUIDs,
	})
	if err != nil {
		h.logger.Warn("create subcontractor", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, sub)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	companyID := chi.URLParam(r, "companyID")
	existing, err := h.service.Get(r.Context(), companyID, chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrBadRequest)
		return
	}
	existing.Name = req.Name
	existing.TaxID = req.TaxID
	existing.UserUIDs = req.UserUIDs
	if err := h.service.Update(r.Context(), existing); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, existing)
}

func (h *Handler) deactivate(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Deactivate(r.Context(), chi.URLParam(r, "companyID"), chi.URLParam(r, "id")); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
