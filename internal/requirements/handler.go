package requirements

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sitecomply/sitecomply/internal/platform/httpx"
)

// Handler wires the requirement catalog endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers routes under /companies/{companyID}.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/requirements", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Get("/{id}", h.get)
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.deactivate)
	})
}

type requirementRequest struct {
	Name     string            `json:"name"`
	Metadata map[string]string `json:"metadata"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	companyID := chi.URLParam(r, "companyID")
	var (
		reqs []Requirement
		err  error
	)
	if r.URL.Query().Get("active") == "true" {
		reqs, err = h.service.ListActive(r.Context(), companyID)
	} else {
		reqs, err = h.service.List(r.Context(), companyID)
	}
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"requirements": reqs})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	req, err := h.service.Get(r.Context(), chi.URLParam(r, "companyID"), chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, req)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var body requirementRequest
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.RespondError(w, httpx.ErrBadRequest)
		return
	}
	req, err := h.service.Create(r.Context(), CreateInput{
		CompanyID: chi.URLParam(r, "companyID"),
		Name:      body.Name,
		Metadata:  body.Metadata,
	})
	if err != nil {
		h.logger.Warn("create requirement", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, req)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var body requirementRequest
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.RespondError(w, httpx.ErrBadRequest)
		return
	}
	req, err := h.service.Update(r.Context(), UpdateInput{
		CompanyID: chi.URLParam(r, "companyID"),
		ID:        chi.URLParam(r, "id"),
		Name:      body.Name,
		Metadata:  body.Metadata,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, req)
}

func (h *Handler) deactivate(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Deactivate(r.Context(), chi.URLParam(r, "companyID"), chi.URLParam(r, "id")); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
