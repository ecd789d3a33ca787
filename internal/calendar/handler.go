package calendar

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sitecomply/sitecomply/internal/platform/httpx"
)

// Handler wires the calendar template admin endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers routes under /companies/{companyID}.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/calendar", func(r chi.Router) {
		r.Get("/{year}", h.listYear)
		r.Put("/months/{periodKey}", h.upsert)
		r.Get("/months/{periodKey}", h.get)
	})
}

type upsertRequest struct {
	CutoffUpload   time.Time `json:"cutoff_upload"`
	ReviewDeadline time.Time `json:"review_deadline"`
	PaymentDate    time.Time `json:"payment_date"`
}

func (h *Handler) listYear(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		httpx.RespondError(w, httpx.ErrBadRequest)
		return
	}
	months, err := h.service.ListYear(r.Context(), chi.URLParam(r, "companyID"), year)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"months": months})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	month, err := h.service.Get(r.Context(), chi.URLParam(r, "companyID"), chi.URLParam(r, "periodKey"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, month)
}

func (h *Handler) upsert(w http.ResponseWriter, r *http.Request) {
	var body upsertRequest
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.RespondError(w, httpx.ErrBadRequest)
		return
	}
	month, err := h.service.Upsert(r.Context(), UpsertInput{
		CompanyID:      chi.URLParam(r, "companyID"),
		PeriodKey:      chi.URLParam(r, "periodKey"),
		CutoffUpload:   body.CutoffUpload,
		ReviewDeadline: body.ReviewDeadline,
		PaymentDate:    body.PaymentDate,
	})
	if err != nil {
		h.logger.Warn("upsert calendar month",
			slog.String("period_key", chi.URLParam(r, "periodKey")),
			slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, month)
}
