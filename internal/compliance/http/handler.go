package compliancehttp

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sitecomply/sitecomply/internal/compliance"
	"github.com/sitecomply/sitecomply/internal/platform/httpx"
	"github.com/sitecomply/sitecomply/internal/shared"
)

const (
	periodsPageLimit = 24
	maxUploadBytes   = 15 << 20
)

type complianceService interface {
	EnsureCurrentPeriod(ctx context.Context, companyID string) (compliance.Period, bool, error)
	EnsurePeriod(ctx context.Context, companyID, periodKey string) (compliance.Period, bool, error)
	GetPeriod(ctx context.Context, companyID, periodID string) (compliance.Period, error)
	ListPeriods(ctx context.Context, companyID string, limit int) ([]compliance.Period, error)
	Submit(ctx context.Context, in compliance.SubmitInput) (compliance.Submission, error)
	Flag(ctx context.Context, in compliance.FlagInput) (compliance.Submission, error)
	ListSubmissions(ctx context.Context, companyID, periodID, subcontractorID string) ([]compliance.Submission, error)
	EvaluateSuggested(ctx context.Context, companyID, periodID, subcontractorID string) (compliance.Evaluation, error)
	ConfirmCompliant(ctx context.Context, companyID, periodID, subcontractorID, adminUID string) (compliance.Status, error)
	MarkNonCompliant(ctx context.Context, companyID, periodID, subcontractorID string, actor shared.Actor) (compliance.Status, error)
	GetStatus(ctx context.Context, companyID, periodID, subcontractorID string) (compliance.Status, error)
	ListStatuses(ctx context.Context, companyID, periodID string) ([]compliance.Status, error)
}

// Handler wires the compliance period, submission and status endpoints.
type Handler struct {
	logger  *slog.Logger
	service complianceService
}

// NewHandler constructs a compliance HTTP handler.
func NewHandler(logger *slog.Logger, service complianceService) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers routes. The router mounts this under
// /companies/{companyID}, so every handler resolves the company from the URL.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/periods", func(r chi.Router) {
		r.Post("/", h.ensurePeriod)
		r.Get("/", h.listPeriods)
		r.Route("/{periodID}", func(r chi.Router) {
			r.Get("/", h.getPeriod)
			r.Get("/submissions", h.listSubmissions)
			r.Get("/statuses", h.listStatuses)
			r.Route("/subcontractors/{subcontractorID}", func(r chi.Router) {
				r.Post("/requirements/{requirementID}/submissions", h.submit)
				r.Post("/requirements/{requirementID}/flag", h.flag)
				r.Get("/evaluation", h.evaluate)
				r.Get("/status", h.getStatus)
				r.Post("/confirm", h.confirm)
				r.Post("/non-compliant", h.markNonCompliant)
			})
		})
	})
}

type ensurePeriodRequest struct {
	PeriodKey string `json:"period_key"`
}

type ensurePeriodResponse struct {
	Created bool               `json:"created"`
	Period  *compliance.Period `json:"period,omitempty"`
}

// statusView flattens the actor for API consumers.
type statusView struct {
	PeriodID        string    `json:"period_id"`
	SubcontractorID string    `json:"subcontractor_id"`
	State           string    `json:"state"`
	AssignedAt      time.Time `json:"assigned_at"`
	AssignedByKind  string    `json:"assigned_by_kind"`
	AssignedByUID   string    `json:"assigned_by_uid,omitempty"`
}

func newStatusView(st compliance.Status) statusView {
	kind, uid := st.AssignedBy.Record()
	return statusView{
		PeriodID:        st.PeriodID,
		SubcontractorID: st.SubcontractorID,
		State:           string(st.State),
		AssignedAt:      st.AssignedAt,
		AssignedByKind:  kind,
		AssignedByUID:   uid,
	}
}

func (h *Handler) ensurePeriod(w http.ResponseWriter, r *http.Request) {
	companyID := chi.URLParam(r, "companyID")

	var req ensurePeriodRequest
	if r.ContentLength > 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.RespondError(w, httpx.ErrBadRequest)
			return
		}
	}

	var (
		period  compliance.Period
		created bool
		err     error
	)
	if req.PeriodKey == "" {
		period, created, err = h.service.EnsureCurrentPeriod(r.Context(), companyID)
	} else {
		period, created, err = h.service.EnsurePeriod(r.Context(), companyID, req.PeriodKey)
	}
	if err != nil {
		h.logger.Warn("ensure period", slog.String("company_id", companyID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if !created {
		// The calendar month is not configured; nothing to create yet.
		httpx.JSON(w, http.StatusOK, ensurePeriodResponse{Created: false})
		return
	}
	httpx.JSON(w, http.StatusOK, ensurePeriodResponse{Created: true, Period: &period})
}

func (h *Handler) listPeriods(w http.ResponseWriter, r *http.Request) {
	companyID := chi.URLParam(r, "companyID")
	periods, err := h.service.ListPeriods(r.Context(), companyID, periodsPageLimit)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"periods": periods})
}

func (h *Handler) getPeriod(w http.ResponseWriter, r *http.Request) {
	period, err := h.service.GetPeriod(r.Context(), chi.URLParam(r, "companyID"), chi.URLParam(r, "periodID"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, period)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context())
	if identity == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing identity")
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "multipart form expected")
		return
	}
	file, header, err := r.FormFile("document")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "document file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		httpx.RespondError(w, &shared.TransientIOError{Op: "read upload", Err: err})
		return
	}

	sub, err := h.service.Submit(r.Context(), compliance.SubmitInput{
		CompanyID:       chi.URLParam(r, "companyID"),
		PeriodID:        chi.URLParam(r, "periodID"),
		SubcontractorID: chi.URLParam(r, "subcontractorID"),
		RequirementID:   chi.URLParam(r, "requirementID"),
		FileName:        header.Filename,
		Data:            data,
		ContentType:     header.Header.Get("Content-Type"),
		UID:             identity.UID,
	})
	if err != nil {
		h.logger.Warn("submit document", slog.String("uid", identity.UID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, sub)
}

type flagRequest struct {
	Note string `json:"note"`
}

func (h *Handler) flag(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context())
	if identity == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing identity")
		return
	}
	var req flagRequest
	if r.ContentLength > 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.RespondError(w, httpx.ErrBadRequest)
			return
		}
	}
	sub, err := h.service.Flag(r.Context(), compliance.FlagInput{
		CompanyID:       chi.URLParam(r, "companyID"),
		PeriodID:        chi.URLParam(r, "periodID"),
		SubcontractorID: chi.URLParam(r, "subcontractorID"),
		RequirementID:   chi.URLParam(r, "requirementID"),
		ReviewerUID:     identity.UID,
		Note:            req.Note,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sub)
}

func (h *Handler) listSubmissions(w http.ResponseWriter, r *http.Request) {
	subs, err := h.service.ListSubmissions(r.Context(),
		chi.URLParam(r, "companyID"),
		chi.URLParam(r, "periodID"),
		r.URL.Query().Get("subcontractor_id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"submissions": subs})
}

func (h *Handler) evaluate(w http.ResponseWriter, r *http.Request) {
	ev, err := h.service.EvaluateSuggested(r.Context(),
		chi.URLParam(r, "companyID"),
		chi.URLParam(r, "periodID"),
		chi.URLParam(r, "subcontractorID"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ev)
}

func (h *Handler) confirm(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context())
	if identity == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing identity")
		return
	}
	st, err := h.service.ConfirmCompliant(r.Context(),
		chi.URLParam(r, "companyID"),
		chi.URLParam(r, "periodID"),
		chi.URLParam(r, "subcontractorID"),
		identity.UID)
	if err != nil {
		h.logger.Warn("confirm compliant", slog.String("uid", identity.UID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, newStatusView(st))
}

func (h *Handler) markNonCompliant(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context())
	if identity == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing identity")
		return
	}
	st, err := h.service.MarkNonCompliant(r.Context(),
		chi.URLParam(r, "companyID"),
		chi.URLParam(r, "periodID"),
		chi.URLParam(r, "subcontractorID"),
		shared.HumanActor(identity.UID))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, newStatusView(st))
}

func (h *Handler) getStatus(w http.ResponseWriter, r *http.Request) {
	st, err := h.service.GetStatus(r.Context(),
		chi.URLParam(r, "companyID"),
		chi.URLParam(r, "periodID"),
		chi.URLParam(r, "subcontractorID"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, newStatusView(st))
}

func (h *Handler) listStatuses(w http.ResponseWriter, r *http.Request) {
	statuses, err := h.service.ListStatuses(r.Context(),
		chi.URLParam(r, "companyID"),
		chi.URLParam(r, "periodID"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	views := make([]statusView, 0, len(statuses))
	for _, st := range statuses {
		views = append(views, newStatusView(st))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"statuses": views})
}
