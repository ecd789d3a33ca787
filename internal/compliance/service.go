package compliance

import (
	"context"
	"log/slog"
	"time"

	"github.com/sitecomply/sitecomply/internal/docstore"
	"github.com/sitecomply/sitecomply/internal/requirements"
)

// Gate checks whether the compliance module is enabled for a company.
type Gate interface {
	Gate(ctx context.Context, companyID string) error
}

// RequirementSource supplies the requirement catalog.
type RequirementSource interface {
	Get(ctx context.Context, companyID, id string) (requirements.Requirement, error)
	ActiveIDs(ctx context.Context, companyID string) ([]string, error)
}

// SubcontractorSource supplies the submitting parties.
type SubcontractorSource interface {
	ActiveIDs(ctx context.Context, companyID string) ([]string, error)
	Authorized(ctx context.Context, companyID, id, uid string) (bool, error)
}

// Notifier is the fire-and-forget notification channel. Implementations must
// never fail the calling operation; delivery is someone else's problem.
type Notifier interface {
	SubmissionReceived(ctx context.Context, sub Submission)
	SubmissionFlagged(ctx context.Context, sub Submission)
	StatusAssigned(ctx context.Context, st Status)
}

// NopNotifier discards all notifications.
type NopNotifier struct{}

func (NopNotifier) SubmissionReceived(context.Context, Submission) {}
func (NopNotifier) SubmissionFlagged(context.Context, Submission)  {}
func (NopNotifier) StatusAssigned(context.Context, Status)         {}

// Service orchestrates the compliance period lifecycle: period derivation and
// transitions, document submissions, and status determination.
type Service struct {
	repo           Repository
	gate           Gate
	requirements   RequirementSource
	subcontractors SubcontractorSource
	docs           docstore.Store
	notifier       Notifier
	logger         *slog.Logger
	now            func() time.Time
}

// ServiceConfig collects the collaborators of the compliance core.
type ServiceConfig struct {
	Repo           Repository
	Gate           Gate
	Requirements   RequirementSource
	Subcontractors SubcontractorSource
	Docs           docstore.Store
	Notifier       Notifier
	Logger         *slog.Logger
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) *Service {
	notifier := cfg.Notifier
	if notifier == nil {
		notifier = NopNotifier{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:           cfg.Repo,
		gate:           cfg.Gate,
		requirements:   cfg.Requirements,
		subcontractors: cfg.Subcontractors,
		docs:           cfg.Docs,
		notifier:       notifier,
		logger:         logger,
		now:            time.Now,
	}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}
