package compliance

import (
	"strconv"
	"time"

	"github.com/sitecomply/sitecomply/internal/shared"
)

// PeriodState enumerates the monthly period lifecycle stages. Transitions are
// monotonic: OpenForUpload -> InReview -> Closed, never backwards.
type PeriodState string

const (
	PeriodOpenForUpload PeriodState = "OPEN_FOR_UPLOAD"
	PeriodInReview      PeriodState = "IN_REVIEW"
	PeriodClosed        PeriodState = "CLOSED"
)

func (s PeriodState) rank() int {
	switch s {
	case PeriodOpenForUpload:
		return 0
	case PeriodInReview:
		return 1
	case PeriodClosed:
		return 2
	default:
		return -1
	}
}

// CanTransition reports whether moving to target preserves monotonicity.
func (s PeriodState) CanTransition(target PeriodState) bool {
	return target.rank() > s.rank()
}

// Period is the monthly compliance cycle for one company. Its id is the
// deterministic composite {companyID}_{periodKey}, which makes creation
// idempotent.
type Period struct {
	ID             string      `json:"id"`
	CompanyID      string      `json:"company_id"`
	PeriodKey      string      `json:"period_key"`
	State          PeriodState `json:"state"`
	CutoffUpload   time.Time   `json:"cutoff_upload"`
	ReviewDeadline time.Time   `json:"review_deadline"`
	PaymentDate    time.Time   `json:"payment_date"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
	ClosedAt       *time.Time  `json:"closed_at,omitempty"`
}

// PeriodKeyFor derives the canonical "YYYY-MM" key from the UTC calendar
// month of the instant. Every component addressing a period goes through
// this function.
func PeriodKeyFor(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// PeriodIDFor composes the deterministic period id.
func PeriodIDFor(companyID, periodKey string) string {
	return companyID + "_" + periodKey
}

// yearOf extracts the year from a "YYYY-MM" key.
func yearOf(periodKey string) (int, error) {
	if len(periodKey) < 4 {
		return 0, strconv.ErrSyntax
	}
	return strconv.Atoi(periodKey[:4])
}

// SubmissionState enumerates submission review states.
type SubmissionState string

const (
	SubmissionUploaded SubmissionState = "UPLOADED"
	SubmissionFlagged  SubmissionState = "FLAGGED"
)

// Submission is a subcontractor's filed document against one requirement for
// one period, keyed by (period, subcontractor, requirement). DocumentName
// snapshots the requirement name at submission time so renames and
// deactivations leave history readable.
type Submission struct {
	PeriodID        string          `json:"period_id"`
	SubcontractorID string          `json:"subcontractor_id"`
	RequirementID   string          `json:"requirement_id"`
	DocumentName    string          `json:"document_name"`
	StorageRef      string          `json:"storage_ref"`
	ContentType     string          `json:"content_type"`
	State           SubmissionState `json:"state"`
	SubmittedAt     time.Time       `json:"submitted_at"`
	SubmittedBy     string          `json:"submitted_by"`
	FlagNote        string          `json:"flag_note,omitempty"`
	FlaggedBy       string          `json:"flagged_by,omitempty"`
	FlaggedAt       *time.Time      `json:"flagged_at,omitempty"`
}

// StatusState enumerates the authoritative compliance determinations. The
// absence of a Status record means "undetermined", which is distinct from
// NonCompliant.
type StatusState string

const (
	StatusCompliant    StatusState = "COMPLIANT"
	StatusNonCompliant StatusState = "NON_COMPLIANT"
)

// Status is the authoritative determination for (period, subcontractor).
type Status struct {
	PeriodID        string       `json:"period_id"`
	SubcontractorID string       `json:"subcontractor_id"`
	State           StatusState  `json:"state"`
	AssignedAt      time.Time    `json:"assigned_at"`
	AssignedBy      shared.Actor `json:"-"`
}

// Suggested is the advisory evaluation result. ReadyToComply is never written
// anywhere: it only says a human may now confirm.
type Suggested string

const (
	SuggestedNonCompliant Suggested = "NON_COMPLIANT"
	SuggestedReady        Suggested = "READY_TO_COMPLY"
)

// Evaluation is the recomputable suggested status plus the requirement ids
// blocking it.
type Evaluation struct {
	Result  Suggested `json:"result"`
	Pending []string  `json:"pending,omitempty"`
	Flagged []string  `json:"flagged,omitempty"`
}

// SubmitInput bundles parameters for filing a document.
type SubmitInput struct {
	CompanyID       string
	PeriodID        string
	SubcontractorID string
	RequirementID   string
	FileName        string
	Data            []byte
	ContentType     string
	UID             string
}

// FlagInput bundles parameters for flagging a submission during review.
type FlagInput struct {
	CompanyID       string
	PeriodID        string
	SubcontractorID string
	RequirementID   string
	ReviewerUID     string
	Note            string
}
