package compliance

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sitecomply/sitecomply/internal/calendar"
	"github.com/sitecomply/sitecomply/internal/platform/db"
	"github.com/sitecomply/sitecomply/internal/shared"
)

// Repository persists periods, submissions, and statuses. They share one
// package and one transaction boundary because every invariant in this core
// spans at least two of them.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetPeriod(ctx context.Context, id string) (Period, error)
	ListPeriods(ctx context.Context, companyID string, limit int) ([]Period, error)
	ListSubmissions(ctx context.Context, periodID, subcontractorID string) ([]Submission, error)
	GetStatus(ctx context.Context, periodID, subcontractorID string) (Status, error)
	ListStatuses(ctx context.Context, periodID string) ([]Status, error)
}

// TxRepository exposes the operations that must run inside one transaction.
// Period rows are locked FOR UPDATE so state checks and the writes that trust
// them cannot interleave with a concurrent close.
type TxRepository interface {
	GetPeriodForUpdate(ctx context.Context, id string) (Period, error)
	InsertPeriod(ctx context.Context, p Period) error
	UpdatePeriodState(ctx context.Context, id string, state PeriodState, closedAt *time.Time, now time.Time) error
	CalendarMonth(ctx context.Context, companyID string, year int, periodKey string) (calendar.Month, error)
	ConsumeCalendarMonth(ctx context.Context, companyID, periodKey string) error
	GetSubmissionForUpdate(ctx context.Context, periodID, subcontractorID, requirementID string) (Submission, error)
	InsertSubmission(ctx context.Context, sub Submission) error
	UpdateSubmission(ctx context.Context, sub Submission) error
	ListSubmissions(ctx context.Context, periodID, subcontractorID string) ([]Submission, error)
	UpsertStatus(ctx context.Context, st Status) error
	ListStatuses(ctx context.Context, periodID string) ([]Status, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository using the provided pool.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx wraps callback in a repeatable-read transaction.
func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

const periodColumns = `id, company_id, period_key, state, cutoff_upload, review_deadline, payment_date, created_at, updated_at, closed_at`

func scanPeriod(row pgx.Row) (Period, error) {
	var p Period
	err := row.Scan(&p.ID, &p.CompanyID, &p.PeriodKey, &p.State, &p.CutoffUpload,
		&p.ReviewDeadline, &p.PaymentDate, &p.CreatedAt, &p.UpdatedAt, &p.ClosedAt)
	return p, err
}

func (r *repository) GetPeriod(ctx context.Context, id string) (Period, error) {
	p, err := scanPeriod(r.pool.QueryRow(ctx, `SELECT `+periodColumns+` FROM periods WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Period{}, &shared.NotFoundError{Entity: "period", ID: id}
		}
		return Period{}, err
	}
	return p, nil
}

func (r *repository) ListPeriods(ctx context.Context, companyID string, limit int) ([]Period, error) {
	if limit <= 0 {
		limit = 24
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+periodColumns+` FROM periods WHERE company_id = $1 ORDER BY period_key DESC LIMIT $2`,
		companyID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var periods []Period
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, err
		}
		periods = append(periods, p)
	}
	return periods, rows.Err()
}

const submissionColumns = `period_id, subcontractor_id, requirement_id, document_name, storage_ref, content_type, state, submitted_at, submitted_by, flag_note, flagged_by, flagged_at`

func scanSubmission(row pgx.Row) (Submission, error) {
	var s Submission
	err := row.Scan(&s.PeriodID, &s.SubcontractorID, &s.RequirementID, &s.DocumentName,
		&s.StorageRef, &s.ContentType, &s.State, &s.SubmittedAt, &s.SubmittedBy,
		&s.FlagNote, &s.FlaggedBy, &s.FlaggedAt)
	return s, err
}

func listSubmissions(ctx context.Context, q interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}, periodID, subcontractorID string) ([]Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE period_id = $1`
	args := []any{periodID}
	if subcontractorID != "" {
		query += ` AND subcontractor_id = $2`
		args = append(args, subcontractorID)
	}
	query += ` ORDER BY submitted_at`

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []Submission
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}

func (r *repository) ListSubmissions(ctx context.Context, periodID, subcontractorID string) ([]Submission, error) {
	return listSubmissions(ctx, r.pool, periodID, subcontractorID)
}

const statusColumns = `period_id, subcontractor_id, state, assigned_at, assigned_by_kind, assigned_by_uid`

func scanStatus(row pgx.Row) (Status, error) {
	var (
		st   Status
		kind string
		uid  string
	)
	if err := row.Scan(&st.PeriodID, &st.SubcontractorID, &st.State, &st.AssignedAt, &kind, &uid); err != nil {
		return Status{}, err
	}
	st.AssignedBy = shared.ActorFromRecord(kind, uid)
	return st, nil
}

func (r *repository) GetStatus(ctx context.Context, periodID, subcontractorID string) (Status, error) {
	st, err := scanStatus(r.pool.QueryRow(ctx,
		`SELECT `+statusColumns+` FROM statuses WHERE period_id = $1 AND subcontractor_id = $2`,
		periodID, subcontractorID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Status{}, &shared.NotFoundError{Entity: "status", ID: periodID + "/" + subcontractorID}
		}
		return Status{}, err
	}
	return st, nil
}

func listStatuses(ctx context.Context, q interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}, periodID string) ([]Status, error) {
	rows, err := q.Query(ctx, `SELECT `+statusColumns+` FROM statuses WHERE period_id = $1`, periodID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var statuses []Status
	for rows.Next() {
		st, err := scanStatus(rows)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, st)
	}
	return statuses, rows.Err()
}

func (r *repository) ListStatuses(ctx context.Context, periodID string) ([]Status, error) {
	return listStatuses(ctx, r.pool, periodID)
}

// --- transactional operations ---

func (t *txRepo) GetPeriodForUpdate(ctx context.Context, id string) (Period, error) {
	p, err := scanPeriod(t.tx.QueryRow(ctx, `SELECT `+periodColumns+` FROM periods WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Period{}, &shared.NotFoundError{Entity: "period", ID: id}
		}
		return Period{}, err
	}
	return p, nil
}

func (t *txRepo) InsertPeriod(ctx context.Context, p Period) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO periods (id, company_id, period_key, state, cutoff_upload, review_deadline, payment_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)`,
		p.ID, p.CompanyID, p.PeriodKey, p.State, p.CutoffUpload, p.ReviewDeadline, p.PaymentDate, p.CreatedAt,
	)
	return err
}

func (t *txRepo) UpdatePeriodState(ctx context.Context, id string, state PeriodState, closedAt *time.Time, now time.Time) error {
	_, err := t.tx.Exec(ctx,
		`UPDATE periods SET state = $2, closed_at = $3, updated_at = $4 WHERE id = $1`,
		id, state, closedAt, now,
	)
	return err
}

func (t *txRepo) CalendarMonth(ctx context.Context, companyID string, year int, periodKey string) (calendar.Month, error) {
	var m calendar.Month
	err := t.tx.QueryRow(ctx, `
		SELECT company_id, year, period_key, cutoff_upload, review_deadline, payment_date, editable, created_at, updated_at
		FROM calendar_months WHERE company_id = $1 AND year = $2 AND period_key = $3`,
		companyID, year, periodKey,
	).Scan(&m.CompanyID, &m.Year, &m.PeriodKey, &m.CutoffUpload, &m.ReviewDeadline,
		&m.PaymentDate, &m.Editable, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return calendar.Month{}, &shared.NotFoundError{Entity: "calendar month", ID: companyID + "_" + periodKey}
		}
		return calendar.Month{}, err
	}
	return m, nil
}

func (t *txRepo) ConsumeCalendarMonth(ctx context.Context, companyID, periodKey string) error {
	_, err := t.tx.Exec(ctx,
		`UPDATE calendar_months SET editable = FALSE, updated_at = now() WHERE company_id = $1 AND period_key = $2`,
		companyID, periodKey,
	)
	return err
}

func (t *txRepo) GetSubmissionForUpdate(ctx context.Context, periodID, subcontractorID, requirementID string) (Submission, error) {
	s, err := scanSubmission(t.tx.QueryRow(ctx,
		`SELECT `+submissionColumns+` FROM submissions
		 WHERE period_id = $1 AND subcontractor_id = $2 AND requirement_id = $3 FOR UPDATE`,
		periodID, subcontractorID, requirementID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Submission{}, &shared.NotFoundError{Entity: "submission", ID: periodID + "/" + subcontractorID + "/" + requirementID}
		}
		return Submission{}, err
	}
	return s, nil
}

func (t *txRepo) InsertSubmission(ctx context.Context, s Submission) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO submissions (period_id, subcontractor_id, requirement_id, document_name, storage_ref, content_type, state, submitted_at, submitted_by, flag_note, flagged_by, flagged_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, '', '', NULL)`,
		s.PeriodID, s.SubcontractorID, s.RequirementID, s.DocumentName, s.StorageRef,
		s.ContentType, s.State, s.SubmittedAt, s.SubmittedBy,
	)
	return err
}

// UpdateSubmission overwrites the record in place; a resubmission after a
// flag keeps the same identity.
func (t *txRepo) UpdateSubmission(ctx context.Context, s Submission) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE submissions
		SET document_name = $4, storage_ref = $5, content_type = $6, state = $7,
		    submitted_at = $8, submitted_by = $9, flag_note = $10, flagged_by = $11, flagged_at = $12
		WHERE period_id = $1 AND subcontractor_id = $2 AND requirement_id = $3`,
		s.PeriodID, s.SubcontractorID, s.RequirementID, s.DocumentName, s.StorageRef,
		s.ContentType, s.State, s.SubmittedAt, s.SubmittedBy, s.FlagNote, s.FlaggedBy, s.FlaggedAt,
	)
	return err
}

func (t *txRepo) ListSubmissions(ctx context.Context, periodID, subcontractorID string) ([]Submission, error) {
	return listSubmissions(ctx, t.tx, periodID, subcontractorID)
}

func (t *txRepo) UpsertStatus(ctx context.Context, st Status) error {
	kind, uid := st.AssignedBy.Record()
	_, err := t.tx.Exec(ctx, `
		INSERT INTO statuses (period_id, subcontractor_id, state, assigned_at, assigned_by_kind, assigned_by_uid)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (period_id, subcontractor_id) DO UPDATE
		SET state = EXCLUDED.state,
		    assigned_at = EXCLUDED.assigned_at,
		    assigned_by_kind = EXCLUDED.assigned_by_kind,
		    assigned_by_uid = EXCLUDED.assigned_by_uid`,
		st.PeriodID, st.SubcontractorID, st.State, st.AssignedAt, kind, uid,
	)
	return err
}

func (t *txRepo) ListStatuses(ctx context.Context, periodID string) ([]Status, error) {
	return listStatuses(ctx, t.tx, periodID)
}
