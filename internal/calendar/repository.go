package calendar

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sitecomply/sitecomply/internal/shared"
)

// Repository persists calendar months. The compliance core reads the same
// table through its own transactional repository; this one serves the admin
// workflow that configures months before periods exist.
type Repository interface {
	Get(ctx context.Context, companyID, periodKey string) (Month, error)
	ListYear(ctx context.Context, companyID string, year int) ([]Month, error)
	Upsert(ctx context.Context, m Month) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const monthColumns = `company_id, year, period_key, cutoff_upload, review_deadline, payment_date, editable, created_at, updated_at`

func (r *repository) Get(ctx context.Context, companyID, periodKey string) (Month, error) {
	query := `SELECT ` + monthColumns + ` FROM calendar_months WHERE company_id = $1 AND period_key = $2`
	var m Month
	err := r.pool.QueryRow(ctx, query, companyID, periodKey).Scan(
		&m.CompanyID, &m.Year, &m.PeriodKey, &m.CutoffUpload, &m.ReviewDeadline,
		&m.PaymentDate, &m.Editable, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Month{}, &shared.NotFoundError{Entity: "calendar month", ID: companyID + "_" + periodKey}
		}
		return Month{}, err
	}
	return m, nil
}

func (r *repository) ListYear(ctx context.Context, companyID string, year int) ([]Month, error) {
	query := `SELECT ` + monthColumns + ` FROM calendar_months WHERE company_id = $1 AND year = $2 ORDER BY period_key`
	rows, err := r.pool.Query(ctx, query, companyID, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var months []Month
	for rows.Next() {
		var m Month
		if err := rows.Scan(&m.CompanyID, &m.Year, &m.PeriodKey, &m.CutoffUpload, &m.ReviewDeadline,
			&m.PaymentDate, &m.Editable, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		months = append(months, m)
	}
	return months, rows.Err()
}

// Upsert writes the month but refuses to touch a consumed (non-editable) row.
func (r *repository) Upsert(ctx context.Context, m Month) error {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO calendar_months (company_id, year, period_key, cutoff_upload, review_deadline, payment_date, editable, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE, now(), now())
		ON CONFLICT (company_id, period_key) DO UPDATE
		SET cutoff_upload = EXCLUDED.cutoff_upload,
		    review_deadline = EXCLUDED.review_deadline,
		    payment_date = EXCLUDED.payment_date,
		    updated_at = now()
		WHERE calendar_months.editable`,
		m.CompanyID, m.Year, m.PeriodKey, m.CutoffUpload, m.ReviewDeadline, m.PaymentDate,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &shared.StateConflictError{
			Entity: "calendar month",
			ID:     m.CompanyID + "_" + m.PeriodKey,
			State:  "consumed",
			Reason: "a period has already been derived from this month",
		}
	}
	return nil
}
