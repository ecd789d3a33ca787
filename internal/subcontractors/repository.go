package subcontractors

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sitecomply/sitecomply/internal/shared"
)

// Repository provides PostgreSQL backed persistence for subcontractors.
type Repository interface {
	Get(ctx context.Context, companyID, id string) (Subcontractor, error)
	List(ctx context.Context, companyID string, includeInactive bool) ([]Subcontractor, error)
	Insert(ctx context.Context, sub Subcontractor) error
	Update(ctx context.Context, sub Subcontractor) error
	SetActive(ctx context.Context, companyID, id string, active bool) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const subColumns = `id, company_id, name, tax_id, active, user_uids, created_at, updated_at`

func (r *repository) Get(ctx context.Context, companyID, id string) (Subcontractor, error) {
	query := `SELECT ` + subColumns + ` FROM subcontractors WHERE company_id = $1 AND id = $2`
	var s Subcontractor
	err := r.pool.QueryRow(ctx, query, companyID, id).Scan(
		&s.ID, &s.CompanyID, &s.Name, &s.TaxID, &s.Active, &s.UserUIDs, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Subcontractor{}, &shared.NotFoundError{Entity: "subcontractor", ID: id}
		}
		return Subcontractor{}, err
	}
	return s, nil
}

func (r *repository) List(ctx context.Context, companyID string, includeInactive bool) ([]Subcontractor, error) {
	query := `SELECT ` + subColumns + ` FROM subcontractors WHERE company_id = $1`
	if !includeInactive {
		query += ` AND active`
	}
	query += ` ORDER BY name`

	rows, err := r.pool.Query(ctx, query, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []Subcontractor
	for rows.Next() {
		var s Subcontractor
		if err := rows.Scan(&s.ID, &s.CompanyID, &s.Name, &s.TaxID, &s.Active, &s.UserUIDs, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}

func (r *repository) Insert(ctx context.Context, sub Subcontractor) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO subcontractors (id, company_id, name, tax_id, active, user_uids, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`,
		sub.ID, sub.CompanyID, sub.Name, sub.TaxID, sub.Active, sub.UserUIDs, sub.CreatedAt,
	)
	return err
}

func (r *repository) Update(ctx context.Context, sub Subcontractor) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE subcontractors
		SET name = $3, tax_id = $4, user_uids = $5, updated_at = now()
		WHERE company_id = $1 AND id = $2`,
		sub.CompanyID, sub.ID, sub.Name, sub.TaxID, sub.UserUIDs,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &shared.NotFoundError{Entity: "subcontractor", ID: sub.ID}
	}
	return nil
}

func (r *repository) SetActive(ctx context.Context, companyID, id string, active bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE subcontractors SET active = $3, updated_at = now() WHERE company_id = $1 AND id = $2`,
		companyID, id, active,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &shared.NotFoundError{Entity: "subcontractor", ID: id}
	}
	return nil
}
