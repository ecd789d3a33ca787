package companies

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sitecomply/sitecomply/internal/shared"
)

// Repository provides PostgreSQL backed persistence for companies.
type Repository interface {
	Get(ctx context.Context, id string) (Company, error)
	List(ctx context.Context) ([]Company, error)
	ListComplianceEnabled(ctx context.Context) ([]Company, error)
	SetComplianceEnabled(ctx context.Context, id string, enabled bool) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const companyColumns = `id, name, tax_id, compliance_enabled, active, created_at, updated_at`

func (r *repository) Get(ctx context.Context, id string) (Company, error) {
	query := `SELECT ` + companyColumns + ` FROM companies WHERE id = $1`
	var c Company
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.Name, &c.TaxID, &c.ComplianceEnabled, &c.Active, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Company{}, &shared.NotFoundError{Entity: "company", ID: id}
		}
		return Company{}, err
	}
	return c, nil
}

func (r *repository) List(ctx context.Context) ([]Company, error) {
	query := `SELECT ` + companyColumns + ` FROM companies WHERE active ORDER BY name`
	return r.queryMany(ctx, query)
}

// ListComplianceEnabled returns the companies the daily pass iterates over.
func (r *repository) ListComplianceEnabled(ctx context.Context) ([]Company, error) {
	query := `SELECT ` + companyColumns + ` FROM companies WHERE active AND compliance_enabled ORDER BY id`
	return r.queryMany(ctx, query)
}

func (r *repository) SetComplianceEnabled(ctx context.Context, id string, enabled bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE companies SET compliance_enabled = $2, updated_at = now() WHERE id = $1`,
		id, enabled,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &shared.NotFoundError{Entity: "company", ID: id}
	}
	return nil
}

func (r *repository) queryMany(ctx context.Context, query string, args ...any) ([]Company, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var companies []Company
	for rows.Next() {
		var c Company
		if err := rows.Scan(&c.ID, &c.Name, &c.TaxID, &c.ComplianceEnabled, &c.Active, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		companies = append(companies, c)
	}
	return companies, rows.Err()
}
