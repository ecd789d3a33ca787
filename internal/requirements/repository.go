package requirements

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sitecomply/sitecomply/internal/shared"
)

// Repository provides PostgreSQL backed persistence for requirements.
type Repository interface {
	Get(ctx context.Context, companyID, id string) (Requirement, error)
	List(ctx context.Context, companyID string, activeOnly bool) ([]Requirement, error)
	Insert(ctx context.Context, req Requirement) error
	Update(ctx context.Context, req Requirement) error
	SetActive(ctx context.Context, companyID, id string, active bool) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const reqColumns = `id, company_id, name, active, metadata, created_at, updated_at`

func scanRequirement(row pgx.Row) (Requirement, error) {
	var (
		req Requirement
		raw []byte
	)
	if err := row.Scan(&req.ID, &req.CompanyID, &req.Name, &req.Active, &raw, &req.CreatedAt, &req.UpdatedAt); err != nil {
		return Requirement{}, err
	}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &req.Metadata)
	}
	return req, nil
}

func (r *repository) Get(ctx context.Context, companyID, id string) (Requirement, error) {
	query := `SELECT ` + reqColumns + ` FROM requirements WHERE company_id = $1 AND id = $2`
	req, err := scanRequirement(r.pool.QueryRow(ctx, query, companyID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Requirement{}, &shared.NotFoundError{Entity: "requirement", ID: id}
		}
		return Requirement{}, err
	}
	return req, nil
}

func (r *repository) List(ctx context.Context, companyID string, activeOnly bool) ([]Requirement, error) {
	query := `SELECT ` + reqColumns + ` FROM requirements WHERE company_id = $1`
	if activeOnly {
		query += ` AND active`
	}
	query += ` ORDER BY name`

	rows, err := r.pool.Query(ctx, query, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reqs []Requirement
	for rows.Next() {
		req, err := scanRequirement(rows)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, req)
	}
	return reqs, rows.Err()
}

func (r *repository) Insert(ctx context.Context, req Requirement) error {
	meta, err := json.Marshal(req.Metadata)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO requirements (id, company_id, name, active, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)`,
		req.ID, req.CompanyID, req.Name, req.Active, meta, req.CreatedAt,
	)
	return err
}

func (r *repository) Update(ctx context.Context, req Requirement) error {
	meta, err := json.Marshal(req.Metadata)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE requirements
		SET name = $3, metadata = $4, updated_at = now()
		WHERE company_id = $1 AND id = $2`,
		req.CompanyID, req.ID, req.Name, meta,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &shared.NotFoundError{Entity: "requirement", ID: req.ID}
	}
	return nil
}

func (r *repository) SetActive(ctx context.Context, companyID, id string, active bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE requirements SET active = $3, updated_at = now() WHERE company_id = $1 AND id = $2`,
		companyID, id, active,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &shared.NotFoundError{Entity: "requirement", ID: id}
	}
	return nil
}
