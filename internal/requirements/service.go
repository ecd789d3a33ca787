package requirements

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Gate checks whether the compliance module is enabled for a company.
type Gate interface {
	Gate(ctx context.Context, companyID string) error
}

// Service is the requirement registry: the per-company catalog of document
// types a subcontractor must file each period.
type Service struct {
	repo     Repository
	gate     Gate
	validate *validator.Validate
	now      func() time.Time
}

// NewService constructs a Service instance.
func NewService(repo Repository, gate Gate) *Service {
	return &Service{
		repo:     repo,
		gate:     gate,
		validate: validator.New(),
		now:      time.Now,
	}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// ListActive returns the requirement set submissions are evaluated against.
func (s *Service) ListActive(ctx context.Context, companyID string) ([]Requirement, error) {
	if err := s.gate.Gate(ctx, companyID); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, companyID, true)
}

// List returns every requirement, tombstoned ones included, for historical
// display.
func (s *Service) List(ctx context.Context, companyID string) ([]Requirement, error) {
	if err := s.gate.Gate(ctx, companyID); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, companyID, false)
}

func (s *Service) Get(ctx context.Context, companyID, id string) (Requirement, error) {
	if err := s.gate.Gate(ctx, companyID); err != nil {
		return Requirement{}, err
	}
	return s.repo.Get(ctx, companyID, id)
}

func (s *Service) Create(ctx context.Context, in CreateInput) (Requirement, error) {
	if err := s.gate.Gate(ctx, in.CompanyID); err != nil {
		return Requirement{}, err
	}
	if err := s.validate.Struct(in); err != nil {
		return Requirement{}, err
	}
	req := Requirement{
		ID:        uuid.NewString(),
		CompanyID: in.CompanyID,
		Name:      in.Name,
		Active:    true,
		Metadata:  in.Metadata,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.Insert(ctx, req); err != nil {
		return Requirement{}, err
	}
	return req, nil
}

func (s *Service) Update(ctx context.Context, in UpdateInput) (Requirement, error) {
	if err := s.gate.Gate(ctx, in.CompanyID); err != nil {
		return Requirement{}, err
	}
	if err := s.validate.Struct(in); err != nil {
		return Requirement{}, err
	}
	req, err := s.repo.Get(ctx, in.CompanyID, in.ID)
	if err != nil {
		return Requirement{}, err
	}
	req.Name = in.Name
	req.Metadata = in.Metadata
	if err := s.repo.Update(ctx, req); err != nil {
		return Requirement{}, err
	}
	return s.repo.Get(ctx, in.CompanyID, in.ID)
}

// Deactivate tombstones the requirement. It never hard-deletes: historical
// submissions reference it by id.
func (s *Service) Deactivate(ctx context.Context, companyID, id string) error {
	if err := s.gate.Gate(ctx, companyID); err != nil {
		return err
	}
	return s.repo.SetActive(ctx, companyID, id, false)
}

// ActiveIDs returns the ids of the active requirement set.
func (s *Service) ActiveIDs(ctx context.Context, companyID string) ([]string, error) {
	reqs, err := s.repo.List(ctx, companyID, true)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(reqs))
	for _, req := range reqs {
		ids = append(ids, req.ID)
	}
	return ids, nil
}
