package subcontractors

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

// Service exposes subcontractor management operations.
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

func (s *Service) Get(ctx context.Context, companyID, id string) (Subcontractor, error) {
	if err := s.gate.Gate(ctx, companyID); err != nil {
		return Subcontractor{}, err
	}
	return s.repo.Get(ctx, companyID, id)
}

func (s *Service) List(ctx context.Context, companyID string, includeInactive bool) ([]Subcontractor, error) {
	if err := s.gate.Gate(ctx, companyID); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, companyID, includeInactive)
}

func (s *Service) Create(ctx context.Context, in CreateInput) (Subcontractor, error) {
	if err := s.gate.Gate(ctx, in.CompanyID); err != nil {
		return Subcontractor{}, err
	}
	if err := s.validate.Struct(in); err != nil {
		return Subcontractor{}, err
	}
	sub := Subcontractor{
		ID:        uuid.NewString(),
		CompanyID: in.CompanyID,
		Name:      in.Name,
		TaxID:     in.TaxID,
		Active:    true,
		UserUIDs:  in.UserUIDs,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.Insert(ctx, sub); err != nil {
		return Subcontractor{}, err
	}
	return sub, nil
}

func (s *Service) Update(ctx context.Context, sub Subcontractor) error {
	if err := s.gate.Gate(ctx, sub.CompanyID); err != nil {
		return err
	}
	return s.repo.Update(ctx, sub)
}

// Deactivate tombstones the subcontractor; history stays interpretable.
func (s *Service) Deactivate(ctx context.Context, companyID, id string) error {
	if err := s.gate.Gate(ctx, companyID); err != nil {
		return err
	}
	return s.repo.SetActive(ctx, companyID, id, false)
}

// ActiveIDs returns the ids the closing step must finalize.
func (s *Service) ActiveIDs(ctx context.Context, companyID string) ([]string, error) {
	subs, err := s.repo.List(ctx, companyID, false)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(subs))
	for _, sub := range subs {
		ids = append(ids, sub.ID)
	}
	return ids, nil
}

// Authorized reports whether uid may upload on behalf of the subcontractor.
func (s *Service) Authorized(ctx context.Context, companyID, id, uid string) (bool, error) {
	sub, err := s.repo.Get(ctx, companyID, id)
	if err != nil {
		return false, err
	}
	if !sub.Active {
		return false, nil
	}
	for _, u := range sub.UserUIDs {
		if u == uid {
			return true, nil
		}
	}
	return false, nil
}
