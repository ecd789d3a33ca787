package calendar

import (
	"context"
	"strconv"

	"github.com/go-playground/validator/v10"
)

// Gate checks whether the compliance module is enabled for a company.
type Gate interface {
	Gate(ctx context.Context, companyID string) error
}

// Service serves the admin workflow that configures milestone dates.
type Service struct {
	repo     Repository
	gate     Gate
	validate *validator.Validate
}

// NewService constructs a Service instance.
func NewService(repo Repository, gate Gate) *Service {
	return &Service{repo: repo, gate: gate, validate: validator.New()}
}

func (s *Service) Get(ctx context.Context, companyID, periodKey string) (Month, error) {
	if err := s.gate.Gate(ctx, companyID); err != nil {
		return Month{}, err
	}
	return s.repo.Get(ctx, companyID, periodKey)
}

func (s *Service) ListYear(ctx context.Context, companyID string, year int) ([]Month, error) {
	if err := s.gate.Gate(ctx, companyID); err != nil {
		return nil, err
	}
	return s.repo.ListYear(ctx, companyID, year)
}

// Upsert writes a month template. Consumed months are immutable.
func (s *Service) Upsert(ctx context.Context, in UpsertInput) (Month, error) {
	if err := s.gate.Gate(ctx, in.CompanyID); err != nil {
		return Month{}, err
	}
	if err := s.validate.Struct(in); err != nil {
		return Month{}, err
	}
	year, err := strconv.Atoi(in.PeriodKey[:4])
	if err != nil {
		return Month{}, err
	}
	m := Month{
		CompanyID:      in.CompanyID,
		Year:           year,
		PeriodKey:      in.PeriodKey,
		CutoffUpload:   in.CutoffUpload.UTC(),
		ReviewDeadline: in.ReviewDeadline.UTC(),
		PaymentDate:    in.PaymentDate.UTC(),
		Editable:       true,
	}
	if err := s.repo.Upsert(ctx, m); err != nil {
		return Month{}, err
	}
	return s.repo.Get(ctx, in.CompanyID, in.PeriodKey)
}
