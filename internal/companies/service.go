package companies

import (
	"context"

	"github.com/sitecomply/sitecomply/internal/shared"
)

// Service exposes company lookups and the compliance-module gate.
type Service struct {
	repo  Repository
	cache *FlagCache
}

// NewService constructs a Service instance.
func NewService(repo Repository, cache *FlagCache) *Service {
	return &Service{repo: repo, cache: cache}
}

func (s *Service) Get(ctx context.Context, id string) (Company, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]Company, error) {
	return s.repo.List(ctx)
}

// ListComplianceEnabled returns the companies the daily pass must visit.
func (s *Service) ListComplianceEnabled(ctx context.Context) ([]Company, error) {
	return s.repo.ListComplianceEnabled(ctx)
}

// SetComplianceEnabled flips the module flag and invalidates the cache.
func (s *Service) SetComplianceEnabled(ctx context.Context, id string, enabled bool) error {
	if err := s.repo.SetComplianceEnabled(ctx, id, enabled); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, id)
	return nil
}

// Gate fails with ConfigurationError unless the compliance module is enabled
// for the company. Every core operation calls this before doing anything else.
func (s *Service) Gate(ctx context.Context, companyID string) error {
	if enabled, ok := s.cache.Get(ctx, companyID); ok {
		if !enabled {
			return &shared.ConfigurationError{CompanyID: companyID}
		}
		return nil
	}
	company, err := s.repo.Get(ctx, companyID)
	if err != nil {
		return err
	}
	enabled := company.Active && company.ComplianceEnabled
	s.cache.Set(ctx, companyID, enabled)
	if !enabled {
		return &shared.ConfigurationError{CompanyID: companyID}
	}
	return nil
}
