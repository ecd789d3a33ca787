package companies

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/sitecomply/sitecomply/internal/shared"
)

type memoryRepo struct {
	companies map[string]Company
	getCalls  int
}

func (r *memoryRepo) Get(ctx context.Context, id string) (Company, error) {
	r.getCalls++
	c, ok := r.companies[id]
	if !ok {
		return Company{}, &shared.NotFoundError{Entity: "company", ID: id}
	}
	return c, nil
}

func (r *memoryRepo) List(ctx context.Context) ([]Company, error) {
	var out []Company
	for _, c := range r.companies {
		if c.Active {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *memoryRepo) ListComplianceEnabled(ctx context.Context) ([]Company, error) {
	var out []Company
	for _, c := range r.companies {
		if c.Active && c.ComplianceEnabled {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *memoryRepo) SetComplianceEnabled(ctx context.Context, id string, enabled bool) error {
	c, ok := r.companies[id]
	if !ok {
		return &shared.NotFoundError{Entity: "company", ID: id}
	}
	c.ComplianceEnabled = enabled
	r.companies[id] = c
	return nil
}

func newTestService(t *testing.T, repo Repository) *Service {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewService(repo, NewFlagCache(client, time.Minute))
}

func TestGateDisabledCompany(t *testing.T) {
	repo := &memoryRepo{companies: map[string]Company{
		"c1": {ID: "c1", Active: true, ComplianceEnabled: false},
	}}
	svc := newTestService(t, repo)

	err := svc.Gate(context.Background(), "c1")
	var confErr *shared.ConfigurationError
	require.ErrorAs(t, err, &confErr)
	require.Equal(t, "c1", confErr.CompanyID)
}

func TestGateCachesFlag(t *testing.T) {
	repo := &memoryRepo{companies: map[string]Company{
		"c1": {ID: "c1", Active: true, ComplianceEnabled: true},
	}}
	svc := newTestService(t, repo)
	ctx := context.Background()

	require.NoError(t, svc.Gate(ctx, "c1"))
	require.NoError(t, svc.Gate(ctx, "c1"))
	require.Equal(t, 1, repo.getCalls)
}

func TestSetComplianceEnabledInvalidatesCache(t *testing.T) {
	repo := &memoryRepo{companies: map[string]Company{
		"c1": {ID: "c1", Active: true, ComplianceEnabled: true},
	}}
	svc := newTestService(t, repo)
	ctx := context.Background()

	require.NoError(t, svc.Gate(ctx, "c1"))
	require.NoError(t, svc.SetComplianceEnabled(ctx, "c1", false))
	err := svc.Gate(ctx, "c1")
	var confErr *shared.ConfigurationError
	require.ErrorAs(t, err, &confErr)
}

func TestGateUnknownCompany(t *testing.T) {
	svc := newTestService(t, &memoryRepo{companies: map[string]Company{}})
	err := svc.Gate(context.Background(), "missing")
	require.ErrorIs(t, err, shared.ErrNotFound)
}
