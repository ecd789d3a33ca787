package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/sitecomply/sitecomply/internal/companies"
	"github.com/sitecomply/sitecomply/internal/compliance"
	jobmetrics "github.com/sitecomply/sitecomply/internal/jobs"
	"github.com/sitecomply/sitecomply/internal/shared"
)

type stubCompanies struct {
	list []companies.Company
}

func (s *stubCompanies) ListComplianceEnabled(ctx context.Context) ([]companies.Company, error) {
	return s.list, nil
}

// stubEngine records which companies were processed and can be told to fail
// or panic for specific ones.
type stubEngine struct {
	mu           sync.Mutex
	ensured      []string
	transitioned []string
	failEnsure   map[string]error
	panicEnsure  map[string]bool
	periods      map[string][]compliance.Period
}

func (e *stubEngine) EnsurePeriod(ctx context.Context, companyID, periodKey string) (compliance.Period, bool, error) {
	if e.panicEnsure[companyID] {
		panic("engine blew up for " + companyID)
	}
	if err := e.failEnsure[companyID]; err != nil {
		return compliance.Period{}, false, err
	}
	e.mu.Lock()
	e.ensured = append(e.ensured, companyID)
	e.mu.Unlock()
	return compliance.Period{ID: compliance.PeriodIDFor(companyID, periodKey)}, true, nil
}

func (e *stubEngine) ListPeriods(ctx context.Context, companyID string, limit int) ([]compliance.Period, error) {
	return e.periods[companyID], nil
}

func (e *stubEngine) ApplyDateTransitions(ctx context.Context, periodID string, now time.Time) (compliance.Period, error) {
	e.mu.Lock()
	e.transitioned = append(e.transitioned, periodID)
	e.mu.Unlock()
	return compliance.Period{ID: periodID, State: compliance.PeriodClosed}, nil
}

func newPass(t *testing.T, cs *stubCompanies, engine *stubEngine) *Pass {
	t.Helper()
	return NewPass(PassConfig{
		Companies:   cs,
		Engine:      engine,
		Metrics:     jobmetrics.NewMetrics(prometheus.NewRegistry()),
		Concurrency: 2,
	})
}

func TestPassProcessesEveryCompany(t *testing.T) {
	cs := &stubCompanies{list: []companies.Company{{ID: "c1"}, {ID: "c2"}, {ID: "c3"}}}
	engine := &stubEngine{
		periods: map[string][]compliance.Period{
			"c1": {{ID: "c1_2025-02", State: compliance.PeriodInReview}},
			"c3": {{ID: "c3_2025-03", State: compliance.PeriodClosed}},
		},
	}
	pass := newPass(t, cs, engine)

	err := pass.Run(context.Background(), time.Date(2025, 3, 5, 3, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"c1", "c2", "c3"}, engine.ensured)
	// Only the open period moved; the closed one was skipped.
	require.Equal(t, []string{"c1_2025-02"}, engine.transitioned)
}

func TestPassIsolatesCompanyFailures(t *testing.T) {
	cs := &stubCompanies{list: []companies.Company{{ID: "c1"}, {ID: "c2"}, {ID: "c3"}}}
	engine := &stubEngine{
		failEnsure: map[string]error{"c2": errors.New("database on fire")},
	}
	pass := newPass(t, cs, engine)

	err := pass.Run(context.Background(), time.Date(2025, 3, 5, 3, 0, 0, 0, time.UTC))
	require.Error(t, err)

	var step *shared.SchedulerStepError
	require.ErrorAs(t, err, &step)
	require.Equal(t, "c2", step.CompanyID)

	// c1 and c3 were still fully processed.
	require.ElementsMatch(t, []string{"c1", "c3"}, engine.ensured)
}

func TestPassRecoversFromPanic(t *testing.T) {
	cs := &stubCompanies{list: []companies.Company{{ID: "c1"}, {ID: "c2"}}}
	engine := &stubEngine{
		panicEnsure: map[string]bool{"c1": true},
	}
	pass := newPass(t, cs, engine)

	err := pass.Run(context.Background(), time.Date(2025, 3, 5, 3, 0, 0, 0, time.UTC))
	require.Error(t, err)
	require.Contains(t, err.Error(), "panic")
	require.ElementsMatch(t, []string{"c2"}, engine.ensured)
}
