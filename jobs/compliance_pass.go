package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/sitecomply/sitecomply/internal/companies"
	"github.com/sitecomply/sitecomply/internal/compliance"
	jobmetrics "github.com/sitecomply/sitecomply/internal/jobs"
	"github.com/sitecomply/sitecomply/internal/shared"
)

const dailyPassJobName = "compliance_daily_pass"

// passPeriodWindow bounds how far back one pass looks for periods that still
// need transitions. A year covers any plausible scheduler outage.
const passPeriodWindow = 12

// CompanySource lists the tenants the daily pass must visit.
type CompanySource interface {
	ListComplianceEnabled(ctx context.Context) ([]companies.Company, error)
}

// ComplianceEngine is the slice of the compliance service the pass drives.
type ComplianceEngine interface {
	EnsurePeriod(ctx context.Context, companyID, periodKey string) (compliance.Period, bool, error)
	ListPeriods(ctx context.Context, companyID string, limit int) ([]compliance.Period, error)
	ApplyDateTransitions(ctx context.Context, periodID string, now time.Time) (compliance.Period, error)
}

// Pass runs the scheduled compliance sweep: for every compliance-enabled
// company it materialises the current period and applies date-driven
// transitions to every period that has not closed yet. Companies are
// independent; one company failing never stops the others.
type Pass struct {
	companies CompanySource
	engine    ComplianceEngine
	metrics   *jobmetrics.Metrics
	logger    *slog.Logger
	limit     int
}

// PassConfig collects the collaborators of the daily pass.
type PassConfig struct {
	Companies   CompanySource
	Engine      ComplianceEngine
	Metrics     *jobmetrics.Metrics
	Logger      *slog.Logger
	Concurrency int
}

// NewPass constructs a Pass instance.
func NewPass(cfg PassConfig) *Pass {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	limit := cfg.Concurrency
	if limit <= 0 {
		limit = 1
	}
	return &Pass{
		companies: cfg.Companies,
		engine:    cfg.Engine,
		metrics:   cfg.Metrics,
		logger:    logger,
		limit:     limit,
	}
}

// HandleDailyPass adapts Run to an Asynq task handler.
func (p *Pass) HandleDailyPass(ctx context.Context, _ *asynq.Task) error {
	return p.Run(ctx, time.Now().UTC())
}

// Run executes one sweep for the given instant. The returned error aggregates
// per-company failures; a partial failure still means every other company was
// fully processed.
func (p *Pass) Run(ctx context.Context, now time.Time) error {
	tracker := p.metrics.Track(dailyPassJobName)

	list, err := p.companies.ListComplianceEnabled(ctx)
	if err != nil {
		return tracker.End(fmt.Errorf("list companies: %w", err))
	}

	var (
		g, gctx = errgroup.WithContext(ctx)
		errs    = make([]error, len(list))
	)
	g.SetLimit(p.limit)
	for i, company := range list {
		i, company := i, company
		g.Go(func() error {
			if err := p.runCompany(gctx, company.ID, now); err != nil {
				p.metrics.AddCompanyFailure(dailyPassJobName, company.ID)
				p.logger.Error("compliance pass: company failed",
					slog.String("company_id", company.ID),
					slog.Any("error", err))
				errs[i] = &shared.SchedulerStepError{CompanyID: company.ID, Err: err}
			}
			return nil
		})
	}
	// Goroutines only record errors, they never return them: a failing
	// company must not cancel the group.
	_ = g.Wait()

	p.logger.Info("compliance pass finished",
		slog.Time("now", now),
		slog.Int("companies", len(list)))
	return tracker.End(errors.Join(errs...))
}

func (p *Pass) runCompany(ctx context.Context, companyID string, now time.Time) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	if _, _, err := p.engine.EnsurePeriod(ctx, companyID, compliance.PeriodKeyFor(now)); err != nil {
		return fmt.Errorf("ensure period: %w", err)
	}

	periods, err := p.engine.ListPeriods(ctx, companyID, passPeriodWindow)
	if err != nil {
		return fmt.Errorf("list periods: %w", err)
	}
	closed := 0
	for _, period := range periods {
		if period.State == compliance.PeriodClosed {
			continue
		}
		after, err := p.engine.ApplyDateTransitions(ctx, period.ID, now)
		if err != nil {
			return fmt.Errorf("transition period %s: %w", period.ID, err)
		}
		if after.State == compliance.PeriodClosed {
			closed++
		}
	}
	p.metrics.AddPeriodsClosed(companyID, closed)
	return nil
}
