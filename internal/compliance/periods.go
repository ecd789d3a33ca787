package compliance

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sitecomply/sitecomply/internal/platform/db"
	"github.com/sitecomply/sitecomply/internal/shared"
)

// EnsureCurrentPeriod derives the period for the current month, creating it
// if the calendar is configured. The bool reports whether a period exists.
func (s *Service) EnsureCurrentPeriod(ctx context.Context, companyID string) (Period, bool, error) {
	return s.EnsurePeriod(ctx, companyID, PeriodKeyFor(s.now()))
}

// EnsurePeriod creates the period for (company, periodKey) exactly once.
// Calling it again returns the existing period untouched, whatever state it
// has progressed to. A missing calendar month is a recoverable no-op: the
// admin simply has not configured that month yet.
func (s *Service) EnsurePeriod(ctx context.Context, companyID, periodKey string) (Period, bool, error) {
	if err := s.gate.Gate(ctx, companyID); err != nil {
		return Period{}, false, err
	}

	id := PeriodIDFor(companyID, periodKey)
	if p, err := s.repo.GetPeriod(ctx, id); err == nil {
		return p, true, nil
	} else if !errors.Is(err, shared.ErrNotFound) {
		return Period{}, false, err
	}

	year, err := yearOf(periodKey)
	if err != nil {
		return Period{}, false, err
	}

	var (
		period       Period
		monthMissing bool
	)
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		// Re-check under the tx: a concurrent caller may have won the race.
		if existing, err := tx.GetPeriodForUpdate(ctx, id); err == nil {
			period = existing
			return nil
		} else if !errors.Is(err, shared.ErrNotFound) {
			return err
		}

		month, err := tx.CalendarMonth(ctx, companyID, year, periodKey)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				monthMissing = true
				return nil
			}
			return err
		}

		now := s.now().UTC()
		period = Period{
			ID:             id,
			CompanyID:      companyID,
			PeriodKey:      periodKey,
			State:          PeriodOpenForUpload,
			CutoffUpload:   month.CutoffUpload,
			ReviewDeadline: month.ReviewDeadline,
			PaymentDate:    month.PaymentDate,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := tx.InsertPeriod(ctx, period); err != nil {
			if db.IsUniqueViolation(err) {
				// Lost the race after our FOR UPDATE miss; the winner's row stands.
				period, err = tx.GetPeriodForUpdate(ctx, id)
				return err
			}
			return err
		}
		return tx.ConsumeCalendarMonth(ctx, companyID, periodKey)
	})
	if err != nil {
		return Period{}, false, err
	}
	if monthMissing {
		s.logger.Warn("calendar month not configured, skipping period creation",
			slog.String("company_id", companyID),
			slog.String("period_key", periodKey))
		return Period{}, false, nil
	}
	return period, true, nil
}

// ApplyDateTransitions advances the period according to the milestone dates.
// Conditions are evaluated independently so a period can jump straight from
// OpenForUpload to Closed in one pass after a scheduler outage. Closed is
// terminal.
func (s *Service) ApplyDateTransitions(ctx context.Context, periodID string, now time.Time) (Period, error) {
	var out Period
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		p, err := tx.GetPeriodForUpdate(ctx, periodID)
		if err != nil {
			return err
		}
		if p.State == PeriodClosed {
			out = p
			return nil
		}

		if p.State.CanTransition(PeriodInReview) && now.After(p.CutoffUpload) {
			if err := tx.UpdatePeriodState(ctx, p.ID, PeriodInReview, nil, now); err != nil {
				return err
			}
			p.State = PeriodInReview
			s.logger.Info("period moved to review",
				slog.String("period_id", p.ID),
				slog.Time("cutoff_upload", p.CutoffUpload))
		}

		if p.State.CanTransition(PeriodClosed) && !now.Before(p.PaymentDate) {
			if err := s.closeAndFinalize(ctx, tx, &p, now); err != nil {
				return err
			}
		}

		out = p
		return nil
	})
	if err != nil {
		return Period{}, err
	}
	return out, nil
}

// closeAndFinalize assigns a final status to every subcontractor under the
// period and locks it. Anyone not already Compliant becomes NonCompliant by
// the system actor. This is the only automated path to NonCompliant, and it
// is irreversible.
func (s *Service) closeAndFinalize(ctx context.Context, tx TxRepository, p *Period, now time.Time) error {
	statuses, err := tx.ListStatuses(ctx, p.ID)
	if err != nil {
		return err
	}
	bySub := make(map[string]Status, len(statuses))
	for _, st := range statuses {
		bySub[st.SubcontractorID] = st
	}

	subIDs, err := s.subcontractors.ActiveIDs(ctx, p.CompanyID)
	if err != nil {
		return err
	}
	// Finalize existing status rows too, even if their subcontractor has
	// since been deactivated.
	seen := make(map[string]bool, len(subIDs))
	for _, id := range subIDs {
		seen[id] = true
	}
	for id := range bySub {
		if !seen[id] {
			subIDs = append(subIDs, id)
		}
	}

	finalized := 0
	for _, subID := range subIDs {
		if st, ok := bySub[subID]; ok && st.State == StatusCompliant {
			continue
		}
		err := tx.UpsertStatus(ctx, Status{
			PeriodID:        p.ID,
			SubcontractorID: subID,
			State:           StatusNonCompliant,
			AssignedAt:      now,
			AssignedBy:      shared.SystemActor(),
		})
		if err != nil {
			return err
		}
		finalized++
	}

	closedAt := now
	if err := tx.UpdatePeriodState(ctx, p.ID, PeriodClosed, &closedAt, now); err != nil {
		return err
	}
	p.State = PeriodClosed
	p.ClosedAt = &closedAt

	s.logger.Info("period closed",
		slog.String("period_id", p.ID),
		slog.Int("subcontractors", len(subIDs)),
		slog.Int("finalized_non_compliant", finalized))
	return nil
}

// GetPeriod returns one period by id.
func (s *Service) GetPeriod(ctx context.Context, companyID, periodID string) (Period, error) {
	if err := s.gate.Gate(ctx, companyID); err != nil {
		return Period{}, err
	}
	return s.repo.GetPeriod(ctx, periodID)
}

// ListPeriods returns the most recent periods for a company.
func (s *Service) ListPeriods(ctx context.Context, companyID string, limit int) ([]Period, error) {
	if err := s.gate.Gate(ctx, companyID); err != nil {
		return nil, err
	}
	return s.repo.ListPeriods(ctx, companyID, limit)
}
