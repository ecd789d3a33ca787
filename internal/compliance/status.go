package compliance

import (
	"context"
	"log/slog"

	"github.com/sitecomply/sitecomply/internal/shared"
)

// evaluate computes the suggested status for one subcontractor against the
// required requirement ids. Pure function over its inputs.
func evaluate(subs []Submission, requiredIDs []string) Evaluation {
	byReq := make(map[string]Submission, len(subs))
	for _, sub := range subs {
		byReq[sub.RequirementID] = sub
	}

	var ev Evaluation
	for _, reqID := range requiredIDs {
		sub, ok := byReq[reqID]
		switch {
		case !ok:
			ev.Pending = append(ev.Pending, reqID)
		case sub.State == SubmissionFlagged:
			ev.Flagged = append(ev.Flagged, reqID)
		}
	}
	if len(ev.Pending) > 0 || len(ev.Flagged) > 0 {
		ev.Result = SuggestedNonCompliant
	} else {
		ev.Result = SuggestedReady
	}
	return ev
}

// EvaluateSuggested recomputes the advisory status for a subcontractor. It
// never writes anything; ReadyToComply only means a human may now confirm.
func (s *Service) EvaluateSuggested(ctx context.Context, companyID, periodID, subcontractorID string) (Evaluation, error) {
	if err := s.gate.Gate(ctx, companyID); err != nil {
		return Evaluation{}, err
	}
	requiredIDs, err := s.requirements.ActiveIDs(ctx, companyID)
	if err != nil {
		return Evaluation{}, err
	}
	subs, err := s.repo.ListSubmissions(ctx, periodID, subcontractorID)
	if err != nil {
		return Evaluation{}, err
	}
	return evaluate(subs, requiredIDs), nil
}

// ConfirmCompliant grants Compliant after re-running the evaluation inside
// the same transaction that writes the status, with the period row locked.
// Compliance is never granted automatically and never granted stale: a flag
// landing concurrently aborts the confirmation.
func (s *Service) ConfirmCompliant(ctx context.Context, companyID, periodID, subcontractorID, adminUID string) (Status, error) {
	if err := s.gate.Gate(ctx, companyID); err != nil {
		return Status{}, err
	}
	requiredIDs, err := s.requirements.ActiveIDs(ctx, companyID)
	if err != nil {
		return Status{}, err
	}

	var out Status
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		p, err := tx.GetPeriodForUpdate(ctx, periodID)
		if err != nil {
			return err
		}
		if p.State == PeriodClosed {
			return &shared.StateConflictError{
				Entity: "period",
				ID:     p.ID,
				State:  string(p.State),
				Reason: "period already closed",
			}
		}

		subs, err := tx.ListSubmissions(ctx, periodID, subcontractorID)
		if err != nil {
			return err
		}
		ev := evaluate(subs, requiredIDs)
		if ev.Result != SuggestedReady {
			return &shared.EligibilityError{
				PeriodID:        periodID,
				SubcontractorID: subcontractorID,
				Pending:         ev.Pending,
				Flagged:         ev.Flagged,
			}
		}

		out = Status{
			PeriodID:        periodID,
			SubcontractorID: subcontractorID,
			State:           StatusCompliant,
			AssignedAt:      s.now().UTC(),
			AssignedBy:      shared.HumanActor(adminUID),
		}
		return tx.UpsertStatus(ctx, out)
	})
	if err != nil {
		return Status{}, err
	}

	s.logger.Info("compliance confirmed",
		slog.String("period_id", periodID),
		slog.String("subcontractor_id", subcontractorID),
		slog.String("admin_uid", adminUID))
	s.notifier.StatusAssigned(ctx, out)
	return out, nil
}

// MarkNonCompliant is the unconditional administrative write. The closing
// step uses its own internal path; this one refuses closed periods.
func (s *Service) MarkNonCompliant(ctx context.Context, companyID, periodID, subcontractorID string, actor shared.Actor) (Status, error) {
	if err := s.gate.Gate(ctx, companyID); err != nil {
		return Status{}, err
	}
	if actor.IsZero() {
		return Status{}, &shared.StateConflictError{
			Entity: "status",
			ID:     periodID + "/" + subcontractorID,
			State:  "unassigned",
			Reason: "an actor is required",
		}
	}

	var out Status
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		p, err := tx.GetPeriodForUpdate(ctx, periodID)
		if err != nil {
			return err
		}
		if p.State == PeriodClosed {
			return &shared.StateConflictError{
				Entity: "period",
				ID:     p.ID,
				State:  string(p.State),
				Reason: "period already closed",
			}
		}
		out = Status{
			PeriodID:        periodID,
			SubcontractorID: subcontractorID,
			State:           StatusNonCompliant,
			AssignedAt:      s.now().UTC(),
			AssignedBy:      actor,
		}
		return tx.UpsertStatus(ctx, out)
	})
	if err != nil {
		return Status{}, err
	}

	s.notifier.StatusAssigned(ctx, out)
	return out, nil
}

// GetStatus returns the authoritative status, or NotFound while undetermined.
func (s *Service) GetStatus(ctx context.Context, companyID, periodID, subcontractorID string) (Status, error) {
	if err := s.gate.Gate(ctx, companyID); err != nil {
		return Status{}, err
	}
	return s.repo.GetStatus(ctx, periodID, subcontractorID)
}

// ListStatuses returns every assigned status under a period.
func (s *Service) ListStatuses(ctx context.Context, companyID, periodID string) ([]Status, error) {
	if err := s.gate.Gate(ctx, companyID); err != nil {
		return nil, err
	}
	return s.repo.ListStatuses(ctx, periodID)
}
