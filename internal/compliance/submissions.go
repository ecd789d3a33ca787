package compliance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"

	"github.com/google/uuid"

	"github.com/sitecomply/sitecomply/internal/platform/db"
	"github.com/sitecomply/sitecomply/internal/shared"
)

// Submit files a document for (period, subcontractor, requirement). At most
// one active submission exists per key: a second upload while one is Uploaded
// conflicts, while a Flagged one is overwritten in place with the new content.
// The state check and the write happen inside the same transaction that locks
// the period row, so a submission can never slip into a period the scheduler
// is closing at the same moment.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (Submission, error) {
	if err := s.gate.Gate(ctx, in.CompanyID); err != nil {
		return Submission{}, err
	}

	ok, err := s.subcontractors.Authorized(ctx, in.CompanyID, in.SubcontractorID, in.UID)
	if err != nil {
		return Submission{}, err
	}
	if !ok {
		return Submission{}, &shared.StateConflictError{
			Entity: "subcontractor",
			ID:     in.SubcontractorID,
			State:  "unauthorized",
			Reason: fmt.Sprintf("uid %s may not upload for this subcontractor", in.UID),
		}
	}

	req, err := s.requirements.Get(ctx, in.CompanyID, in.RequirementID)
	if err != nil {
		return Submission{}, err
	}
	if !req.Active {
		return Submission{}, &shared.StateConflictError{
			Entity: "requirement",
			ID:     in.RequirementID,
			State:  "inactive",
			Reason: "requirement no longer applies",
		}
	}

	// Fail fast before uploading bytes; the authoritative check repeats
	// inside the transaction below.
	period, err := s.repo.GetPeriod(ctx, in.PeriodID)
	if err != nil {
		return Submission{}, err
	}
	if period.State != PeriodOpenForUpload {
		return Submission{}, uploadClosedErr(period)
	}

	storagePath := path.Join(in.CompanyID, in.PeriodID, in.SubcontractorID, in.RequirementID,
		uuid.NewString()+"_"+path.Base(in.FileName))
	ref, err := s.docs.Put(ctx, storagePath, in.Data, in.ContentType)
	if err != nil {
		return Submission{}, &shared.TransientIOError{Op: "store document", Err: err}
	}

	var out Submission
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		p, err := tx.GetPeriodForUpdate(ctx, in.PeriodID)
		if err != nil {
			return err
		}
		if p.State != PeriodOpenForUpload {
			return uploadClosedErr(p)
		}

		now := s.now().UTC()
		sub := Submission{
			PeriodID:        in.PeriodID,
			SubcontractorID: in.SubcontractorID,
			RequirementID:   in.RequirementID,
			DocumentName:    req.Name,
			StorageRef:      ref,
			ContentType:     in.ContentType,
			State:           SubmissionUploaded,
			SubmittedAt:     now,
			SubmittedBy:     in.UID,
		}

		existing, err := tx.GetSubmissionForUpdate(ctx, in.PeriodID, in.SubcontractorID, in.RequirementID)
		switch {
		case errors.Is(err, shared.ErrNotFound):
			if err := tx.InsertSubmission(ctx, sub); err != nil {
				if db.IsUniqueViolation(err) {
					return alreadySubmittedErr(sub)
				}
				return err
			}
		case err != nil:
			return err
		case existing.State == SubmissionUploaded:
			return alreadySubmittedErr(existing)
		default:
			// Flagged: the new document supersedes in place, same identity.
			if err := tx.UpdateSubmission(ctx, sub); err != nil {
				return err
			}
		}
		out = sub
		return nil
	})
	if err != nil {
		// The bytes went out before the transaction; without a submission
		// row nothing references them, so best-effort cleanup.
		if rmErr := s.docs.Remove(ctx, ref); rmErr != nil {
			s.logger.Warn("orphaned document left in store",
				slog.String("storage_ref", ref),
				slog.String("error", rmErr.Error()))
		}
		return Submission{}, err
	}

	s.notifier.SubmissionReceived(ctx, out)
	return out, nil
}

// Flag marks an uploaded submission as observed during review, opening the
// resubmission window for that requirement.
func (s *Service) Flag(ctx context.Context, in FlagInput) (Submission, error) {
	if err := s.gate.Gate(ctx, in.CompanyID); err != nil {
		return Submission{}, err
	}

	var out Submission
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		p, err := tx.GetPeriodForUpdate(ctx, in.PeriodID)
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

		sub, err := tx.GetSubmissionForUpdate(ctx, in.PeriodID, in.SubcontractorID, in.RequirementID)
		if err != nil {
			return err
		}
		if sub.State != SubmissionUploaded {
			return &shared.StateConflictError{
				Entity: "submission",
				ID:     submissionID(sub),
				State:  string(sub.State),
				Reason: "only uploaded submissions can be flagged",
			}
		}

		now := s.now().UTC()
		sub.State = SubmissionFlagged
		sub.FlagNote = in.Note
		sub.FlaggedBy = in.ReviewerUID
		sub.FlaggedAt = &now
		if err := tx.UpdateSubmission(ctx, sub); err != nil {
			return err
		}
		out = sub
		return nil
	})
	if err != nil {
		return Submission{}, err
	}

	s.notifier.SubmissionFlagged(ctx, out)
	return out, nil
}

// ListSubmissions returns submissions for a period, optionally for one
// subcontractor.
func (s *Service) ListSubmissions(ctx context.Context, companyID, periodID, subcontractorID string) ([]Submission, error) {
	if err := s.gate.Gate(ctx, companyID); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetPeriod(ctx, periodID); err != nil {
		return nil, err
	}
	return s.repo.ListSubmissions(ctx, periodID, subcontractorID)
}

func submissionID(s Submission) string {
	return s.PeriodID + "/" + s.SubcontractorID + "/" + s.RequirementID
}

func uploadClosedErr(p Period) error {
	return &shared.StateConflictError{
		Entity: "period",
		ID:     p.ID,
		State:  string(p.State),
		Reason: "uploads are only accepted while the period is open",
	}
}

func alreadySubmittedErr(s Submission) error {
	return &shared.StateConflictError{
		Entity: "submission",
		ID:     submissionID(s),
		State:  string(SubmissionUploaded),
		Reason: "already submitted; request a review flag to resubmit",
	}
}
