package compliance

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sitecomply/sitecomply/internal/calendar"
	"github.com/sitecomply/sitecomply/internal/requirements"
	"github.com/sitecomply/sitecomply/internal/shared"
)

type fixture struct {
	repo     *memoryRepo
	gate     *stubGate
	reqs     *stubRequirements
	subs     *stubSubcontractors
	docs     *stubDocs
	notifier *recordingNotifier
	svc      *Service
	clock    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo: newMemoryRepo(),
		gate: &stubGate{disabled: map[string]bool{}},
		reqs: &stubRequirements{
			reqs: map[string]requirements.Requirement{
				"reqA": {ID: "reqA", CompanyID: "c1", Name: "F30-1 tax form", Active: true},
				"reqB": {ID: "reqB", CompanyID: "c1", Name: "Payroll ledger", Active: true},
			},
			ids: []string{"reqA", "reqB"},
		},
		subs: &stubSubcontractors{
			active:     []string{"s1", "s2"},
			authorized: map[string]string{"s1": "uid-1", "s2": "uid-2"},
		},
		docs:     &stubDocs{},
		notifier: &recordingNotifier{},
		clock:    time.Date(2025, 3, 5, 10, 0, 0, 0, time.UTC),
	}
	f.svc = NewService(ServiceConfig{
		Repo:           f.repo,
		Gate:           f.gate,
		Requirements:   f.reqs,
		Subcontractors: f.subs,
		Docs:           f.docs,
		Notifier:       f.notifier,
		Logger:         slog.Default(),
	})
	f.svc.WithNow(func() time.Time { return f.clock })
	return f
}

func (f *fixture) addMonth(companyID, periodKey string, cutoff, review, payment time.Time) {
	f.repo.months[monthKey(companyID, periodKey)] = calendar.Month{
		CompanyID:      companyID,
		PeriodKey:      periodKey,
		CutoffUpload:   cutoff,
		ReviewDeadline: review,
		PaymentDate:    payment,
		Editable:       true,
	}
}

func (f *fixture) marchMonth() {
	f.addMonth("c1", "2025-03",
		time.Date(2025, 3, 10, 23, 59, 59, 0, time.UTC),
		time.Date(2025, 3, 20, 23, 59, 59, 0, time.UTC),
		time.Date(2025, 3, 28, 0, 0, 0, 0, time.UTC))
}

func (f *fixture) ensureMarch(t *testing.T) Period {
	t.Helper()
	p, ok, err := f.svc.EnsurePeriod(context.Background(), "c1", "2025-03")
	require.NoError(t, err)
	require.True(t, ok)
	return p
}

func (f *fixture) submit(t *testing.T, periodID, subID, reqID, uid string) Submission {
	t.Helper()
	sub, err := f.svc.Submit(context.Background(), SubmitInput{
		CompanyID:       "c1",
		PeriodID:        periodID,
		SubcontractorID: subID,
		RequirementID:   reqID,
		FileName:        "doc.pdf",
		Data:            []byte("pdf-bytes"),
		ContentType:     "application/pdf",
		UID:             uid,
	})
	require.NoError(t, err)
	return sub
}

func TestPeriodKeyDerivation(t *testing.T) {
	require.Equal(t, "2025-03", PeriodKeyFor(time.Date(2025, 3, 15, 23, 0, 0, 0, time.UTC)))

	// Month boundary: one second before and after midnight land in
	// different periods.
	feb := PeriodKeyFor(time.Date(2025, 2, 28, 23, 59, 59, 0, time.UTC))
	mar := PeriodKeyFor(time.Date(2025, 3, 1, 0, 0, 1, 0, time.UTC))
	require.Equal(t, "2025-02", feb)
	require.Equal(t, "2025-03", mar)
	require.NotEqual(t, feb, mar)

	// Derivation is over the UTC calendar, whatever zone the instant carries.
	lima := time.FixedZone("lima", -5*3600)
	require.Equal(t, "2025-04", PeriodKeyFor(time.Date(2025, 3, 31, 23, 0, 0, 0, lima)))
}

func TestEnsurePeriodCreatesFromCalendar(t *testing.T) {
	f := newFixture(t)
	f.marchMonth()

	p := f.ensureMarch(t)
	require.Equal(t, "c1_2025-03", p.ID)
	require.Equal(t, PeriodOpenForUpload, p.State)
	require.Equal(t, time.Date(2025, 3, 28, 0, 0, 0, 0, time.UTC), p.PaymentDate)

	// The source month is consumed and frozen.
	require.False(t, f.repo.months[monthKey("c1", "2025-03")].Editable)
}

func TestEnsurePeriodIdempotent(t *testing.T) {
	f := newFixture(t)
	f.marchMonth()
	first := f.ensureMarch(t)

	// Progress the period, then ensure again: same id, state untouched.
	f.clock = time.Date(2025, 3, 12, 8, 0, 0, 0, time.UTC)
	_, err := f.svc.ApplyDateTransitions(context.Background(), first.ID, f.clock)
	require.NoError(t, err)

	again := f.ensureMarch(t)
	require.Equal(t, first.ID, again.ID)
	require.Equal(t, PeriodInReview, again.State)
}

func TestEnsurePeriodMissingMonthIsRecoverable(t *testing.T) {
	f := newFixture(t)

	p, ok, err := f.svc.EnsurePeriod(context.Background(), "c1", "2025-07")
	require.NoError(t, err)
	require.False(t, ok)
	require.Empty(t, p.ID)
}

func TestEnsurePeriodRequiresModuleEnabled(t *testing.T) {
	f := newFixture(t)
	f.gate.disabled["c1"] = true
	f.marchMonth()

	_, _, err := f.svc.EnsurePeriod(context.Background(), "c1", "2025-03")
	var confErr *shared.ConfigurationError
	require.ErrorAs(t, err, &confErr)
	// Fail fast: no period row was created.
	require.Empty(t, f.repo.periods)
}

func TestTransitionsFollowDates(t *testing.T) {
	f := newFixture(t)
	f.marchMonth()
	p := f.ensureMarch(t)
	ctx := context.Background()

	// Before the cutoff nothing moves.
	got, err := f.svc.ApplyDateTransitions(ctx, p.ID, time.Date(2025, 3, 8, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Equal(t, PeriodOpenForUpload, got.State)

	// Past the cutoff the period moves to review.
	got, err = f.svc.ApplyDateTransitions(ctx, p.ID, time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Equal(t, PeriodInReview, got.State)

	// On the payment date the period closes.
	got, err = f.svc.ApplyDateTransitions(ctx, p.ID, time.Date(2025, 3, 28, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Equal(t, PeriodClosed, got.State)
	require.NotNil(t, got.ClosedAt)
}

func TestTransitionsJumpStraightToClosed(t *testing.T) {
	f := newFixture(t)
	f.marchMonth()
	p := f.ensureMarch(t)

	// One pass long after every milestone, as after a scheduler outage.
	got, err := f.svc.ApplyDateTransitions(context.Background(), p.ID, time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Equal(t, PeriodClosed, got.State)
}

func TestClosedIsTerminal(t *testing.T) {
	f := newFixture(t)
	f.marchMonth()
	p := f.ensureMarch(t)
	ctx := context.Background()

	closeTime := time.Date(2025, 3, 28, 0, 0, 0, 0, time.UTC)
	_, err := f.svc.ApplyDateTransitions(ctx, p.ID, closeTime)
	require.NoError(t, err)
	finalized := f.repo.statuses[statusKey(p.ID, "s1")]

	// Another pass later changes nothing: no reopen, no re-finalization.
	got, err := f.svc.ApplyDateTransitions(ctx, p.ID, closeTime.Add(24*time.Hour))
	require.NoError(t, err)
	require.Equal(t, PeriodClosed, got.State)
	require.Equal(t, finalized.AssignedAt, f.repo.statuses[statusKey(p.ID, "s1")].AssignedAt)
}

func TestCloseFinalizesEverySubcontractor(t *testing.T) {
	f := newFixture(t)
	f.marchMonth()
	p := f.ensureMarch(t)
	ctx := context.Background()

	// s1 files everything and gets confirmed before the close.
	f.submit(t, p.ID, "s1", "reqA", "uid-1")
	f.submit(t, p.ID, "s1", "reqB", "uid-1")
	_, err := f.svc.ConfirmCompliant(ctx, "c1", p.ID, "s1", "admin-9")
	require.NoError(t, err)

	_, err = f.svc.ApplyDateTransitions(ctx, p.ID, time.Date(2025, 3, 28, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	s1 := f.repo.statuses[statusKey(p.ID, "s1")]
	require.Equal(t, StatusCompliant, s1.State)
	require.False(t, s1.AssignedBy.IsSystem())
	uid, ok := s1.AssignedBy.UID()
	require.True(t, ok)
	require.Equal(t, "admin-9", uid)

	// s2 never filed anything: finalized NonCompliant by the system actor.
	s2 := f.repo.statuses[statusKey(p.ID, "s2")]
	require.Equal(t, StatusNonCompliant, s2.State)
	require.True(t, s2.AssignedBy.IsSystem())
}

func TestSubmitHappyPath(t *testing.T) {
	f := newFixture(t)
	f.marchMonth()
	p := f.ensureMarch(t)

	sub := f.submit(t, p.ID, "s1", "reqA", "uid-1")
	require.Equal(t, SubmissionUploaded, sub.State)
	require.Equal(t, "F30-1 tax form", sub.DocumentName)
	require.Equal(t, "uid-1", sub.SubmittedBy)
	require.NotEmpty(t, sub.StorageRef)
	require.Len(t, f.notifier.received, 1)
}

func TestSubmitDuplicateConflicts(t *testing.T) {
	f := newFixture(t)
	f.marchMonth()
	p := f.ensureMarch(t)

	f.submit(t, p.ID, "s1", "reqA", "uid-1")

	_, err := f.svc.Submit(context.Background(), SubmitInput{
		CompanyID: "c1", PeriodID: p.ID, SubcontractorID: "s1", RequirementID: "reqA",
		FileName: "doc.pdf", Data: []byte("x"), ContentType: "application/pdf", UID: "uid-1",
	})
	var conflict *shared.StateConflictError
	require.ErrorAs(t, err, &conflict)
	require.Equal(t, string(SubmissionUploaded), conflict.State)

	// The rejected upload's bytes must not linger in the store.
	require.Equal(t, 2, f.docs.puts)
	require.Len(t, f.docs.removed, 1)
	require.Contains(t, f.docs.removed[0], "ref-2/")
}

func TestSubmitAfterFlagOverwritesInPlace(t *testing.T) {
	f := newFixture(t)
	f.marchMonth()
	p := f.ensureMarch(t)
	ctx := context.Background()

	first := f.submit(t, p.ID, "s1", "reqA", "uid-1")

	_, err := f.svc.Flag(ctx, FlagInput{
		CompanyID: "c1", PeriodID: p.ID, SubcontractorID: "s1", RequirementID: "reqA",
		ReviewerUID: "admin-9", Note: "document is expired",
	})
	require.NoError(t, err)

	f.clock = f.clock.Add(2 * time.Hour)
	second := f.submit(t, p.ID, "s1", "reqA", "uid-1")

	require.Equal(t, SubmissionUploaded, second.State)
	require.NotEqual(t, first.StorageRef, second.StorageRef)
	require.True(t, second.SubmittedAt.After(first.SubmittedAt))

	// Same identity: still exactly one record for the key.
	subs, err := f.svc.ListSubmissions(ctx, "c1", p.ID, "s1")
	require.NoError(t, err)
	require.Len(t, subs, 1)
	require.Empty(t, subs[0].FlagNote)
}

func TestSubmitRejectedAfterCutoff(t *testing.T) {
	f := newFixture(t)
	f.marchMonth()
	p := f.ensureMarch(t)
	ctx := context.Background()

	_, err := f.svc.ApplyDateTransitions(ctx, p.ID, time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	_, err = f.svc.Submit(ctx, SubmitInput{
		CompanyID: "c1", PeriodID: p.ID, SubcontractorID: "s1", RequirementID: "reqA",
		FileName: "doc.pdf", Data: []byte("x"), ContentType: "application/pdf", UID: "uid-1",
	})
	var conflict *shared.StateConflictError
	require.ErrorAs(t, err, &conflict)
	require.Equal(t, string(PeriodInReview), conflict.State)
}

func TestSubmitUnauthorizedUID(t *testing.T) {
	f := newFixture(t)
	f.marchMonth()
	p := f.ensureMarch(t)

	_, err := f.svc.Submit(context.Background(), SubmitInput{
		CompanyID: "c1", PeriodID: p.ID, SubcontractorID: "s1", RequirementID: "reqA",
		FileName: "doc.pdf", Data: []byte("x"), ContentType: "application/pdf", UID: "uid-2",
	})
	var conflict *shared.StateConflictError
	require.ErrorAs(t, err, &conflict)
	require.Equal(t, "unauthorized", conflict.State)
	require.Zero(t, f.docs.puts)
}

func TestFlagRequiresUploadedState(t *testing.T) {
	f := newFixture(t)
	f.marchMonth()
	p := f.ensureMarch(t)
	ctx := context.Background()

	_, err := f.svc.Flag(ctx, FlagInput{
		CompanyID: "c1", PeriodID: p.ID, SubcontractorID: "s1", RequirementID: "reqA",
		ReviewerUID: "admin-9",
	})
	require.ErrorIs(t, err, shared.ErrNotFound)

	f.submit(t, p.ID, "s1", "reqA", "uid-1")
	_, err = f.svc.Flag(ctx, FlagInput{
		CompanyID: "c1", PeriodID: p.ID, SubcontractorID: "s1", RequirementID: "reqA",
		ReviewerUID: "admin-9", Note: "illegible scan",
	})
	require.NoError(t, err)

	// Flagging twice conflicts.
	_, err = f.svc.Flag(ctx, FlagInput{
		CompanyID: "c1", PeriodID: p.ID, SubcontractorID: "s1", RequirementID: "reqA",
		ReviewerUID: "admin-9",
	})
	var conflict *shared.StateConflictError
	require.ErrorAs(t, err, &conflict)
	require.Equal(t, string(SubmissionFlagged), conflict.State)
}

func TestEvaluateSuggestedScenarios(t *testing.T) {
	f := newFixture(t)
	f.marchMonth()
	p := f.ensureMarch(t)
	ctx := context.Background()

	// No submissions at all.
	ev, err := f.svc.EvaluateSuggested(ctx, "c1", p.ID, "s1")
	require.NoError(t, err)
	require.Equal(t, SuggestedNonCompliant, ev.Result)
	require.ElementsMatch(t, []string{"reqA", "reqB"}, ev.Pending)

	// Only A uploaded.
	f.submit(t, p.ID, "s1", "reqA", "uid-1")
	ev, err = f.svc.EvaluateSuggested(ctx, "c1", p.ID, "s1")
	require.NoError(t, err)
	require.Equal(t, SuggestedNonCompliant, ev.Result)
	require.Equal(t, []string{"reqB"}, ev.Pending)

	// A and B uploaded.
	f.submit(t, p.ID, "s1", "reqB", "uid-1")
	ev, err = f.svc.EvaluateSuggested(ctx, "c1", p.ID, "s1")
	require.NoError(t, err)
	require.Equal(t, SuggestedReady, ev.Result)
	require.Empty(t, ev.Pending)
	require.Empty(t, ev.Flagged)

	// B flagged.
	_, err = f.svc.Flag(ctx, FlagInput{
		CompanyID: "c1", PeriodID: p.ID, SubcontractorID: "s1", RequirementID: "reqB",
		ReviewerUID: "admin-9", Note: "wrong month",
	})
	require.NoError(t, err)
	ev, err = f.svc.EvaluateSuggested(ctx, "c1", p.ID, "s1")
	require.NoError(t, err)
	require.Equal(t, SuggestedNonCompliant, ev.Result)
	require.Equal(t, []string{"reqB"}, ev.Flagged)
}

func TestConfirmRequiresEligibility(t *testing.T) {
	f := newFixture(t)
	f.marchMonth()
	p := f.ensureMarch(t)
	ctx := context.Background()

	f.submit(t, p.ID, "s1", "reqA", "uid-1")

	_, err := f.svc.ConfirmCompliant(ctx, "c1", p.ID, "s1", "admin-9")
	var eligibility *shared.EligibilityError
	require.ErrorAs(t, err, &eligibility)
	require.Equal(t, []string{"reqB"}, eligibility.Pending)

	// Nothing was written.
	_, err = f.svc.GetStatus(ctx, "c1", p.ID, "s1")
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestConfirmCompliantWritesStatus(t *testing.T) {
	f := newFixture(t)
	f.marchMonth()
	p := f.ensureMarch(t)
	ctx := context.Background()

	f.submit(t, p.ID, "s1", "reqA", "uid-1")
	f.submit(t, p.ID, "s1", "reqB", "uid-1")

	st, err := f.svc.ConfirmCompliant(ctx, "c1", p.ID, "s1", "admin-9")
	require.NoError(t, err)
	require.Equal(t, StatusCompliant, st.State)
	require.False(t, st.AssignedBy.IsSystem())
	require.Len(t, f.notifier.statuses, 1)
}

func TestMarkNonCompliantByAdmin(t *testing.T) {
	f := newFixture(t)
	f.marchMonth()
	p := f.ensureMarch(t)
	ctx := context.Background()

	st, err := f.svc.MarkNonCompliant(ctx, "c1", p.ID, "s1", shared.HumanActor("admin-9"))
	require.NoError(t, err)
	require.Equal(t, StatusNonCompliant, st.State)
	require.Equal(t, "admin-9", st.AssignedBy.String())

	// Requires an actor.
	_, err = f.svc.MarkNonCompliant(ctx, "c1", p.ID, "s2", shared.Actor{})
	require.Error(t, err)
}

func TestMarkNonCompliantRejectedOnClosedPeriod(t *testing.T) {
	f := newFixture(t)
	f.marchMonth()
	p := f.ensureMarch(t)
	ctx := context.Background()

	_, err := f.svc.ApplyDateTransitions(ctx, p.ID, time.Date(2025, 3, 28, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	_, err = f.svc.MarkNonCompliant(ctx, "c1", p.ID, "s1", shared.HumanActor("admin-9"))
	var conflict *shared.StateConflictError
	require.ErrorAs(t, err, &conflict)
	require.Equal(t, string(PeriodClosed), conflict.State)
}
