package compliance

import (
	"context"
	"fmt"
	"time"

	"github.com/sitecomply/sitecomply/internal/calendar"
	"github.com/sitecomply/sitecomply/internal/requirements"
	"github.com/sitecomply/sitecomply/internal/shared"
)

// memoryRepo implements Repository/TxRepository over maps for service tests.
type memoryRepo struct {
	periods  map[string]Period
	months   map[string]calendar.Month
	subs     map[string]Submission
	statuses map[string]Status
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		periods:  make(map[string]Period),
		months:   make(map[string]calendar.Month),
		subs:     make(map[string]Submission),
		statuses: make(map[string]Status),
	}
}

func monthKey(companyID, periodKey string) string { return companyID + "_" + periodKey }
func subKey(periodID, subID, reqID string) string { return periodID + "/" + subID + "/" + reqID }
func statusKey(periodID, subID string) string     { return periodID + "/" + subID }

type memoryTx struct {
	repo *memoryRepo
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryTx{repo: r})
}

func (r *memoryRepo) GetPeriod(ctx context.Context, id string) (Period, error) {
	p, ok := r.periods[id]
	if !ok {
		return Period{}, &shared.NotFoundError{Entity: "period", ID: id}
	}
	return p, nil
}

func (r *memoryRepo) ListPeriods(ctx context.Context, companyID string, limit int) ([]Period, error) {
	var out []Period
	for _, p := range r.periods {
		if p.CompanyID == companyID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memoryRepo) ListSubmissions(ctx context.Context, periodID, subID string) ([]Submission, error) {
	var out []Submission
	for _, s := range r.subs {
		if s.PeriodID != periodID {
			continue
		}
		if subID != "" && s.SubcontractorID != subID {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (r *memoryRepo) GetStatus(ctx context.Context, periodID, subID string) (Status, error) {
	st, ok := r.statuses[statusKey(periodID, subID)]
	if !ok {
		return Status{}, &shared.NotFoundError{Entity: "status", ID: statusKey(periodID, subID)}
	}
	return st, nil
}

func (r *memoryRepo) ListStatuses(ctx context.Context, periodID string) ([]Status, error) {
	var out []Status
	for _, st := range r.statuses {
		if st.PeriodID == periodID {
			out = append(out, st)
		}
	}
	return out, nil
}

func (t *memoryTx) GetPeriodForUpdate(ctx context.Context, id string) (Period, error) {
	return t.repo.GetPeriod(ctx, id)
}

func (t *memoryTx) InsertPeriod(ctx context.Context, p Period) error {
	if _, exists := t.repo.periods[p.ID]; exists {
		return fmt.Errorf("period %s already exists", p.ID)
	}
	t.repo.periods[p.ID] = p
	return nil
}

func (t *memoryTx) UpdatePeriodState(ctx context.Context, id string, state PeriodState, closedAt *time.Time, now time.Time) error {
	p, ok := t.repo.periods[id]
	if !ok {
		return &shared.NotFoundError{Entity: "period", ID: id}
	}
	p.State = state
	p.ClosedAt = closedAt
	p.UpdatedAt = now
	t.repo.periods[id] = p
	return nil
}

func (t *memoryTx) CalendarMonth(ctx context.Context, companyID string, year int, periodKey string) (calendar.Month, error) {
	m, ok := t.repo.months[monthKey(companyID, periodKey)]
	if !ok {
		return calendar.Month{}, &shared.NotFoundError{Entity: "calendar month", ID: monthKey(companyID, periodKey)}
	}
	return m, nil
}

func (t *memoryTx) ConsumeCalendarMonth(ctx context.Context, companyID, periodKey string) error {
	m, ok := t.repo.months[monthKey(companyID, periodKey)]
	if !ok {
		return &shared.NotFoundError{Entity: "calendar month", ID: monthKey(companyID, periodKey)}
	}
	m.Editable = false
	t.repo.months[monthKey(companyID, periodKey)] = m
	return nil
}

func (t *memoryTx) GetSubmissionForUpdate(ctx context.Context, periodID, subID, reqID string) (Submission, error) {
	s, ok := t.repo.subs[subKey(periodID, subID, reqID)]
	if !ok {
		return Submission{}, &shared.NotFoundError{Entity: "submission", ID: subKey(periodID, subID, reqID)}
	}
	return s, nil
}

func (t *memoryTx) InsertSubmission(ctx context.Context, s Submission) error {
	key := subKey(s.PeriodID, s.SubcontractorID, s.RequirementID)
	if _, exists := t.repo.subs[key]; exists {
		return fmt.Errorf("submission %s already exists", key)
	}
	t.repo.subs[key] = s
	return nil
}

func (t *memoryTx) UpdateSubmission(ctx context.Context, s Submission) error {
	key := subKey(s.PeriodID, s.SubcontractorID, s.RequirementID)
	if _, exists := t.repo.subs[key]; !exists {
		return &shared.NotFoundError{Entity: "submission", ID: key}
	}
	t.repo.subs[key] = s
	return nil
}

func (t *memoryTx) ListSubmissions(ctx context.Context, periodID, subID string) ([]Submission, error) {
	return t.repo.ListSubmissions(ctx, periodID, subID)
}

func (t *memoryTx) UpsertStatus(ctx context.Context, st Status) error {
	t.repo.statuses[statusKey(st.PeriodID, st.SubcontractorID)] = st
	return nil
}

func (t *memoryTx) ListStatuses(ctx context.Context, periodID string) ([]Status, error) {
	return t.repo.ListStatuses(ctx, periodID)
}

// --- collaborator stubs ---

type stubGate struct {
	disabled map[string]bool
}

func (g *stubGate) Gate(ctx context.Context, companyID string) error {
	if g.disabled[companyID] {
		return &shared.ConfigurationError{CompanyID: companyID}
	}
	return nil
}

type stubRequirements struct {
	reqs map[string]requirements.Requirement
	ids  []string
}

func (s *stubRequirements) Get(ctx context.Context, companyID, id string) (requirements.Requirement, error) {
	req, ok := s.reqs[id]
	if !ok {
		return requirements.Requirement{}, &shared.NotFoundError{Entity: "requirement", ID: id}
	}
	return req, nil
}

func (s *stubRequirements) ActiveIDs(ctx context.Context, companyID string) ([]string, error) {
	return s.ids, nil
}

type stubSubcontractors struct {
	active     []string
	authorized map[string]string // subcontractor id -> allowed uid
	err        error
}

func (s *stubSubcontractors) ActiveIDs(ctx context.Context, companyID string) ([]string, error) {
	return s.active, s.err
}

func (s *stubSubcontractors) Authorized(ctx context.Context, companyID, id, uid string) (bool, error) {
	return s.authorized[id] == uid, nil
}

type stubDocs struct {
	puts    int
	removed []string
}

func (d *stubDocs) Put(ctx context.Context, path string, data []byte, contentType string) (string, error) {
	d.puts++
	return fmt.Sprintf("ref-%d/%s", d.puts, path), nil
}

func (d *stubDocs) Remove(ctx context.Context, ref string) error {
	d.removed = append(d.removed, ref)
	return nil
}

type recordingNotifier struct {
	received []Submission
	flagged  []Submission
	statuses []Status
}

func (n *recordingNotifier) SubmissionReceived(ctx context.Context, s Submission) {
	n.received = append(n.received, s)
}

func (n *recordingNotifier) SubmissionFlagged(ctx context.Context, s Submission) {
	n.flagged = append(n.flagged, s)
}

func (n *recordingNotifier) StatusAssigned(ctx context.Context, st Status) {
	n.statuses = append(n.statuses, st)
}
