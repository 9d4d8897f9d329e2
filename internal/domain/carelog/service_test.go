package carelog

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// =========== Mock Repositories ===========

type mockDraftRepo struct {
	drafts map[uuid.UUID]*CareLogDraft
}

func newMockDraftRepo() *mockDraftRepo {
	return &mockDraftRepo{drafts: make(map[uuid.UUID]*CareLogDraft)}
}

func (m *mockDraftRepo) Create(ctx context.Context, d *CareLogDraft) error {
	for _, existing := range m.drafts {
		if existing.CareRecipientID == d.CareRecipientID && existing.LogDate == d.LogDate &&
			existing.Status != StatusInvalidated {
			return ErrDraftExists
		}
	}
	d.ID = uuid.New()
	d.CreatedAt = time.Now()
	d.UpdatedAt = d.CreatedAt
	cp := *d
	m.drafts[d.ID] = &cp
	return nil
}

func (m *mockDraftRepo) GetByID(ctx context.Context, id uuid.UUID) (*CareLogDraft, error) {
	d, ok := m.drafts[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *d
	cp.CompletedSections = make(map[string]SectionAudit, len(d.CompletedSections))
	for k, v := range d.CompletedSections {
		cp.CompletedSections[k] = v
	}
	return &cp, nil
}

func (m *mockDraftRepo) GetByCaregiverDate(ctx context.Context, caregiverID, logDate string) (*CareLogDraft, error) {
	for _, d := range m.drafts {
		if d.CaregiverID == caregiverID && d.LogDate == logDate && d.Status != StatusInvalidated {
			return m.GetByID(ctx, d.ID)
		}
	}
	return nil, ErrNotFound
}

func (m *mockDraftRepo) GetByRecipientDate(ctx context.Context, recipientID uuid.UUID, logDate string) (*CareLogDraft, error) {
	for _, d := range m.drafts {
		if d.CareRecipientID == recipientID && d.LogDate == logDate && d.Status != StatusInvalidated {
			return m.GetByID(ctx, d.ID)
		}
	}
	return nil, ErrNotFound
}

func (m *mockDraftRepo) UpdateSections(ctx context.Context, id uuid.UUID, sections SectionData) error {
	d, ok := m.drafts[id]
	if !ok {
		return ErrNotFound
	}
	d.Sections = sections
	d.UpdatedAt = time.Now()
	return nil
}

func (m *mockDraftRepo) UpdateCompletedSections(ctx context.Context, id uuid.UUID, completed map[string]SectionAudit) error {
	d, ok := m.drafts[id]
	if !ok {
		return ErrNotFound
	}
	d.CompletedSections = completed
	d.UpdatedAt = time.Now()
	return nil
}

func (m *mockDraftRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status DraftStatus) error {
	d, ok := m.drafts[id]
	if !ok {
		return ErrNotFound
	}
	d.Status = status
	d.UpdatedAt = time.Now()
	return nil
}

type mockHistoryRepo struct {
	entries []*HistoryEntry
}

func (m *mockHistoryRepo) Append(ctx context.Context, e *HistoryEntry) error {
	e.ID = uuid.New()
	e.CreatedAt = time.Now()
	m.entries = append(m.entries, e)
	return nil
}

func (m *mockHistoryRepo) ListByDraft(ctx context.Context, careLogID uuid.UUID, limit, offset int) ([]*HistoryEntry, int, error) {
	var matched []*HistoryEntry
	for _, e := range m.entries {
		if e.CareLogID == careLogID {
			matched = append(matched, e)
		}
	}
	total := len(matched)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func (m *mockHistoryRepo) actions() []string {
	out := make([]string, len(m.entries))
	for i, e := range m.entries {
		out[i] = e.Action
	}
	return out
}

type failingHistoryRepo struct {
	mockHistoryRepo
}

func (m *failingHistoryRepo) Append(ctx context.Context, e *HistoryEntry) error {
	return errors.New("history table unavailable")
}

func newTestService() (*Service, *mockDraftRepo, *mockHistoryRepo) {
	drafts := newMockDraftRepo()
	history := &mockHistoryRepo{}
	return NewService(drafts, history), drafts, history
}

func newTestDraft(t *testing.T, s *Service) *CareLogDraft {
	t.Helper()
	d := &CareLogDraft{
		CareRecipientID: uuid.New(),
		CaregiverID:     "caregiver-1",
		LogDate:         "2026-08-30",
	}
	if err := s.CreateDraft(context.Background(), d); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return d
}

// =========== Draft Lifecycle ===========

func TestCreateDraftDefaults(t *testing.T) {
	s, _, history := newTestService()
	d := newTestDraft(t, s)
	if d.Status != StatusDraft {
		t.Errorf("expected draft status, got %s", d.Status)
	}
	if d.ID == uuid.Nil {
		t.Error("expected generated id")
	}
	if len(history.entries) != 1 || history.entries[0].Action != ActionCreated {
		t.Errorf("expected created history row, got %v", history.actions())
	}
}

func TestCreateDraftValidation(t *testing.T) {
	s, _, _ := newTestService()
	cases := []*CareLogDraft{
		{CaregiverID: "c1", LogDate: "2026-08-30"},
		{CareRecipientID: uuid.New(), LogDate: "2026-08-30"},
		{CareRecipientID: uuid.New(), CaregiverID: "c1", LogDate: "30/08/2026"},
	}
	for i, d := range cases {
		if err := s.CreateDraft(context.Background(), d); err == nil {
			t.Errorf("case %d: expected validation error", i)
		}
	}
}

func TestCreateDraftDuplicateDay(t *testing.T) {
	s, _, _ := newTestService()
	d := newTestDraft(t, s)
	dup := &CareLogDraft{CareRecipientID: d.CareRecipientID, CaregiverID: "caregiver-2", LogDate: d.LogDate}
	if err := s.CreateDraft(context.Background(), dup); !errors.Is(err, ErrDraftExists) {
		t.Fatalf("expected ErrDraftExists, got %v", err)
	}
}

func TestInvalidateFreesTheDay(t *testing.T) {
	s, _, history := newTestService()
	d := newTestDraft(t, s)
	if err := s.Invalidate(context.Background(), d.ID, "admin-1", "wrong recipient"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	replacement := &CareLogDraft{CareRecipientID: d.CareRecipientID, CaregiverID: "caregiver-1", LogDate: d.LogDate}
	if err := s.CreateDraft(context.Background(), replacement); err != nil {
		t.Fatalf("expected replacement draft to be allowed: %v", err)
	}
	found := false
	for _, e := range history.entries {
		if e.Action == ActionInvalidated && e.Details != nil && *e.Details == "wrong recipient" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected invalidated history row with reason, got %v", history.actions())
	}
}

func TestSaveSectionsFrozenAfterSubmit(t *testing.T) {
	s, drafts, _ := newTestService()
	d := newTestDraft(t, s)
	drafts.drafts[d.ID].Status = StatusSubmitted
	_, err := s.SaveSections(context.Background(), d.ID, "caregiver-1", SectionData{Notes: "late edit"})
	if !errors.Is(err, ErrDraftImmutable) {
		t.Fatalf("expected ErrDraftImmutable, got %v", err)
	}
}

func TestSaveSectionsPreservesCompletedSections(t *testing.T) {
	s, drafts, _ := newTestService()
	d := newTestDraft(t, s)
	drafts.drafts[d.ID].CompletedSections[GroupMorning] = SectionAudit{SubmittedBy: "caregiver-1"}

	if _, err := s.SaveSections(context.Background(), d.ID, "caregiver-1", SectionData{Notes: "autosave"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stored := drafts.drafts[d.ID]
	if _, ok := stored.CompletedSections[GroupMorning]; !ok {
		t.Error("save must not touch completed sections")
	}
	if stored.Sections.Notes != "autosave" {
		t.Error("sections not persisted")
	}
}

// =========== Section Submission ===========

func TestSubmitSectionStampsAndReturnsFullMap(t *testing.T) {
	s, drafts, history := newTestService()
	d := newTestDraft(t, s)
	drafts.drafts[d.ID].CompletedSections[GroupAfternoon] = SectionAudit{SubmittedBy: "other-device"}

	completed, err := s.SubmitSection(context.Background(), d.ID, "caregiver-1", GroupMorning)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(completed) != 2 {
		t.Fatalf("expected both stamps in response, got %v", completed)
	}
	stamp := completed[GroupMorning]
	if stamp.SubmittedBy != "caregiver-1" || stamp.SubmittedAt.IsZero() {
		t.Errorf("bad stamp: %+v", stamp)
	}
	if completed[GroupAfternoon].SubmittedBy != "other-device" {
		t.Error("existing stamp from another device was lost")
	}
	last := history.entries[len(history.entries)-1]
	if last.Action != ActionSectionSubmitted || last.Section == nil || *last.Section != GroupMorning {
		t.Errorf("expected section-submitted history row, got %+v", last)
	}
}

func TestSubmitSectionResubmitUpdatesStamp(t *testing.T) {
	s, _, _ := newTestService()
	d := newTestDraft(t, s)
	first, err := s.SubmitSection(context.Background(), d.ID, "caregiver-1", GroupEvening)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := s.SubmitSection(context.Background(), d.ID, "caregiver-1", GroupEvening)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second[GroupEvening].SubmittedAt.Before(first[GroupEvening].SubmittedAt) {
		t.Error("resubmission should refresh the stamp")
	}
}

func TestSubmitSectionUnknownGroup(t *testing.T) {
	s, _, _ := newTestService()
	d := newTestDraft(t, s)
	if _, err := s.SubmitSection(context.Background(), d.ID, "caregiver-1", "nightShift"); !errors.Is(err, ErrUnknownSection) {
		t.Fatalf("expected ErrUnknownSection, got %v", err)
	}
}

func TestSubmitSectionBlockedByGroupRules(t *testing.T) {
	s, drafts, _ := newTestService()
	d := newTestDraft(t, s)
	drafts.drafts[d.ID].Sections = SectionData{
		Medications: []MedicationEntry{{Name: "Metformin", Given: true}},
	}
	_, err := s.SubmitSection(context.Background(), d.ID, "caregiver-1", GroupMorning)
	var inc *IncompleteError
	if !errors.As(err, &inc) {
		t.Fatalf("expected IncompleteError, got %v", err)
	}
	// The afternoon group does not cover medications, so it still submits.
	if _, err := s.SubmitSection(context.Background(), d.ID, "caregiver-1", GroupAfternoon); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// =========== Final Submission ===========

func TestSubmitRecomputesCompleteness(t *testing.T) {
	s, drafts, _ := newTestService()
	d := newTestDraft(t, s)
	drafts.drafts[d.ID].Sections = SectionData{
		Unaccompanied: []UnaccompaniedPeriod{{StartTime: "14:00"}},
	}
	_, err := s.Submit(context.Background(), d.ID, "caregiver-1")
	var inc *IncompleteError
	if !errors.As(err, &inc) {
		t.Fatalf("expected IncompleteError, got %v", err)
	}
	if len(inc.Missing) != 2 {
		t.Errorf("expected end time and reason pending, got %v", inc.Missing)
	}
	if drafts.drafts[d.ID].Status != StatusDraft {
		t.Error("failed submit must not change status")
	}
}

func TestSubmitTransitionsToSubmitted(t *testing.T) {
	s, drafts, history := newTestService()
	d := newTestDraft(t, s)
	got, err := s.Submit(context.Background(), d.ID, "caregiver-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != StatusSubmitted || drafts.drafts[d.ID].Status != StatusSubmitted {
		t.Error("expected submitted status")
	}
	last := history.entries[len(history.entries)-1]
	if last.Action != ActionSubmitted {
		t.Errorf("expected submitted history row, got %s", last.Action)
	}
	// Submitting twice is immutable, not idempotent.
	if _, err := s.Submit(context.Background(), d.ID, "caregiver-1"); !errors.Is(err, ErrDraftImmutable) {
		t.Errorf("expected ErrDraftImmutable on resubmit, got %v", err)
	}
}

// =========== Queries ===========

func TestGetTodayForCaregiver(t *testing.T) {
	s, _, _ := newTestService()
	d := newTestDraft(t, s)
	got, err := s.GetTodayForCaregiver(context.Background(), "caregiver-1", d.LogDate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != d.ID {
		t.Errorf("expected draft %s, got %s", d.ID, got.ID)
	}
	if _, err := s.GetTodayForCaregiver(context.Background(), "caregiver-9", d.LogDate); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestAlertsUsesStoredVitals(t *testing.T) {
	s, drafts, _ := newTestService()
	d := newTestDraft(t, s)
	drafts.drafts[d.ID].Sections.Vitals = VitalsReading{BloodPressure: "190/70"}
	alerts, err := s.Alerts(context.Background(), d.ID, 70, "female")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(alerts) != 1 || alerts[0].Severity != SeverityCritical {
		t.Errorf("expected one critical alert, got %v", alerts)
	}
}

func TestHistoryPagination(t *testing.T) {
	s, _, _ := newTestService()
	d := newTestDraft(t, s)
	if _, err := s.SaveSections(context.Background(), d.ID, "caregiver-1", SectionData{Notes: "a"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := s.SaveSections(context.Background(), d.ID, "caregiver-1", SectionData{Notes: "b"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	items, total, err := s.History(context.Background(), d.ID, 2, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 3 {
		t.Errorf("expected 3 history rows, got %d", total)
	}
	if len(items) != 2 {
		t.Errorf("expected page of 2, got %d", len(items))
	}
}

func TestHistoryFailureNeverFailsOperation(t *testing.T) {
	var buf bytes.Buffer
	s := NewService(newMockDraftRepo(), &failingHistoryRepo{}, WithLogger(zerolog.New(&buf)))
	d := newTestDraft(t, s)
	if _, err := s.SaveSections(context.Background(), d.ID, "caregiver-1", SectionData{Notes: "a"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "history append failed") {
		t.Errorf("expected history failure to be logged, got %q", buf.String())
	}
}
