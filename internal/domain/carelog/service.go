package carelog

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Service struct {
	drafts  DraftRepository
	history HistoryRepository
	now     func() time.Time
	log     zerolog.Logger
}

// ServiceOption customises a Service at construction time.
type ServiceOption func(*Service)

// WithLogger attaches a logger for history append failures. Default is a no-op.
func WithLogger(logger zerolog.Logger) ServiceOption {
	return func(s *Service) { s.log = logger }
}

func NewService(drafts DraftRepository, history HistoryRepository, opts ...ServiceOption) *Service {
	s := &Service{drafts: drafts, history: history, now: time.Now, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateDraft opens today's draft for a recipient. The repository's unique
// index enforces one active draft per (recipient, date); a duplicate create
// surfaces as ErrDraftExists so callers can fetch the existing draft instead.
func (s *Service) CreateDraft(ctx context.Context, d *CareLogDraft) error {
	if d.CareRecipientID == uuid.Nil {
		return fmt.Errorf("care_recipient_id is required")
	}
	if d.CaregiverID == "" {
		return fmt.Errorf("caregiver_id is required")
	}
	if _, err := time.Parse("2006-01-02", d.LogDate); err != nil {
		return fmt.Errorf("log_date must be YYYY-MM-DD")
	}
	d.Status = StatusDraft
	if d.CompletedSections == nil {
		d.CompletedSections = map[string]SectionAudit{}
	}
	if err := s.drafts.Create(ctx, d); err != nil {
		return err
	}
	s.record(ctx, d.ID, ActionCreated, nil, d.CaregiverID, nil)
	return nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*CareLogDraft, error) {
	return s.drafts.GetByID(ctx, id)
}

// GetTodayForCaregiver returns the caregiver's active draft for the given
// date, ErrNotFound when none has been created yet.
func (s *Service) GetTodayForCaregiver(ctx context.Context, caregiverID, logDate string) (*CareLogDraft, error) {
	if caregiverID == "" {
		return nil, fmt.Errorf("caregiver_id is required")
	}
	return s.drafts.GetByCaregiverDate(ctx, caregiverID, logDate)
}

func (s *Service) GetByRecipientDate(ctx context.Context, recipientID uuid.UUID, logDate string) (*CareLogDraft, error) {
	return s.drafts.GetByRecipientDate(ctx, recipientID, logDate)
}

// SaveSections persists an autosave snapshot. Submitted and invalidated
// drafts are frozen. Completed-sections are never touched here, so a save
// racing a section submission cannot undo the submission.
func (s *Service) SaveSections(ctx context.Context, id uuid.UUID, actorID string, sections SectionData) (*CareLogDraft, error) {
	d, err := s.drafts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.Status != StatusDraft {
		return nil, ErrDraftImmutable
	}
	if err := s.drafts.UpdateSections(ctx, id, sections); err != nil {
		return nil, err
	}
	d.Sections = sections
	s.record(ctx, id, ActionSaved, nil, actorID, nil)
	return d, nil
}

// SubmitSection marks one submission group as shared with family. The group
// must validate on the draft's current data. The returned map is the full
// authoritative set, including stamps from earlier submissions and other
// devices.
func (s *Service) SubmitSection(ctx context.Context, id uuid.UUID, actorID, group string) (map[string]SectionAudit, error) {
	if !ValidSubmissionGroup(group) {
		return nil, ErrUnknownSection
	}
	d, err := s.drafts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.Status != StatusDraft {
		return nil, ErrDraftImmutable
	}
	if missing := groupMissing(&d.Sections, group); len(missing) > 0 {
		return nil, &IncompleteError{Missing: missing}
	}

	d.CompletedSections[group] = SectionAudit{SubmittedAt: s.now().UTC(), SubmittedBy: actorID}
	if err := s.drafts.UpdateCompletedSections(ctx, id, d.CompletedSections); err != nil {
		return nil, err
	}
	s.record(ctx, id, ActionSectionSubmitted, &group, actorID, nil)
	return d.CompletedSections, nil
}

// Submit finalizes the day's log. Completeness is recomputed here from the
// persisted sections; the client's own verdict is advisory only.
func (s *Service) Submit(ctx context.Context, id uuid.UUID, actorID string) (*CareLogDraft, error) {
	d, err := s.drafts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.Status != StatusDraft {
		return nil, ErrDraftImmutable
	}
	if ok, missing := AllSectionsComplete(&d.Sections); !ok {
		return nil, &IncompleteError{Missing: missing}
	}
	if err := s.drafts.UpdateStatus(ctx, id, StatusSubmitted); err != nil {
		return nil, err
	}
	d.Status = StatusSubmitted
	s.record(ctx, id, ActionSubmitted, nil, actorID, nil)
	return d, nil
}

// Invalidate retires a log, freeing its (recipient, date) slot for a
// replacement draft. Invalidated logs stay queryable through history.
func (s *Service) Invalidate(ctx context.Context, id uuid.UUID, actorID, reason string) error {
	d, err := s.drafts.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if d.Status == StatusInvalidated {
		return nil
	}
	if err := s.drafts.UpdateStatus(ctx, id, StatusInvalidated); err != nil {
		return err
	}
	var details *string
	if reason != "" {
		details = &reason
	}
	s.record(ctx, id, ActionInvalidated, nil, actorID, details)
	return nil
}

func (s *Service) History(ctx context.Context, id uuid.UUID, limit, offset int) ([]*HistoryEntry, int, error) {
	return s.history.ListByDraft(ctx, id, limit, offset)
}

// Alerts classifies the draft's current vitals reading.
func (s *Service) Alerts(ctx context.Context, id uuid.UUID, age int, gender string) ([]VitalAlert, error) {
	d, err := s.drafts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return ClassifyVitals(d.Sections.Vitals, age, gender), nil
}

// Sections evaluates the draft's current data against the section rules.
func (s *Service) Sections(ctx context.Context, id uuid.UUID) ([]SectionStatus, error) {
	d, err := s.drafts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return EvaluateSections(&d.Sections), nil
}

// record appends an audit row. History failures never fail the operation
// that produced them.
func (s *Service) record(ctx context.Context, careLogID uuid.UUID, action string, section *string, actorID string, details *string) {
	e := &HistoryEntry{CareLogID: careLogID, Action: action, Section: section, ActorID: actorID, Details: details}
	if err := s.history.Append(ctx, e); err != nil {
		s.log.Warn().Err(err).Str("care_log_id", careLogID.String()).Str("action", action).Msg("history append failed")
	}
}

// sectionGroups maps each submission group to the form sections it covers.
var sectionGroups = map[string][]string{
	GroupMorning:      {SectionMorningRoutine, SectionMedications, SectionVitals},
	GroupAfternoon:    {SectionMeals, SectionToileting, SectionExercise},
	GroupEvening:      {SectionSleep, SectionSafetyChecks, SectionUnaccompanied},
	GroupDailySummary: {SectionFallRisk, SectionEmotional, SectionSpecialConcerns, SectionNotes},
}

// groupMissing returns pending requirements for the sections of one group.
func groupMissing(s *SectionData, group string) []string {
	members := map[string]bool{}
	for _, id := range sectionGroups[group] {
		members[id] = true
	}
	var missing []string
	for _, st := range EvaluateSections(s) {
		if !members[st.ID] {
			continue
		}
		for _, m := range st.Missing {
			missing = append(missing, fmt.Sprintf("%s: %s", st.Title, m))
		}
	}
	return missing
}
