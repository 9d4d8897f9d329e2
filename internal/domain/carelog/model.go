package carelog

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DraftStatus is the lifecycle state of a daily care log.
type DraftStatus string

const (
	StatusDraft       DraftStatus = "draft"
	StatusSubmitted   DraftStatus = "submitted"
	StatusInvalidated DraftStatus = "invalidated"
)

// Submission groups: the coarse shareable slices of a day's log. These are
// the only valid keys of CompletedSections.
const (
	GroupMorning      = "morning"
	GroupAfternoon    = "afternoon"
	GroupEvening      = "evening"
	GroupDailySummary = "dailySummary"
)

var submissionGroups = map[string]bool{
	GroupMorning:      true,
	GroupAfternoon:    true,
	GroupEvening:      true,
	GroupDailySummary: true,
}

// ValidSubmissionGroup reports whether name is one of the four shareable groups.
func ValidSubmissionGroup(name string) bool {
	return submissionGroups[name]
}

var (
	ErrNotFound       = errors.New("care log not found")
	ErrDraftExists    = errors.New("an active care log already exists for this recipient and date")
	ErrDraftImmutable = errors.New("care log is no longer editable")
	ErrUnknownSection = errors.New("unknown submission group")
)

// IncompleteError reports which conditional requirements block final submission.
type IncompleteError struct {
	Missing []string
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("care log incomplete: %s", strings.Join(e.Missing, "; "))
}

// CareLogDraft maps to the care_log table. One active draft exists per
// (care_recipient_id, log_date); invalidated drafts are preserved for audit
// and never mutated back to draft.
type CareLogDraft struct {
	ID                uuid.UUID               `db:"id" json:"id"`
	CareRecipientID   uuid.UUID               `db:"care_recipient_id" json:"care_recipient_id"`
	CaregiverID       string                  `db:"caregiver_id" json:"caregiver_id"`
	LogDate           string                  `db:"log_date" json:"log_date"` // YYYY-MM-DD
	Status            DraftStatus             `db:"status" json:"status"`
	Sections          SectionData             `db:"sections" json:"sections"`
	CompletedSections map[string]SectionAudit `db:"completed_sections" json:"completed_sections"`
	CreatedAt         time.Time               `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time               `db:"updated_at" json:"updated_at"`
}

// SectionAudit records when and by whom a submission group was shared with
// family. The server is authoritative for this map; clients replace their
// local copy wholesale from server responses.
type SectionAudit struct {
	SubmittedAt time.Time `json:"submittedAt"`
	SubmittedBy string    `json:"submittedBy"`
}

// SectionData is the nested document shape the server persists. Field groups
// mirror the form's sections; omitted groups are simply absent from the JSON.
type SectionData struct {
	MorningRoutine  MorningRoutine        `json:"morningRoutine,omitempty"`
	Medications     []MedicationEntry     `json:"medications,omitempty"`
	Meals           map[string]MealEntry  `json:"meals,omitempty"`
	Vitals          VitalsReading         `json:"vitals,omitempty"`
	Toileting       Toileting             `json:"toileting,omitempty"`
	Sleep           SleepSection          `json:"sleep,omitempty"`
	FallRisk        FallRisk              `json:"fallRisk,omitempty"`
	Unaccompanied   []UnaccompaniedPeriod `json:"unaccompaniedPeriods,omitempty"`
	SafetyChecks    SafetyChecks          `json:"safetyChecks,omitempty"`
	Emotional       EmotionalWellbeing    `json:"spiritualEmotional,omitempty"`
	Exercises       []ExerciseEntry       `json:"exercises,omitempty"`
	SpecialConcerns string                `json:"specialConcerns,omitempty"`
	Notes           string                `json:"notes,omitempty"`
}

// Meal keys within SectionData.Meals.
const (
	MealBreakfast = "breakfast"
	MealLunch     = "lunch"
	MealTea       = "tea"
	MealDinner    = "dinner"
)

// MealKeys lists the meals in day order.
var MealKeys = []string{MealBreakfast, MealLunch, MealTea, MealDinner}

type MorningRoutine struct {
	WakeTime     string `json:"wakeTime,omitempty"`
	Mood         string `json:"mood,omitempty"`
	Washed       bool   `json:"washed,omitempty"`
	TeethBrushed bool   `json:"teethBrushed,omitempty"`
	Dressed      bool   `json:"dressed,omitempty"`
	Notes        string `json:"notes,omitempty"`
}

// MedicationEntry identity is Name, never array position; template defaults
// and persisted overrides are merged by this key.
type MedicationEntry struct {
	Name     string `json:"name"`
	Given    bool   `json:"given"`
	Time     string `json:"time,omitempty"`
	TimeSlot string `json:"timeSlot,omitempty"`
	Purpose  string `json:"purpose,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

// MealEntry holds one meal's record. Appetite is a 0-5 scale, AmountEaten a
// 0-100 percentage; both are required once the meal's time is set.
type MealEntry struct {
	Time        string `json:"time,omitempty"`
	Appetite    int    `json:"appetite,omitempty"`
	AmountEaten int    `json:"amountEaten,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

// VitalsReading carries raw field values. Readings are evaluated transiently
// by the classifier; malformed values are skipped, never errors.
type VitalsReading struct {
	BloodPressure string `json:"bloodPressure,omitempty"` // "SYS/DIA"
	PulseRate     string `json:"pulseRate,omitempty"`     // bpm
	OxygenLevel   string `json:"oxygenLevel,omitempty"`   // percent
	BloodSugar    string `json:"bloodSugar,omitempty"`    // mmol/L
	VitalsTime    string `json:"vitalsTime,omitempty"`
}

// Toileting groups a shared subsection with bowel- and urination-specific
// detail, matching the persisted nested shape.
type Toileting struct {
	Shared    ToiletingShared `json:"shared,omitempty"`
	Bowel     BowelDetail     `json:"bowel,omitempty"`
	Urination UrinationDetail `json:"urination,omitempty"`
}

type ToiletingShared struct {
	DiaperChanges int    `json:"diaperChanges,omitempty"`
	Notes         string `json:"notes,omitempty"`
}

type BowelDetail struct {
	Count       int    `json:"count,omitempty"`
	Consistency string `json:"consistency,omitempty"`
}

type UrinationDetail struct {
	Count int    `json:"count,omitempty"`
	Color string `json:"color,omitempty"`
}

// RestPeriod is one sleep/rest interval. Enabled gates the conditional
// requirements: once toggled on, start, end (after start) and quality are
// all required.
type RestPeriod struct {
	Enabled   bool   `json:"enabled,omitempty"`
	StartTime string `json:"startTime,omitempty"`
	EndTime   string `json:"endTime,omitempty"`
	Quality   int    `json:"quality,omitempty"` // 1-5
}

type SleepSection struct {
	Night        RestPeriod `json:"night,omitempty"`
	AfternoonNap RestPeriod `json:"afternoonNap,omitempty"`
	Notes        string     `json:"notes,omitempty"`
}

type FallRisk struct {
	RiskLevel  string `json:"riskLevel,omitempty"`
	WalkingAid string `json:"walkingAid,omitempty"`
	Incidents  int    `json:"incidents,omitempty"`
	Notes      string `json:"notes,omitempty"`
}

// UnaccompaniedPeriod is valid iff StartTime < EndTime and Reason is set.
// Invalid periods are excluded from duration totals and block completeness.
type UnaccompaniedPeriod struct {
	StartTime         string `json:"startTime,omitempty"`
	EndTime           string `json:"endTime,omitempty"`
	Reason            string `json:"reason,omitempty"`
	ReplacementPerson string `json:"replacementPerson,omitempty"`
}

// Duration returns the period length in minutes, or -1 if either bound is
// missing or malformed. A negative span stays negative so callers can tell
// "inverted" apart from "absent".
func (p UnaccompaniedPeriod) Duration() int {
	start, ok := parseClock(p.StartTime)
	if !ok {
		return -1
	}
	end, ok := parseClock(p.EndTime)
	if !ok {
		return -1
	}
	return end - start
}

// Valid reports whether the period counts toward totals and completeness.
func (p UnaccompaniedPeriod) Valid() bool {
	return p.Reason != "" && p.Duration() > 0
}

// TotalUnaccompaniedMinutes sums the durations of valid periods only.
func TotalUnaccompaniedMinutes(periods []UnaccompaniedPeriod) int {
	total := 0
	for _, p := range periods {
		if p.Valid() {
			total += p.Duration()
		}
	}
	return total
}

// parseClock parses "HH:MM" into minutes since midnight.
func parseClock(s string) (int, bool) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, false
	}
	return t.Hour()*60 + t.Minute(), true
}

type SafetyChecks struct {
	DoorsLocked   bool   `json:"doorsLocked,omitempty"`
	StoveOff      bool   `json:"stoveOff,omitempty"`
	PathwaysClear bool   `json:"pathwaysClear,omitempty"`
	Notes         string `json:"notes,omitempty"`
}

type EmotionalWellbeing struct {
	Mood       string `json:"mood,omitempty"`
	Activities string `json:"activities,omitempty"`
	Notes      string `json:"notes,omitempty"`
}

// ExerciseEntry stores Type as a stable key ("chair_exercises"), translated
// to a display label by the reconciler's fixed lookup table.
type ExerciseEntry struct {
	Type            string `json:"type"`
	DurationMinutes int    `json:"durationMinutes,omitempty"`
	Notes           string `json:"notes,omitempty"`
}

// HistoryEntry maps to the append-only care_log_history table.
type HistoryEntry struct {
	ID        uuid.UUID `db:"id" json:"id"`
	CareLogID uuid.UUID `db:"care_log_id" json:"care_log_id"`
	Action    string    `db:"action" json:"action"` // created, saved, section-submitted, submitted, invalidated
	Section   *string   `db:"section" json:"section,omitempty"`
	ActorID   string    `db:"actor_id" json:"actor_id"`
	Details   *string   `db:"details" json:"details,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// History actions.
const (
	ActionCreated          = "created"
	ActionSaved            = "saved"
	ActionSectionSubmitted = "section-submitted"
	ActionSubmitted        = "submitted"
	ActionInvalidated      = "invalidated"
)
