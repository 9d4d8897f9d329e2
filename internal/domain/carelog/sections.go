package carelog

import (
	"fmt"
	"math"
)

// SectionStatus is the validator's verdict on one form section.
type SectionStatus struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Complete bool     `json:"complete"`
	HasData  bool     `json:"hasData"`
	Missing  []string `json:"missing,omitempty"`
}

// Form section identifiers.
const (
	SectionMorningRoutine  = "morningRoutine"
	SectionMedications     = "medications"
	SectionMeals           = "meals"
	SectionVitals          = "vitals"
	SectionToileting       = "toileting"
	SectionSleep           = "sleep"
	SectionFallRisk        = "fallRisk"
	SectionUnaccompanied   = "unaccompanied"
	SectionSafetyChecks    = "safetyChecks"
	SectionEmotional       = "spiritualEmotional"
	SectionExercise        = "exercise"
	SectionSpecialConcerns = "specialConcerns"
	SectionNotes           = "notes"
)

// sectionDescriptor binds a section id to its data-presence probe and its
// conditional rules. Validate returns human-readable missing requirements;
// a section with no rules is complete whenever it has no pending ones.
type sectionDescriptor struct {
	ID       string
	Title    string
	HasData  func(*SectionData) bool
	Validate func(*SectionData) []string
}

// sectionRegistry fixes the evaluation order. Completeness is
// rule-satisfaction, not data-presence: an untouched optional section is
// complete but has no data.
var sectionRegistry = []sectionDescriptor{
	{
		ID:    SectionMorningRoutine,
		Title: "Morning Routine",
		HasData: func(s *SectionData) bool {
			m := s.MorningRoutine
			return m.WakeTime != "" || m.Mood != "" || m.Washed || m.TeethBrushed || m.Dressed || m.Notes != ""
		},
	},
	{
		ID:    SectionMedications,
		Title: "Medications",
		HasData: func(s *SectionData) bool {
			for _, m := range s.Medications {
				if m.Given || m.Time != "" || m.Notes != "" {
					return true
				}
			}
			return false
		},
		Validate: func(s *SectionData) []string {
			var missing []string
			for _, m := range s.Medications {
				if m.Given && m.Time == "" {
					missing = append(missing, fmt.Sprintf("time given for %s", m.Name))
				}
			}
			return missing
		},
	},
	{
		ID:    SectionMeals,
		Title: "Meals",
		HasData: func(s *SectionData) bool {
			for _, meal := range s.Meals {
				if meal.Time != "" || meal.Appetite > 0 || meal.AmountEaten > 0 || meal.Notes != "" {
					return true
				}
			}
			return false
		},
		Validate: func(s *SectionData) []string {
			var missing []string
			for _, key := range MealKeys {
				meal, ok := s.Meals[key]
				if !ok || meal.Time == "" {
					continue
				}
				if meal.Appetite <= 0 {
					missing = append(missing, fmt.Sprintf("appetite rating for %s", key))
				}
				if meal.AmountEaten <= 0 {
					missing = append(missing, fmt.Sprintf("amount eaten for %s", key))
				}
			}
			return missing
		},
	},
	{
		ID:    SectionVitals,
		Title: "Vitals",
		HasData: func(s *SectionData) bool {
			v := s.Vitals
			return v.BloodPressure != "" || v.PulseRate != "" || v.OxygenLevel != "" || v.BloodSugar != ""
		},
	},
	{
		ID:    SectionToileting,
		Title: "Toileting",
		HasData: func(s *SectionData) bool {
			t := s.Toileting
			return t.Shared.DiaperChanges > 0 || t.Shared.Notes != "" ||
				t.Bowel.Count > 0 || t.Bowel.Consistency != "" ||
				t.Urination.Count > 0 || t.Urination.Color != ""
		},
		Validate: func(s *SectionData) []string {
			t := s.Toileting
			hasDetail := t.Bowel.Consistency != "" || t.Urination.Color != "" || t.Shared.Notes != ""
			hasCount := t.Shared.DiaperChanges > 0 || t.Bowel.Count > 0 || t.Urination.Count > 0
			if hasDetail && !hasCount {
				return []string{"at least one toileting count"}
			}
			return nil
		},
	},
	{
		ID:    SectionSleep,
		Title: "Sleep & Rest",
		HasData: func(s *SectionData) bool {
			return restPeriodHasData(s.Sleep.Night) || restPeriodHasData(s.Sleep.AfternoonNap) || s.Sleep.Notes != ""
		},
		Validate: func(s *SectionData) []string {
			missing := validateRestPeriod(s.Sleep.Night, "night sleep", true)
			return append(missing, validateRestPeriod(s.Sleep.AfternoonNap, "afternoon nap", false)...)
		},
	},
	{
		ID:    SectionFallRisk,
		Title: "Fall Risk",
		HasData: func(s *SectionData) bool {
			f := s.FallRisk
			return f.RiskLevel != "" || f.WalkingAid != "" || f.Incidents > 0 || f.Notes != ""
		},
	},
	{
		ID:    SectionUnaccompanied,
		Title: "Unaccompanied Periods",
		HasData: func(s *SectionData) bool {
			return len(s.Unaccompanied) > 0
		},
		Validate: func(s *SectionData) []string {
			var missing []string
			for i, p := range s.Unaccompanied {
				label := fmt.Sprintf("period %d", i+1)
				if p.StartTime == "" {
					missing = append(missing, label+" start time")
				}
				if p.EndTime == "" {
					missing = append(missing, label+" end time")
				}
				if p.Reason == "" {
					missing = append(missing, label+" reason")
				}
				if p.StartTime != "" && p.EndTime != "" && p.Duration() <= 0 {
					missing = append(missing, label+" end time after start time")
				}
			}
			return missing
		},
	},
	{
		ID:    SectionSafetyChecks,
		Title: "Safety Checks",
		HasData: func(s *SectionData) bool {
			c := s.SafetyChecks
			return c.DoorsLocked || c.StoveOff || c.PathwaysClear || c.Notes != ""
		},
	},
	{
		ID:    SectionEmotional,
		Title: "Spiritual & Emotional Wellbeing",
		HasData: func(s *SectionData) bool {
			e := s.Emotional
			return e.Mood != "" || e.Activities != "" || e.Notes != ""
		},
	},
	{
		ID:    SectionExercise,
		Title: "Exercise",
		HasData: func(s *SectionData) bool {
			for _, e := range s.Exercises {
				if e.Type != "" || e.DurationMinutes > 0 || e.Notes != "" {
					return true
				}
			}
			return false
		},
		Validate: func(s *SectionData) []string {
			var missing []string
			for i, e := range s.Exercises {
				if e.Type != "" && e.DurationMinutes <= 0 {
					missing = append(missing, fmt.Sprintf("duration for exercise %d", i+1))
				}
			}
			return missing
		},
	},
	{
		ID:    SectionSpecialConcerns,
		Title: "Special Concerns",
		HasData: func(s *SectionData) bool {
			return s.SpecialConcerns != ""
		},
	},
	{
		ID:    SectionNotes,
		Title: "Notes",
		HasData: func(s *SectionData) bool {
			return s.Notes != ""
		},
	},
}

func restPeriodHasData(r RestPeriod) bool {
	return r.Enabled || r.StartTime != "" || r.EndTime != "" || r.Quality > 0
}

func validateRestPeriod(r RestPeriod, label string, overnight bool) []string {
	if !r.Enabled {
		return nil
	}
	var missing []string
	if r.StartTime == "" {
		missing = append(missing, label+" start time")
	}
	if r.EndTime == "" {
		missing = append(missing, label+" end time")
	}
	if r.StartTime != "" && r.EndTime != "" {
		start, ok1 := parseClock(r.StartTime)
		end, ok2 := parseClock(r.EndTime)
		// An overnight period (night sleep) legitimately crosses midnight,
		// so only equal bounds are rejected there. A same-day nap must end
		// after it starts.
		if ok1 && ok2 && (start == end || (!overnight && end < start)) {
			missing = append(missing, label+" end time after start time")
		}
	}
	if r.Quality <= 0 {
		missing = append(missing, label+" quality rating")
	}
	return missing
}

// EvaluateSections runs every section's rules and returns the statuses in
// registry order.
func EvaluateSections(s *SectionData) []SectionStatus {
	statuses := make([]SectionStatus, 0, len(sectionRegistry))
	for _, desc := range sectionRegistry {
		st := SectionStatus{ID: desc.ID, Title: desc.Title, HasData: desc.HasData(s)}
		if desc.Validate != nil {
			st.Missing = desc.Validate(s)
		}
		st.Complete = len(st.Missing) == 0
		statuses = append(statuses, st)
	}
	return statuses
}

// AllSectionsComplete reports whether the whole log is ready for final
// submission, with the flattened list of pending requirements when not.
func AllSectionsComplete(s *SectionData) (bool, []string) {
	var missing []string
	for _, st := range EvaluateSections(s) {
		for _, m := range st.Missing {
			missing = append(missing, fmt.Sprintf("%s: %s", st.Title, m))
		}
	}
	return len(missing) == 0, missing
}

// CompletionPercentage is a soft progress signal: the share of sections with
// any data at all, rounded to the nearest whole percent. It never gates
// submission.
func CompletionPercentage(s *SectionData) int {
	withData := 0
	for _, desc := range sectionRegistry {
		if desc.HasData(s) {
			withData++
		}
	}
	return int(math.Round(float64(withData) / float64(len(sectionRegistry)) * 100))
}
