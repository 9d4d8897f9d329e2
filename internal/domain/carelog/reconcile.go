package carelog

// FormState is the flat working representation the caregiver form edits.
// Hydrate flattens the persisted nested document into it; Snapshot folds it
// back, dropping untouched groups so the stored document stays sparse.
type FormState struct {
	// morning routine
	WakeTime     string
	MorningMood  string
	Washed       bool
	TeethBrushed bool
	Dressed      bool
	MorningNotes string

	Medications []MedicationEntry

	// one flat group per meal
	BreakfastTime   string
	BreakfastAppet  int
	BreakfastEaten  int
	BreakfastNotes  string
	LunchTime       string
	LunchAppet      int
	LunchEaten      int
	LunchNotes      string
	TeaTime         string
	TeaAppet        int
	TeaEaten        int
	TeaNotes        string
	DinnerTime      string
	DinnerAppet     int
	DinnerEaten     int
	DinnerNotes     string

	BloodPressure string
	PulseRate     string
	OxygenLevel   string
	BloodSugar    string
	VitalsTime    string

	DiaperChanges    int
	ToiletingNotes   string
	BowelCount       int
	BowelConsistency string
	UrinationCount   int
	UrineColor       string

	NightSleep   RestPeriod
	AfternoonNap RestPeriod
	SleepNotes   string

	FallRiskLevel string
	WalkingAid    string
	FallIncidents int
	FallNotes     string

	Unaccompanied []UnaccompaniedPeriod

	DoorsLocked   bool
	StoveOff      bool
	PathwaysClear bool
	SafetyNotes   string

	EmotionalMood string
	Activities    string
	EmotionalNote string

	Exercises []ExerciseEntry

	SpecialConcerns string
	Notes           string
}

// NewFormState builds an empty form with the medication template already
// applied, so the caregiver sees the recipient's regular medications before
// anything is saved.
func NewFormState(template []MedicationEntry) *FormState {
	f := &FormState{}
	f.Medications = MergeMedications(template, nil)
	return f
}

// Hydrate flattens a stored draft into form state, merging the medication
// template with whatever was persisted.
func Hydrate(d *CareLogDraft, template []MedicationEntry) *FormState {
	s := d.Sections
	f := &FormState{
		WakeTime:     s.MorningRoutine.WakeTime,
		MorningMood:  s.MorningRoutine.Mood,
		Washed:       s.MorningRoutine.Washed,
		TeethBrushed: s.MorningRoutine.TeethBrushed,
		Dressed:      s.MorningRoutine.Dressed,
		MorningNotes: s.MorningRoutine.Notes,

		Medications: MergeMedications(template, s.Medications),

		BloodPressure: s.Vitals.BloodPressure,
		PulseRate:     s.Vitals.PulseRate,
		OxygenLevel:   s.Vitals.OxygenLevel,
		BloodSugar:    s.Vitals.BloodSugar,
		VitalsTime:    s.Vitals.VitalsTime,

		DiaperChanges:    s.Toileting.Shared.DiaperChanges,
		ToiletingNotes:   s.Toileting.Shared.Notes,
		BowelCount:       s.Toileting.Bowel.Count,
		BowelConsistency: s.Toileting.Bowel.Consistency,
		UrinationCount:   s.Toileting.Urination.Count,
		UrineColor:       s.Toileting.Urination.Color,

		NightSleep:   s.Sleep.Night,
		AfternoonNap: s.Sleep.AfternoonNap,
		SleepNotes:   s.Sleep.Notes,

		FallRiskLevel: s.FallRisk.RiskLevel,
		WalkingAid:    s.FallRisk.WalkingAid,
		FallIncidents: s.FallRisk.Incidents,
		FallNotes:     s.FallRisk.Notes,

		Unaccompanied: append([]UnaccompaniedPeriod(nil), s.Unaccompanied...),

		DoorsLocked:   s.SafetyChecks.DoorsLocked,
		StoveOff:      s.SafetyChecks.StoveOff,
		PathwaysClear: s.SafetyChecks.PathwaysClear,
		SafetyNotes:   s.SafetyChecks.Notes,

		EmotionalMood: s.Emotional.Mood,
		Activities:    s.Emotional.Activities,
		EmotionalNote: s.Emotional.Notes,

		Exercises: append([]ExerciseEntry(nil), s.Exercises...),

		SpecialConcerns: s.SpecialConcerns,
		Notes:           s.Notes,
	}

	hydrateMeal(s.Meals, MealBreakfast, &f.BreakfastTime, &f.BreakfastAppet, &f.BreakfastEaten, &f.BreakfastNotes)
	hydrateMeal(s.Meals, MealLunch, &f.LunchTime, &f.LunchAppet, &f.LunchEaten, &f.LunchNotes)
	hydrateMeal(s.Meals, MealTea, &f.TeaTime, &f.TeaAppet, &f.TeaEaten, &f.TeaNotes)
	hydrateMeal(s.Meals, MealDinner, &f.DinnerTime, &f.DinnerAppet, &f.DinnerEaten, &f.DinnerNotes)

	return f
}

func hydrateMeal(meals map[string]MealEntry, key string, timeF *string, appet, eaten *int, notes *string) {
	m, ok := meals[key]
	if !ok {
		return
	}
	*timeF, *appet, *eaten, *notes = m.Time, m.Appetite, m.AmountEaten, m.Notes
}

// Snapshot folds the form back into the nested persisted shape. Meal groups
// with no data are omitted entirely rather than stored as empty objects.
func (f *FormState) Snapshot() SectionData {
	s := SectionData{
		MorningRoutine: MorningRoutine{
			WakeTime:     f.WakeTime,
			Mood:         f.MorningMood,
			Washed:       f.Washed,
			TeethBrushed: f.TeethBrushed,
			Dressed:      f.Dressed,
			Notes:        f.MorningNotes,
		},
		Medications: append([]MedicationEntry(nil), f.Medications...),
		Vitals: VitalsReading{
			BloodPressure: f.BloodPressure,
			PulseRate:     f.PulseRate,
			OxygenLevel:   f.OxygenLevel,
			BloodSugar:    f.BloodSugar,
			VitalsTime:    f.VitalsTime,
		},
		Toileting: Toileting{
			Shared:    ToiletingShared{DiaperChanges: f.DiaperChanges, Notes: f.ToiletingNotes},
			Bowel:     BowelDetail{Count: f.BowelCount, Consistency: f.BowelConsistency},
			Urination: UrinationDetail{Count: f.UrinationCount, Color: f.UrineColor},
		},
		Sleep: SleepSection{
			Night:        f.NightSleep,
			AfternoonNap: f.AfternoonNap,
			Notes:        f.SleepNotes,
		},
		FallRisk: FallRisk{
			RiskLevel:  f.FallRiskLevel,
			WalkingAid: f.WalkingAid,
			Incidents:  f.FallIncidents,
			Notes:      f.FallNotes,
		},
		Unaccompanied: append([]UnaccompaniedPeriod(nil), f.Unaccompanied...),
		SafetyChecks: SafetyChecks{
			DoorsLocked:   f.DoorsLocked,
			StoveOff:      f.StoveOff,
			PathwaysClear: f.PathwaysClear,
			Notes:         f.SafetyNotes,
		},
		Emotional: EmotionalWellbeing{
			Mood:       f.EmotionalMood,
			Activities: f.Activities,
			Notes:      f.EmotionalNote,
		},
		Exercises:       append([]ExerciseEntry(nil), f.Exercises...),
		SpecialConcerns: f.SpecialConcerns,
		Notes:           f.Notes,
	}

	meals := map[string]MealEntry{}
	addMeal(meals, MealBreakfast, f.BreakfastTime, f.BreakfastAppet, f.BreakfastEaten, f.BreakfastNotes)
	addMeal(meals, MealLunch, f.LunchTime, f.LunchAppet, f.LunchEaten, f.LunchNotes)
	addMeal(meals, MealTea, f.TeaTime, f.TeaAppet, f.TeaEaten, f.TeaNotes)
	addMeal(meals, MealDinner, f.DinnerTime, f.DinnerAppet, f.DinnerEaten, f.DinnerNotes)
	if len(meals) > 0 {
		s.Meals = meals
	}
	return s
}

func addMeal(meals map[string]MealEntry, key, timeF string, appet, eaten int, notes string) {
	if timeF == "" && appet == 0 && eaten == 0 && notes == "" {
		return
	}
	meals[key] = MealEntry{Time: timeF, Appetite: appet, AmountEaten: eaten, Notes: notes}
}

// MergeMedications overlays stored records on top of the recipient's
// template by medication name. Template order is preserved; stored entries
// for medications no longer in the template are kept at the end so recorded
// data is never silently dropped. Matching by name rather than position
// keeps records aligned when the template is reordered between sessions.
func MergeMedications(template, stored []MedicationEntry) []MedicationEntry {
	byName := make(map[string]MedicationEntry, len(stored))
	for _, m := range stored {
		byName[m.Name] = m
	}

	merged := make([]MedicationEntry, 0, len(template)+len(stored))
	seen := make(map[string]bool, len(template))
	for _, tpl := range template {
		seen[tpl.Name] = true
		if rec, ok := byName[tpl.Name]; ok {
			// Keep the record's entries, but refresh descriptive fields
			// from the template.
			rec.TimeSlot = tpl.TimeSlot
			rec.Purpose = tpl.Purpose
			merged = append(merged, rec)
			continue
		}
		merged = append(merged, tpl)
	}
	for _, m := range stored {
		if !seen[m.Name] {
			merged = append(merged, m)
		}
	}
	return merged
}

// exerciseLabels is the fixed key-to-label table. Storage always uses the
// key; labels exist only for display.
var exerciseLabels = map[string]string{
	"walking":          "Walking",
	"stretching":       "Stretching",
	"tai_chi":          "Tai Chi",
	"chair_exercises":  "Chair Exercises",
	"balance_training": "Balance Training",
	"physiotherapy":    "Physiotherapy",
	"other":            "Other",
}

var exerciseKeys = func() map[string]string {
	keys := make(map[string]string, len(exerciseLabels))
	for k, label := range exerciseLabels {
		keys[label] = k
	}
	return keys
}()

// ExerciseLabel resolves a stored key to its display label. Unknown keys
// pass through unchanged so older records still render.
func ExerciseLabel(key string) string {
	if label, ok := exerciseLabels[key]; ok {
		return label
	}
	return key
}

// ExerciseKey is the inverse lookup, with the same pass-through rule.
func ExerciseKey(label string) string {
	if key, ok := exerciseKeys[label]; ok {
		return key
	}
	return label
}
