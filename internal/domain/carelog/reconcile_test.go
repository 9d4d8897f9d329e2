package carelog

import (
	"reflect"
	"testing"
)

// =========== Draft Reconciler ===========

func testTemplate() []MedicationEntry {
	return []MedicationEntry{
		{Name: "Metformin", TimeSlot: "morning", Purpose: "diabetes"},
		{Name: "Amlodipine", TimeSlot: "morning", Purpose: "blood pressure"},
		{Name: "Donepezil", TimeSlot: "evening", Purpose: "memory"},
	}
}

func TestMergeMedicationsByNameNotPosition(t *testing.T) {
	// Stored in a different order than the template.
	stored := []MedicationEntry{
		{Name: "Donepezil", Given: true, Time: "20:00"},
		{Name: "Metformin", Given: true, Time: "08:00", Notes: "with food"},
	}
	merged := MergeMedications(testTemplate(), stored)
	if len(merged) != 3 {
		t.Fatalf("expected 3 medications, got %d", len(merged))
	}
	if merged[0].Name != "Metformin" || !merged[0].Given || merged[0].Time != "08:00" {
		t.Errorf("metformin record not merged: %+v", merged[0])
	}
	if merged[0].Purpose != "diabetes" {
		t.Errorf("template purpose lost: %+v", merged[0])
	}
	if merged[1].Name != "Amlodipine" || merged[1].Given {
		t.Errorf("untouched template entry altered: %+v", merged[1])
	}
	if merged[2].Name != "Donepezil" || merged[2].Time != "20:00" {
		t.Errorf("donepezil record not merged: %+v", merged[2])
	}
}

func TestMergeMedicationsOrderIndependent(t *testing.T) {
	a := []MedicationEntry{{Name: "Metformin", Given: true}, {Name: "Donepezil", Given: true}}
	b := []MedicationEntry{{Name: "Donepezil", Given: true}, {Name: "Metformin", Given: true}}
	if !reflect.DeepEqual(MergeMedications(testTemplate(), a), MergeMedications(testTemplate(), b)) {
		t.Error("merge result depends on stored order")
	}
}

func TestMergeMedicationsKeepsRetiredEntries(t *testing.T) {
	stored := []MedicationEntry{{Name: "Warfarin", Given: true, Time: "09:00"}}
	merged := MergeMedications(testTemplate(), stored)
	if len(merged) != 4 {
		t.Fatalf("expected 4 medications, got %d", len(merged))
	}
	if merged[3].Name != "Warfarin" {
		t.Errorf("recorded entry outside template was dropped: %+v", merged)
	}
}

func TestNewFormStateAppliesTemplate(t *testing.T) {
	f := NewFormState(testTemplate())
	if len(f.Medications) != 3 {
		t.Fatalf("expected 3 template medications, got %d", len(f.Medications))
	}
	if f.Medications[0].Given {
		t.Error("template entries should start unticked")
	}
}

func TestHydrateSnapshotRoundTrip(t *testing.T) {
	d := &CareLogDraft{
		Sections: SectionData{
			MorningRoutine: MorningRoutine{WakeTime: "07:15", Mood: "cheerful", Washed: true},
			Meals: map[string]MealEntry{
				MealBreakfast: {Time: "08:00", Appetite: 4, AmountEaten: 75},
				MealDinner:    {Time: "18:30", Appetite: 3, AmountEaten: 50, Notes: "small portion"},
			},
			Vitals: VitalsReading{BloodPressure: "128/78", PulseRate: "72"},
			Toileting: Toileting{
				Shared:    ToiletingShared{DiaperChanges: 2},
				Bowel:     BowelDetail{Count: 1, Consistency: "normal"},
				Urination: UrinationDetail{Count: 5, Color: "clear"},
			},
			Sleep: SleepSection{
				Night: RestPeriod{Enabled: true, StartTime: "22:00", EndTime: "06:00", Quality: 4},
			},
			Unaccompanied: []UnaccompaniedPeriod{
				{StartTime: "10:00", EndTime: "10:45", Reason: "pharmacy"},
			},
			Exercises: []ExerciseEntry{{Type: "chair_exercises", DurationMinutes: 15}},
			Notes:     "good day overall",
		},
	}

	f := Hydrate(d, nil)
	if f.WakeTime != "07:15" || f.BreakfastAppet != 4 || f.DinnerNotes != "small portion" {
		t.Errorf("hydration lost meal or routine fields: %+v", f)
	}
	if f.BowelConsistency != "normal" || f.UrineColor != "clear" {
		t.Errorf("toileting sub-groups not flattened: %+v", f)
	}
	if f.LunchTime != "" || f.TeaTime != "" {
		t.Errorf("absent meals should stay zero: %+v", f)
	}

	got := f.Snapshot()
	if !reflect.DeepEqual(got, d.Sections) {
		t.Errorf("round trip diverged:\n got:  %+v\n want: %+v", got, d.Sections)
	}
}

func TestSnapshotOmitsEmptyMeals(t *testing.T) {
	f := NewFormState(nil)
	f.Notes = "nothing eaten yet"
	s := f.Snapshot()
	if s.Meals != nil {
		t.Errorf("expected no meals map, got %v", s.Meals)
	}
}

func TestHydrateCopiesSlices(t *testing.T) {
	d := &CareLogDraft{
		Sections: SectionData{
			Unaccompanied: []UnaccompaniedPeriod{{StartTime: "10:00", EndTime: "11:00", Reason: "errand"}},
		},
	}
	f := Hydrate(d, nil)
	f.Unaccompanied[0].Reason = "changed"
	if d.Sections.Unaccompanied[0].Reason != "errand" {
		t.Error("hydrated form aliases the draft's slice")
	}
}

func TestExerciseLabelLookup(t *testing.T) {
	if got := ExerciseLabel("chair_exercises"); got != "Chair Exercises" {
		t.Errorf("expected Chair Exercises, got %s", got)
	}
	if got := ExerciseKey("Tai Chi"); got != "tai_chi" {
		t.Errorf("expected tai_chi, got %s", got)
	}
	// Unknown values pass through in both directions.
	if got := ExerciseLabel("swimming"); got != "swimming" {
		t.Errorf("unknown key should pass through, got %s", got)
	}
	if got := ExerciseKey("Swimming"); got != "Swimming" {
		t.Errorf("unknown label should pass through, got %s", got)
	}
}
