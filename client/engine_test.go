package client

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/carebridge/carelog/internal/domain/carelog"
)

var medTemplate = []carelog.MedicationEntry{
	{Name: "Metformin", TimeSlot: "morning", Purpose: "diabetes"},
	{Name: "Amlodipine", TimeSlot: "evening", Purpose: "blood pressure"},
}

func newTestEngine(t *testing.T) (*fakeServer, *Engine) {
	t.Helper()
	f, remote := newFakeServer(t)
	e := NewEngine(remote, Session{
		CareRecipientID: uuid.New(),
		LogDate:         "2026-08-30",
		RecipientAge:    78,
		RecipientGender: "female",
	}, medTemplate)
	return f, e
}

func TestEngine_TemplateAppliedBeforeLoad(t *testing.T) {
	_, e := newTestEngine(t)
	s := e.snapshot()
	require.Len(t, s.Medications, 2)
	require.Equal(t, "Metformin", s.Medications[0].Name)
	require.False(t, s.Medications[0].Given)
}

func TestEngine_LoadWithoutDraftIsNotAnError(t *testing.T) {
	_, e := newTestEngine(t)
	require.NoError(t, e.Load(context.Background()))
	require.Equal(t, uuid.Nil, e.DraftID())
}

func TestEngine_LoadMergesStoredMedications(t *testing.T) {
	f, e := newTestEngine(t)
	seedDraft(f)
	f.draft.Sections.Medications = []carelog.MedicationEntry{
		{Name: "Amlodipine", Given: true, Time: "08:30"},
	}
	require.NoError(t, e.Load(context.Background()))

	s := e.snapshot()
	require.Len(t, s.Medications, 2)
	require.Equal(t, "Metformin", s.Medications[0].Name)
	require.True(t, s.Medications[1].Given)
	// descriptive fields refreshed from the template
	require.Equal(t, "evening", s.Medications[1].TimeSlot)
}

func TestEngine_UpdateMarksPending(t *testing.T) {
	_, e := newTestEngine(t)
	require.NoError(t, e.Update(func(form *carelog.FormState) {
		form.WakeTime = "07:15"
	}))
	state, err := e.SaveStatus()
	require.NoError(t, err)
	require.Equal(t, SavePending, state)
}

func TestEngine_FirstFlushCreatesDraft(t *testing.T) {
	f, e := newTestEngine(t)
	require.NoError(t, e.Update(func(form *carelog.FormState) {
		form.WakeTime = "07:15"
	}))
	require.NoError(t, e.Flush(context.Background()))
	require.NotEqual(t, uuid.Nil, e.DraftID())
	require.Equal(t, 1, f.creates)

	// second flush with new edits goes through save, not create
	require.NoError(t, e.Update(func(form *carelog.FormState) {
		form.MorningMood = "cheerful"
	}))
	require.NoError(t, e.Flush(context.Background()))
	require.Equal(t, 1, f.creates)
	require.Equal(t, 1, f.saves)
}

func TestEngine_CleanFlushIsNoop(t *testing.T) {
	f, e := newTestEngine(t)
	require.NoError(t, e.Update(func(form *carelog.FormState) {
		form.WakeTime = "07:15"
	}))
	require.NoError(t, e.Flush(context.Background()))
	require.NoError(t, e.Flush(context.Background()))
	require.Equal(t, 1, f.creates)
	require.Equal(t, 0, f.saves)
}

func TestEngine_UntouchedFormFlushCreatesNothing(t *testing.T) {
	f, e := newTestEngine(t)
	require.NoError(t, e.Flush(context.Background()))
	require.NoError(t, e.Flush(context.Background()))
	require.Equal(t, 0, f.creates)
	require.Equal(t, 0, f.saves)
	require.Equal(t, uuid.Nil, e.DraftID())

	state, saveErr := e.SaveStatus()
	require.Equal(t, SaveIdle, state)
	require.NoError(t, saveErr)
}

func TestEngine_FlushWithoutRecipientFailsClosed(t *testing.T) {
	_, remote := newFakeServer(t)
	e := NewEngine(remote, Session{LogDate: "2026-08-30"}, nil)
	require.NoError(t, e.Update(func(form *carelog.FormState) {
		form.Notes = "left a message"
	}))
	err := e.Flush(context.Background())
	require.Error(t, err)
	require.True(t, IsIdentity(err))

	state, saveErr := e.SaveStatus()
	require.Equal(t, SaveError, state)
	require.Error(t, saveErr)
}

func TestEngine_FailedSaveKeepsEditsDirty(t *testing.T) {
	f, e := newTestEngine(t)
	require.NoError(t, e.Update(func(form *carelog.FormState) {
		form.WakeTime = "07:15"
	}))
	require.NoError(t, e.Flush(context.Background()))

	f.failSaves = 1
	require.NoError(t, e.Update(func(form *carelog.FormState) {
		form.MorningMood = "tired"
	}))
	err := e.Flush(context.Background())
	require.Error(t, err)
	require.True(t, IsTransient(err))

	state, _ := e.SaveStatus()
	require.Equal(t, SaveError, state)

	// retry succeeds and carries the edit that failed before
	require.NoError(t, e.Flush(context.Background()))
	require.Equal(t, "tired", f.draft.Sections.MorningRoutine.Mood)
	state, saveErr := e.SaveStatus()
	require.Equal(t, SaveIdle, state)
	require.NoError(t, saveErr)
}

func TestEngine_CreateRaceAdoptsExistingDraft(t *testing.T) {
	f, e := newTestEngine(t)
	seedDraft(f)
	f.draft.CareRecipientID = e.session.CareRecipientID
	require.NoError(t, e.Update(func(form *carelog.FormState) {
		form.WakeTime = "06:50"
	}))
	require.NoError(t, e.Flush(context.Background()))
	require.Equal(t, 0, f.creates)
	require.Equal(t, 1, f.saves)
	require.Equal(t, "06:50", f.draft.Sections.MorningRoutine.WakeTime)
}

func TestEngine_AlertsUseSessionProfile(t *testing.T) {
	_, e := newTestEngine(t)
	require.NoError(t, e.Update(func(form *carelog.FormState) {
		form.BloodPressure = "185/95"
		form.OxygenLevel = "93"
	}))
	alerts := e.Alerts()
	require.Len(t, alerts, 2)
	require.Equal(t, carelog.SeverityCritical, alerts[0].Severity)
	require.Equal(t, carelog.MetricBloodPressure, alerts[0].Metric)
	require.Equal(t, carelog.MetricOxygenLevel, alerts[1].Metric)
}

func TestEngine_CompletionTracksData(t *testing.T) {
	_, remote := newFakeServer(t)
	e := NewEngine(remote, Session{CareRecipientID: uuid.New()}, nil)
	require.Equal(t, 0, e.CompletionPercentage())
	require.NoError(t, e.Update(func(form *carelog.FormState) {
		form.WakeTime = "07:15"
		form.Notes = "quiet day"
	}))
	require.Equal(t, 15, e.CompletionPercentage())
}

func TestEngine_SectionsReflectEdits(t *testing.T) {
	_, e := newTestEngine(t)
	require.NoError(t, e.Update(func(form *carelog.FormState) {
		form.BreakfastTime = "08:00"
	}))
	var meals carelog.SectionStatus
	for _, s := range e.Sections() {
		if s.ID == carelog.SectionMeals {
			meals = s
		}
	}
	require.True(t, meals.HasData)
	require.False(t, meals.Complete)
	require.NotEmpty(t, meals.Missing)
}
