package client

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/carebridge/carelog/internal/domain/carelog"
)

func TestSubmitSection_FlushesAndStamps(t *testing.T) {
	f, e := newTestEngine(t)
	require.NoError(t, e.Update(func(form *carelog.FormState) {
		form.WakeTime = "07:15"
	}))

	require.NoError(t, e.SubmitSection(context.Background(), carelog.GroupMorning))

	// edits reached the server before the section was shared
	require.Equal(t, "07:15", f.draft.Sections.MorningRoutine.WakeTime)
	completed := e.CompletedSections()
	require.Contains(t, completed, carelog.GroupMorning)
	require.NotEqual(t, uuid.Nil, e.DraftID())
}

func TestSubmitSection_ReplacesMapWholesale(t *testing.T) {
	f, e := newTestEngine(t)
	seedDraft(f)
	f.draft.CareRecipientID = e.session.CareRecipientID
	f.draft.CompletedSections[carelog.GroupEvening] = carelog.SectionAudit{
		SubmittedAt: time.Now().UTC(),
		SubmittedBy: "other-device",
	}
	require.NoError(t, e.Load(context.Background()))

	require.NoError(t, e.SubmitSection(context.Background(), carelog.GroupMorning))

	completed := e.CompletedSections()
	require.Len(t, completed, 2)
	require.Equal(t, "other-device", completed[carelog.GroupEvening].SubmittedBy)
}

func TestSubmitSection_UntouchedFormStillCreatesDraft(t *testing.T) {
	// Sharing a section needs a server identity even when the caregiver
	// typed nothing, so the deferred create runs here rather than on flush.
	f, e := newTestEngine(t)
	require.NoError(t, e.SubmitSection(context.Background(), carelog.GroupMorning))
	require.NotEqual(t, uuid.Nil, e.DraftID())
	require.Equal(t, 1, f.creates)
}

func TestSubmitSection_UnknownGroup(t *testing.T) {
	_, e := newTestEngine(t)
	err := e.SubmitSection(context.Background(), "midnight")
	require.Error(t, err)
	require.True(t, IsSubmission(err))
}

func TestSubmit_LocalGateBlocksIncompleteForm(t *testing.T) {
	f, e := newTestEngine(t)
	require.NoError(t, e.Update(func(form *carelog.FormState) {
		form.Unaccompanied = []carelog.UnaccompaniedPeriod{{StartTime: "14:00"}}
	}))

	err := e.Submit(context.Background())
	require.Error(t, err)
	require.True(t, IsSubmission(err))
	require.NotEmpty(t, MissingRequirements(err))

	// nothing left the device
	f.mu.Lock()
	defer f.mu.Unlock()
	require.Equal(t, 0, f.creates)
	require.Equal(t, 0, f.saves)
}

func TestSubmit_TransitionsAndFreezes(t *testing.T) {
	f, e := newTestEngine(t)
	require.NoError(t, e.Update(func(form *carelog.FormState) {
		form.WakeTime = "07:15"
		form.Notes = "good day overall"
	}))

	require.NoError(t, e.Submit(context.Background()))
	require.Equal(t, carelog.StatusSubmitted, e.Status())
	require.Equal(t, carelog.StatusSubmitted, f.draft.Status)

	err := e.Update(func(form *carelog.FormState) {
		form.Notes = "late edit"
	})
	require.Error(t, err)

	flushErr := e.Flush(context.Background())
	require.Error(t, flushErr)
	require.True(t, IsSubmission(flushErr))
}
