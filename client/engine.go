package client

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/carebridge/carelog/internal/domain/carelog"
)

// SaveState is the autosave lifecycle visible to the form UI.
type SaveState string

const (
	SaveIdle    SaveState = "idle"
	SavePending SaveState = "pending"
	SaveSaving  SaveState = "saving"
	SaveError   SaveState = "error"
)

// Session identifies who is being cared for today. Age and gender feed the
// local vitals classifier so alerts appear while the caregiver types.
type Session struct {
	CareRecipientID uuid.UUID
	LogDate         string // YYYY-MM-DD, defaults to today
	RecipientAge    int
	RecipientGender string
}

// Engine holds the in-progress care log form and reconciles it with the
// server. All methods are safe for concurrent use; the autosaver and the UI
// share one instance.
type Engine struct {
	remote   *Remote
	session  Session
	template []carelog.MedicationEntry
	log      zerolog.Logger

	mu        sync.Mutex
	draftID   uuid.UUID
	status    carelog.DraftStatus
	form      *carelog.FormState
	completed map[string]carelog.SectionAudit
	dirty     bool
	inFlight  bool
	saveState SaveState
	saveErr   error

	changes chan struct{}
}

// EngineOption customises an Engine at construction time.
type EngineOption func(*Engine)

// WithLogger attaches a logger for autosave outcomes. Default is a no-op.
func WithLogger(logger zerolog.Logger) EngineOption {
	return func(e *Engine) { e.log = logger }
}

// NewEngine builds an engine for one caregiver session. The medication
// template is applied immediately so the form opens pre-populated.
func NewEngine(remote *Remote, session Session, template []carelog.MedicationEntry, opts ...EngineOption) *Engine {
	if session.LogDate == "" {
		session.LogDate = time.Now().Format("2006-01-02")
	}
	e := &Engine{
		remote:    remote,
		session:   session,
		template:  template,
		log:       zerolog.Nop(),
		status:    carelog.StatusDraft,
		form:      carelog.NewFormState(template),
		completed: map[string]carelog.SectionAudit{},
		saveState: SaveIdle,
		changes:   make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Load pulls today's draft from the server and hydrates the form. A missing
// draft is not an error: creation is deferred until the first flush so an
// untouched form never creates server state.
func (e *Engine) Load(ctx context.Context) error {
	d, err := e.remote.Today(ctx, e.session.LogDate)
	if err != nil {
		if IsIdentity(err) {
			return nil
		}
		return err
	}
	e.mu.Lock()
	e.adopt(d)
	e.mu.Unlock()
	return nil
}

// adopt replaces local identity and form state from a server draft.
// Call with e.mu held.
func (e *Engine) adopt(d *carelog.CareLogDraft) {
	e.draftID = d.ID
	e.status = d.Status
	e.form = carelog.Hydrate(d, e.template)
	e.completed = copyAudit(d.CompletedSections)
	e.dirty = false
}

// Update applies an edit to the form under the engine lock and marks the
// draft dirty. Submitted and invalidated drafts refuse edits.
func (e *Engine) Update(fn func(*carelog.FormState)) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.status != carelog.StatusDraft {
		return &Error{Kind: KindSubmission, Op: "update", Err: carelog.ErrDraftImmutable}
	}
	fn(e.form)
	e.dirty = true
	if e.saveState != SaveSaving {
		e.saveState = SavePending
	}
	select {
	case e.changes <- struct{}{}:
	default:
	}
	return nil
}

// Changes signals on every edit. The autosaver debounces against it.
func (e *Engine) Changes() <-chan struct{} { return e.changes }

// Flush persists the current form if anything changed since the last save.
// An untouched form is a no-op, so interval ticks never create server state
// on their own. Concurrent calls coalesce onto the in-flight save.
func (e *Engine) Flush(ctx context.Context) error {
	return e.flush(ctx, false)
}

// flush does the persisting. When force is set a clean form without a server
// identity still creates one; submission needs a draft id even if the
// caregiver typed nothing.
func (e *Engine) flush(ctx context.Context, force bool) error {
	e.mu.Lock()
	if e.status != carelog.StatusDraft {
		e.mu.Unlock()
		return &Error{Kind: KindSubmission, Op: "flush", Err: carelog.ErrDraftImmutable}
	}
	if e.inFlight {
		e.mu.Unlock()
		return nil
	}
	if !e.dirty && (e.draftID != uuid.Nil || !force) {
		e.mu.Unlock()
		return nil
	}
	if e.draftID == uuid.Nil && e.session.CareRecipientID == uuid.Nil {
		err := &Error{Kind: KindIdentity, Op: "flush", Err: errors.New("no care recipient selected")}
		e.saveState = SaveError
		e.saveErr = err
		e.mu.Unlock()
		return err
	}
	e.inFlight = true
	e.saveState = SaveSaving
	e.dirty = false
	snapshot := e.form.Snapshot()
	draftID := e.draftID
	e.mu.Unlock()

	d, err := e.persist(ctx, draftID, snapshot)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.inFlight = false
	if err != nil {
		e.dirty = true
		e.saveState = SaveError
		e.saveErr = err
		e.log.Warn().Err(err).Msg("autosave failed, edits kept for retry")
		return err
	}
	if e.draftID == uuid.Nil {
		e.draftID = d.ID
		e.log.Debug().Str("draft_id", d.ID.String()).Msg("draft created")
	} else {
		e.log.Debug().Str("draft_id", d.ID.String()).Msg("draft saved")
	}
	e.saveErr = nil
	if e.dirty {
		e.saveState = SavePending
	} else {
		e.saveState = SaveIdle
	}
	return nil
}

// persist routes a snapshot to create or save. A create that loses the race
// to another device falls back to adopting the existing draft and saving
// over it, last write wins.
func (e *Engine) persist(ctx context.Context, draftID uuid.UUID, snapshot carelog.SectionData) (*carelog.CareLogDraft, error) {
	if draftID != uuid.Nil {
		return e.remote.SaveSections(ctx, draftID, snapshot)
	}
	d, err := e.remote.CreateDraft(ctx, e.session.CareRecipientID, e.session.LogDate, snapshot)
	if err == nil {
		return d, nil
	}
	if !IsSubmission(err) {
		return nil, err
	}
	existing, lerr := e.remote.ByRecipientDate(ctx, e.session.CareRecipientID, e.session.LogDate)
	if lerr != nil {
		return nil, lerr
	}
	return e.remote.SaveSections(ctx, existing.ID, snapshot)
}

// ensureDraft guarantees a server identity exists, flushing local edits in
// the process.
func (e *Engine) ensureDraft(ctx context.Context) (uuid.UUID, error) {
	if err := e.flush(ctx, true); err != nil {
		return uuid.Nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.draftID == uuid.Nil {
		return uuid.Nil, &Error{Kind: KindIdentity, Op: "ensure draft", Err: errors.New("draft has no server identity")}
	}
	return e.draftID, nil
}

// Sections evaluates the thirteen form sections against the current edits.
func (e *Engine) Sections() []carelog.SectionStatus {
	s := e.snapshot()
	return carelog.EvaluateSections(&s)
}

// Alerts classifies the form's vitals for the session's recipient.
func (e *Engine) Alerts() []carelog.VitalAlert {
	s := e.snapshot()
	return carelog.ClassifyVitals(s.Vitals, e.session.RecipientAge, e.session.RecipientGender)
}

// CompletionPercentage reports how much of the form has data, 0-100.
func (e *Engine) CompletionPercentage() int {
	s := e.snapshot()
	return carelog.CompletionPercentage(&s)
}

// CompletedSections returns a copy of the server-authoritative share map.
func (e *Engine) CompletedSections() map[string]carelog.SectionAudit {
	e.mu.Lock()
	defer e.mu.Unlock()
	return copyAudit(e.completed)
}

// SaveStatus reports the autosave state and the last save error, if any.
func (e *Engine) SaveStatus() (SaveState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.saveState, e.saveErr
}

// DraftID returns the server identity, or uuid.Nil before the first flush.
func (e *Engine) DraftID() uuid.UUID {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.draftID
}

// Status returns the draft lifecycle state as last seen from the server.
func (e *Engine) Status() carelog.DraftStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

func (e *Engine) snapshot() carelog.SectionData {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.form.Snapshot()
}

func copyAudit(in map[string]carelog.SectionAudit) map[string]carelog.SectionAudit {
	out := make(map[string]carelog.SectionAudit, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
