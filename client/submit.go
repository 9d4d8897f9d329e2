package client

import (
	"context"
	"errors"

	"github.com/carebridge/carelog/internal/domain/carelog"
)

// SubmitSection shares one submission group with family. Local edits are
// flushed first so the server validates what the caregiver actually sees,
// then the completed-sections map is replaced wholesale from the response
// so stamps made on other devices survive.
func (e *Engine) SubmitSection(ctx context.Context, group string) error {
	if !carelog.ValidSubmissionGroup(group) {
		return &Error{Kind: KindSubmission, Op: "submit section", Err: carelog.ErrUnknownSection}
	}
	id, err := e.ensureDraft(ctx)
	if err != nil {
		return err
	}
	completed, err := e.remote.SubmitSection(ctx, id, group)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.completed = copyAudit(completed)
	e.mu.Unlock()
	return nil
}

// Submit finalises the day's log. Completeness is checked locally first so
// an obviously incomplete form never leaves the device, then the server
// re-validates against its own copy.
func (e *Engine) Submit(ctx context.Context) error {
	s := e.snapshot()
	if ok, missing := carelog.AllSectionsComplete(&s); !ok {
		return &Error{
			Kind:    KindSubmission,
			Op:      "submit",
			Missing: missing,
			Err:     errors.New("care log incomplete"),
		}
	}
	id, err := e.ensureDraft(ctx)
	if err != nil {
		return err
	}
	d, err := e.remote.Submit(ctx, id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.status = d.Status
	e.completed = copyAudit(d.CompletedSections)
	e.mu.Unlock()
	return nil
}
