package client

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failure by how callers should react to it.
type ErrorKind string

const (
	// KindIdentity means the draft's server identity could not be
	// established or resolved. Nothing can be persisted until it clears.
	KindIdentity ErrorKind = "identity"
	// KindTransient covers network faults and server-side conditions that
	// a later retry may resolve. Local edits are kept.
	KindTransient ErrorKind = "transient"
	// KindSubmission means the server or a local gate rejected a
	// submission. The draft stays editable.
	KindSubmission ErrorKind = "submission"
)

// Error wraps a failed operation with its classification. Missing carries
// the outstanding requirements when a submission was rejected as incomplete.
type Error struct {
	Kind    ErrorKind
	Op      string
	Missing []string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// IsTransient reports whether err is worth retrying later.
func IsTransient(err error) bool { return kindOf(err) == KindTransient }

// IsIdentity reports whether err blocked draft identity resolution.
func IsIdentity(err error) bool { return kindOf(err) == KindIdentity }

// IsSubmission reports whether err was a rejected submission.
func IsSubmission(err error) bool { return kindOf(err) == KindSubmission }

// MissingRequirements extracts the incomplete-submission detail, if any.
func MissingRequirements(err error) []string {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Missing
	}
	return nil
}

func kindOf(err error) ErrorKind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}
