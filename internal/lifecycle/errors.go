package lifecycle

import (
	"errors"
	"fmt"

	"github.com/roach88/briefs/internal/access"
	"github.com/roach88/briefs/internal/brief"
)

// TransitionError represents a rejected lifecycle move.
//
// The input brief is never modified when a TransitionError is returned.
type TransitionError struct {
	// Code identifies the error category.
	Code TransitionErrorCode

	// Message is a human-readable description.
	Message string

	// BriefID identifies the affected brief.
	BriefID string

	// From is the brief's status at the time of the attempt.
	From brief.Status

	// Event is the attempted event.
	Event Event

	// Role is the role of the actor who attempted the event.
	Role access.Role
}

// TransitionErrorCode categorizes transition errors.
type TransitionErrorCode string

const (
	// ErrCodeIllegalTransition indicates no table row matches (status, event).
	ErrCodeIllegalTransition TransitionErrorCode = "ILLEGAL_TRANSITION"

	// ErrCodeForbiddenActor indicates the row exists but the actor's role may
	// not trigger it.
	ErrCodeForbiddenActor TransitionErrorCode = "FORBIDDEN_ACTOR"

	// ErrCodeUnknownEvent indicates an event name outside the table.
	ErrCodeUnknownEvent TransitionErrorCode = "UNKNOWN_EVENT"

	// ErrCodeLockInvariant indicates lock fields disagree with the status.
	ErrCodeLockInvariant TransitionErrorCode = "LOCK_INVARIANT"
)

// Error implements the error interface.
func (e *TransitionError) Error() string {
	if e.BriefID != "" {
		return fmt.Sprintf("%s: %s (brief=%s)", e.Code, e.Message, e.BriefID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsIllegalTransition returns true if the error is an illegal transition.
// Uses errors.As to handle wrapped errors.
func IsIllegalTransition(err error) bool {
	var te *TransitionError
	if errors.As(err, &te) {
		return te.Code == ErrCodeIllegalTransition || te.Code == ErrCodeUnknownEvent
	}
	return false
}

// IsForbiddenActor returns true if the error rejects the actor's role.
func IsForbiddenActor(err error) bool {
	var te *TransitionError
	if errors.As(err, &te) {
		return te.Code == ErrCodeForbiddenActor
	}
	return false
}
