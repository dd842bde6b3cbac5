package workflow

import (
	"errors"

	"github.com/roach88/briefs/internal/access"
	"github.com/roach88/briefs/internal/brief"
	"github.com/roach88/briefs/internal/fieldpath"
	"github.com/roach88/briefs/internal/ledger"
	"github.com/roach88/briefs/internal/lifecycle"
	"github.com/roach88/briefs/internal/review"
)

// Stable error codes reported by the HTTP API, the CLI and scenarios.
// Lifecycle failures report their lifecycle.TransitionErrorCode.
const (
	CodeNotFound           = "NOT_FOUND"
	CodeForbidden          = "FORBIDDEN"
	CodeWrongStatus        = "WRONG_STATUS"
	CodeIncomplete         = "INCOMPLETE"
	CodeInvalidBrief       = "INVALID_BRIEF"
	CodeInvalidPath        = "INVALID_PATH"
	CodeUnknownPath        = "UNKNOWN_PATH"
	CodeInvalidValue       = "INVALID_VALUE"
	CodeNothingToConfirm   = "NOTHING_TO_CONFIRM"
	CodeReadOnly           = "READ_ONLY"
	CodeSaveInFlight       = "SAVE_IN_FLIGHT"
	CodeSessionClosed      = "SESSION_CLOSED"
	CodeUnknownProjectType = "UNKNOWN_PROJECT_TYPE"
	CodeInternal           = "INTERNAL"
)

// ErrorCode classifies err. Access errors win over everything else so that
// a redirect-class failure is never reported as something more specific.
func ErrorCode(err error) string {
	var te *lifecycle.TransitionError
	var ve *brief.ValidationError
	var ie *review.IncompleteError

	switch {
	case err == nil:
		return ""
	case errors.Is(err, access.ErrNotFound):
		return CodeNotFound
	case errors.Is(err, access.ErrForbidden):
		return CodeForbidden
	case errors.Is(err, access.ErrWrongStatus):
		return CodeWrongStatus
	case errors.As(err, &te):
		return string(te.Code)
	case errors.As(err, &ie):
		return CodeIncomplete
	case errors.As(err, &ve):
		return CodeInvalidBrief
	case errors.Is(err, fieldpath.ErrInvalidPath):
		return CodeInvalidPath
	case errors.Is(err, fieldpath.ErrUnknownPath):
		return CodeUnknownPath
	case errors.Is(err, fieldpath.ErrKind),
		errors.Is(err, fieldpath.ErrIndexOutOfRange),
		errors.Is(err, fieldpath.ErrNotAssignable):
		return CodeInvalidValue
	case errors.Is(err, ledger.ErrNothingToConfirm):
		return CodeNothingToConfirm
	case errors.Is(err, ledger.ErrReadOnly):
		return CodeReadOnly
	case errors.Is(err, review.ErrSaveInFlight):
		return CodeSaveInFlight
	case errors.Is(err, review.ErrClosed):
		return CodeSessionClosed
	case errors.Is(err, ErrUnknownProjectType):
		return CodeUnknownProjectType
	}
	return CodeInternal
}

// Problems lists the itemized failures behind a validation or completeness
// error, or nil for any other error.
func Problems(err error) []string {
	var ve *brief.ValidationError
	var ie *review.IncompleteError
	switch {
	case errors.As(err, &ie):
		return ie.Report.Issues()
	case errors.As(err, &ve):
		return ve.Problems
	}
	return nil
}
