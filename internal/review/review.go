// Package review runs a client's guided review of one brief.
//
// A Session owns the in-memory brief and every per-session flag: which
// fields already emitted a confirmed signal, which fields the client has
// seen, which editors are open, the edit counter and the in-flight save.
// Explicit confirmations, client edits and passive visibility confirmations
// all enter the same funnel (handle), so the at-most-once signal guarantee
// holds no matter how a confirmation was triggered.
package review

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/roach88/briefs/internal/brief"
	"github.com/roach88/briefs/internal/completion"
	"github.com/roach88/briefs/internal/fieldpath"
	"github.com/roach88/briefs/internal/store"
)

// DefaultAutosaveInterval is the autosave period when none is configured.
const DefaultAutosaveInterval = 60 * time.Second

var (
	// ErrSaveInFlight is returned by an explicit save or submit while another
	// write of the same session has not returned yet.
	ErrSaveInFlight = errors.New("a save is already in flight")

	// ErrClosed is returned by explicit operations after Close.
	ErrClosed = errors.New("review session is closed")
)

// Origin says what triggered a confirmation.
type Origin string

const (
	OriginExplicit   Origin = "explicit"
	OriginEdit       Origin = "edit"
	OriginVisibility Origin = "visibility"
)

// ConfirmationEvent is one input to the confirmation funnel. Value is only
// used for OriginEdit.
type ConfirmationEvent struct {
	Path   fieldpath.Path
	Origin Origin
	Value  brief.Value
}

// SaveMode distinguishes autosave from user-initiated saves.
type SaveMode int

const (
	// SaveSilent runs only when there are unsaved edits; failures are
	// swallowed and the brief stays dirty.
	SaveSilent SaveMode = iota
	// SaveExplicit always writes and returns failures to the caller.
	SaveExplicit
)

func (m SaveMode) String() string {
	if m == SaveExplicit {
		return "explicit"
	}
	return "silent"
}

// Persister writes whole brief documents. *store.Store satisfies it.
type Persister interface {
	PutBrief(ctx context.Context, b *brief.Brief) (*brief.Brief, error)
	PutBriefTransition(ctx context.Context, b *brief.Brief, change store.StatusChange) (*brief.Brief, error)
}

// Notifier receives the outbound field-confirmed signal. A session calls it
// at most once per field.
type Notifier interface {
	FieldConfirmed(ctx context.Context, sig store.ConfirmationSignal) error
}

// SignalWriter is the outbox side of the store.
type SignalWriter interface {
	WriteConfirmationSignal(ctx context.Context, sig store.ConfirmationSignal) (int64, bool, error)
}

// StoreNotifier records signals in the store's outbox table.
type StoreNotifier struct {
	Store SignalWriter
}

// FieldConfirmed implements Notifier.
func (n StoreNotifier) FieldConfirmed(ctx context.Context, sig store.ConfirmationSignal) error {
	_, _, err := n.Store.WriteConfirmationSignal(ctx, sig)
	return err
}

// IncompleteError is returned by Submit when the brief is not submittable.
// It is a validation failure: nothing was written.
type IncompleteError struct {
	Report completion.Report
}

func (e *IncompleteError) Error() string {
	return "brief is not submittable: " + strings.Join(e.Report.Issues(), "; ")
}

// IsIncomplete reports whether err is an IncompleteError.
func IsIncomplete(err error) bool {
	var ie *IncompleteError
	return errors.As(err, &ie)
}

// state holds the session-scoped flags. It is replaced wholesale on Reload.
type state struct {
	emitted map[string]bool
	seen    map[string]bool
	editing map[string]bool

	edits *EditCounter
	// saved is the edit counter value covered by the last successful save.
	saved int64
	// generation changes on Reload; a save started in an older generation
	// does not apply its response.
	generation int

	inFlight bool
	mounted  bool
}

func newState(generation int) state {
	return state{
		emitted:    map[string]bool{},
		seen:       map[string]bool{},
		editing:    map[string]bool{},
		edits:      &EditCounter{},
		generation: generation,
		mounted:    true,
	}
}

func (st *state) dirty() bool {
	return st.edits.Current() > st.saved
}
