// Package lifecycle implements the brief status state machine.
//
// The transition table below is the only source of legal moves. Apply works
// on a copy of the brief: on success the caller persists the returned copy;
// on failure the original is untouched, so a failed write never leaves a
// partial status flip behind.
package lifecycle

import (
	"fmt"
	"slices"
	"time"

	"github.com/roach88/briefs/internal/access"
	"github.com/roach88/briefs/internal/brief"
)

// Event names a lifecycle action. Values are the wire strings.
type Event string

const (
	EventSendToClient   Event = "send_to_client"
	EventRecall         Event = "recall"
	EventClientSubmit   Event = "client_submit"
	EventSaveProgress   Event = "save_progress"
	EventLock           Event = "lock"
	EventSendBack       Event = "send_back"
	EventUnlock         Event = "unlock"
	EventGenerateMatch  Event = "generate_matches"
	EventShortlist      Event = "shortlist"
	EventSelect         Event = "select"
	EventStartExecution Event = "start_execution"
	EventComplete       Event = "complete"
)

// ParseEvent converts a wire string to a known Event.
func ParseEvent(raw string) (Event, error) {
	ev := Event(raw)
	for _, t := range table {
		if t.Event == ev {
			return ev, nil
		}
	}
	return "", &TransitionError{Code: ErrCodeUnknownEvent, Message: fmt.Sprintf("unknown event %q", raw), Event: ev}
}

// Transition is one row of the table.
type Transition struct {
	From   brief.Status
	Event  Event
	To     brief.Status
	Roles  []access.Role
	effect func(b *brief.Brief, actor access.Identity, now time.Time)
}

var (
	advisorRoles  = []access.Role{access.RoleAdvisor, access.RoleAdmin}
	clientRoles   = []access.Role{access.RoleClient}
	externalRoles = []access.Role{access.RoleSystem, access.RoleAdmin}
	matchRoles    = []access.Role{access.RoleAdvisor, access.RoleAdmin, access.RoleSystem}
)

var table = []Transition{
	{brief.StatusAdvisorDraft, EventSendToClient, brief.StatusClientReview, advisorRoles,
		func(b *brief.Brief, _ access.Identity, now time.Time) {
			b.ClientReviewStartedAt = &now
			b.ClientReviewCompletedAt = nil
		}},
	{brief.StatusClientReview, EventRecall, brief.StatusAdvisorDraft, advisorRoles,
		func(b *brief.Brief, _ access.Identity, _ time.Time) {
			b.ClientReviewStartedAt = nil
			b.ClientReviewCompletedAt = nil
		}},
	{brief.StatusClientReview, EventClientSubmit, brief.StatusInReview, clientRoles,
		func(b *brief.Brief, _ access.Identity, now time.Time) {
			b.ClientReviewCompletedAt = &now
		}},
	{brief.StatusClientReview, EventSaveProgress, brief.StatusClientReview, clientRoles, nil},
	{brief.StatusInReview, EventLock, brief.StatusLocked, advisorRoles,
		func(b *brief.Brief, actor access.Identity, now time.Time) {
			by := actor.ID
			b.LockedAt = &now
			b.LockedBy = &by
		}},
	{brief.StatusInReview, EventSendBack, brief.StatusClientReview, advisorRoles,
		func(b *brief.Brief, _ access.Identity, _ time.Time) {
			b.ClientReviewCompletedAt = nil
		}},
	{brief.StatusLocked, EventUnlock, brief.StatusInReview, advisorRoles,
		func(b *brief.Brief, _ access.Identity, _ time.Time) {
			b.LockedAt = nil
			b.LockedBy = nil
		}},
	{brief.StatusLocked, EventGenerateMatch, brief.StatusMatching, matchRoles, nil},
	{brief.StatusMatching, EventShortlist, brief.StatusShortlisted, externalRoles, nil},
	{brief.StatusShortlisted, EventSelect, brief.StatusSelected, externalRoles, nil},
	{brief.StatusSelected, EventStartExecution, brief.StatusInExecution, advisorRoles, nil},
	{brief.StatusInExecution, EventComplete, brief.StatusCompleted, advisorRoles, nil},
}

// Lookup returns the row for (from, ev).
func Lookup(from brief.Status, ev Event) (Transition, bool) {
	for _, t := range table {
		if t.From == from && t.Event == ev {
			return t, true
		}
	}
	return Transition{}, false
}

// Allows reports whether role may trigger t.
func (t Transition) Allows(role access.Role) bool {
	return slices.Contains(t.Roles, role)
}

// Check validates (status, event, role) without applying anything.
func Check(b *brief.Brief, ev Event, role access.Role) (Transition, error) {
	t, ok := Lookup(b.Status, ev)
	if !ok {
		if _, err := ParseEvent(string(ev)); err != nil {
			te := err.(*TransitionError)
			te.BriefID, te.From, te.Role = b.ID, b.Status, role
			return Transition{}, te
		}
		return Transition{}, &TransitionError{
			Code:    ErrCodeIllegalTransition,
			Message: fmt.Sprintf("cannot %s from %s", ev, b.Status),
			BriefID: b.ID,
			From:    b.Status,
			Event:   ev,
			Role:    role,
		}
	}
	if !t.Allows(role) {
		return Transition{}, &TransitionError{
			Code:    ErrCodeForbiddenActor,
			Message: fmt.Sprintf("%s may not %s", role, ev),
			BriefID: b.ID,
			From:    b.Status,
			Event:   ev,
			Role:    role,
		}
	}
	return t, nil
}

// Apply performs ev on a copy of b and returns the copy. Timestamps are
// stored in UTC.
func Apply(b *brief.Brief, ev Event, actor access.Identity, now time.Time) (*brief.Brief, error) {
	t, err := Check(b, ev, actor.Role)
	if err != nil {
		return nil, err
	}
	out := b.Clone()
	out.Status = t.To
	if t.effect != nil {
		t.effect(out, actor, now.UTC())
	}
	return out, nil
}

// Available lists the events role may trigger from status, in table order.
func Available(status brief.Status, role access.Role) []Event {
	var out []Event
	for _, t := range table {
		if t.From == status && t.Allows(role) {
			out = append(out, t.Event)
		}
	}
	return out
}

// CheckLockInvariant verifies that lockedAt and lockedBy are both unset
// before Locked and both set in Locked and Matching. Later statuses are not
// checked: the fields keep recording when the brief was first locked.
func CheckLockInvariant(b *brief.Brief) error {
	set := b.LockedAt != nil && b.LockedBy != nil
	unset := b.LockedAt == nil && b.LockedBy == nil
	switch {
	case !b.Status.AtLeast(brief.StatusLocked):
		if !unset {
			return lockErr(b, "lock fields must be empty before Locked")
		}
	case b.Status == brief.StatusLocked || b.Status == brief.StatusMatching:
		if !set {
			return lockErr(b, "lock fields must be set once Locked")
		}
	}
	return nil
}

func lockErr(b *brief.Brief, msg string) error {
	return &TransitionError{
		Code:    ErrCodeLockInvariant,
		Message: fmt.Sprintf("%s (status %s)", msg, b.Status),
		BriefID: b.ID,
		From:    b.Status,
	}
}
