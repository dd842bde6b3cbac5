package brief

import "fmt"

// Status is the lifecycle state of a brief. Values are the exact wire strings.
type Status string

const (
	StatusAdvisorDraft Status = "Advisor Draft"
	StatusClientReview Status = "Client Review"
	StatusInReview     Status = "In Review"
	StatusLocked       Status = "Locked"
	StatusMatching     Status = "Matching"
	StatusShortlisted  Status = "Shortlisted"
	StatusSelected     Status = "Selected"
	StatusInExecution  Status = "In Execution"
	StatusCompleted    Status = "Completed"
)

// statusOrder lists every status in lifecycle order.
var statusOrder = []Status{
	StatusAdvisorDraft,
	StatusClientReview,
	StatusInReview,
	StatusLocked,
	StatusMatching,
	StatusShortlisted,
	StatusSelected,
	StatusInExecution,
	StatusCompleted,
}

// Statuses returns all statuses in lifecycle order.
func Statuses() []Status {
	out := make([]Status, len(statusOrder))
	copy(out, statusOrder)
	return out
}

// Ordinal returns the position of s in the lifecycle, or -1 if s is unknown.
func (s Status) Ordinal() int {
	for i, candidate := range statusOrder {
		if candidate == s {
			return i
		}
	}
	return -1
}

// Valid reports whether s is one of the nine known statuses.
func (s Status) Valid() bool {
	return s.Ordinal() >= 0
}

// AtLeast reports whether s is at or past other in the lifecycle.
// Unknown statuses are never at least anything.
func (s Status) AtLeast(other Status) bool {
	a, b := s.Ordinal(), other.Ordinal()
	if a < 0 || b < 0 {
		return false
	}
	return a >= b
}

// Finalized reports whether the brief has been locked at some point,
// i.e. the ledger is read-only.
func (s Status) Finalized() bool {
	return s.AtLeast(StatusLocked)
}

// ParseStatus converts a wire string to a Status.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.Valid() {
		return "", fmt.Errorf("invalid brief status %q", raw)
	}
	return s, nil
}
