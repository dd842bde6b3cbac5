package harness

import "github.com/roach88/briefs/internal/audit"

// TraceEvent records one executed step.
type TraceEvent struct {
	Seq     int64  `json:"seq"`
	Action  string `json:"action"`
	Actor   string `json:"actor"`
	Brief   string `json:"brief,omitempty"`
	Outcome string `json:"outcome"` // "ok" or an error code
	Status  string `json:"status,omitempty"`
}

// BriefState is the final state of one brief.
type BriefState struct {
	ID       string         `json:"id"`
	Status   string         `json:"status"`
	Counters audit.Counters `json:"counters"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every step met its expect clause and every assertion held.
	Pass bool `json:"pass"`

	// Trace contains every step in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Briefs holds the final state of every stored brief, ordered by ID.
	Briefs []BriefState `json:"briefs"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		Briefs: []BriefState{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a step record with the next sequence number.
func (r *Result) AddTrace(ev TraceEvent) {
	ev.Seq = int64(len(r.Trace) + 1)
	r.Trace = append(r.Trace, ev)
}
