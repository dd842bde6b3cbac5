package harness

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/briefs/internal/audit"
	"github.com/roach88/briefs/internal/testutil"
	"github.com/roach88/briefs/internal/workflow"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	// Header with assertion type
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)

	// Expected vs Actual (most important info)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	// Full trace for context
	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, event := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s %s by %s -> %s\n", event.Seq, event.Action, event.Brief, event.Actor, event.Outcome)
	}

	return buf.String()
}

// AssertionContext provides service access for assertions.
// Reads go through the admin identity so access rules never hide state.
type AssertionContext struct {
	Svc     *workflow.Service
	Ctx     context.Context
	Resolve func(name string) string
}

func (a *AssertionContext) briefID(name string) string {
	if a.Resolve == nil {
		return name
	}
	return a.Resolve(name)
}

func assertStatus(actx *AssertionContext, trace []TraceEvent, assertion Assertion) error {
	b, err := actx.Svc.Get(actx.Ctx, testutil.Admin, actx.briefID(assertion.Brief))
	if err != nil {
		return err
	}
	if string(b.Status) != assertion.Status {
		return &AssertionError{
			Type:     AssertStatus,
			Expected: fmt.Sprintf("brief %s in %q", assertion.Brief, assertion.Status),
			Actual:   fmt.Sprintf("%q", b.Status),
			Trace:    trace,
		}
	}
	return nil
}

// assertFieldSource checks the audit row of one path. Only the fields the
// assertion sets are compared.
func assertFieldSource(actx *AssertionContext, trace []TraceEvent, assertion Assertion) error {
	view, err := actx.Svc.Audit(actx.Ctx, testutil.Admin, actx.briefID(assertion.Brief), audit.ModeAll)
	if err != nil {
		return err
	}
	i := slices.IndexFunc(view.Rows, func(r audit.Row) bool { return r.Path == assertion.Path })
	if i < 0 {
		return &AssertionError{
			Type:     AssertFieldSource,
			Expected: fmt.Sprintf("tracked path %s", assertion.Path),
			Actual:   "path not tracked",
			Trace:    trace,
		}
	}
	row := view.Rows[i]

	var mismatches []string
	if assertion.Source != "" && string(row.Source) != assertion.Source {
		mismatches = append(mismatches, fmt.Sprintf("source=%s", row.Source))
	}
	if assertion.Confirmed != nil && row.ConfirmedByClient != *assertion.Confirmed {
		mismatches = append(mismatches, fmt.Sprintf("confirmed=%t", row.ConfirmedByClient))
	}
	if assertion.Marked != nil && row.MarkedForClientInput != *assertion.Marked {
		mismatches = append(mismatches, fmt.Sprintf("marked=%t", row.MarkedForClientInput))
	}
	if assertion.Note != nil && row.Note != *assertion.Note {
		mismatches = append(mismatches, fmt.Sprintf("note=%q", row.Note))
	}
	if len(mismatches) > 0 {
		return &AssertionError{
			Type:     AssertFieldSource,
			Expected: describeFieldSource(assertion),
			Actual:   fmt.Sprintf("%s with %s", assertion.Path, strings.Join(mismatches, ", ")),
			Trace:    trace,
		}
	}
	return nil
}

func describeFieldSource(a Assertion) string {
	parts := []string{a.Path}
	if a.Source != "" {
		parts = append(parts, "source="+a.Source)
	}
	if a.Confirmed != nil {
		parts = append(parts, fmt.Sprintf("confirmed=%t", *a.Confirmed))
	}
	if a.Marked != nil {
		parts = append(parts, fmt.Sprintf("marked=%t", *a.Marked))
	}
	if a.Note != nil {
		parts = append(parts, fmt.Sprintf("note=%q", *a.Note))
	}
	return strings.Join(parts, " ")
}

// assertAuditCount checks a counter of the audit projection. The "rows"
// counter counts the rows shown in the assertion's mode.
func assertAuditCount(actx *AssertionContext, trace []TraceEvent, assertion Assertion) error {
	mode, err := audit.ParseMode(assertion.Mode)
	if err != nil {
		return err
	}
	view, err := actx.Svc.Audit(actx.Ctx, testutil.Admin, actx.briefID(assertion.Brief), mode)
	if err != nil {
		return err
	}

	var actual int
	switch assertion.Counter {
	case CounterConfirmed:
		actual = view.Counters.ConfirmedByClient
	case CounterClientSourced:
		actual = view.Counters.ClientSourced
	case CounterPendingInput:
		actual = view.Counters.PendingInput
	case CounterTotal:
		actual = view.Counters.Total
	case CounterRows:
		actual = len(view.Rows)
	}
	if actual != *assertion.Count {
		return &AssertionError{
			Type:     AssertAuditCount,
			Expected: fmt.Sprintf("%s=%d (mode %s)", assertion.Counter, *assertion.Count, mode),
			Actual:   fmt.Sprintf("%s=%d", assertion.Counter, actual),
			Trace:    trace,
		}
	}
	return nil
}

func assertSubmittable(actx *AssertionContext, trace []TraceEvent, assertion Assertion) error {
	report, err := actx.Svc.Evaluate(actx.Ctx, testutil.Admin, actx.briefID(assertion.Brief))
	if err != nil {
		return err
	}
	if report.Submittable != *assertion.Want {
		return &AssertionError{
			Type:     AssertSubmittable,
			Expected: fmt.Sprintf("submittable=%t", *assertion.Want),
			Actual:   fmt.Sprintf("submittable=%t, issues: %s", report.Submittable, strings.Join(report.Issues(), "; ")),
			Trace:    trace,
		}
	}
	return nil
}

func assertSignalCount(actx *AssertionContext, trace []TraceEvent, assertion Assertion) error {
	signals, err := actx.Svc.Signals(actx.Ctx, testutil.Admin, actx.briefID(assertion.Brief))
	if err != nil {
		return err
	}
	if len(signals) != *assertion.Count {
		paths := make([]string, len(signals))
		for i, sig := range signals {
			paths[i] = sig.FieldPath
		}
		return &AssertionError{
			Type:     AssertSignalCount,
			Expected: fmt.Sprintf("%d signals", *assertion.Count),
			Actual:   fmt.Sprintf("%d signals %v", len(signals), paths),
			Trace:    trace,
		}
	}
	return nil
}

// assertHistory checks the exact ordered list of recorded events.
func assertHistory(actx *AssertionContext, trace []TraceEvent, assertion Assertion) error {
	history, err := actx.Svc.StatusHistory(actx.Ctx, testutil.Admin, actx.briefID(assertion.Brief))
	if err != nil {
		return err
	}
	events := make([]string, len(history))
	for i, change := range history {
		events[i] = change.Event
	}
	if !slices.Equal(events, assertion.Events) {
		return &AssertionError{
			Type:     AssertHistory,
			Expected: fmt.Sprintf("%v", assertion.Events),
			Actual:   fmt.Sprintf("%v", events),
			Trace:    trace,
		}
	}
	return nil
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		if actx == nil || actx.Svc == nil {
			errors = append(errors, fmt.Sprintf("assertion[%d]: %s requires service context", i, assertion.Type))
			continue
		}

		switch assertion.Type {
		case AssertStatus:
			err = assertStatus(actx, result.Trace, assertion)
		case AssertFieldSource:
			err = assertFieldSource(actx, result.Trace, assertion)
		case AssertAuditCount:
			err = assertAuditCount(actx, result.Trace, assertion)
		case AssertSubmittable:
			err = assertSubmittable(actx, result.Trace, assertion)
		case AssertSignalCount:
			err = assertSignalCount(actx, result.Trace, assertion)
		case AssertHistory:
			err = assertHistory(actx, result.Trace, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
