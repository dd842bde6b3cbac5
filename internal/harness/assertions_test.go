package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAssertionError_Format(t *testing.T) {
	err := &AssertionError{
		Type:     AssertStatus,
		Expected: `brief B1 in "Locked"`,
		Actual:   `"In Review"`,
		Trace: []TraceEvent{
			{Seq: 1, Action: ActionSubmit, Actor: "cli-1", Brief: "B1", Outcome: "ok"},
			{Seq: 2, Action: ActionTransition, Actor: "cli-1", Brief: "B1", Outcome: "FORBIDDEN_ACTOR"},
		},
	}

	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: status")
	assert.Contains(t, msg, `Expected: brief B1 in "Locked"`)
	assert.Contains(t, msg, `Actual: "In Review"`)
	assert.Contains(t, msg, "[1] submit B1 by cli-1 -> ok")
	assert.Contains(t, msg, "[2] transition B1 by cli-1 -> FORBIDDEN_ACTOR")
}

func TestEvaluateAssertions_NoContext(t *testing.T) {
	errs := EvaluateAssertions(NewResult(), []Assertion{{Type: AssertStatus, Brief: "B1", Status: "Locked"}}, nil)
	assert.Len(t, errs, 1)
	assert.Contains(t, errs[0], "requires service context")
}

func TestDescribeFieldSource(t *testing.T) {
	yes := true
	note := "hi"
	got := describeFieldSource(Assertion{Path: "requirements", Source: "client", Confirmed: &yes, Note: &note})
	assert.Equal(t, `requirements source=client confirmed=true note="hi"`, got)
}

func TestFieldSourceAssertions(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: field_source_checks
description: "field_source compares only the fields it sets"
briefs:
  - fixture: legacy
    id: L1
steps:
  - action: mark
    as: advisor
    brief: L1
    path: businessContext.industry
    flag: true
assertions:
  - type: field_source
    brief: L1
    path: businessContext.industry
    marked: true
  - type: field_source
    brief: L1
    path: businessContext.industry
    confirmed: true
  - type: field_source
    brief: L1
    path: requirements
    source: advisor
  - type: audit_count
    brief: L1
    counter: pending_input
    count: 1
`))
	if !assert.NoError(t, err) {
		return
	}

	result, err := Run(scenario)
	if !assert.NoError(t, err) {
		return
	}
	if assert.Len(t, result.Errors, 2) {
		assert.Contains(t, result.Errors[0], "confirmed=false")
		assert.Contains(t, result.Errors[1], "path not tracked")
	}
}
