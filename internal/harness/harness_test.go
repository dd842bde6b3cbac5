package harness

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadTestScenario(t *testing.T, name string) *Scenario {
	t.Helper()
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", name))
	require.NoError(t, err)
	return s
}

func TestRun_Golden(t *testing.T) {
	for _, name := range []string{"b1_lifecycle.yaml", "legacy_audit.yaml"} {
		t.Run(name, func(t *testing.T) {
			scenario := loadTestScenario(t, name)
			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestRun_FileFixture(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: file_fixture
description: "Seeds a brief from a YAML document"
briefs:
  - file: testdata/briefs/draft.yaml
steps:
  - action: transition
    as: advisor
    brief: D1
    event: send_to_client
  - action: confirm
    as: client
    brief: D1
    path: businessContext.companyName
assertions:
  - type: field_source
    brief: D1
    path: businessContext.companyName
    source: document
    confirmed: false
    marked: true
  - type: audit_count
    brief: D1
    counter: pending_input
    count: 1
`))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	require.Len(t, result.Briefs, 1)
	assert.Equal(t, "D1", result.Briefs[0].ID)
	assert.Equal(t, "Client Review", result.Briefs[0].Status)
}

func TestRun_CreateAlias(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: create_alias
description: "A created brief is addressed through its alias"
steps:
  - action: create
    as: advisor
    brief: NEW
    workspace: w1
    project_type: advisory
  - action: advisor_edit
    as: advisor
    brief: NEW
    path: businessContext.companyName
    value: Hooli
  - action: import_field
    as: advisor
    brief: NEW
    path: requirements
    value: [SSO, Audit log]
    source: ai
  - action: create
    as: client
    workspace: w1
    project_type: advisory
    expect:
      error: FORBIDDEN
  - action: create
    as: advisor
    workspace: w1
    project_type: spaceflight
    expect:
      error: UNKNOWN_PROJECT_TYPE
assertions:
  - type: status
    brief: NEW
    status: Advisor Draft
  - type: field_source
    brief: NEW
    path: requirements
    source: ai
  - type: audit_count
    brief: NEW
    counter: total
    count: 2
`))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	require.Len(t, result.Trace, 5)
	assert.Equal(t, "id-1", result.Trace[0].Brief)
	assert.Equal(t, "id-1", result.Trace[1].Brief)
	assert.Empty(t, result.Trace[3].Brief)
}

func TestRun_ReportsMismatches(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: mismatches
description: "Every miss is reported, not just the first"
briefs:
  - fixture: submittable
    id: B1
steps:
  - action: transition
    as: client
    brief: B1
    event: send_to_client
  - action: transition
    as: advisor
    brief: B1
    event: send_to_client
    expect:
      status: Locked
assertions:
  - type: status
    brief: B1
    status: Completed
  - type: signal_count
    brief: B1
    count: 4
`))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 4)
	assert.Contains(t, result.Errors[0], "expected ok, got NOT_FOUND")
	assert.Contains(t, result.Errors[1], `expected status "Locked", got "Client Review"`)
	assert.Contains(t, result.Errors[2], "Assertion failed: status")
	assert.Contains(t, result.Errors[3], "Assertion failed: signal_count")
}

func TestRun_UnknownIdentity(t *testing.T) {
	scenario := &Scenario{
		Name:        "ghost",
		Description: "unknown caller",
		Steps:       []Step{{Action: ActionSubmit, As: "ghost", Brief: "B1"}},
		Assertions:  []Assertion{{Type: AssertStatus, Brief: "B1", Status: "Locked"}},
	}
	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown identity "ghost"`)
}

func TestRun_CustomIdentity(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: custom_identity
description: "Scenario identities extend the defaults"
identities:
  reviewer: { id: cli-9, role: client, workspaces: [w1] }
briefs:
  - fixture: submittable
    id: B1
    status: Client Review
steps:
  - action: leave_view
    as: reviewer
    brief: B1
    path: businessContext.companyName
  - action: enter_view
    as: reviewer
    brief: B1
    path: businessContext.companyName
  - action: leave_view
    as: reviewer
    brief: B1
    path: businessContext.companyName
  - action: save
    as: reviewer
    brief: B1
assertions:
  - type: field_source
    brief: B1
    path: businessContext.companyName
    confirmed: true
  - type: signal_count
    brief: B1
    count: 1
`))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	for _, ev := range result.Trace {
		assert.Equal(t, "cli-9", ev.Actor)
	}
}

func TestSnapshot(t *testing.T) {
	result := NewResult()
	result.AddTrace(TraceEvent{Action: ActionSubmit, Actor: "cli-1", Brief: "B1", Outcome: "ok"})

	data, err := Snapshot("snap", result)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(data), "}\n"))
	assert.Contains(t, string(data), `"scenario_name": "snap"`)
	assert.Contains(t, string(data), `"seq": 1`)
	assert.NotContains(t, string(data), `"status"`)
}
