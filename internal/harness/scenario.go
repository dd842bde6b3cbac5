package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/briefs/internal/access"
	"github.com/roach88/briefs/internal/brief"
)

// Scenario is one lifecycle test: seeded briefs, a sequence of steps and
// assertions on the final state.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Identities adds or overrides named callers.
	Identities map[string]Identity `yaml:"identities,omitempty"`

	// Briefs are imported by the admin before the first step.
	Briefs []BriefFixture `yaml:"briefs,omitempty"`

	// Steps run in order; each one is checked against its expect clause.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final state.
	Assertions []Assertion `yaml:"assertions"`

	// dir is the scenario file's directory, for resolving fixture files.
	dir string
}

// Identity is a named caller.
type Identity struct {
	ID         string   `yaml:"id"`
	Role       string   `yaml:"role"`
	Workspaces []string `yaml:"workspaces"`
}

// BriefFixture seeds one brief. Exactly one of Fixture or File is set.
type BriefFixture struct {
	// Fixture is a built-in brief: "submittable" or "legacy".
	Fixture string `yaml:"fixture,omitempty"`

	// File is a JSON or YAML record document, relative to the scenario.
	File string `yaml:"file,omitempty"`

	// ID overrides the brief ID.
	ID string `yaml:"id,omitempty"`

	// Status overrides the brief status.
	Status string `yaml:"status,omitempty"`
}

// Step is one operation performed by a named identity.
type Step struct {
	Action      string  `yaml:"action"`
	As          string  `yaml:"as"`
	Brief       string  `yaml:"brief,omitempty"`
	Event       string  `yaml:"event,omitempty"`
	Path        string  `yaml:"path,omitempty"`
	Value       any     `yaml:"value,omitempty"`
	Source      string  `yaml:"source,omitempty"`
	Flag        *bool   `yaml:"flag,omitempty"`
	Text        string  `yaml:"text,omitempty"`
	Mode        string  `yaml:"mode,omitempty"`
	Workspace   string  `yaml:"workspace,omitempty"`
	ProjectType string  `yaml:"project_type,omitempty"`
	Expect      *Expect `yaml:"expect,omitempty"`
}

// Expect is the expected outcome of a step. Without one, the step must
// succeed.
type Expect struct {
	// Error is the expected error code; empty means success.
	Error string `yaml:"error,omitempty"`

	// Status is the brief's expected status after the step.
	Status string `yaml:"status,omitempty"`
}

// Assertion validates the final state of one brief.
type Assertion struct {
	Type      string   `yaml:"type"`
	Brief     string   `yaml:"brief"`
	Status    string   `yaml:"status,omitempty"`
	Path      string   `yaml:"path,omitempty"`
	Source    string   `yaml:"source,omitempty"`
	Confirmed *bool    `yaml:"confirmed,omitempty"`
	Marked    *bool    `yaml:"marked,omitempty"`
	Note      *string  `yaml:"note,omitempty"`
	Mode      string   `yaml:"mode,omitempty"`
	Counter   string   `yaml:"counter,omitempty"`
	Count     *int     `yaml:"count,omitempty"`
	Want      *bool    `yaml:"want,omitempty"`
	Events    []string `yaml:"events,omitempty"`
}

// Step actions.
const (
	ActionCreate      = "create"
	ActionTransition  = "transition"
	ActionAdvisorEdit = "advisor_edit"
	ActionImportField = "import_field"
	ActionMark        = "mark"
	ActionOpenReview  = "open_review"
	ActionCloseReview = "close_review"
	ActionConfirm     = "confirm"
	ActionClientEdit  = "client_edit"
	ActionNote        = "note"
	ActionEnterView   = "enter_view"
	ActionLeaveView   = "leave_view"
	ActionOpenEditor  = "open_editor"
	ActionCloseEditor = "close_editor"
	ActionSave        = "save"
	ActionSubmit      = "submit"
)

// Assertion types.
const (
	AssertStatus      = "status"
	AssertFieldSource = "field_source"
	AssertAuditCount  = "audit_count"
	AssertSubmittable = "submittable"
	AssertSignalCount = "signal_count"
	AssertHistory     = "history"
)

// Audit counters addressable by audit_count.
const (
	CounterConfirmed     = "confirmed_by_client"
	CounterClientSourced = "client_sourced"
	CounterPendingInput  = "pending_input"
	CounterTotal         = "total"
	CounterRows          = "rows"
)

var pathActions = map[string]bool{
	ActionAdvisorEdit: true,
	ActionImportField: true,
	ActionMark:        true,
	ActionConfirm:     true,
	ActionClientEdit:  true,
	ActionNote:        true,
	ActionEnterView:   true,
	ActionLeaveView:   true,
	ActionOpenEditor:  true,
	ActionCloseEditor: true,
}

var briefActions = map[string]bool{
	ActionTransition:  true,
	ActionOpenReview:  true,
	ActionCloseReview: true,
	ActionSave:        true,
	ActionSubmit:      true,
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	s, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}
	s.dir = filepath.Dir(path)
	return s, nil
}

// ParseScenario parses scenario YAML. Fixture files resolve against the
// working directory.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for name, id := range s.Identities {
		if id.ID == "" {
			return fmt.Errorf("identities.%s: id is required", name)
		}
		if _, err := access.ParseRole(id.Role); err != nil {
			return fmt.Errorf("identities.%s: %w", name, err)
		}
	}

	for i, b := range s.Briefs {
		if (b.Fixture == "") == (b.File == "") {
			return fmt.Errorf("briefs[%d]: exactly one of fixture or file is required", i)
		}
		if b.Fixture != "" && b.Fixture != "submittable" && b.Fixture != "legacy" {
			return fmt.Errorf("briefs[%d]: unknown fixture %q", i, b.Fixture)
		}
		if b.Status != "" {
			if _, err := brief.ParseStatus(b.Status); err != nil {
				return fmt.Errorf("briefs[%d]: %w", i, err)
			}
		}
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, step *Step) error {
	if step.Action == "" {
		return fmt.Errorf("steps[%d]: action is required", index)
	}
	if step.As == "" {
		return fmt.Errorf("steps[%d]: as is required", index)
	}
	switch {
	case step.Action == ActionCreate:
		if step.Workspace == "" || step.ProjectType == "" {
			return fmt.Errorf("steps[%d]: workspace and project_type are required for create", index)
		}
	case pathActions[step.Action]:
		if step.Brief == "" || step.Path == "" {
			return fmt.Errorf("steps[%d]: brief and path are required for %s", index, step.Action)
		}
	case briefActions[step.Action]:
		if step.Brief == "" {
			return fmt.Errorf("steps[%d]: brief is required for %s", index, step.Action)
		}
	default:
		return fmt.Errorf("steps[%d]: unknown action %q", index, step.Action)
	}
	if step.Action == ActionTransition && step.Event == "" {
		return fmt.Errorf("steps[%d]: event is required for transition", index)
	}
	if step.Action == ActionMark && step.Flag == nil {
		return fmt.Errorf("steps[%d]: flag is required for mark", index)
	}
	if step.Action == ActionImportField && step.Source == "" {
		return fmt.Errorf("steps[%d]: source is required for import_field", index)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}
	if a.Brief == "" {
		return fmt.Errorf("assertions[%d]: brief is required", index)
	}

	switch a.Type {
	case AssertStatus:
		if a.Status == "" {
			return fmt.Errorf("assertions[%d]: status is required for status", index)
		}
	case AssertFieldSource:
		if a.Path == "" {
			return fmt.Errorf("assertions[%d]: path is required for field_source", index)
		}
	case AssertAuditCount:
		switch a.Counter {
		case CounterConfirmed, CounterClientSourced, CounterPendingInput, CounterTotal, CounterRows:
		default:
			return fmt.Errorf("assertions[%d]: unknown counter %q", index, a.Counter)
		}
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for audit_count", index)
		}
	case AssertSubmittable:
		if a.Want == nil {
			return fmt.Errorf("assertions[%d]: want is required for submittable", index)
		}
	case AssertSignalCount:
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for signal_count", index)
		}
	case AssertHistory:
		if a.Events == nil {
			return fmt.Errorf("assertions[%d]: events is required for history", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
