package labels

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLabel(t *testing.T) {
	l := New(nil)
	tests := []struct {
		projectType string
		path        string
		want        string
	}{
		{"software", "businessContext.companyName", "Company name"},
		{"software", "requirements.0", "Requirement 1"},
		{"software", "successCriteria.2.metric", "Success criterion 3: metric"},
		{"software", "constraints.sensitivity.dataTypes.1", "Sensitive data type 2"},
		{"software", "intakeResponses.platforms", "Which platforms must the software run on?"},
		{"software", "intakeResponses.integrationNeeds_other", "What is the main integration requirement? (other)"},
		{"software", "intakeResponses.legacyBudgetCode", "Legacy Budget Code"},
		{"unknown", "intakeResponses.team_size", "Team Size"},
		{"software", "not a path", "not a path"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, l.LabelString(tt.projectType, tt.path))
		})
	}
}

func TestSplitWords(t *testing.T) {
	assert.Equal(t, []string{"company", "name"}, splitWords("companyName"))
	assert.Equal(t, []string{"team", "size"}, splitWords("team_size"))
	assert.Equal(t, []string{"crm", "id"}, splitWords("CRM-id"))
	assert.Equal(t, []string{"apiversion"}, splitWords("APIVersion"))
}
