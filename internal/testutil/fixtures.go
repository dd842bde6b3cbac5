package testutil

import (
	"github.com/roach88/briefs/internal/access"
	"github.com/roach88/briefs/internal/brief"
)

// Identities used across package tests. All share workspace "w1" except
// Outsider.
var (
	Advisor  = access.Identity{ID: "adv-1", Role: access.RoleAdvisor, Workspaces: []string{"w1"}}
	Client   = access.Identity{ID: "cli-1", Role: access.RoleClient, Workspaces: []string{"w1"}}
	Outsider = access.Identity{ID: "cli-2", Role: access.RoleClient, Workspaces: []string{"w2"}}
	Admin    = access.Identity{ID: "root", Role: access.RoleAdmin}
	System   = access.Identity{ID: "matcher", Role: access.RoleSystem}
)

// SubmittableBrief returns an Advisor Draft of the advisory project type
// (no required intake questions) with every section complete.
func SubmittableBrief(id string) *brief.Brief {
	b := brief.New(id, "w1", "advisory")
	b.BusinessContext = brief.BusinessContext{
		CompanyName:      "Acme",
		Industry:         "Logistics",
		CompanySize:      "50-200",
		CurrentState:     "Spreadsheets",
		DesiredOutcome:   "One dashboard",
		ProblemStatement: "No visibility into late shipments",
		Stakeholders:     "COO, Ops leads",
	}
	b.Requirements = []string{"SSO", "CSV export"}
	b.SuccessCriteria = []brief.SuccessCriterion{
		{Metric: "Report time", Target: "< 1 day", Weight: brief.Int64(3)},
	}
	b.Constraints.Timeline.Urgency = "High"
	b.Constraints.Sensitivity.Level = "Internal"
	return b
}

// LegacyBrief returns a brief written before ledger tracking: it has
// content but no field_sources at all.
func LegacyBrief(id string) *brief.Brief {
	b := &brief.Brief{
		ID:          id,
		WorkspaceID: "w1",
		ProjectType: "general",
		Status:      brief.StatusClientReview,
	}
	b.BusinessContext.CompanyName = "Acme"
	return b
}
