// Package harness runs brief lifecycle scenarios written in YAML against a
// real service backed by an in-memory store.
//
// # Scenario Format
//
//	name: scenario_name
//	description: "What this scenario validates"
//	identities:              # optional, merged over the defaults
//	  reviewer: { id: cli-9, role: client, workspaces: [w1] }
//	briefs:
//	  - fixture: submittable # or legacy, or file: path/to/brief.yaml
//	    id: B1
//	    status: Client Review
//	steps:
//	  - action: transition
//	    as: advisor
//	    brief: B1
//	    event: send_to_client
//	  - action: confirm
//	    as: client
//	    brief: B1
//	    path: businessContext.companyName
//	    expect:
//	      error: NOTHING_TO_CONFIRM
//	assertions:
//	  - type: status
//	    brief: B1
//	    status: In Review
//	  - type: field_source
//	    brief: B1
//	    path: businessContext.companyName
//	    source: advisor
//	    confirmed: true
//
// Default identities are advisor, client, outsider, admin and system, as in
// package testutil.
//
// # Step Actions
//
//   - create: advisor creates a brief (workspace, project_type)
//   - transition: applies a lifecycle event
//   - advisor_edit, import_field, mark: advisor-side ledger writes
//   - open_review, close_review: guided review session lifecycle
//   - confirm, client_edit, note, enter_view, leave_view, open_editor,
//     close_editor, save, submit: guided review session operations
//
// Session steps open a session for (as, brief) on first use.
//
// # Assertion Types
//
//   - status: the brief's current status
//   - field_source: the audit row of one path (source, confirmed, marked, note)
//   - audit_count: one audit counter, or the row count of a mode
//   - submittable: the completion verdict
//   - signal_count: number of field-confirmed signals recorded
//   - history: the ordered list of recorded lifecycle events
//
// # Deterministic Testing
//
// Every scenario gets a fresh in-memory store, a fake clock that advances
// one minute per step, and sequential IDs, so snapshots of the trace and
// the final audit projections are stable for golden file comparison.
package harness
