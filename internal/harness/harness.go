package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/roach88/briefs/internal/access"
	"github.com/roach88/briefs/internal/audit"
	"github.com/roach88/briefs/internal/brief"
	"github.com/roach88/briefs/internal/fieldpath"
	"github.com/roach88/briefs/internal/ids"
	"github.com/roach88/briefs/internal/lifecycle"
	"github.com/roach88/briefs/internal/review"
	"github.com/roach88/briefs/internal/store"
	"github.com/roach88/briefs/internal/testutil"
	"github.com/roach88/briefs/internal/workflow"
)

// StepInterval is how far the fake clock advances before each step.
const StepInterval = time.Minute

// Harness is the test execution engine.
// It runs scenarios with a deterministic clock and sequential IDs.
type Harness struct {
	svc        *workflow.Service
	clock      *testutil.FakeClock
	identities map[string]access.Identity
	aliases    map[string]string
	sessions   map[string]*review.Session
}

// DefaultIdentities returns the named callers every scenario starts with.
func DefaultIdentities() map[string]access.Identity {
	return map[string]access.Identity{
		"advisor":  testutil.Advisor,
		"client":   testutil.Client,
		"outsider": testutil.Outsider,
		"admin":    testutil.Admin,
		"system":   testutil.System,
	}
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// Execution flow:
// 1. Create fresh in-memory database and service
// 2. Import the seeded briefs as admin
// 3. Execute steps, checking each expect clause
// 4. Evaluate assertions and capture the final brief states
func Run(scenario *Scenario) (*Result, error) {
	clock := testutil.NewFakeClock(time.Time{})

	// Create fresh in-memory SQLite database
	st, err := store.Open(":memory:", store.WithClock(clock.Now))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	svc := workflow.New(st,
		workflow.WithClock(clock.Now),
		workflow.WithIDs(ids.NewSequenceGenerator("id")),
		workflow.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))), // Suppress logs in tests
		workflow.WithAutosaveInterval(time.Hour),
	)

	h := &Harness{
		svc:        svc,
		clock:      clock,
		identities: DefaultIdentities(),
		aliases:    map[string]string{},
		sessions:   map[string]*review.Session{},
	}
	for name, id := range scenario.Identities {
		role, _ := access.ParseRole(id.Role)
		h.identities[name] = access.Identity{ID: id.ID, Role: role, Workspaces: id.Workspaces}
	}

	ctx := context.Background()
	defer svc.Shutdown(ctx)

	if err := h.seed(ctx, scenario); err != nil {
		return nil, fmt.Errorf("failed to seed briefs: %w", err)
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.executeStep(ctx, i, step, result); err != nil {
			return nil, err
		}
	}

	actx := &AssertionContext{Svc: svc, Ctx: ctx, Resolve: h.resolve}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	states, err := h.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	result.Briefs = states
	return result, nil
}

// seed imports every fixture brief as admin.
func (h *Harness) seed(ctx context.Context, scenario *Scenario) error {
	for i, fx := range scenario.Briefs {
		b, err := loadFixture(scenario.dir, fx)
		if err != nil {
			return fmt.Errorf("briefs[%d]: %w", i, err)
		}
		if _, err := h.svc.ImportBrief(ctx, testutil.Admin, b); err != nil {
			return fmt.Errorf("briefs[%d]: %w", i, err)
		}
	}
	return nil
}

func loadFixture(dir string, fx BriefFixture) (*brief.Brief, error) {
	var b *brief.Brief
	switch {
	case fx.Fixture == "submittable":
		b = testutil.SubmittableBrief("B1")
	case fx.Fixture == "legacy":
		b = testutil.LegacyBrief("L1")
	default:
		data, err := os.ReadFile(filepath.Join(dir, fx.File))
		if err != nil {
			return nil, fmt.Errorf("read fixture: %w", err)
		}
		if b, err = brief.Decode(data); err != nil {
			return nil, fmt.Errorf("decode fixture %s: %w", fx.File, err)
		}
	}
	if fx.ID != "" {
		b.ID = fx.ID
	}
	if fx.Status != "" {
		b.Status = brief.Status(fx.Status)
	}
	return b, nil
}

// resolve maps a scenario brief name to its stored ID.
func (h *Harness) resolve(name string) string {
	if id, ok := h.aliases[name]; ok {
		return id
	}
	return name
}

// executeStep runs one step and records it in the trace. A step that
// misses its expect clause adds an error; only harness failures are
// returned.
func (h *Harness) executeStep(ctx context.Context, index int, step Step, result *Result) error {
	id, ok := h.identities[step.As]
	if !ok {
		return fmt.Errorf("steps[%d]: unknown identity %q", index, step.As)
	}
	h.clock.Advance(StepInterval)

	briefID, err := h.perform(ctx, id, step)
	outcome := "ok"
	if err != nil {
		outcome = workflow.ErrorCode(err)
	}

	ev := TraceEvent{Action: step.Action, Actor: id.ID, Brief: briefID, Outcome: outcome}
	if briefID != "" {
		if b, gerr := h.svc.Get(ctx, testutil.Admin, briefID); gerr == nil {
			ev.Status = string(b.Status)
		}
	}
	result.AddTrace(ev)

	want := "ok"
	if step.Expect != nil && step.Expect.Error != "" {
		want = step.Expect.Error
	}
	if outcome != want {
		detail := ""
		if err != nil {
			detail = fmt.Sprintf(" (%v)", err)
		}
		result.AddError(fmt.Sprintf("steps[%d] %s: expected %s, got %s%s", index, step.Action, want, outcome, detail))
	}
	if step.Expect != nil && step.Expect.Status != "" && ev.Status != step.Expect.Status {
		result.AddError(fmt.Sprintf("steps[%d] %s: expected status %q, got %q", index, step.Action, step.Expect.Status, ev.Status))
	}
	return nil
}

// perform dispatches step to the service and returns the brief it touched.
func (h *Harness) perform(ctx context.Context, id access.Identity, step Step) (string, error) {
	briefID := h.resolve(step.Brief)

	switch step.Action {
	case ActionCreate:
		b, err := h.svc.Create(ctx, id, workflow.CreateRequest{WorkspaceID: step.Workspace, ProjectType: step.ProjectType})
		if err != nil {
			return "", err
		}
		if step.Brief != "" {
			h.aliases[step.Brief] = b.ID
		}
		return b.ID, nil
	case ActionTransition:
		ev, err := lifecycle.ParseEvent(step.Event)
		if err != nil {
			return briefID, err
		}
		_, err = h.svc.Transition(ctx, id, briefID, ev)
		return briefID, err
	case ActionAdvisorEdit, ActionImportField:
		v, err := brief.FromAny(step.Value)
		if err != nil {
			return briefID, fmt.Errorf("%w: %v", fieldpath.ErrKind, err)
		}
		if step.Action == ActionAdvisorEdit {
			_, err = h.svc.AdvisorEdit(ctx, id, briefID, step.Path, v)
			return briefID, err
		}
		_, err = h.svc.ImportField(ctx, id, briefID, step.Path, v, brief.Source(step.Source))
		return briefID, err
	case ActionMark:
		_, err := h.svc.MarkForClientInput(ctx, id, briefID, step.Path, *step.Flag)
		return briefID, err
	case ActionOpenReview:
		_, err := h.session(ctx, id, briefID)
		return briefID, err
	case ActionCloseReview:
		key := sessionKey(id, briefID)
		sess, ok := h.sessions[key]
		if !ok {
			return briefID, fmt.Errorf("%w: no open review for %s", access.ErrNotFound, briefID)
		}
		delete(h.sessions, key)
		return briefID, h.svc.CloseReview(ctx, id, sess.ID())
	}

	sess, err := h.session(ctx, id, briefID)
	if err != nil {
		return briefID, err
	}
	return briefID, h.sessionStep(ctx, sess, step)
}

// sessionStep runs a guided review action on sess.
func (h *Harness) sessionStep(ctx context.Context, sess *review.Session, step Step) error {
	switch step.Action {
	case ActionSave:
		mode := review.SaveExplicit
		if step.Mode == "silent" {
			mode = review.SaveSilent
		}
		return sess.Save(ctx, mode)
	case ActionSubmit:
		_, err := sess.Submit(ctx)
		return err
	}

	p, err := fieldpath.Parse(step.Path)
	if err != nil {
		return err
	}
	switch step.Action {
	case ActionConfirm:
		return sess.Confirm(ctx, p)
	case ActionClientEdit:
		v, err := brief.FromAny(step.Value)
		if err != nil {
			return fmt.Errorf("%w: %v", fieldpath.ErrKind, err)
		}
		return sess.Edit(ctx, p, v)
	case ActionNote:
		return sess.SetNote(p, step.Text)
	case ActionEnterView:
		sess.EnterView(p)
	case ActionLeaveView:
		_, err := sess.LeaveView(ctx, p)
		return err
	case ActionOpenEditor:
		sess.OpenEditor(p)
	case ActionCloseEditor:
		sess.CloseEditor(p)
	default:
		return fmt.Errorf("unknown action %q", step.Action)
	}
	return nil
}

// session returns the open review of id on briefID, opening one on first
// use or after the service closed the previous one.
func (h *Harness) session(ctx context.Context, id access.Identity, briefID string) (*review.Session, error) {
	key := sessionKey(id, briefID)
	if sess, ok := h.sessions[key]; ok {
		if _, err := h.svc.Review(id, sess.ID()); err == nil {
			return sess, nil
		}
		delete(h.sessions, key)
	}
	sess, err := h.svc.OpenReview(ctx, id, briefID)
	if err != nil {
		return nil, err
	}
	h.sessions[key] = sess
	return sess, nil
}

func sessionKey(id access.Identity, briefID string) string {
	return id.ID + "/" + briefID
}

// snapshot captures the final state of every stored brief.
func (h *Harness) snapshot(ctx context.Context) ([]BriefState, error) {
	summaries, err := h.svc.List(ctx, testutil.Admin)
	if err != nil {
		return nil, fmt.Errorf("failed to list briefs: %w", err)
	}
	states := make([]BriefState, 0, len(summaries))
	for _, sum := range summaries {
		view, err := h.svc.Audit(ctx, testutil.Admin, sum.ID, audit.ModeAll)
		if err != nil {
			return nil, fmt.Errorf("failed to audit %s: %w", sum.ID, err)
		}
		states = append(states, BriefState{
			ID:       sum.ID,
			Status:   string(sum.Status),
			Counters: view.Counters,
		})
	}
	return states, nil
}
