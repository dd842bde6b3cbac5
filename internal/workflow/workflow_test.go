package workflow

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/briefs/internal/access"
	"github.com/roach88/briefs/internal/audit"
	"github.com/roach88/briefs/internal/brief"
	"github.com/roach88/briefs/internal/fieldpath"
	"github.com/roach88/briefs/internal/ids"
	"github.com/roach88/briefs/internal/lifecycle"
	"github.com/roach88/briefs/internal/review"
	"github.com/roach88/briefs/internal/store"
	"github.com/roach88/briefs/internal/testutil"
)

type fixture struct {
	svc   *Service
	store *store.Store
	clock *testutil.FakeClock
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	clock := testutil.NewFakeClock(time.Time{})
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"), store.WithClock(clock.Now))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	svc := New(st,
		WithClock(clock.Now),
		WithIDs(ids.NewSequenceGenerator("id")),
		WithAutosaveInterval(time.Hour),
	)
	t.Cleanup(func() { svc.Shutdown(context.Background()) })
	return fixture{svc: svc, store: st, clock: clock}
}

// gatedRepo blocks the next PutBrief once armed, until release is closed.
type gatedRepo struct {
	*store.Store
	armed   atomic.Bool
	entered chan struct{}
	release chan struct{}
}

func (g *gatedRepo) PutBrief(ctx context.Context, b *brief.Brief) (*brief.Brief, error) {
	if g.armed.CompareAndSwap(true, false) {
		close(g.entered)
		<-g.release
	}
	return g.Store.PutBrief(ctx, b)
}

func (f fixture) seed(t *testing.T, b *brief.Brief) {
	t.Helper()
	_, err := f.svc.ImportBrief(context.Background(), testutil.Admin, b)
	require.NoError(t, err)
}

func TestCreate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.svc.Create(ctx, testutil.Advisor, CreateRequest{WorkspaceID: "w1", ProjectType: "software"})
	require.NoError(t, err)
	assert.Equal(t, "id-1", b.ID)
	assert.Equal(t, brief.StatusAdvisorDraft, b.Status)
	assert.True(t, b.HasLedger())
	assert.Empty(t, b.FieldSources)
	assert.Equal(t, int64(1), b.CurrentVersion)

	_, err = f.svc.Create(ctx, testutil.Advisor, CreateRequest{WorkspaceID: "w2", ProjectType: "software"})
	assert.ErrorIs(t, err, access.ErrForbidden)

	_, err = f.svc.Create(ctx, testutil.Advisor, CreateRequest{WorkspaceID: "w1", ProjectType: "mystery"})
	assert.ErrorIs(t, err, ErrUnknownProjectType)
}

func TestGet_ClientNeverSeesDraft(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, testutil.SubmittableBrief("B1"))

	_, err := f.svc.Get(ctx, testutil.Client, "B1")
	assert.ErrorIs(t, err, access.ErrNotFound)

	_, err = f.svc.Get(ctx, testutil.Advisor, "missing")
	assert.ErrorIs(t, err, access.ErrNotFound)

	list, err := f.svc.List(ctx, testutil.Client)
	require.NoError(t, err)
	assert.Empty(t, list)

	list, err = f.svc.List(ctx, testutil.Advisor)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestLifecycleScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, testutil.SubmittableBrief("B1"))

	sent := f.clock.Now()
	b, err := f.svc.Transition(ctx, testutil.Advisor, "B1", lifecycle.EventSendToClient)
	require.NoError(t, err)
	assert.Equal(t, brief.StatusClientReview, b.Status)
	require.NotNil(t, b.ClientReviewStartedAt)
	assert.Equal(t, sent, *b.ClientReviewStartedAt)
	assert.Nil(t, b.ClientReviewCompletedAt)

	submitted := f.clock.Advance(time.Hour)
	b, err = f.svc.Transition(ctx, testutil.Client, "B1", lifecycle.EventClientSubmit)
	require.NoError(t, err)
	assert.Equal(t, brief.StatusInReview, b.Status)
	assert.Equal(t, submitted, *b.ClientReviewCompletedAt)

	b, err = f.svc.Transition(ctx, testutil.Advisor, "B1", lifecycle.EventLock)
	require.NoError(t, err)
	assert.Equal(t, brief.StatusLocked, b.Status)
	require.NotNil(t, b.LockedAt)
	assert.Equal(t, "adv-1", *b.LockedBy)

	b, err = f.svc.Transition(ctx, testutil.Advisor, "B1", lifecycle.EventUnlock)
	require.NoError(t, err)
	assert.Equal(t, brief.StatusInReview, b.Status)
	assert.Nil(t, b.LockedAt)
	assert.Nil(t, b.LockedBy)

	history, err := f.svc.StatusHistory(ctx, testutil.Advisor, "B1")
	require.NoError(t, err)
	require.Len(t, history, 4)
	assert.Equal(t, "unlock", history[3].Event)
	assert.Equal(t, brief.StatusLocked, history[3].From)
}

func TestTransition_IllegalWritesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, testutil.SubmittableBrief("B1"))

	_, err := f.svc.Transition(ctx, testutil.Advisor, "B1", lifecycle.EventLock)
	assert.True(t, lifecycle.IsIllegalTransition(err))

	_, err = f.svc.Transition(ctx, testutil.Admin, "B1", lifecycle.EventSendToClient)
	require.NoError(t, err)
	_, err = f.svc.Transition(ctx, testutil.Advisor, "B1", lifecycle.EventClientSubmit)
	assert.True(t, lifecycle.IsForbiddenActor(err))

	b, err := f.svc.Get(ctx, testutil.Advisor, "B1")
	require.NoError(t, err)
	assert.Equal(t, brief.StatusClientReview, b.Status)
	history, err := f.svc.StatusHistory(ctx, testutil.Advisor, "B1")
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestTransition_SubmitRequiresCompleteBrief(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := testutil.SubmittableBrief("B1")
	b.SuccessCriteria = nil
	b.Status = brief.StatusClientReview
	f.seed(t, b)

	_, err := f.svc.Transition(ctx, testutil.Client, "B1", lifecycle.EventClientSubmit)
	require.Error(t, err)
	assert.True(t, review.IsIncomplete(err))

	got, err := f.svc.Get(ctx, testutil.Client, "B1")
	require.NoError(t, err)
	assert.Equal(t, brief.StatusClientReview, got.Status)
}

func TestAdvisorEditAndMark(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, testutil.SubmittableBrief("B1"))

	_, err := f.svc.AdvisorEdit(ctx, testutil.Advisor, "B1", "constraints.budget.min", brief.Number("5000"))
	require.NoError(t, err)
	b, err := f.svc.MarkForClientInput(ctx, testutil.Advisor, "B1", "constraints.budget.min", true)
	require.NoError(t, err)

	assert.Equal(t, int64(5000), *b.Constraints.Budget.Min)
	fs := b.FieldSources["constraints.budget.min"]
	assert.Equal(t, brief.SourceAdvisor, fs.Source)
	assert.True(t, fs.MarkedForClientInput)
	assert.False(t, fs.ConfirmedByClient)

	_, err = f.svc.AdvisorEdit(ctx, testutil.Client, "B1", "requirements.0", brief.Text("x"))
	assert.True(t, access.IsRedirect(err))

	_, err = f.svc.AdvisorEdit(ctx, testutil.Advisor, "B1", "constraints.nope", brief.Text("x"))
	assert.ErrorIs(t, err, fieldpath.ErrUnknownPath)
}

func TestImportField(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, testutil.SubmittableBrief("B1"))

	b, err := f.svc.ImportField(ctx, testutil.Advisor, "B1", "riskFactors.0", brief.Text("Vendor lock-in"), brief.SourceAI)
	require.NoError(t, err)
	assert.Equal(t, []string{"Vendor lock-in"}, b.RiskFactors)
	assert.Equal(t, brief.SourceAI, b.FieldSources["riskFactors.0"].Source)
}

func TestLockedBriefIsReadOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := testutil.SubmittableBrief("B1")
	b.Status = brief.StatusLocked
	b.LockedAt = brief.Time(testutil.Epoch)
	by := "adv-1"
	b.LockedBy = &by
	f.seed(t, b)

	_, err := f.svc.MarkForClientInput(ctx, testutil.Advisor, "B1", "requirements.0", true)
	assert.Error(t, err)
	got, err := f.svc.Get(ctx, testutil.Advisor, "B1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.CurrentVersion)
}

func TestAudit_LegacyBrief(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, testutil.LegacyBrief("L1"))

	v, err := f.svc.Audit(ctx, testutil.Advisor, "L1", audit.ModeAll)
	require.NoError(t, err)
	assert.Equal(t, "absent", v.Ledger)
	require.Len(t, v.Rows, 1)
	assert.Equal(t, "businessContext.companyName", v.Rows[0].Path)
	assert.Equal(t, brief.SourceAdvisor, v.Rows[0].Source)
	assert.True(t, v.Rows[0].ConfirmedByClient)

	_, err = f.svc.Audit(ctx, testutil.Client, "L1", audit.ModeAll)
	assert.ErrorIs(t, err, access.ErrForbidden)

	// Reading never persists the inference.
	got, err := f.svc.Get(ctx, testutil.Admin, "L1")
	require.NoError(t, err)
	assert.False(t, got.HasLedger())
}

func TestReviewSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := testutil.SubmittableBrief("B1")
	b.Status = brief.StatusClientReview
	f.seed(t, b)

	_, err := f.svc.OpenReview(ctx, testutil.Advisor, "B1")
	assert.ErrorIs(t, err, access.ErrForbidden)

	sess, err := f.svc.OpenReview(ctx, testutil.Client, "B1")
	require.NoError(t, err)

	industry := fieldpath.MustParse("businessContext.industry")
	require.NoError(t, sess.Confirm(ctx, industry))
	require.NoError(t, sess.Confirm(ctx, industry))
	require.NoError(t, sess.SetNote(industry, "  ask finance  "))

	got, err := f.svc.Review(testutil.Client, sess.ID())
	require.NoError(t, err)
	assert.Same(t, sess, got)
	_, err = f.svc.Review(testutil.Outsider, sess.ID())
	assert.ErrorIs(t, err, access.ErrNotFound)

	require.NoError(t, f.svc.CloseReview(ctx, testutil.Client, sess.ID()))

	stored, err := f.svc.Get(ctx, testutil.Advisor, "B1")
	require.NoError(t, err)
	assert.True(t, stored.FieldSources["businessContext.industry"].ConfirmedByClient)
	assert.Equal(t, "ask finance", stored.ClientNotes["businessContext.industry"])

	signals, err := f.svc.Signals(ctx, testutil.Advisor, "B1")
	require.NoError(t, err)
	require.Len(t, signals, 1)
	assert.Equal(t, "businessContext.industry", signals[0].FieldPath)

	v, err := f.svc.Audit(ctx, testutil.Advisor, "B1", audit.ModeClient)
	require.NoError(t, err)
	require.Len(t, v.Rows, 1)
	assert.Equal(t, "ask finance", v.Rows[0].Note)
}

func TestRecallClosesReviewSessions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := testutil.SubmittableBrief("B1")
	b.Status = brief.StatusClientReview
	f.seed(t, b)

	sess, err := f.svc.OpenReview(ctx, testutil.Client, "B1")
	require.NoError(t, err)

	_, err = f.svc.Transition(ctx, testutil.Advisor, "B1", lifecycle.EventRecall)
	require.NoError(t, err)

	_, err = f.svc.Review(testutil.Client, sess.ID())
	assert.ErrorIs(t, err, access.ErrNotFound)
	assert.ErrorIs(t, sess.Save(ctx, review.SaveExplicit), review.ErrClosed)
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, testutil.SubmittableBrief("B1"))

	assert.ErrorIs(t, f.svc.Delete(ctx, testutil.Outsider, "B1"), access.ErrForbidden)
	require.NoError(t, f.svc.Delete(ctx, testutil.Advisor, "B1"))
	_, err := f.svc.Get(ctx, testutil.Advisor, "B1")
	assert.ErrorIs(t, err, access.ErrNotFound)
}

func TestAdminReviewIsReadOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := testutil.SubmittableBrief("B1")
	b.Status = brief.StatusClientReview
	f.seed(t, b)
	industry := fieldpath.MustParse("businessContext.industry")

	sess, err := f.svc.OpenReview(ctx, testutil.Admin, "B1")
	require.NoError(t, err)
	assert.True(t, sess.ReadOnly())
	assert.ErrorIs(t, sess.Confirm(ctx, industry), access.ErrForbidden)
	assert.ErrorIs(t, sess.Edit(ctx, industry, brief.Text("Freight")), access.ErrForbidden)
	assert.ErrorIs(t, sess.SetNote(industry, "admin note"), access.ErrForbidden)
	assert.Equal(t, CodeForbidden, ErrorCode(sess.Save(ctx, review.SaveExplicit)))
	require.NoError(t, f.svc.CloseReview(ctx, testutil.Admin, sess.ID()))

	_, err = f.svc.SetNote(ctx, testutil.Admin, "B1", "businessContext.industry", "admin note")
	assert.ErrorIs(t, err, access.ErrForbidden)

	stored, err := f.svc.Get(ctx, testutil.Advisor, "B1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.CurrentVersion)
	assert.NotEqual(t, brief.SourceClient, stored.FieldSources["businessContext.industry"].Source)
	assert.False(t, stored.FieldSources["businessContext.industry"].ConfirmedByClient)
	assert.Empty(t, stored.ClientNotes)

	stored, err = f.svc.SetNote(ctx, testutil.Client, "B1", "businessContext.industry", "client note")
	require.NoError(t, err)
	assert.Equal(t, "client note", stored.ClientNotes["businessContext.industry"])
}

func TestSessionSaveAndRecallAreSerialized(t *testing.T) {
	clock := testutil.NewFakeClock(time.Time{})
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"), store.WithClock(clock.Now))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	repo := &gatedRepo{Store: st, entered: make(chan struct{}), release: make(chan struct{})}
	svc := New(repo, WithClock(clock.Now), WithAutosaveInterval(time.Hour))
	t.Cleanup(func() { svc.Shutdown(context.Background()) })

	ctx := context.Background()
	b := testutil.SubmittableBrief("B1")
	b.Status = brief.StatusClientReview
	_, err = svc.ImportBrief(ctx, testutil.Admin, b)
	require.NoError(t, err)

	sess, err := svc.OpenReview(ctx, testutil.Client, "B1")
	require.NoError(t, err)
	require.NoError(t, sess.Edit(ctx, fieldpath.MustParse("businessContext.industry"), brief.Text("Freight")))

	repo.armed.Store(true)
	saved := make(chan error, 1)
	go func() { saved <- sess.Save(ctx, review.SaveExplicit) }()
	<-repo.entered

	recalled := make(chan error, 1)
	go func() {
		_, err := svc.Transition(ctx, testutil.Advisor, "B1", lifecycle.EventRecall)
		recalled <- err
	}()
	select {
	case <-recalled:
		t.Fatal("recall finished while a session save was still writing")
	case <-time.After(50 * time.Millisecond):
	}

	close(repo.release)
	require.NoError(t, <-saved)
	require.NoError(t, <-recalled)

	stored, err := svc.Get(ctx, testutil.Advisor, "B1")
	require.NoError(t, err)
	assert.Equal(t, brief.StatusAdvisorDraft, stored.Status)
	assert.Equal(t, "Freight", stored.BusinessContext.Industry)

	history, err := svc.StatusHistory(ctx, testutil.Advisor, "B1")
	require.NoError(t, err)
	require.NotEmpty(t, history)
	assert.Equal(t, brief.StatusAdvisorDraft, history[len(history)-1].To)
}

func TestSessionWritesRequireClientReview(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := testutil.SubmittableBrief("B1")
	b.Status = brief.StatusClientReview
	f.seed(t, b)
	industry := fieldpath.MustParse("businessContext.industry")

	submitter, err := f.svc.OpenReview(ctx, testutil.Client, "B1")
	require.NoError(t, err)
	other, err := f.svc.OpenReview(ctx, testutil.Client, "B1")
	require.NoError(t, err)
	require.NoError(t, other.Edit(ctx, industry, brief.Text("Freight")))

	submitted, err := submitter.Submit(ctx)
	require.NoError(t, err)
	require.Equal(t, brief.StatusInReview, submitted.Status)

	tests := []struct {
		name    string
		mode    review.SaveMode
		wantErr string
	}{
		{"explicit", review.SaveExplicit, CodeWrongStatus},
		{"silent", review.SaveSilent, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := other.Save(ctx, tt.mode)
			assert.Equal(t, tt.wantErr, ErrorCode(err))
			assert.True(t, other.Dirty(), "refused edits stay unsaved")

			stored, err := f.svc.Get(ctx, testutil.Advisor, "B1")
			require.NoError(t, err)
			assert.Equal(t, brief.StatusInReview, stored.Status)
			assert.Equal(t, submitted.CurrentVersion, stored.CurrentVersion)
			assert.NotEqual(t, "Freight", stored.BusinessContext.Industry)
		})
	}
}

func TestCloseReviewFlushesAfterCancel(t *testing.T) {
	f := newFixture(t)
	b := testutil.SubmittableBrief("B1")
	b.Status = brief.StatusClientReview
	f.seed(t, b)

	sess, err := f.svc.OpenReview(context.Background(), testutil.Client, "B1")
	require.NoError(t, err)
	require.NoError(t, sess.Edit(context.Background(), fieldpath.MustParse("businessContext.industry"), brief.Text("Freight")))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, f.svc.CloseReview(ctx, testutil.Client, sess.ID()))

	stored, err := f.svc.Get(context.Background(), testutil.Advisor, "B1")
	require.NoError(t, err)
	assert.Equal(t, "Freight", stored.BusinessContext.Industry)
	assert.Equal(t, brief.SourceClient, stored.FieldSources["businessContext.industry"].Source)
}
