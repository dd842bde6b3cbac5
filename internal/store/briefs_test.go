package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/briefs/internal/brief"
)

func TestPutBrief_IncrementsVersion(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	b := createTestBrief("b1", "w1")
	b.CurrentVersion = 41 // ignored

	stored, err := s.PutBrief(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.CurrentVersion)
	assert.Equal(t, int64(41), b.CurrentVersion, "input must not be modified")

	stored.Requirements = append(stored.Requirements, "Exports")
	stored, err = s.PutBrief(ctx, stored)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stored.CurrentVersion)

	got, err := s.GetBrief(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, stored, got)
}

func TestPutBrief_FullReplacement(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.PutBrief(ctx, createTestBrief("b1", "w1"))
	require.NoError(t, err)

	replacement := brief.New("b1", "w2", "data")
	_, err = s.PutBrief(ctx, replacement)
	require.NoError(t, err)

	got, err := s.GetBrief(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, "w2", got.WorkspaceID)
	assert.Empty(t, got.Requirements)
	assert.Empty(t, got.FieldSources)
	assert.Equal(t, int64(2), got.CurrentVersion)
}

func TestPutBrief_PreservesLegacyLedger(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	b := &brief.Brief{ID: "legacy", WorkspaceID: "w1", Status: brief.StatusClientReview}
	b.BusinessContext.CompanyName = "Acme"
	_, err := s.PutBrief(ctx, b)
	require.NoError(t, err)

	got, err := s.GetBrief(ctx, "legacy")
	require.NoError(t, err)
	assert.Nil(t, got.FieldSources)
	assert.False(t, got.HasLedger())
}

func TestPutBrief_RequiresID(t *testing.T) {
	s := createTestStore(t)
	_, err := s.PutBrief(context.Background(), &brief.Brief{WorkspaceID: "w1"})
	assert.Error(t, err)
}

func TestGetBrief_NotFound(t *testing.T) {
	s := createTestStore(t)
	_, err := s.GetBrief(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestListBriefs(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for _, b := range []*brief.Brief{
		createTestBrief("c", "w2"),
		createTestBrief("a", "w1"),
		createTestBrief("b", "w1"),
	} {
		_, err := s.PutBrief(ctx, b)
		require.NoError(t, err)
	}

	all, err := s.ListBriefs(ctx, nil)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "a", all[0].ID)
	assert.Equal(t, "c", all[2].ID)
	assert.Equal(t, brief.StatusAdvisorDraft, all[0].Status)
	assert.Equal(t, testNow, all[0].UpdatedAt)

	w1, err := s.ListBriefs(ctx, []string{"w1"})
	require.NoError(t, err)
	assert.Len(t, w1, 2)

	none, err := s.ListBriefs(ctx, []string{})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestDeleteBrief_Cascades(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.PutBrief(ctx, createTestBrief("b1", "w1"))
	require.NoError(t, err)
	_, _, err = s.WriteConfirmationSignal(ctx, ConfirmationSignal{
		SessionID: "s1", BriefID: "b1", FieldPath: "businessContext.companyName", Origin: "explicit", EmittedAt: testNow,
	})
	require.NoError(t, err)
	_, err = s.WriteStatusChange(ctx, StatusChange{
		BriefID: "b1", From: brief.StatusAdvisorDraft, To: brief.StatusClientReview,
		Event: "send_to_client", ActorID: "adv", ActorRole: "advisor", At: testNow,
	})
	require.NoError(t, err)

	require.NoError(t, s.DeleteBrief(ctx, "b1"))

	signals, err := s.ReadConfirmationSignals(ctx, "b1")
	require.NoError(t, err)
	assert.Empty(t, signals)
	history, err := s.ReadStatusHistory(ctx, "b1")
	require.NoError(t, err)
	assert.Empty(t, history)

	err = s.DeleteBrief(ctx, "b1")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestWriteConfirmationSignal_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.PutBrief(ctx, createTestBrief("b1", "w1"))
	require.NoError(t, err)

	sig := ConfirmationSignal{
		SessionID: "s1", BriefID: "b1", FieldPath: "requirements.0", Origin: "visibility", EmittedAt: testNow,
	}
	id1, inserted, err := s.WriteConfirmationSignal(ctx, sig)
	require.NoError(t, err)
	assert.True(t, inserted)

	sig.Origin = "explicit"
	id2, inserted, err := s.WriteConfirmationSignal(ctx, sig)
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.Equal(t, id1, id2)

	sig.SessionID = "s2"
	_, inserted, err = s.WriteConfirmationSignal(ctx, sig)
	require.NoError(t, err)
	assert.True(t, inserted, "a new session may signal the same field again")

	signals, err := s.ReadConfirmationSignals(ctx, "b1")
	require.NoError(t, err)
	require.Len(t, signals, 2)
	assert.Equal(t, "visibility", signals[0].Origin)
	assert.Equal(t, testNow, signals[0].EmittedAt)
}

func TestWriteConfirmationSignal_RequiresBrief(t *testing.T) {
	s := createTestStore(t)
	_, _, err := s.WriteConfirmationSignal(context.Background(), ConfirmationSignal{
		SessionID: "s1", BriefID: "missing", FieldPath: "requirements.0", Origin: "explicit", EmittedAt: testNow,
	})
	assert.Error(t, err)
}

func TestPutBriefTransition_WritesHistory(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	b := createTestBrief("b1", "w1")
	_, err := s.PutBrief(ctx, b)
	require.NoError(t, err)

	b.Status = brief.StatusClientReview
	stored, err := s.PutBriefTransition(ctx, b, StatusChange{
		From: brief.StatusAdvisorDraft, To: brief.StatusClientReview,
		Event: "send_to_client", ActorID: "adv", ActorRole: "advisor", At: testNow,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), stored.CurrentVersion)

	history, err := s.ReadStatusHistory(ctx, "b1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "b1", history[0].BriefID)
	assert.Equal(t, brief.StatusAdvisorDraft, history[0].From)
	assert.Equal(t, brief.StatusClientReview, history[0].To)
	assert.Equal(t, testNow, history[0].At)

	list, err := s.ListBriefs(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, brief.StatusClientReview, list[0].Status)
}
