package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/briefs/internal/brief"
	"github.com/roach88/briefs/internal/completion"
	"github.com/roach88/briefs/internal/fieldpath"
)

func TestSubmittableBrief(t *testing.T) {
	b := SubmittableBrief("B1")
	require.NoError(t, brief.Validate(context.Background(), b, fieldpath.Checker()))
	assert.True(t, completion.New(nil).Evaluate(b).Submittable)
	assert.True(t, b.HasLedger())
}

func TestLegacyBrief(t *testing.T) {
	b := LegacyBrief("L1")
	assert.False(t, b.HasLedger())
	assert.Nil(t, b.ClientNotes)
}
