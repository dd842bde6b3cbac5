package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/briefs/internal/brief"
	"github.com/roach88/briefs/internal/fieldpath"
)

var (
	t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	t1 = t0.Add(time.Minute)

	companyName = fieldpath.MustParse("businessContext.companyName")
	industry    = fieldpath.MustParse("businessContext.industry")
	firstReq    = fieldpath.MustParse("requirements.0")
)

func reviewBrief() *brief.Brief {
	b := brief.New("b1", "w1", "general")
	b.Status = brief.StatusClientReview
	b.BusinessContext.CompanyName = "Acme"
	b.Requirements = []string{"SSO"}
	return b
}

func legacyBrief() *brief.Brief {
	b := reviewBrief()
	b.FieldSources = nil
	b.ClientNotes = nil
	return b
}

func TestLoadResolvesVariant(t *testing.T) {
	assert.Equal(t, LedgerPresent, Load(reviewBrief()).Variant())
	assert.Equal(t, LedgerAbsent, Load(legacyBrief()).Variant())
}

func TestConfirmFieldSetsEntry(t *testing.T) {
	d := Load(reviewBrief())
	require.NoError(t, d.ConfirmField(companyName, t0))

	fs, origin := d.Entry(companyName)
	assert.Equal(t, OriginExplicit, origin)
	assert.Equal(t, brief.SourceAdvisor, fs.Source)
	assert.True(t, fs.ConfirmedByClient)
	assert.False(t, fs.MarkedForClientInput)
	require.NotNil(t, fs.ConfirmedAt)
	assert.Equal(t, t0, *fs.ConfirmedAt)
}

func TestConfirmFieldIsIdempotent(t *testing.T) {
	d := Load(reviewBrief())
	require.NoError(t, d.ConfirmField(companyName, t0))
	first, _ := d.Entry(companyName)

	require.NoError(t, d.ConfirmField(companyName, t1))
	second, _ := d.Entry(companyName)

	assert.Equal(t, first, second)
}

func TestConfirmEmptyFieldIsRejected(t *testing.T) {
	d := Load(reviewBrief())
	err := d.ConfirmField(industry, t0)
	require.ErrorIs(t, err, ErrNothingToConfirm)

	fs, origin := d.Entry(industry)
	assert.Equal(t, OriginDefault, origin)
	assert.False(t, fs.ConfirmedByClient)
	assert.Empty(t, d.Brief().FieldSources)
}

func TestConfirmPreservesSourceAndClearsMark(t *testing.T) {
	d := Load(reviewBrief())
	require.NoError(t, d.MarkForClientInput(companyName, true))
	fs, _ := d.Entry(companyName)
	assert.True(t, fs.PendingInput())

	require.NoError(t, d.ConfirmField(companyName, t0))
	fs, _ = d.Entry(companyName)
	assert.False(t, fs.MarkedForClientInput)
	assert.True(t, fs.ConfirmedByClient)
	assert.Equal(t, brief.SourceAdvisor, fs.Source)
}

func TestApplyClientEdit(t *testing.T) {
	d := Load(reviewBrief())
	require.NoError(t, d.MarkForClientInput(industry, true))
	require.NoError(t, d.ApplyClientEdit(industry, brief.Text("Logistics"), t0))

	v, err := d.Value(industry)
	require.NoError(t, err)
	assert.Equal(t, brief.Text("Logistics"), v)

	fs, _ := d.Entry(industry)
	assert.Equal(t, brief.SourceClient, fs.Source)
	assert.True(t, fs.ConfirmedByClient)
	assert.False(t, fs.MarkedForClientInput)
	require.NotNil(t, fs.ConfirmedAt)
	assert.Equal(t, t0, *fs.ConfirmedAt)
}

func TestApplyClientEditNormalizesText(t *testing.T) {
	d := Load(reviewBrief())
	require.NoError(t, d.ApplyClientEdit(industry, brief.Text("Cafe\u0301s"), t0))
	assert.Equal(t, "Caf\u00e9s", d.Brief().BusinessContext.Industry)
}

func TestApplyAdvisorEditResetsConfirmation(t *testing.T) {
	d := Load(reviewBrief())
	require.NoError(t, d.ConfirmField(companyName, t0))
	require.NoError(t, d.MarkForClientInput(companyName, true))
	require.NoError(t, d.ApplyAdvisorEdit(companyName, brief.Text("Acme Corp")))

	fs, _ := d.Entry(companyName)
	assert.Equal(t, brief.SourceAdvisor, fs.Source)
	assert.False(t, fs.ConfirmedByClient)
	assert.Nil(t, fs.ConfirmedAt)
	assert.True(t, fs.MarkedForClientInput)
}

func TestApplyImport(t *testing.T) {
	d := Load(reviewBrief())
	require.NoError(t, d.ApplyImport(industry, brief.Text("Retail"), brief.SourceDocument))
	fs, _ := d.Entry(industry)
	assert.Equal(t, brief.SourceDocument, fs.Source)

	assert.Error(t, d.ApplyImport(industry, brief.Text("x"), brief.SourceClient))
}

func TestMarkForClientInputTouchesOnlyFlag(t *testing.T) {
	d := Load(reviewBrief())
	require.NoError(t, d.ApplyClientEdit(industry, brief.Text("Retail"), t0))
	require.NoError(t, d.MarkForClientInput(industry, true))

	fs, _ := d.Entry(industry)
	assert.Equal(t, brief.SourceClient, fs.Source)
	assert.True(t, fs.ConfirmedByClient)
	assert.True(t, fs.MarkedForClientInput)

	require.NoError(t, d.MarkForClientInput(industry, false))
	fs, _ = d.Entry(industry)
	assert.False(t, fs.MarkedForClientInput)
	assert.True(t, fs.ConfirmedByClient)
}

func TestSetClientNote(t *testing.T) {
	d := Load(reviewBrief())
	require.NoError(t, d.SetClientNote(companyName, "  legal name pending  "))
	assert.Equal(t, "legal name pending", d.Note(companyName))
	assert.Equal(t, "legal name pending", d.Brief().ClientNotes["businessContext.companyName"])

	require.NoError(t, d.SetClientNote(companyName, "   "))
	assert.Empty(t, d.Note(companyName))
	assert.NotContains(t, d.Brief().ClientNotes, "businessContext.companyName")

	fs, _ := d.Entry(companyName)
	assert.False(t, fs.ConfirmedByClient)
}

func TestMutationsRejectedAfterLock(t *testing.T) {
	for _, status := range []brief.Status{brief.StatusLocked, brief.StatusMatching, brief.StatusCompleted} {
		b := reviewBrief()
		b.Status = status
		d := Load(b)

		assert.ErrorIs(t, d.ConfirmField(companyName, t0), ErrReadOnly)
		assert.ErrorIs(t, d.ApplyClientEdit(industry, brief.Text("x"), t0), ErrReadOnly)
		assert.ErrorIs(t, d.ApplyAdvisorEdit(industry, brief.Text("x")), ErrReadOnly)
		assert.ErrorIs(t, d.MarkForClientInput(industry, true), ErrReadOnly)
		assert.ErrorIs(t, d.SetClientNote(industry, "x"), ErrReadOnly)
	}
}

func TestUnknownPathRejected(t *testing.T) {
	d := Load(reviewBrief())
	err := d.MarkForClientInput(fieldpath.MustParse("businessContext.ceo"), true)
	assert.ErrorIs(t, err, fieldpath.ErrUnknownPath)
}

func TestLegacyInference(t *testing.T) {
	d := Load(legacyBrief())

	fs, origin := d.Entry(companyName)
	assert.Equal(t, OriginInferred, origin)
	assert.Equal(t, brief.SourceAdvisor, fs.Source)
	assert.True(t, fs.ConfirmedByClient)
	assert.False(t, fs.MarkedForClientInput)

	_, origin = d.Entry(industry)
	assert.Equal(t, OriginDefault, origin)

	// Reads never persist the inference.
	assert.Nil(t, d.Brief().FieldSources)
	assert.Equal(t, LedgerAbsent, d.Variant())
}

func TestInferSourceForLegacyField(t *testing.T) {
	fs, ok := InferSourceForLegacyField(legacyBrief(), companyName)
	require.True(t, ok)
	assert.True(t, fs.ConfirmedByClient)

	_, ok = InferSourceForLegacyField(reviewBrief(), companyName)
	assert.False(t, ok)
}

func TestFirstMutationMaterializesLegacyLedger(t *testing.T) {
	d := Load(legacyBrief())
	require.NoError(t, d.MarkForClientInput(industry, true))

	assert.Equal(t, LedgerPresent, d.Variant())
	out := d.Brief()
	require.NotNil(t, out.FieldSources)
	assert.Equal(t, brief.FieldSource{Source: brief.SourceAdvisor, ConfirmedByClient: true},
		out.FieldSources["businessContext.companyName"])
	assert.Equal(t, brief.FieldSource{Source: brief.SourceAdvisor, ConfirmedByClient: true},
		out.FieldSources["requirements.0"])
	assert.True(t, out.FieldSources["businessContext.industry"].MarkedForClientInput)
}

func TestTrackedPaths(t *testing.T) {
	d := Load(reviewBrief())
	require.NoError(t, d.ConfirmField(firstReq, t0))
	require.NoError(t, d.SetClientNote(industry, "tbd"))
	require.NoError(t, d.ConfirmField(companyName, t0))

	var got []string
	for _, p := range d.TrackedPaths() {
		got = append(got, p.String())
	}
	assert.Equal(t, []string{"businessContext.companyName", "businessContext.industry", "requirements.0"}, got)

	legacy := Load(legacyBrief())
	got = nil
	for _, p := range legacy.TrackedPaths() {
		got = append(got, p.String())
	}
	assert.Equal(t, []string{"businessContext.companyName", "requirements.0"}, got)
}

func TestLoadCopiesInput(t *testing.T) {
	b := reviewBrief()
	d := Load(b)
	require.NoError(t, d.ApplyClientEdit(companyName, brief.Text("Other"), t0))
	assert.Equal(t, "Acme", b.BusinessContext.CompanyName)
	assert.Empty(t, b.FieldSources)
}
