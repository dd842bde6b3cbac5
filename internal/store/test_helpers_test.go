package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/briefs/internal/brief"
)

var testNow = time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

// createTestStore creates a new store in a temp directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, WithClock(func() time.Time { return testNow }))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestBrief creates a brief with a little content and one ledger entry.
func createTestBrief(id, workspace string) *brief.Brief {
	b := brief.New(id, workspace, "software")
	b.BusinessContext.CompanyName = "Acme"
	b.Requirements = []string{"SSO"}
	b.FieldSources["businessContext.companyName"] = brief.FieldSource{Source: brief.SourceAdvisor}
	return b
}
