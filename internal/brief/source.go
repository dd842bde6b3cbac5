package brief

import (
	"fmt"
	"time"
)

// Source records who last supplied a field's value.
type Source string

const (
	SourceAdvisor  Source = "advisor"
	SourceClient   Source = "client"
	SourceDocument Source = "document"
	SourceAI       Source = "ai"
)

// Valid reports whether s is a known source.
func (s Source) Valid() bool {
	switch s {
	case SourceAdvisor, SourceClient, SourceDocument, SourceAI:
		return true
	}
	return false
}

// ParseSource converts a wire string to a Source.
func ParseSource(raw string) (Source, error) {
	s := Source(raw)
	if !s.Valid() {
		return "", fmt.Errorf("invalid field source %q: must be one of advisor, client, document, ai", raw)
	}
	return s, nil
}

// FieldSource is one ledger entry: the provenance and confirmation state of a
// single field path. The wire keys match the stored ledger objects exactly.
type FieldSource struct {
	Source               Source     `json:"source" validate:"oneof=advisor client document ai"`
	ConfirmedByClient    bool       `json:"confirmedByClient"`
	ConfirmedAt          *time.Time `json:"confirmedAt"`
	MarkedForClientInput bool       `json:"markedForClientInput"`
}

// PendingInput reports whether the advisor asked for client input that has
// not been given yet.
func (fs FieldSource) PendingInput() bool {
	return fs.MarkedForClientInput && !fs.ConfirmedByClient
}

// DefaultFieldSource is the entry assumed for a path with no ledger record.
func DefaultFieldSource() FieldSource {
	return FieldSource{Source: SourceAdvisor}
}

func (fs FieldSource) clone() FieldSource {
	out := fs
	if fs.ConfirmedAt != nil {
		t := *fs.ConfirmedAt
		out.ConfirmedAt = &t
	}
	return out
}
