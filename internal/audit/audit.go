// Package audit projects a brief's ledger into a read-only review table.
package audit

import (
	"fmt"
	"strings"
	"time"

	"github.com/roach88/briefs/internal/brief"
	"github.com/roach88/briefs/internal/labels"
	"github.com/roach88/briefs/internal/ledger"
)

// Mode selects which rows a view shows.
type Mode string

const (
	// ModeAll shows every tracked field.
	ModeAll Mode = "all"
	// ModeClient shows client-sourced fields and fields with a client note.
	ModeClient Mode = "client"
)

// ParseMode converts a wire string to a Mode. Empty means ModeAll.
func ParseMode(raw string) (Mode, error) {
	switch m := Mode(strings.TrimSpace(raw)); m {
	case "":
		return ModeAll, nil
	case ModeAll, ModeClient:
		return m, nil
	}
	return "", fmt.Errorf("invalid audit mode %q: must be all or client", raw)
}

// Row is one field of the projection.
type Row struct {
	Path                 string       `json:"path"`
	Label                string       `json:"label"`
	Value                string       `json:"value"`
	Source               brief.Source `json:"source"`
	ConfirmedByClient    bool         `json:"confirmedByClient"`
	ConfirmedAt          *time.Time   `json:"confirmedAt"`
	MarkedForClientInput bool         `json:"markedForClientInput"`
	PendingInput         bool         `json:"pendingInput"`
	Note                 string       `json:"note"`
	Inferred             bool         `json:"inferred"`
}

// Counters aggregate over the full projection, independent of Mode.
type Counters struct {
	ConfirmedByClient int `json:"confirmedByClient"`
	ClientSourced     int `json:"clientSourced"`
	PendingInput      int `json:"pendingInput"`
	Total             int `json:"total"`
}

// View is the projection of one brief.
type View struct {
	BriefID  string       `json:"briefId"`
	Status   brief.Status `json:"status"`
	Ledger   string       `json:"ledger"`
	Mode     Mode         `json:"mode"`
	Rows     []Row        `json:"rows"`
	Counters Counters     `json:"counters"`
}

// Projector builds views.
type Projector struct {
	labels *labels.Labeler
}

// New returns a Projector. A nil labeler uses the default catalog.
func New(l *labels.Labeler) *Projector {
	if l == nil {
		l = labels.New(nil)
	}
	return &Projector{labels: l}
}

// Project builds the view of b in the given mode. It never mutates b.
func (p *Projector) Project(b *brief.Brief, mode Mode) View {
	doc := ledger.Load(b)
	v := View{
		BriefID: b.ID,
		Status:  b.Status,
		Ledger:  doc.Variant().String(),
		Mode:    mode,
		Rows:    []Row{},
	}
	for _, path := range doc.TrackedPaths() {
		fs, origin := doc.Entry(path)
		value, err := doc.Value(path)
		if err != nil {
			value = brief.Null{}
		}
		row := Row{
			Path:                 path.String(),
			Label:                p.labels.Label(b.ProjectType, path),
			Value:                brief.Display(value),
			Source:               fs.Source,
			ConfirmedByClient:    fs.ConfirmedByClient,
			ConfirmedAt:          fs.ConfirmedAt,
			MarkedForClientInput: fs.MarkedForClientInput,
			PendingInput:         fs.PendingInput(),
			Note:                 doc.Note(path),
			Inferred:             origin == ledger.OriginInferred,
		}

		v.Counters.Total++
		if row.ConfirmedByClient {
			v.Counters.ConfirmedByClient++
		}
		if row.Source == brief.SourceClient {
			v.Counters.ClientSourced++
		}
		if row.PendingInput {
			v.Counters.PendingInput++
		}

		if mode == ModeClient && row.Source != brief.SourceClient && row.Note == "" {
			continue
		}
		v.Rows = append(v.Rows, row)
	}
	return v
}
