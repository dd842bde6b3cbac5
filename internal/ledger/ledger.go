// Package ledger maintains the field-source ledger and client notes of a brief.
//
// A brief arrives in one of two schema versions: with a ledger
// (field_sources present, possibly empty) or without one (written before
// provenance tracking). Load resolves the variant once into a Document; every
// read and write after that goes through the Document and never re-checks
// the raw map.
//
// Reads on a LedgerAbsent document infer {advisor, confirmed} for non-empty
// fields. The inference is never written back by a read. The first ledger
// mutation materializes the inferred entries for every non-empty leaf and
// turns the document into LedgerPresent, so the persisted ledger matches
// what was displayed.
//
// All mutations fail with ErrReadOnly once the brief is Locked or later.
package ledger

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/roach88/briefs/internal/brief"
	"github.com/roach88/briefs/internal/fieldpath"
)

var (
	// ErrNothingToConfirm is returned when confirming a field with no value.
	ErrNothingToConfirm = errors.New("field has no value to confirm")

	// ErrReadOnly is returned for any mutation once a brief is Locked or later.
	ErrReadOnly = errors.New("ledger is read-only after lock")
)

// Variant is the ledger schema version a brief was loaded with.
type Variant int

const (
	LedgerAbsent Variant = iota
	LedgerPresent
)

func (v Variant) String() string {
	if v == LedgerPresent {
		return "present"
	}
	return "absent"
}

// Origin says where an Entry result came from.
type Origin int

const (
	// OriginExplicit is a stored ledger entry.
	OriginExplicit Origin = iota
	// OriginInferred is the legacy inference for a ledger-less brief.
	OriginInferred
	// OriginDefault is the fallback for an untracked field.
	OriginDefault
)

func (o Origin) String() string {
	switch o {
	case OriginExplicit:
		return "explicit"
	case OriginInferred:
		return "inferred"
	default:
		return "default"
	}
}

// Document is a brief with its ledger resolved into normalized form.
type Document struct {
	brief   *brief.Brief
	variant Variant
	entries map[string]brief.FieldSource
	notes   map[string]string
}

// Load resolves b's ledger variant. b is copied; later changes to b are not
// seen by the Document.
func Load(b *brief.Brief) *Document {
	c := b.Clone()
	d := &Document{
		brief:   c,
		variant: LedgerAbsent,
		entries: map[string]brief.FieldSource{},
		notes:   map[string]string{},
	}
	if c.FieldSources != nil {
		d.variant = LedgerPresent
		d.entries = c.FieldSources
	}
	if c.ClientNotes != nil {
		d.notes = c.ClientNotes
	}
	c.FieldSources = nil
	c.ClientNotes = nil
	return d
}

// Variant reports which ledger schema the document currently follows.
func (d *Document) Variant() Variant { return d.variant }

// Status returns the brief's lifecycle status.
func (d *Document) Status() brief.Status { return d.brief.Status }

// ID returns the brief ID.
func (d *Document) ID() string { return d.brief.ID }

// Brief returns a deep copy of the brief with field_sources and client_notes
// synced from the document. A LedgerAbsent document keeps field_sources nil.
func (d *Document) Brief() *brief.Brief {
	out := *d.brief
	if d.variant == LedgerPresent {
		out.FieldSources = d.entries
	}
	out.ClientNotes = d.notes
	return out.Clone()
}

// Value resolves the current value at p.
func (d *Document) Value(p fieldpath.Path) (brief.Value, error) {
	return fieldpath.Resolve(d.brief, p)
}

// Entry returns the ledger entry for p: the stored entry if any, the legacy
// inference for a non-empty field of a LedgerAbsent document, or the default.
func (d *Document) Entry(p fieldpath.Path) (brief.FieldSource, Origin) {
	if fs, ok := d.entries[p.String()]; ok {
		return fs, OriginExplicit
	}
	if d.variant == LedgerAbsent {
		if fs, ok := InferSourceForLegacyField(d.brief, p); ok {
			return fs, OriginInferred
		}
	}
	return brief.DefaultFieldSource(), OriginDefault
}

// InferSourceForLegacyField synthesizes the entry shown for a non-empty field
// of a brief that has no ledger at all. ok is false when b has a ledger or the
// field is empty.
func InferSourceForLegacyField(b *brief.Brief, p fieldpath.Path) (brief.FieldSource, bool) {
	if b.HasLedger() {
		return brief.FieldSource{}, false
	}
	v, err := fieldpath.Resolve(b, p)
	if err != nil || brief.IsEmpty(v) {
		return brief.FieldSource{}, false
	}
	return brief.FieldSource{Source: brief.SourceAdvisor, ConfirmedByClient: true}, true
}

// Note returns the client note at p, or "".
func (d *Document) Note(p fieldpath.Path) string {
	return d.notes[p.String()]
}

// TrackedPaths returns the union of ledger and note keys, sorted in schema
// order. For a LedgerAbsent document it returns every non-empty leaf plus
// note keys instead.
func (d *Document) TrackedPaths() []fieldpath.Path {
	seen := map[string]bool{}
	var out []fieldpath.Path
	add := func(raw string) {
		if seen[raw] {
			return
		}
		p, err := fieldpath.Parse(raw)
		if err != nil {
			return
		}
		seen[raw] = true
		out = append(out, p)
	}
	if d.variant == LedgerAbsent {
		for _, p := range fieldpath.NonEmptyLeaves(d.brief) {
			add(p.String())
		}
	}
	for k := range d.entries {
		add(k)
	}
	for k := range d.notes {
		add(k)
	}
	sort.Slice(out, func(i, j int) bool { return fieldpath.Compare(out[i], out[j]) < 0 })
	return out
}

func (d *Document) writable() error {
	if d.brief.Status.Finalized() {
		return fmt.Errorf("%w: brief %s is %s", ErrReadOnly, d.brief.ID, d.brief.Status)
	}
	return nil
}

// materialize turns a LedgerAbsent document into LedgerPresent, persisting
// the inferred entry of every non-empty leaf.
func (d *Document) materialize() {
	if d.variant == LedgerPresent {
		return
	}
	for _, p := range fieldpath.NonEmptyLeaves(d.brief) {
		d.entries[p.String()] = brief.FieldSource{Source: brief.SourceAdvisor, ConfirmedByClient: true}
	}
	d.variant = LedgerPresent
}

func (d *Document) prepare(p fieldpath.Path) (brief.FieldSource, error) {
	if err := d.writable(); err != nil {
		return brief.FieldSource{}, err
	}
	if err := fieldpath.Validate(p); err != nil {
		return brief.FieldSource{}, err
	}
	fs, _ := d.Entry(p)
	d.materialize()
	return fs, nil
}

// ConfirmField records the client's confirmation of the current value at p.
// The source is preserved and the input flag cleared. An already-confirmed
// entry keeps its original confirmedAt. An empty value is rejected with
// ErrNothingToConfirm and nothing changes.
func (d *Document) ConfirmField(p fieldpath.Path, now time.Time) error {
	if err := d.writable(); err != nil {
		return err
	}
	v, err := d.Value(p)
	if err != nil {
		return err
	}
	if brief.IsEmpty(v) {
		return fmt.Errorf("%w: %s", ErrNothingToConfirm, p)
	}
	fs, err := d.prepare(p)
	if err != nil {
		return err
	}
	if !fs.ConfirmedByClient || fs.ConfirmedAt == nil {
		t := now.UTC()
		fs.ConfirmedAt = &t
	}
	fs.ConfirmedByClient = true
	fs.MarkedForClientInput = false
	d.entries[p.String()] = fs
	return nil
}

// IsConfirmed reports whether p is currently confirmed by the client
// (explicitly or by legacy inference).
func (d *Document) IsConfirmed(p fieldpath.Path) bool {
	fs, _ := d.Entry(p)
	return fs.ConfirmedByClient
}

// ApplyClientEdit writes v at p and records it as client-supplied and
// confirmed. Text is NFC-normalized first.
func (d *Document) ApplyClientEdit(p fieldpath.Path, v brief.Value, now time.Time) error {
	if _, err := d.prepare(p); err != nil {
		return err
	}
	if err := fieldpath.Assign(d.brief, p, brief.Normalize(v)); err != nil {
		return err
	}
	t := now.UTC()
	d.entries[p.String()] = brief.FieldSource{
		Source:            brief.SourceClient,
		ConfirmedByClient: true,
		ConfirmedAt:       &t,
	}
	return nil
}

// ApplyAdvisorEdit writes v at p as advisor-supplied. Any earlier client
// confirmation no longer covers the new value, so it is cleared; the input
// flag is kept.
func (d *Document) ApplyAdvisorEdit(p fieldpath.Path, v brief.Value) error {
	fs, err := d.prepare(p)
	if err != nil {
		return err
	}
	if err := fieldpath.Assign(d.brief, p, v); err != nil {
		return err
	}
	d.entries[p.String()] = brief.FieldSource{
		Source:               brief.SourceAdvisor,
		MarkedForClientInput: fs.MarkedForClientInput,
	}
	return nil
}

// ApplyImport writes v at p with the given non-client source (document or
// ai extraction), unconfirmed.
func (d *Document) ApplyImport(p fieldpath.Path, v brief.Value, src brief.Source) error {
	if src == brief.SourceClient || !src.Valid() {
		return fmt.Errorf("import source must be advisor, document or ai: %q", src)
	}
	fs, err := d.prepare(p)
	if err != nil {
		return err
	}
	if err := fieldpath.Assign(d.brief, p, v); err != nil {
		return err
	}
	d.entries[p.String()] = brief.FieldSource{Source: src, MarkedForClientInput: fs.MarkedForClientInput}
	return nil
}

// MarkForClientInput sets only the input flag at p.
func (d *Document) MarkForClientInput(p fieldpath.Path, flag bool) error {
	fs, err := d.prepare(p)
	if err != nil {
		return err
	}
	fs.MarkedForClientInput = flag
	d.entries[p.String()] = fs
	return nil
}

// SetClientNote stores text as the note at p; text that trims to empty
// deletes the note. Notes are independent of confirmation state.
func (d *Document) SetClientNote(p fieldpath.Path, text string) error {
	if err := d.writable(); err != nil {
		return err
	}
	if err := fieldpath.Validate(p); err != nil {
		return err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		delete(d.notes, p.String())
		return nil
	}
	d.notes[p.String()] = string(brief.Normalize(brief.Text(text)).(brief.Text))
	return nil
}
