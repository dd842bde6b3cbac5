package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/briefs/internal/access"
	"github.com/roach88/briefs/internal/brief"
	"github.com/roach88/briefs/internal/completion"
	"github.com/roach88/briefs/internal/fieldpath"
	"github.com/roach88/briefs/internal/ledger"
	"github.com/roach88/briefs/internal/lifecycle"
	"github.com/roach88/briefs/internal/metrics"
	"github.com/roach88/briefs/internal/store"
)

// Config configures a Session. ID, Identity and Persister are required.
type Config struct {
	ID        string
	Identity  access.Identity
	Persister Persister
	Notifier  Notifier
	Evaluator *completion.Evaluator
	Interval  time.Duration
	Now       func() time.Time
	Logger    *slog.Logger
}

// Session is one client's guided review of one brief.
//
// Thread-safety: all methods are safe for concurrent use. Store round-trips
// run without holding the session lock, so the client can keep editing
// while a save is in flight.
type Session struct {
	id        string
	identity  access.Identity
	persister Persister
	notifier  Notifier
	evaluator *completion.Evaluator
	interval  time.Duration
	now       func() time.Time
	logger    *slog.Logger
	// readOnly is set for non-client identities: they may inspect the
	// review but never write client provenance.
	readOnly bool

	mu  sync.Mutex
	doc *ledger.Document
	st  state

	done      chan struct{}
	closeOnce sync.Once
}

// New opens a guided review of b. The identity must pass the guided-review
// gate; otherwise the returned error is redirect-class.
func New(b *brief.Brief, cfg Config) (*Session, error) {
	if cfg.ID == "" {
		return nil, errors.New("review session id is required")
	}
	if cfg.Persister == nil {
		return nil, errors.New("review session persister is required")
	}
	if err := access.CanGuidedReview(cfg.Identity, b); err != nil {
		return nil, err
	}
	if cfg.Evaluator == nil {
		cfg.Evaluator = completion.New(nil)
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultAutosaveInterval
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Session{
		id:        cfg.ID,
		identity:  cfg.Identity,
		persister: cfg.Persister,
		notifier:  cfg.Notifier,
		evaluator: cfg.Evaluator,
		interval:  cfg.Interval,
		now:       cfg.Now,
		logger:    cfg.Logger.With("session", cfg.ID, "brief", b.ID),
		readOnly:  cfg.Identity.Role != access.RoleClient,
		doc:       ledger.Load(b),
		st:        newState(0),
		done:      make(chan struct{}),
	}, nil
}

// ID returns the session ID.
func (s *Session) ID() string { return s.id }

// Identity returns the identity the session was opened for.
func (s *Session) Identity() access.Identity { return s.identity }

// ReadOnly reports whether the session only inspects the review.
func (s *Session) ReadOnly() bool { return s.readOnly }

// writable reports whether the identity may write through the session.
func (s *Session) writable() error {
	if s.readOnly {
		return fmt.Errorf("%w: %s may not write a client review", access.ErrForbidden, s.identity.ID)
	}
	return nil
}

// BriefID returns the ID of the brief under review.
func (s *Session) BriefID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.ID()
}

// Brief returns a copy of the session's current brief.
func (s *Session) Brief() *brief.Brief {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Brief()
}

// Report evaluates the current brief.
func (s *Session) Report() completion.Report {
	return s.evaluator.Evaluate(s.Brief())
}

// Dirty reports whether there are edits no successful save has covered.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.dirty()
}

// InFlight reports whether a write is waiting for the store.
func (s *Session) InFlight() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.inFlight
}

// Emitted reports whether p already produced a signal in this session.
func (s *Session) Emitted(p fieldpath.Path) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.emitted[p.String()]
}

// active reports whether the session still accepts edits.
// Callers must hold s.mu.
func (s *Session) active() error {
	if !s.st.mounted {
		return ErrClosed
	}
	if s.doc.Status() != brief.StatusClientReview {
		return fmt.Errorf("%w: brief %s is %s", access.ErrWrongStatus, s.doc.ID(), s.doc.Status())
	}
	return nil
}

// handle is the confirmation funnel. It applies ev to the ledger and
// returns the signal to emit, or nil if p already emitted one in this
// session or has no value. Callers must hold s.mu and pass the signal to
// emit after unlocking.
func (s *Session) handle(ev ConfirmationEvent) (*store.ConfirmationSignal, error) {
	if err := s.writable(); err != nil {
		return nil, err
	}
	if err := s.active(); err != nil {
		return nil, err
	}
	now := s.now()
	switch ev.Origin {
	case OriginEdit:
		if err := s.doc.ApplyClientEdit(ev.Path, ev.Value, now); err != nil {
			return nil, err
		}
	case OriginExplicit, OriginVisibility:
		if err := s.doc.ConfirmField(ev.Path, now); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown confirmation origin %q", ev.Origin)
	}
	s.st.edits.Next()
	metrics.RecordConfirmation(string(ev.Origin))

	key := ev.Path.String()
	if s.st.emitted[key] {
		return nil, nil
	}
	if v, err := s.doc.Value(ev.Path); err != nil || brief.IsEmpty(v) {
		return nil, nil
	}
	s.st.emitted[key] = true
	return &store.ConfirmationSignal{
		SessionID: s.id,
		BriefID:   s.doc.ID(),
		FieldPath: key,
		Origin:    string(ev.Origin),
		EmittedAt: now.UTC(),
	}, nil
}

// emit delivers sig. A failed delivery un-marks the field so a later
// confirmation can retry it.
func (s *Session) emit(ctx context.Context, sig *store.ConfirmationSignal) {
	if sig == nil {
		return
	}
	if s.notifier != nil {
		if err := s.notifier.FieldConfirmed(ctx, *sig); err != nil {
			s.logger.Warn("confirmation signal failed", "path", sig.FieldPath, "error", err)
			s.mu.Lock()
			delete(s.st.emitted, sig.FieldPath)
			s.mu.Unlock()
			return
		}
	}
	metrics.RecordSignal(sig.Origin)
	s.logger.Debug("field confirmed", "path", sig.FieldPath, "origin", sig.Origin)
}

// Handle feeds ev through the confirmation funnel.
func (s *Session) Handle(ctx context.Context, ev ConfirmationEvent) error {
	s.mu.Lock()
	sig, err := s.handle(ev)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.emit(ctx, sig)
	return nil
}

// Confirm is the client's explicit confirmation of p. Confirming an empty
// field fails with ledger.ErrNothingToConfirm.
func (s *Session) Confirm(ctx context.Context, p fieldpath.Path) error {
	return s.Handle(ctx, ConfirmationEvent{Path: p, Origin: OriginExplicit})
}

// Edit writes v at p as the client. Editing is itself a confirmation.
func (s *Session) Edit(ctx context.Context, p fieldpath.Path, v brief.Value) error {
	return s.Handle(ctx, ConfirmationEvent{Path: p, Origin: OriginEdit, Value: v})
}

// SetNote sets or clears the client note at p.
func (s *Session) SetNote(p fieldpath.Path, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writable(); err != nil {
		return err
	}
	if err := s.active(); err != nil {
		return err
	}
	if err := s.doc.SetClientNote(p, text); err != nil {
		return err
	}
	s.st.edits.Next()
	return nil
}

// OpenEditor records that the manual edit affordance for p is open.
func (s *Session) OpenEditor(p fieldpath.Path) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.editing[p.String()] = true
}

// CloseEditor records that the edit affordance for p is closed.
func (s *Session) CloseEditor(p fieldpath.Path) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.st.editing, p.String())
}

// EnterView records that p entered the client's viewport.
func (s *Session) EnterView(p fieldpath.Path) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.seen[p.String()] = true
}

// LeaveView records that p left the viewport. If p was seen, no editor is
// open for it, and its value is non-empty, unflagged and unconfirmed, it is
// passively confirmed. Reports whether a confirmation happened.
func (s *Session) LeaveView(ctx context.Context, p fieldpath.Path) (bool, error) {
	s.mu.Lock()
	key := p.String()
	if !s.st.seen[key] {
		s.mu.Unlock()
		return false, nil
	}
	delete(s.st.seen, key)
	if s.st.editing[key] || !s.passive(p) {
		s.mu.Unlock()
		return false, nil
	}
	sig, err := s.handle(ConfirmationEvent{Path: p, Origin: OriginVisibility})
	s.mu.Unlock()
	if err != nil {
		return false, err
	}
	s.emit(ctx, sig)
	return true, nil
}

// passive reports whether p qualifies for passive confirmation.
// Callers must hold s.mu.
func (s *Session) passive(p fieldpath.Path) bool {
	if s.readOnly || s.active() != nil {
		return false
	}
	v, err := s.doc.Value(p)
	if err != nil || brief.IsEmpty(v) {
		return false
	}
	fs, _ := s.doc.Entry(p)
	return !fs.MarkedForClientInput && !fs.ConfirmedByClient
}

// Save persists the whole brief. Once started, the write is not cancelled
// with ctx.
//
// Writes are serialized: while one is in flight an explicit save fails with
// ErrSaveInFlight and a silent one is skipped. A silent save also skips
// when nothing changed since the last successful save, and swallows store
// failures so the next tick retries. When the response arrives, content is
// adopted only if the client made no edits meanwhile; otherwise only the
// lifecycle fields are taken from the stored copy.
func (s *Session) Save(ctx context.Context, mode SaveMode) error {
	s.mu.Lock()
	if !s.st.mounted {
		s.mu.Unlock()
		if mode == SaveExplicit {
			return ErrClosed
		}
		return nil
	}
	if s.st.inFlight || (mode == SaveSilent && !s.st.dirty()) {
		s.mu.Unlock()
		metrics.RecordSave(mode.String(), "skipped", 0)
		if mode == SaveExplicit {
			return ErrSaveInFlight
		}
		return nil
	}
	if mode == SaveExplicit {
		if err := s.writable(); err != nil {
			s.mu.Unlock()
			return err
		}
		if err := s.active(); err != nil {
			s.mu.Unlock()
			return err
		}
	}
	snapshot := s.doc.Brief()
	started, gen := s.st.edits.Current(), s.st.generation
	s.st.inFlight = true
	s.mu.Unlock()

	// A started write completes even if the caller goes away.
	begin := time.Now()
	stored, err := s.persister.PutBrief(context.WithoutCancel(ctx), snapshot)
	elapsed := time.Since(begin).Seconds()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.inFlight = false

	if err != nil {
		metrics.RecordSave(mode.String(), "error", elapsed)
		if mode == SaveSilent {
			s.logger.Warn("autosave failed", "error", err)
			return nil
		}
		return fmt.Errorf("save brief %s: %w", snapshot.ID, err)
	}
	if !s.adopt(stored, started, gen) {
		metrics.RecordSave(mode.String(), "stale", elapsed)
		return nil
	}
	metrics.RecordSave(mode.String(), "ok", elapsed)
	s.logger.Debug("brief saved", "mode", mode.String(), "version", stored.CurrentVersion)
	return nil
}

// adopt applies a store response for a write started at edit counter
// started in generation gen. Returns false if the response was discarded.
// Callers must hold s.mu.
func (s *Session) adopt(stored *brief.Brief, started int64, gen int) bool {
	if !s.st.mounted || gen != s.st.generation {
		return false
	}
	if s.st.edits.Current() > started {
		b := s.doc.Brief()
		b.AdoptLifecycle(stored)
		s.doc = ledger.Load(b)
	} else {
		s.doc = ledger.Load(stored)
	}
	if started > s.st.saved {
		s.st.saved = started
	}
	return true
}

// Submit completes the client review: the brief must be submittable, the
// client_submit transition is applied to a copy, and the copy is written
// with its status history row. As with Save, the write outlives ctx. On
// any failure the session's status is unchanged.
func (s *Session) Submit(ctx context.Context) (*brief.Brief, error) {
	s.mu.Lock()
	if err := s.writable(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if err := s.active(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if s.st.inFlight {
		s.mu.Unlock()
		return nil, ErrSaveInFlight
	}
	current := s.doc.Brief()
	if report := s.evaluator.Evaluate(current); !report.Submittable {
		s.mu.Unlock()
		return nil, &IncompleteError{Report: report}
	}
	now := s.now()
	next, err := lifecycle.Apply(current, lifecycle.EventClientSubmit, s.identity, now)
	if err != nil {
		s.mu.Unlock()
		metrics.RecordTransition(string(lifecycle.EventClientSubmit), "rejected")
		return nil, err
	}
	started, gen := s.st.edits.Current(), s.st.generation
	s.st.inFlight = true
	s.mu.Unlock()

	stored, err := s.persister.PutBriefTransition(context.WithoutCancel(ctx), next, store.StatusChange{
		From:      current.Status,
		To:        next.Status,
		Event:     string(lifecycle.EventClientSubmit),
		ActorID:   s.identity.ID,
		ActorRole: string(s.identity.Role),
		At:        now.UTC(),
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.inFlight = false
	if err != nil {
		metrics.RecordTransition(string(lifecycle.EventClientSubmit), "error")
		return nil, fmt.Errorf("submit brief %s: %w", current.ID, err)
	}
	metrics.RecordTransition(string(lifecycle.EventClientSubmit), "ok")
	s.adopt(stored, started, gen)
	s.logger.Info("brief submitted", "version", stored.CurrentVersion)
	return stored.Clone(), nil
}

// Reload replaces the session's brief with a fresher copy and resets every
// session flag. A save still in flight completes but its response is
// discarded.
func (s *Session) Reload(b *brief.Brief) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inFlight, mounted := s.st.inFlight, s.st.mounted
	s.st = newState(s.st.generation + 1)
	s.st.inFlight, s.st.mounted = inFlight, mounted
	s.doc = ledger.Load(b)
}

// Run autosaves at the session interval until ctx is done or the session
// is closed.
func (s *Session) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.done:
			return nil
		case <-ticker.C:
			_ = s.Save(ctx, SaveSilent)
		}
	}
}

// Close unmounts the session. Responses of writes still in flight are
// discarded; the writes themselves complete.
func (s *Session) Close() {
	s.mu.Lock()
	s.st.mounted = false
	s.mu.Unlock()
	s.closeOnce.Do(func() { close(s.done) })
}
