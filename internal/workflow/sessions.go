package workflow

import (
	"context"
	"fmt"

	"github.com/roach88/briefs/internal/access"
	"github.com/roach88/briefs/internal/brief"
	"github.com/roach88/briefs/internal/fieldpath"
	"github.com/roach88/briefs/internal/review"
	"github.com/roach88/briefs/internal/store"
)

// OpenReview starts a guided review session for the caller. The session
// autosaves in the background until it is closed.
func (s *Service) OpenReview(ctx context.Context, id access.Identity, briefID string) (*review.Session, error) {
	b, err := s.loadFor(ctx, id, briefID, access.CanGuidedReview)
	if err != nil {
		return nil, err
	}
	sess, err := review.New(b, review.Config{
		ID:        s.ids.Generate(),
		Identity:  id,
		Persister: sessionWriter{s},
		Notifier:  review.StoreNotifier{Store: s.repo},
		Evaluator: s.evaluator,
		Interval:  s.autosave,
		Now:       s.now,
		Logger:    s.logger,
	})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.sessions[sess.ID()] = sess
	s.mu.Unlock()

	// The loop ends when the session is closed, not with the request.
	go sess.Run(context.WithoutCancel(ctx))

	s.logger.Info("review opened", "session", sess.ID(), "brief", briefID, "actor", id.ID)
	return sess, nil
}

// sessionWriter persists review sessions. It shares the per-brief write
// lock with the service, and writes only while the stored brief is still
// in the status the session was opened on. Lifecycle fields always come
// from the stored copy.
type sessionWriter struct{ s *Service }

func (w sessionWriter) PutBrief(ctx context.Context, b *brief.Brief) (*brief.Brief, error) {
	defer w.s.locks.lock(b.ID)()
	stored, err := w.current(ctx, b.ID, brief.StatusClientReview)
	if err != nil {
		return nil, err
	}
	next := b.Clone()
	next.AdoptLifecycle(stored)
	return w.s.persist(ctx, next)
}

func (w sessionWriter) PutBriefTransition(ctx context.Context, b *brief.Brief, change store.StatusChange) (*brief.Brief, error) {
	defer w.s.locks.lock(b.ID)()
	if _, err := w.current(ctx, b.ID, change.From); err != nil {
		return nil, err
	}
	if err := brief.Validate(ctx, b, fieldpath.Checker()); err != nil {
		return nil, err
	}
	return w.s.repo.PutBriefTransition(ctx, b, change)
}

// current loads briefID and requires it to be in want.
// Callers must hold the brief's write lock.
func (w sessionWriter) current(ctx context.Context, briefID string, want brief.Status) (*brief.Brief, error) {
	stored, err := w.s.load(ctx, briefID)
	if err != nil {
		return nil, err
	}
	if stored.Status != want {
		return nil, fmt.Errorf("%w: %s is %s, want %s", access.ErrWrongStatus, briefID, stored.Status, want)
	}
	return stored, nil
}

// Review returns an open session owned by the caller.
func (s *Service) Review(id access.Identity, sessionID string) (*review.Session, error) {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	s.mu.Unlock()
	if !ok || sess.Identity().ID != id.ID {
		return nil, fmt.Errorf("%w: review session %s", access.ErrNotFound, sessionID)
	}
	return sess, nil
}

// CloseReview flushes unsaved edits with a silent save and closes the
// session.
func (s *Service) CloseReview(ctx context.Context, id access.Identity, sessionID string) error {
	sess, err := s.Review(id, sessionID)
	if err != nil {
		return err
	}
	_ = sess.Save(ctx, review.SaveSilent)
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	sess.Close()
	s.logger.Info("review closed", "session", sessionID)
	return nil
}

// closeSessionsFor unmounts every session on briefID without saving.
func (s *Service) closeSessionsFor(briefID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for sid, sess := range s.sessions {
		if sess.BriefID() == briefID {
			sess.Close()
			delete(s.sessions, sid)
		}
	}
}

// Shutdown flushes and closes every open session.
func (s *Service) Shutdown(ctx context.Context) {
	s.mu.Lock()
	open := make([]*review.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		open = append(open, sess)
	}
	s.sessions = map[string]*review.Session{}
	s.mu.Unlock()

	for _, sess := range open {
		_ = sess.Save(ctx, review.SaveSilent)
		sess.Close()
	}
}
