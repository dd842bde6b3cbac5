package workflow

import (
	"context"
	"fmt"

	"github.com/roach88/briefs/internal/access"
	"github.com/roach88/briefs/internal/brief"
	"github.com/roach88/briefs/internal/fieldpath"
	"github.com/roach88/briefs/internal/lifecycle"
	"github.com/roach88/briefs/internal/metrics"
	"github.com/roach88/briefs/internal/review"
	"github.com/roach88/briefs/internal/store"
)

// Transition applies a lifecycle event and records it in the status
// history. client_submit additionally requires a submittable brief.
// Illegal moves return a *lifecycle.TransitionError and write nothing.
func (s *Service) Transition(ctx context.Context, id access.Identity, briefID string, ev lifecycle.Event) (*brief.Brief, error) {
	unlock := s.locks.lock(briefID)
	defer unlock()
	b, err := s.loadFor(ctx, id, briefID, access.CanRead)
	if err != nil {
		return nil, err
	}
	if ev == lifecycle.EventClientSubmit {
		if report := s.evaluator.Evaluate(b); !report.Submittable {
			metrics.RecordTransition(string(ev), "rejected")
			return nil, &review.IncompleteError{Report: report}
		}
	}

	now := s.now()
	next, err := lifecycle.Apply(b, ev, id, now)
	if err != nil {
		metrics.RecordTransition(string(ev), "rejected")
		return nil, err
	}
	if err := lifecycle.CheckLockInvariant(next); err != nil {
		metrics.RecordTransition(string(ev), "rejected")
		return nil, err
	}
	if err := brief.Validate(ctx, next, fieldpath.Checker()); err != nil {
		return nil, err
	}

	stored, err := s.repo.PutBriefTransition(ctx, next, store.StatusChange{
		From:      b.Status,
		To:        next.Status,
		Event:     string(ev),
		ActorID:   id.ID,
		ActorRole: string(id.Role),
		At:        now.UTC(),
	})
	if err != nil {
		metrics.RecordTransition(string(ev), "error")
		return nil, fmt.Errorf("transition brief %s: %w", briefID, err)
	}
	metrics.RecordTransition(string(ev), "ok")

	if b.Status == brief.StatusClientReview && stored.Status != brief.StatusClientReview {
		s.closeSessionsFor(briefID)
	}
	s.logger.Info("brief transitioned",
		"brief", briefID,
		"event", ev,
		"from", b.Status,
		"to", stored.Status,
		"actor", id.ID,
	)
	return stored, nil
}

// Available lists the events the caller may trigger on a brief.
func (s *Service) Available(ctx context.Context, id access.Identity, briefID string) ([]lifecycle.Event, error) {
	b, err := s.loadFor(ctx, id, briefID, access.CanRead)
	if err != nil {
		return nil, err
	}
	return lifecycle.Available(b.Status, id.Role), nil
}
