package workflow

import (
	"context"
	"fmt"

	"github.com/roach88/briefs/internal/access"
	"github.com/roach88/briefs/internal/audit"
	"github.com/roach88/briefs/internal/brief"
	"github.com/roach88/briefs/internal/fieldpath"
	"github.com/roach88/briefs/internal/ledger"
	"github.com/roach88/briefs/internal/metrics"
)

// mutate loads a brief through gate, runs fn on its ledger document and
// persists the result.
func (s *Service) mutate(ctx context.Context, id access.Identity, briefID, rawPath string,
	gate func(access.Identity, *brief.Brief) error,
	fn func(doc *ledger.Document, p fieldpath.Path) error,
) (*brief.Brief, error) {
	p, err := fieldpath.Parse(rawPath)
	if err != nil {
		return nil, err
	}
	defer s.locks.lock(briefID)()
	b, err := s.loadFor(ctx, id, briefID, gate)
	if err != nil {
		return nil, err
	}
	doc := ledger.Load(b)
	if err := fn(doc, p); err != nil {
		return nil, err
	}
	stored, err := s.persist(ctx, doc.Brief())
	if err != nil {
		return nil, fmt.Errorf("save brief %s: %w", briefID, err)
	}
	return stored, nil
}

// AdvisorEdit writes v at path as advisor-supplied content.
func (s *Service) AdvisorEdit(ctx context.Context, id access.Identity, briefID, path string, v brief.Value) (*brief.Brief, error) {
	stored, err := s.mutate(ctx, id, briefID, path, access.CanAuthor, func(doc *ledger.Document, p fieldpath.Path) error {
		return doc.ApplyAdvisorEdit(p, v)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Debug("advisor edit", "brief", briefID, "path", path, "actor", id.ID)
	return stored, nil
}

// ImportField writes v at path with a document or ai source.
func (s *Service) ImportField(ctx context.Context, id access.Identity, briefID, path string, v brief.Value, src brief.Source) (*brief.Brief, error) {
	return s.mutate(ctx, id, briefID, path, access.CanAuthor, func(doc *ledger.Document, p fieldpath.Path) error {
		return doc.ApplyImport(p, v, src)
	})
}

// MarkForClientInput sets or clears the advisor's input flag at path.
func (s *Service) MarkForClientInput(ctx context.Context, id access.Identity, briefID, path string, flag bool) (*brief.Brief, error) {
	stored, err := s.mutate(ctx, id, briefID, path, access.CanAuthor, func(doc *ledger.Document, p fieldpath.Path) error {
		return doc.MarkForClientInput(p, flag)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Debug("field marked", "brief", briefID, "path", path, "flag", flag, "actor", id.ID)
	return stored, nil
}

// SetNote sets or clears a client note outside a review session. Only
// clients write notes.
func (s *Service) SetNote(ctx context.Context, id access.Identity, briefID, path, text string) (*brief.Brief, error) {
	return s.mutate(ctx, id, briefID, path, access.CanClientWrite, func(doc *ledger.Document, p fieldpath.Path) error {
		return doc.SetClientNote(p, text)
	})
}

// Audit projects the ledger of a brief for advisors and admins.
func (s *Service) Audit(ctx context.Context, id access.Identity, briefID string, mode audit.Mode) (audit.View, error) {
	b, err := s.loadFor(ctx, id, briefID, access.CanAudit)
	if err != nil {
		return audit.View{}, err
	}
	v := s.projector.Project(b, mode)
	metrics.RecordAudit(string(mode), v.Ledger)
	return v, nil
}
