// Package workflow composes load, gate, mutate and persist for every
// operation the advisor, client and admin surfaces expose.
//
// Each operation loads the brief fresh from the repository, checks the
// caller with package access, mutates a copy and writes the whole document
// back. A failed write leaves the stored brief unchanged. Writes to one
// brief are serialized, review session saves included; beyond that there
// is no version check between identities and the last writer wins.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/briefs/internal/access"
	"github.com/roach88/briefs/internal/audit"
	"github.com/roach88/briefs/internal/brief"
	"github.com/roach88/briefs/internal/catalog"
	"github.com/roach88/briefs/internal/completion"
	"github.com/roach88/briefs/internal/fieldpath"
	"github.com/roach88/briefs/internal/ids"
	"github.com/roach88/briefs/internal/labels"
	"github.com/roach88/briefs/internal/review"
	"github.com/roach88/briefs/internal/store"
)

// ErrUnknownProjectType is returned when creating a brief for a project
// type the catalog does not define.
var ErrUnknownProjectType = errors.New("unknown project type")

// Repository is the record store. *store.Store satisfies it.
type Repository interface {
	review.Persister
	review.SignalWriter
	GetBrief(ctx context.Context, id string) (*brief.Brief, error)
	ListBriefs(ctx context.Context, workspaces []string) ([]store.BriefSummary, error)
	DeleteBrief(ctx context.Context, id string) error
	ReadConfirmationSignals(ctx context.Context, briefID string) ([]store.ConfirmationSignal, error)
	ReadStatusHistory(ctx context.Context, briefID string) ([]store.StatusChange, error)
}

// Service implements the brief operations.
type Service struct {
	repo      Repository
	ids       ids.Generator
	catalog   *catalog.Catalog
	evaluator *completion.Evaluator
	projector *audit.Projector
	now       func() time.Time
	logger    *slog.Logger
	autosave  time.Duration
	locks     briefLocks

	mu       sync.Mutex
	sessions map[string]*review.Session
}

// Option configures a Service.
type Option func(*Service)

// WithIDs sets the generator for brief and session IDs.
func WithIDs(g ids.Generator) Option {
	return func(s *Service) { s.ids = g }
}

// WithClock sets the wall clock.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithCatalog sets the question catalog.
func WithCatalog(c *catalog.Catalog) Option {
	return func(s *Service) { s.catalog = c }
}

// WithAutosaveInterval sets the autosave period of review sessions.
func WithAutosaveInterval(d time.Duration) Option {
	return func(s *Service) { s.autosave = d }
}

// New returns a Service backed by repo.
func New(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		ids:      ids.UUIDv7Generator{},
		now:      time.Now,
		logger:   slog.Default(),
		autosave: review.DefaultAutosaveInterval,
		sessions: map[string]*review.Session{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.catalog == nil {
		s.catalog = catalog.Default()
	}
	s.evaluator = completion.New(s.catalog)
	s.projector = audit.New(labels.New(s.catalog))
	return s
}

// Catalog returns the question catalog in use.
func (s *Service) Catalog() *catalog.Catalog { return s.catalog }

// load fetches a brief, mapping a missing record to access.ErrNotFound.
func (s *Service) load(ctx context.Context, briefID string) (*brief.Brief, error) {
	b, err := s.repo.GetBrief(ctx, briefID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", access.ErrNotFound, briefID)
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// loadFor fetches a brief and applies gate for the caller.
func (s *Service) loadFor(ctx context.Context, id access.Identity, briefID string, gate func(access.Identity, *brief.Brief) error) (*brief.Brief, error) {
	b, err := s.load(ctx, briefID)
	if err != nil {
		return nil, err
	}
	if err := gate(id, b); err != nil {
		return nil, err
	}
	return b, nil
}

// persist validates and writes a full document.
func (s *Service) persist(ctx context.Context, b *brief.Brief) (*brief.Brief, error) {
	if err := brief.Validate(ctx, b, fieldpath.Checker()); err != nil {
		return nil, err
	}
	return s.repo.PutBrief(ctx, b)
}

// CreateRequest describes a new brief.
type CreateRequest struct {
	WorkspaceID string `json:"workspaceId" validate:"required"`
	ProjectType string `json:"projectType" validate:"required"`
}

// Create authors a new, empty Advisor Draft with an empty ledger.
func (s *Service) Create(ctx context.Context, id access.Identity, req CreateRequest) (*brief.Brief, error) {
	if err := access.CanCreate(id, req.WorkspaceID); err != nil {
		return nil, err
	}
	if _, ok := s.catalog.Lookup(req.ProjectType); !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProjectType, req.ProjectType)
	}
	b := brief.New(s.ids.Generate(), req.WorkspaceID, req.ProjectType)
	stored, err := s.persist(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("create brief: %w", err)
	}
	s.logger.Info("brief created", "brief", stored.ID, "workspace", stored.WorkspaceID, "actor", id.ID)
	return stored, nil
}

// ImportBrief stores an externally produced document as is. A missing ID
// is generated. Legacy documents without field_sources stay ledger-less.
func (s *Service) ImportBrief(ctx context.Context, id access.Identity, b *brief.Brief) (*brief.Brief, error) {
	if err := access.CanCreate(id, b.WorkspaceID); err != nil {
		return nil, err
	}
	b = b.Clone()
	if b.ID == "" {
		b.ID = s.ids.Generate()
	}
	defer s.locks.lock(b.ID)()
	if b.Status == "" {
		b.Status = brief.StatusAdvisorDraft
	}
	stored, err := s.persist(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("import brief: %w", err)
	}
	s.logger.Info("brief imported", "brief", stored.ID, "ledger", stored.HasLedger(), "actor", id.ID)
	return stored, nil
}

// Get returns a brief the caller may read.
func (s *Service) Get(ctx context.Context, id access.Identity, briefID string) (*brief.Brief, error) {
	return s.loadFor(ctx, id, briefID, access.CanRead)
}

// List returns the briefs visible to the caller, ordered by ID.
func (s *Service) List(ctx context.Context, id access.Identity) ([]store.BriefSummary, error) {
	var workspaces []string
	if id.Role != access.RoleAdmin && id.Role != access.RoleSystem {
		workspaces = append([]string{}, id.Workspaces...)
	}
	all, err := s.repo.ListBriefs(ctx, workspaces)
	if err != nil {
		return nil, fmt.Errorf("list briefs: %w", err)
	}
	out := make([]store.BriefSummary, 0, len(all))
	for _, sum := range all {
		if id.Role == access.RoleClient && sum.Status == brief.StatusAdvisorDraft {
			continue
		}
		out = append(out, sum)
	}
	return out, nil
}

// Delete removes a brief together with its ledger, notes, signals and
// history.
func (s *Service) Delete(ctx context.Context, id access.Identity, briefID string) error {
	defer s.locks.lock(briefID)()
	if _, err := s.loadFor(ctx, id, briefID, access.CanAuthor); err != nil {
		return err
	}
	s.closeSessionsFor(briefID)
	if err := s.repo.DeleteBrief(ctx, briefID); err != nil {
		return fmt.Errorf("delete brief: %w", err)
	}
	s.logger.Info("brief deleted", "brief", briefID, "actor", id.ID)
	return nil
}

// Evaluate reports section completeness of a brief the caller may read.
func (s *Service) Evaluate(ctx context.Context, id access.Identity, briefID string) (completion.Report, error) {
	b, err := s.loadFor(ctx, id, briefID, access.CanRead)
	if err != nil {
		return completion.Report{}, err
	}
	return s.evaluator.Evaluate(b), nil
}

// StatusHistory returns a brief's transitions, oldest first.
func (s *Service) StatusHistory(ctx context.Context, id access.Identity, briefID string) ([]store.StatusChange, error) {
	if _, err := s.loadFor(ctx, id, briefID, access.CanAudit); err != nil {
		return nil, err
	}
	return s.repo.ReadStatusHistory(ctx, briefID)
}

// Signals returns the field-confirmed signals recorded for a brief.
func (s *Service) Signals(ctx context.Context, id access.Identity, briefID string) ([]store.ConfirmationSignal, error) {
	if _, err := s.loadFor(ctx, id, briefID, access.CanAudit); err != nil {
		return nil, err
	}
	return s.repo.ReadConfirmationSignals(ctx, briefID)
}
