package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/briefs/internal/brief"
)

// GetBrief returns the stored document for id.
// Returns an error wrapping ErrNotFound if the brief does not exist.
func (s *Store) GetBrief(ctx context.Context, id string) (*brief.Brief, error) {
	var doc string
	err := s.db.QueryRowContext(ctx,
		"SELECT document FROM briefs WHERE id = ?", id,
	).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get brief %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get brief %s: %w", id, err)
	}

	b, err := brief.Unmarshal([]byte(doc))
	if err != nil {
		return nil, fmt.Errorf("get brief %s: %w", id, err)
	}
	return b, nil
}

// ListBriefs returns summaries of stored briefs ordered by id.
// A nil workspaces slice lists every brief; otherwise only briefs in one of
// the given workspaces are returned.
//
// Returns an empty slice (not nil) if nothing matches.
func (s *Store) ListBriefs(ctx context.Context, workspaces []string) ([]BriefSummary, error) {
	query := `
		SELECT id, workspace_id, status, current_version, updated_at
		FROM briefs
	`
	var args []any
	if workspaces != nil {
		if len(workspaces) == 0 {
			return []BriefSummary{}, nil
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(workspaces)), ",")
		query += " WHERE workspace_id IN (" + placeholders + ")"
		for _, w := range workspaces {
			args = append(args, w)
		}
	}
	query += " ORDER BY id COLLATE BINARY ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list briefs: %w", err)
	}
	defer rows.Close()

	summaries := []BriefSummary{}
	for rows.Next() {
		var (
			sum       BriefSummary
			status    string
			updatedAt string
		)
		if err := rows.Scan(&sum.ID, &sum.WorkspaceID, &status, &sum.CurrentVersion, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan brief summary: %w", err)
		}
		sum.Status = brief.Status(status)
		if sum.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, fmt.Errorf("scan brief summary: %w", err)
		}
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate briefs: %w", err)
	}

	return summaries, nil
}

// ReadConfirmationSignals returns the signals recorded for a brief in
// insertion order. Returns an empty slice (not nil) if none exist.
func (s *Store) ReadConfirmationSignals(ctx context.Context, briefID string) ([]ConfirmationSignal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, brief_id, field_path, origin, emitted_at
		FROM confirmation_signals
		WHERE brief_id = ?
		ORDER BY id ASC
	`, briefID)
	if err != nil {
		return nil, fmt.Errorf("query confirmation signals: %w", err)
	}
	defer rows.Close()

	signals := []ConfirmationSignal{}
	for rows.Next() {
		var (
			sig       ConfirmationSignal
			emittedAt string
		)
		if err := rows.Scan(&sig.ID, &sig.SessionID, &sig.BriefID, &sig.FieldPath, &sig.Origin, &emittedAt); err != nil {
			return nil, fmt.Errorf("scan confirmation signal: %w", err)
		}
		if sig.EmittedAt, err = parseTime(emittedAt); err != nil {
			return nil, fmt.Errorf("scan confirmation signal: %w", err)
		}
		signals = append(signals, sig)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate confirmation signals: %w", err)
	}

	return signals, nil
}

// ReadStatusHistory returns a brief's transitions oldest first.
// Returns an empty slice (not nil) if none exist.
func (s *Store) ReadStatusHistory(ctx context.Context, briefID string) ([]StatusChange, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, brief_id, from_status, to_status, event, actor_id, actor_role, at
		FROM status_history
		WHERE brief_id = ?
		ORDER BY id ASC
	`, briefID)
	if err != nil {
		return nil, fmt.Errorf("query status history: %w", err)
	}
	defer rows.Close()

	history := []StatusChange{}
	for rows.Next() {
		var (
			c        StatusChange
			from, to string
			at       string
		)
		if err := rows.Scan(&c.ID, &c.BriefID, &from, &to, &c.Event, &c.ActorID, &c.ActorRole, &at); err != nil {
			return nil, fmt.Errorf("scan status change: %w", err)
		}
		c.From, c.To = brief.Status(from), brief.Status(to)
		if c.At, err = parseTime(at); err != nil {
			return nil, fmt.Errorf("scan status change: %w", err)
		}
		history = append(history, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status history: %w", err)
	}

	return history, nil
}
