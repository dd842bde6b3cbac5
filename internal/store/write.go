package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/briefs/internal/brief"
)

// PutBrief replaces the stored document for b.ID, creating it if needed.
//
// The stored version is incremented server-side; b.CurrentVersion is ignored.
// Returns the stored copy, which carries the new version. b is not modified.
func (s *Store) PutBrief(ctx context.Context, b *brief.Brief) (*brief.Brief, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("put brief: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	stored, err := s.putBrief(ctx, tx, b)
	if err != nil {
		return nil, fmt.Errorf("put brief: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("put brief: commit: %w", err)
	}
	return stored, nil
}

// PutBriefTransition replaces the document and appends a status history row
// in one transaction. Either both are written or neither is.
func (s *Store) PutBriefTransition(ctx context.Context, b *brief.Brief, change StatusChange) (*brief.Brief, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("put brief transition: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	stored, err := s.putBrief(ctx, tx, b)
	if err != nil {
		return nil, fmt.Errorf("put brief transition: %w", err)
	}

	change.BriefID = stored.ID
	if _, err := insertStatusChange(ctx, tx, change); err != nil {
		return nil, fmt.Errorf("put brief transition: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("put brief transition: commit: %w", err)
	}
	return stored, nil
}

func (s *Store) putBrief(ctx context.Context, tx *sql.Tx, b *brief.Brief) (*brief.Brief, error) {
	if b.ID == "" {
		return nil, errors.New("brief id is required")
	}

	var version int64
	err := tx.QueryRowContext(ctx,
		"SELECT current_version FROM briefs WHERE id = ?", b.ID,
	).Scan(&version)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("read version: %w", err)
	}

	stored := b.Clone()
	stored.CurrentVersion = version + 1

	doc, err := brief.Marshal(stored)
	if err != nil {
		return nil, err
	}

	now := s.timestamp()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO briefs
		(id, workspace_id, status, document, current_version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			workspace_id = excluded.workspace_id,
			status = excluded.status,
			document = excluded.document,
			current_version = excluded.current_version,
			updated_at = excluded.updated_at
	`,
		stored.ID,
		stored.WorkspaceID,
		string(stored.Status),
		string(doc),
		stored.CurrentVersion,
		now,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert document: %w", err)
	}

	return stored, nil
}

// DeleteBrief removes a brief together with its confirmation signals and
// status history. Returns ErrNotFound if the brief does not exist.
func (s *Store) DeleteBrief(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM briefs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete brief: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete brief: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("delete brief %s: %w", id, ErrNotFound)
	}
	return nil
}

// WriteConfirmationSignal records an outbound confirmation signal.
// Returns the ID and whether a new record was inserted.
//
// Uses ON CONFLICT(session_id, brief_id, field_path) DO NOTHING so a field is
// signalled at most once per session. If the signal already exists, returns
// the existing ID and inserted=false.
func (s *Store) WriteConfirmationSignal(ctx context.Context, sig ConfirmationSignal) (id int64, inserted bool, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, fmt.Errorf("write confirmation signal: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	result, err := tx.ExecContext(ctx, `
		INSERT INTO confirmation_signals
		(session_id, brief_id, field_path, origin, emitted_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(session_id, brief_id, field_path) DO NOTHING
	`,
		sig.SessionID,
		sig.BriefID,
		sig.FieldPath,
		sig.Origin,
		formatTime(sig.EmittedAt),
	)
	if err != nil {
		return 0, false, fmt.Errorf("write confirmation signal: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, false, fmt.Errorf("write confirmation signal: rows affected: %w", err)
	}

	if rowsAffected > 0 {
		id, err = result.LastInsertId()
		if err != nil {
			return 0, false, fmt.Errorf("write confirmation signal: last insert id: %w", err)
		}
		inserted = true
	} else {
		err = tx.QueryRowContext(ctx, `
			SELECT id FROM confirmation_signals
			WHERE session_id = ? AND brief_id = ? AND field_path = ?
		`, sig.SessionID, sig.BriefID, sig.FieldPath).Scan(&id)
		if err != nil {
			return 0, false, fmt.Errorf("write confirmation signal: get existing id: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, false, fmt.Errorf("write confirmation signal: commit: %w", err)
	}

	return id, inserted, nil
}

// WriteStatusChange appends a status history row and returns its ID.
// The brief referenced by BriefID must exist (foreign key constraint).
func (s *Store) WriteStatusChange(ctx context.Context, change StatusChange) (int64, error) {
	id, err := insertStatusChange(ctx, s.db, change)
	if err != nil {
		return 0, fmt.Errorf("write status change: %w", err)
	}
	return id, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertStatusChange(ctx context.Context, db execer, change StatusChange) (int64, error) {
	result, err := db.ExecContext(ctx, `
		INSERT INTO status_history
		(brief_id, from_status, to_status, event, actor_id, actor_role, at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		change.BriefID,
		string(change.From),
		string(change.To),
		change.Event,
		change.ActorID,
		change.ActorRole,
		formatTime(change.At),
	)
	if err != nil {
		return 0, fmt.Errorf("insert status history: %w", err)
	}
	return result.LastInsertId()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(raw string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", raw, err)
	}
	return t, nil
}
