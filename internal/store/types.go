package store

import (
	"time"

	"github.com/roach88/briefs/internal/brief"
)

// ConfirmationSignal is one outbound "field confirmed" notification.
type ConfirmationSignal struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	BriefID   string    `json:"brief_id"`
	FieldPath string    `json:"field_path"`
	Origin    string    `json:"origin"`
	EmittedAt time.Time `json:"emitted_at"`
}

// StatusChange is one row of a brief's status history.
type StatusChange struct {
	ID        int64        `json:"id"`
	BriefID   string       `json:"brief_id"`
	From      brief.Status `json:"from_status"`
	To        brief.Status `json:"to_status"`
	Event     string       `json:"event"`
	ActorID   string       `json:"actor_id"`
	ActorRole string       `json:"actor_role"`
	At        time.Time    `json:"at"`
}

// BriefSummary is the indexed metadata of a stored brief.
type BriefSummary struct {
	ID             string       `json:"id"`
	WorkspaceID    string       `json:"workspace_id"`
	Status         brief.Status `json:"status"`
	CurrentVersion int64        `json:"current_version"`
	UpdatedAt      time.Time    `json:"updated_at"`
}
