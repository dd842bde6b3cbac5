// Package access decides which identities may see or act on a brief.
//
// Failed checks are redirect-class errors: surfaces navigate away instead of
// rendering partial content. A client asking for an Advisor Draft gets
// ErrNotFound, not ErrForbidden, so the draft's existence is not revealed.
package access

import (
	"errors"
	"fmt"
	"slices"

	"github.com/roach88/briefs/internal/brief"
)

var (
	ErrNotFound    = errors.New("brief not found")
	ErrForbidden   = errors.New("access denied")
	ErrWrongStatus = errors.New("brief is not in the expected status")
)

// Role is the kind of identity acting on a brief.
type Role string

const (
	RoleAdvisor Role = "advisor"
	RoleClient  Role = "client"
	RoleAdmin   Role = "admin"

	// RoleSystem is used by external collaborators (the matching engine).
	RoleSystem Role = "system"
)

// ParseRole converts a wire string to a Role.
func ParseRole(raw string) (Role, error) {
	switch r := Role(raw); r {
	case RoleAdvisor, RoleClient, RoleAdmin, RoleSystem:
		return r, nil
	}
	return "", fmt.Errorf("invalid role %q: must be one of advisor, client, admin, system", raw)
}

// Identity is an authenticated caller. Workspaces lists the workspaces the
// identity belongs to; admins and the system ignore it.
type Identity struct {
	ID         string   `json:"id" validate:"required"`
	Role       Role     `json:"role" validate:"required,oneof=advisor client admin system"`
	Workspaces []string `json:"workspaces"`
}

// Member reports whether id belongs to workspaceID.
func (id Identity) Member(workspaceID string) bool {
	return slices.Contains(id.Workspaces, workspaceID)
}

func (id Identity) privileged() bool {
	return id.Role == RoleAdmin || id.Role == RoleSystem
}

// CanRead checks whether id may load b at all.
func CanRead(id Identity, b *brief.Brief) error {
	if id.privileged() {
		return nil
	}
	if !id.Member(b.WorkspaceID) {
		return fmt.Errorf("%w: %s is not a member of workspace %s", ErrForbidden, id.ID, b.WorkspaceID)
	}
	if id.Role == RoleClient && b.Status == brief.StatusAdvisorDraft {
		return fmt.Errorf("%w: %s", ErrNotFound, b.ID)
	}
	return nil
}

// CanGuidedReview checks whether id may open the guided review for b. The
// brief must be in Client Review.
func CanGuidedReview(id Identity, b *brief.Brief) error {
	if err := CanRead(id, b); err != nil {
		return err
	}
	if id.Role != RoleClient && id.Role != RoleAdmin {
		return fmt.Errorf("%w: guided review is for clients", ErrForbidden)
	}
	if b.Status != brief.StatusClientReview {
		return fmt.Errorf("%w: %s is %s, want %s", ErrWrongStatus, b.ID, b.Status, brief.StatusClientReview)
	}
	return nil
}

// CanAudit checks whether id may see the audit projection of b.
func CanAudit(id Identity, b *brief.Brief) error {
	switch id.Role {
	case RoleAdmin:
		return nil
	case RoleAdvisor:
		return CanRead(id, b)
	}
	if err := CanRead(id, b); err != nil {
		return err
	}
	return fmt.Errorf("%w: audit is for advisors and admins", ErrForbidden)
}

// CanAuthor checks whether id may edit content and flags as the advisor.
func CanAuthor(id Identity, b *brief.Brief) error {
	switch id.Role {
	case RoleAdmin:
		return nil
	case RoleAdvisor:
		return CanRead(id, b)
	}
	if err := CanRead(id, b); err != nil {
		return err
	}
	return fmt.Errorf("%w: authoring is for advisors and admins", ErrForbidden)
}

// CanCreate checks whether id may create a brief in workspaceID.
func CanCreate(id Identity, workspaceID string) error {
	switch {
	case id.Role == RoleAdmin:
		return nil
	case id.Role == RoleAdvisor && id.Member(workspaceID):
		return nil
	}
	return fmt.Errorf("%w: %s cannot create briefs in %s", ErrForbidden, id.ID, workspaceID)
}

// CanClientWrite checks whether id may write client provenance on b.
// Admins may open a guided review but never write through it.
func CanClientWrite(id Identity, b *brief.Brief) error {
	if err := CanGuidedReview(id, b); err != nil {
		return err
	}
	if id.Role != RoleClient {
		return fmt.Errorf("%w: %s may not write a client review", ErrForbidden, id.ID)
	}
	return nil
}

// IsRedirect reports whether err should send the caller away from the view.
func IsRedirect(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrForbidden) || errors.Is(err, ErrWrongStatus)
}
