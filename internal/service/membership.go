package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/phrazzld/taskhub/internal/domain"
	"github.com/phrazzld/taskhub/internal/store"
)

// MembershipAuthority answers membership and ownership questions for
// projects. It is the single authorization gate in front of every project
// and task operation. Each check re-reads the project record; membership
// can change between calls, so nothing is cached.
//
// Existence checks come before authorization checks: a missing project is
// reported as the store's not-found error, never as an authorization
// failure.
type MembershipAuthority struct {
	projectStore store.ProjectStore
}

// NewMembershipAuthority creates a MembershipAuthority over the given
// project store.
func NewMembershipAuthority(projectStore store.ProjectStore) *MembershipAuthority {
	return &MembershipAuthority{projectStore: projectStore}
}

// IsMember reports whether userID is a member of the project.
// Returns store.ErrProjectNotFound if the project does not exist.
func (m *MembershipAuthority) IsMember(ctx context.Context, projectID, userID uuid.UUID) (bool, error) {
	project, err := m.projectStore.GetByID(ctx, projectID)
	if err != nil {
		return false, fmt.Errorf("failed to check membership: %w", err)
	}
	return project.HasMember(userID), nil
}

// IsOwner reports whether userID owns the project.
// Returns store.ErrProjectNotFound if the project does not exist.
func (m *MembershipAuthority) IsOwner(ctx context.Context, projectID, userID uuid.UUID) (bool, error) {
	project, err := m.projectStore.GetByID(ctx, projectID)
	if err != nil {
		return false, fmt.Errorf("failed to check ownership: %w", err)
	}
	return project.IsOwner(userID), nil
}

// RequireMember fetches the project and verifies userID is a member,
// returning the project so callers avoid a second fetch. Returns
// store.ErrProjectNotFound for a missing project and ErrNotProjectMember
// for a non-member.
func (m *MembershipAuthority) RequireMember(ctx context.Context, projectID, userID uuid.UUID) (*domain.Project, error) {
	project, err := m.projectStore.GetByID(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to verify membership: %w", err)
	}
	if !project.HasMember(userID) {
		return nil, ErrNotProjectMember
	}
	return project, nil
}

// RequireOwner fetches the project and verifies userID is its owner.
// Returns store.ErrProjectNotFound for a missing project and
// ErrNotProjectOwner for a non-owner.
func (m *MembershipAuthority) RequireOwner(ctx context.Context, projectID, userID uuid.UUID) (*domain.Project, error) {
	project, err := m.projectStore.GetByID(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to verify ownership: %w", err)
	}
	if !project.IsOwner(userID) {
		return nil, ErrNotProjectOwner
	}
	return project, nil
}

// MemberProjectIDs returns the ids of every project userID belongs to.
// The query engine restricts all task reads to this set.
func (m *MembershipAuthority) MemberProjectIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	projects, err := m.projectStore.ListByMember(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve member projects: %w", err)
	}
	ids := make([]uuid.UUID, 0, len(projects))
	for _, p := range projects {
		ids = append(ids, p.ID)
	}
	return ids, nil
}
