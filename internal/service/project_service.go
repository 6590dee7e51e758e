package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/phrazzld/taskhub/internal/domain"
	"github.com/phrazzld/taskhub/internal/events"
	"github.com/phrazzld/taskhub/internal/platform/logger"
	"github.com/phrazzld/taskhub/internal/store"
)

// ProjectView is a project populated with member summaries. The owner is
// always the first entry in Members.
type ProjectView struct {
	Project *domain.Project
	Members []domain.UserSummary
}

// ProjectService coordinates project mutations and populated reads.
// Member management is owner-only; reads require membership.
type ProjectService struct {
	projectStore store.ProjectStore
	userStore    store.UserStore
	membership   *MembershipAuthority
	broadcaster  events.Broadcaster
}

// NewProjectService creates a ProjectService. A nil broadcaster disables
// event emission.
func NewProjectService(
	projectStore store.ProjectStore,
	userStore store.UserStore,
	membership *MembershipAuthority,
	broadcaster events.Broadcaster,
) *ProjectService {
	if broadcaster == nil {
		broadcaster = events.NopBroadcaster{}
	}
	return &ProjectService{
		projectStore: projectStore,
		userStore:    userStore,
		membership:   membership,
		broadcaster:  broadcaster,
	}
}

// CreateProject creates a project owned by ownerID, who becomes its first
// member.
func (s *ProjectService) CreateProject(ctx context.Context, ownerID uuid.UUID, name, description string) (*domain.Project, error) {
	project, err := domain.NewProject(name, description, ownerID)
	if err != nil {
		return nil, err
	}

	if err := s.projectStore.Create(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	log := logger.FromContextOrDefault(ctx, slog.Default())
	log.Info("project created",
		slog.String("project_id", project.ID.String()),
		slog.String("owner_id", ownerID.String()))

	return project, nil
}

// ListProjects returns every project userID belongs to, most recently
// created first.
func (s *ProjectService) ListProjects(ctx context.Context, userID uuid.UUID) ([]*domain.Project, error) {
	projects, err := s.projectStore.ListByMember(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, nil
}

// GetProject returns the populated view of one project. The caller must be
// a member; a missing project is reported before the membership check.
func (s *ProjectService) GetProject(ctx context.Context, userID, projectID uuid.UUID) (*ProjectView, error) {
	project, err := s.membership.RequireMember(ctx, projectID, userID)
	if err != nil {
		return nil, err
	}
	return s.populate(ctx, project)
}

// AddMember adds newMemberID to the project. Owner-only; adding an
// existing member is rejected with ErrAlreadyMember, and the new member
// must be an existing user.
func (s *ProjectService) AddMember(ctx context.Context, callerID, projectID, newMemberID uuid.UUID) (*ProjectView, error) {
	project, err := s.membership.RequireOwner(ctx, projectID, callerID)
	if err != nil {
		return nil, err
	}
	if project.HasMember(newMemberID) {
		return nil, ErrAlreadyMember
	}

	user, err := s.userStore.GetByID(ctx, newMemberID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve new member: %w", err)
	}

	if err := s.projectStore.AddMember(ctx, projectID, newMemberID); err != nil {
		return nil, fmt.Errorf("failed to add member: %w", err)
	}

	s.broadcaster.BroadcastToProject(projectID, events.Event{
		Type:    events.EventMemberAdded,
		Payload: events.MemberPayload{ProjectID: projectID, User: user.Summary()},
	})

	updated, err := s.projectStore.GetByID(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload project: %w", err)
	}
	return s.populate(ctx, updated)
}

// RemoveMember removes memberID from the project. Owner-only; the owner
// can never be removed, and removing a non-member is rejected. Every
// session the removed user holds in the project's room is kicked.
func (s *ProjectService) RemoveMember(ctx context.Context, callerID, projectID, memberID uuid.UUID) (*ProjectView, error) {
	project, err := s.membership.RequireOwner(ctx, projectID, callerID)
	if err != nil {
		return nil, err
	}
	if project.IsOwner(memberID) {
		return nil, ErrOwnerRemoval
	}
	if !project.HasMember(memberID) {
		return nil, ErrNotMember
	}

	removed, err := s.userStore.GetByID(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve removed member: %w", err)
	}

	if err := s.projectStore.RemoveMember(ctx, projectID, memberID); err != nil {
		return nil, fmt.Errorf("failed to remove member: %w", err)
	}

	log := logger.FromContextOrDefault(ctx, slog.Default())
	log.Info("member removed",
		slog.String("project_id", projectID.String()),
		slog.String("member_id", memberID.String()))

	s.broadcaster.BroadcastToProject(projectID, events.Event{
		Type:    events.EventMemberRemoved,
		Payload: events.MemberPayload{ProjectID: projectID, User: removed.Summary()},
	})
	s.broadcaster.KickFromProject(projectID, memberID)

	updated, err := s.projectStore.GetByID(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload project: %w", err)
	}
	return s.populate(ctx, updated)
}

// populate resolves member summaries for a project, ordering the owner
// first. A member whose user record has vanished is silently omitted.
func (s *ProjectService) populate(ctx context.Context, project *domain.Project) (*ProjectView, error) {
	summaries, err := s.userStore.GetSummaries(ctx, project.MemberIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve member summaries: %w", err)
	}

	ordered := make([]domain.UserSummary, 0, len(summaries))
	for _, summary := range summaries {
		if summary.ID == project.OwnerID {
			ordered = append([]domain.UserSummary{summary}, ordered...)
			continue
		}
		ordered = append(ordered, summary)
	}

	return &ProjectView{Project: project, Members: ordered}, nil
}
