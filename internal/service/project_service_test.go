package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/taskhub/internal/domain"
	"github.com/phrazzld/taskhub/internal/events"
	"github.com/phrazzld/taskhub/internal/mocks"
	"github.com/phrazzld/taskhub/internal/service"
	"github.com/phrazzld/taskhub/internal/store"
)

type projectFixture struct {
	users       *mocks.MemoryUserStore
	projects    *mocks.MemoryProjectStore
	broadcaster *mocks.RecordingBroadcaster
	svc         *service.ProjectService
	owner       *domain.User
}

func newProjectFixture(t *testing.T) *projectFixture {
	t.Helper()

	users := mocks.NewMemoryUserStore()
	projects := mocks.NewMemoryProjectStore()
	broadcaster := &mocks.RecordingBroadcaster{}
	membership := service.NewMembershipAuthority(projects)

	owner := newStoredUser(t, users, "Olive Owner", "olive@example.com")

	return &projectFixture{
		users:       users,
		projects:    projects,
		broadcaster: broadcaster,
		svc:         service.NewProjectService(projects, users, membership, broadcaster),
		owner:       owner,
	}
}

func newStoredUser(t *testing.T, users *mocks.MemoryUserStore, name, email string) *domain.User {
	t.Helper()
	user, err := domain.NewUser(name, email, "correct-horse-battery")
	require.NoError(t, err)
	user.HashedPassword = "hashed:correct-horse-battery"
	user.Password = ""
	require.NoError(t, users.Create(context.Background(), user))
	return user
}

func TestProjectService_CreateProject_OwnerIsFirstMember(t *testing.T) {
	t.Parallel()
	f := newProjectFixture(t)
	ctx := context.Background()

	project, err := f.svc.CreateProject(ctx, f.owner.ID, "Eng", "engineering")
	require.NoError(t, err)
	assert.Equal(t, f.owner.ID, project.OwnerID)
	assert.True(t, project.HasMember(f.owner.ID), "owner must be a member from creation")

	listed, err := f.svc.ListProjects(ctx, f.owner.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, project.ID, listed[0].ID)
}

func TestProjectService_GetProject(t *testing.T) {
	t.Parallel()
	f := newProjectFixture(t)
	ctx := context.Background()

	project, err := f.svc.CreateProject(ctx, f.owner.ID, "Eng", "")
	require.NoError(t, err)

	view, err := f.svc.GetProject(ctx, f.owner.ID, project.ID)
	require.NoError(t, err)
	require.Len(t, view.Members, 1)
	assert.Equal(t, f.owner.ID, view.Members[0].ID)

	// A non-member gets an authorization failure, a missing project a
	// not-found, and the two are distinguishable.
	outsider := newStoredUser(t, f.users, "Sam Stranger", "sam@example.com")
	_, err = f.svc.GetProject(ctx, outsider.ID, project.ID)
	assert.ErrorIs(t, err, service.ErrNotProjectMember)

	_, err = f.svc.GetProject(ctx, f.owner.ID, uuid.New())
	assert.ErrorIs(t, err, store.ErrProjectNotFound)
}

func TestProjectService_AddMember(t *testing.T) {
	t.Parallel()
	f := newProjectFixture(t)
	ctx := context.Background()

	project, err := f.svc.CreateProject(ctx, f.owner.ID, "Eng", "")
	require.NoError(t, err)
	member := newStoredUser(t, f.users, "Mia Member", "mia@example.com")

	view, err := f.svc.AddMember(ctx, f.owner.ID, project.ID, member.ID)
	require.NoError(t, err)
	require.Len(t, view.Members, 2)
	assert.Equal(t, f.owner.ID, view.Members[0].ID, "owner listed first")

	// Adding again is a conflict.
	_, err = f.svc.AddMember(ctx, f.owner.ID, project.ID, member.ID)
	assert.ErrorIs(t, err, service.ErrAlreadyMember)

	// Only the owner manages membership.
	third := newStoredUser(t, f.users, "Ty Third", "ty@example.com")
	_, err = f.svc.AddMember(ctx, member.ID, project.ID, third.ID)
	assert.ErrorIs(t, err, service.ErrNotProjectOwner)

	// The new member must exist.
	_, err = f.svc.AddMember(ctx, f.owner.ID, project.ID, uuid.New())
	assert.ErrorIs(t, err, store.ErrUserNotFound)

	assert.Equal(t, []events.EventType{events.EventMemberAdded}, f.broadcaster.RoomEventTypes())
}

func TestProjectService_RemoveMember(t *testing.T) {
	t.Parallel()
	f := newProjectFixture(t)
	ctx := context.Background()

	project, err := f.svc.CreateProject(ctx, f.owner.ID, "Eng", "")
	require.NoError(t, err)
	member := newStoredUser(t, f.users, "Mia Member", "mia@example.com")
	_, err = f.svc.AddMember(ctx, f.owner.ID, project.ID, member.ID)
	require.NoError(t, err)

	view, err := f.svc.RemoveMember(ctx, f.owner.ID, project.ID, member.ID)
	require.NoError(t, err)
	require.Len(t, view.Members, 1)
	assert.Equal(t, f.owner.ID, view.Members[0].ID)

	// Removed users are kicked out of the project room.
	require.Len(t, f.broadcaster.Kicks, 1)
	assert.Equal(t, project.ID, f.broadcaster.Kicks[0].ProjectID)
	assert.Equal(t, member.ID, f.broadcaster.Kicks[0].UserID)
	assert.Contains(t, f.broadcaster.RoomEventTypes(), events.EventMemberRemoved)

	// Removing a non-member is rejected.
	_, err = f.svc.RemoveMember(ctx, f.owner.ID, project.ID, member.ID)
	assert.ErrorIs(t, err, service.ErrNotMember)
}

// ownerId must stay in memberIds through every membership mutation, and
// removing the owner is always rejected.
func TestProjectService_OwnerNeverRemovable(t *testing.T) {
	t.Parallel()
	f := newProjectFixture(t)
	ctx := context.Background()

	project, err := f.svc.CreateProject(ctx, f.owner.ID, "Eng", "")
	require.NoError(t, err)
	member := newStoredUser(t, f.users, "Mia Member", "mia@example.com")
	_, err = f.svc.AddMember(ctx, f.owner.ID, project.ID, member.ID)
	require.NoError(t, err)

	_, err = f.svc.RemoveMember(ctx, f.owner.ID, project.ID, f.owner.ID)
	assert.ErrorIs(t, err, service.ErrOwnerRemoval)

	current, err := f.projects.GetByID(ctx, project.ID)
	require.NoError(t, err)
	assert.True(t, current.HasMember(current.OwnerID))
	assert.Empty(t, f.broadcaster.Kicks, "rejected removal must not kick anyone")
}
