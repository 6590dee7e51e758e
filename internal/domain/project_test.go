package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProject(t *testing.T) {
	t.Parallel()

	ownerID := uuid.New()

	project, err := NewProject("Eng", "engineering work", ownerID)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, project.ID)
	assert.Equal(t, ownerID, project.OwnerID)
	assert.True(t, project.HasMember(ownerID), "owner must be a member after creation")
	assert.True(t, project.IsOwner(ownerID))
}

func TestNewProjectValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		projectName string
		ownerID     uuid.UUID
		wantErr     error
	}{
		{
			name:        "empty_name",
			projectName: "",
			ownerID:     uuid.New(),
			wantErr:     ErrProjectNameEmpty,
		},
		{
			name:        "empty_owner",
			projectName: "Eng",
			ownerID:     uuid.Nil,
			wantErr:     ErrProjectOwnerEmpty,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewProject(tc.projectName, "", tc.ownerID)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestProjectValidateOwnerMembership(t *testing.T) {
	t.Parallel()

	ownerID := uuid.New()
	project, err := NewProject("Eng", "", ownerID)
	require.NoError(t, err)

	// Dropping the owner from the member set must fail validation.
	project.MemberIDs = []uuid.UUID{uuid.New()}
	assert.ErrorIs(t, project.Validate(), ErrOwnerNotMember)
}
