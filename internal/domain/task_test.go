package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTaskDefaults(t *testing.T) {
	t.Parallel()

	task, err := NewTask(uuid.New(), "write docs", "", "", "", nil)
	require.NoError(t, err)

	assert.Equal(t, TaskStatusTodo, task.Status, "status defaults to todo")
	assert.Equal(t, TaskPriorityMedium, task.Priority, "priority defaults to medium")
	assert.Empty(t, task.AssigneeIDs)
	assert.Empty(t, task.Comments)
}

func TestNewTaskValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		projectID uuid.UUID
		title     string
		status    TaskStatus
		priority  TaskPriority
		wantErr   error
	}{
		{
			name:      "empty_title",
			projectID: uuid.New(),
			wantErr:   ErrTaskTitleEmpty,
		},
		{
			name:      "empty_project",
			projectID: uuid.Nil,
			title:     "x",
			wantErr:   ErrTaskProjectEmpty,
		},
		{
			name:      "bad_status",
			projectID: uuid.New(),
			title:     "x",
			status:    TaskStatus("blocked"),
			wantErr:   ErrInvalidStatus,
		},
		{
			name:      "bad_priority",
			projectID: uuid.New(),
			title:     "x",
			priority:  TaskPriority("urgent"),
			wantErr:   ErrInvalidPriority,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewTask(tc.projectID, tc.title, "", tc.status, tc.priority, nil)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestPriorityRank(t *testing.T) {
	t.Parallel()

	assert.Less(t, TaskPriorityLow.Rank(), TaskPriorityMedium.Rank())
	assert.Less(t, TaskPriorityMedium.Rank(), TaskPriorityHigh.Rank())
}

func TestNewComment(t *testing.T) {
	t.Parallel()

	authorID := uuid.New()
	comment, err := NewComment(authorID, "looks good", nil)
	require.NoError(t, err)
	assert.Equal(t, authorID, comment.AuthorID)
	assert.NotEqual(t, uuid.Nil, comment.ID)

	_, err = NewComment(authorID, "", nil)
	assert.ErrorIs(t, err, ErrCommentTextEmpty)

	_, err = NewComment(uuid.Nil, "text", nil)
	assert.ErrorIs(t, err, ErrCommentAuthorEmpty)
}
