package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

// Recognized task statuses.
const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in-progress"
	TaskStatusDone       TaskStatus = "done"
)

// IsValid reports whether the status is one of the recognized values.
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusDone:
		return true
	}
	return false
}

// TaskPriority is the urgency bucket of a task.
type TaskPriority string

// Recognized task priorities.
const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
)

// IsValid reports whether the priority is one of the recognized values.
func (p TaskPriority) IsValid() bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh:
		return true
	}
	return false
}

// Rank returns the ordering weight of the priority (low < medium < high).
// Used by the query engine when sorting by priority.
func (p TaskPriority) Rank() int {
	switch p {
	case TaskPriorityLow:
		return 1
	case TaskPriorityMedium:
		return 2
	case TaskPriorityHigh:
		return 3
	}
	return 0
}

// Task-specific validation errors, all classifiable as ErrValidation.
var (
	// ErrTaskIDEmpty is returned when a task ID is empty or nil.
	ErrTaskIDEmpty = fmt.Errorf("task ID cannot be empty: %w", ErrValidation)

	// ErrTaskTitleEmpty is returned when a task title is empty.
	ErrTaskTitleEmpty = fmt.Errorf("task title cannot be empty: %w", ErrValidation)

	// ErrTaskProjectEmpty is returned when a task's project ID is empty or nil.
	ErrTaskProjectEmpty = fmt.Errorf("task project ID cannot be empty: %w", ErrValidation)

	// ErrCommentTextEmpty is returned when a comment's text is empty.
	ErrCommentTextEmpty = fmt.Errorf("comment text cannot be empty: %w", ErrValidation)

	// ErrCommentAuthorEmpty is returned when a comment's author ID is empty or nil.
	ErrCommentAuthorEmpty = fmt.Errorf("comment author ID cannot be empty: %w", ErrValidation)
)

// Comment is embedded in and owned by exactly one Task. Comments are
// append-only; there is no edit or delete.
type Comment struct {
	ID        uuid.UUID  `json:"id"`
	AuthorID  uuid.UUID  `json:"author_id"`
	Text      string     `json:"text"`
	ReplyToID *uuid.UUID `json:"reply_to_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// NewComment creates a new Comment by authorID, optionally replying to
// another comment. Returns an error if validation fails.
func NewComment(authorID uuid.UUID, text string, replyToID *uuid.UUID) (*Comment, error) {
	comment := &Comment{
		ID:        uuid.New(),
		AuthorID:  authorID,
		Text:      text,
		ReplyToID: replyToID,
		CreatedAt: time.Now().UTC(),
	}

	if err := comment.Validate(); err != nil {
		return nil, err
	}

	return comment, nil
}

// Validate checks if the Comment has valid data.
func (c *Comment) Validate() error {
	if c.AuthorID == uuid.Nil {
		return ErrCommentAuthorEmpty
	}
	if c.Text == "" {
		return ErrCommentTextEmpty
	}
	return nil
}

// Task is a unit of work inside a project. Assignees SHOULD be project
// members but this is not enforced at write time.
type Task struct {
	ID          uuid.UUID    `json:"id"`
	ProjectID   uuid.UUID    `json:"project_id"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Status      TaskStatus   `json:"status"`
	Priority    TaskPriority `json:"priority"`
	AssigneeIDs []uuid.UUID  `json:"assignee_ids"`
	DueDate     *time.Time   `json:"due_date,omitempty"`
	Comments    []Comment    `json:"comments"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// NewTask creates a new Task in projectID. Status defaults to todo and
// priority to medium when empty. Returns an error if validation fails.
func NewTask(projectID uuid.UUID, title, description string, status TaskStatus, priority TaskPriority, dueDate *time.Time) (*Task, error) {
	if status == "" {
		status = TaskStatusTodo
	}
	if priority == "" {
		priority = TaskPriorityMedium
	}

	task := &Task{
		ID:          uuid.New(),
		ProjectID:   projectID,
		Title:       title,
		Description: description,
		Status:      status,
		Priority:    priority,
		AssigneeIDs: []uuid.UUID{},
		DueDate:     dueDate,
		Comments:    []Comment{},
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks if the Task has valid data.
// Returns an error if any field fails validation.
func (t *Task) Validate() error {
	if t.ID == uuid.Nil {
		return ErrTaskIDEmpty
	}

	if t.ProjectID == uuid.Nil {
		return ErrTaskProjectEmpty
	}

	if t.Title == "" {
		return ErrTaskTitleEmpty
	}

	if !t.Status.IsValid() {
		return ErrInvalidStatus
	}

	if !t.Priority.IsValid() {
		return ErrInvalidPriority
	}

	return nil
}

// HasAssignee reports whether userID is currently assigned to the task.
func (t *Task) HasAssignee(userID uuid.UUID) bool {
	for _, id := range t.AssigneeIDs {
		if id == userID {
			return true
		}
	}
	return false
}
