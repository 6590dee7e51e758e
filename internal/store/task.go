package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/phrazzld/taskhub/internal/domain"
)

// TaskSortField identifies the primary sort key for task listings.
type TaskSortField string

// Supported sort fields.
const (
	SortByCreatedAt TaskSortField = "createdAt"
	SortByDueDate   TaskSortField = "dueDate"
	SortByPriority  TaskSortField = "priority"
	SortByTitle     TaskSortField = "title"
)

// IsValid reports whether the sort field is one of the supported values.
func (f TaskSortField) IsValid() bool {
	switch f {
	case SortByCreatedAt, SortByDueDate, SortByPriority, SortByTitle:
		return true
	}
	return false
}

// SortOrder is the direction of a task listing sort.
type SortOrder string

// Supported sort orders.
const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// IsValid reports whether the sort order is one of the supported values.
func (o SortOrder) IsValid() bool {
	return o == SortAsc || o == SortDesc
}

// TaskQuery describes a filtered, sorted task listing. Records are ordered
// by the compound key (SortBy, ID), both in the query direction, so ties on
// the primary sort field break deterministically by ID.
//
// After is the keyset boundary: when set, only records strictly beyond the
// boundary task's (sort value, ID) position are returned. The boundary task
// itself is supplied whole so the store can extract whichever sort field the
// query uses.
type TaskQuery struct {
	ProjectIDs []uuid.UUID
	Status     *domain.TaskStatus
	Priority   *domain.TaskPriority
	AssigneeID *uuid.UUID
	SortBy     TaskSortField
	Order      SortOrder
	After      *domain.Task
	Limit      int // 0 means no limit
}

// TaskStore defines the interface for task data persistence and the query
// primitives the query engine is built on.
type TaskStore interface {
	// Create saves a new task to the store.
	// Returns ErrInvalidEntity if the referenced project does not exist.
	Create(ctx context.Context, task *domain.Task) error

	// GetByID retrieves a task by its unique ID.
	// Returns ErrTaskNotFound if the task does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// Update saves changes to an existing task as a single document write.
	// Returns ErrTaskNotFound if the task does not exist.
	Update(ctx context.Context, task *domain.Task) error

	// Delete removes a task from the store. Hard delete, no tombstone.
	// Returns ErrTaskNotFound if the task does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// AddAssignee appends userID to the task's assignee set as a single
	// document update. Returns ErrTaskNotFound if the task does not exist.
	AddAssignee(ctx context.Context, taskID, userID uuid.UUID) error

	// RemoveAssignee removes userID from the task's assignee set. Removing
	// a non-assignee is a no-op. Returns ErrTaskNotFound if the task does
	// not exist.
	RemoveAssignee(ctx context.Context, taskID, userID uuid.UUID) error

	// AppendComment appends a comment to the task's embedded comment list.
	// Returns ErrTaskNotFound if the task does not exist.
	AppendComment(ctx context.Context, taskID uuid.UUID, comment *domain.Comment) error

	// List executes a filtered, sorted, keyset-bounded listing.
	List(ctx context.Context, q TaskQuery) ([]*domain.Task, error)

	// CountMatching counts the records matching the query's filters,
	// ignoring the cursor boundary and limit.
	CountMatching(ctx context.Context, q TaskQuery) (int, error)

	// SearchCandidates returns every task in the given projects whose title,
	// description, or any comment text contains the query string
	// (case-insensitive). Scoring and ordering are the caller's concern.
	SearchCandidates(ctx context.Context, projectIDs []uuid.UUID, query string) ([]*domain.Task, error)
}
