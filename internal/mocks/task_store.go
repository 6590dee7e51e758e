// Package mocks provides in-memory store implementations and capture
// doubles for service and handler tests. The task store reproduces the
// compound-key listing semantics of the SQL implementation so pagination
// behavior can be exercised without a database.
package mocks

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/taskhub/internal/domain"
	"github.com/phrazzld/taskhub/internal/store"
)

// MemoryTaskStore is a mutex-guarded in-memory store.TaskStore.
type MemoryTaskStore struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]*domain.Task
}

var _ store.TaskStore = (*MemoryTaskStore)(nil)

// NewMemoryTaskStore creates an empty MemoryTaskStore.
func NewMemoryTaskStore() *MemoryTaskStore {
	return &MemoryTaskStore{tasks: make(map[uuid.UUID]*domain.Task)}
}

func cloneTask(t *domain.Task) *domain.Task {
	clone := *t
	clone.AssigneeIDs = append([]uuid.UUID(nil), t.AssigneeIDs...)
	clone.Comments = append([]domain.Comment(nil), t.Comments...)
	if t.DueDate != nil {
		due := *t.DueDate
		clone.DueDate = &due
	}
	return &clone
}

// Create implements store.TaskStore.
func (s *MemoryTaskStore) Create(_ context.Context, task *domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[task.ID] = cloneTask(task)
	return nil
}

// GetByID implements store.TaskStore.
func (s *MemoryTaskStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[id]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	return cloneTask(task), nil
}

// Update implements store.TaskStore.
func (s *MemoryTaskStore) Update(_ context.Context, task *domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[task.ID]; !ok {
		return store.ErrTaskNotFound
	}
	s.tasks[task.ID] = cloneTask(task)
	return nil
}

// Delete implements store.TaskStore.
func (s *MemoryTaskStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[id]; !ok {
		return store.ErrTaskNotFound
	}
	delete(s.tasks, id)
	return nil
}

// AddAssignee implements store.TaskStore.
func (s *MemoryTaskStore) AddAssignee(_ context.Context, taskID, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[taskID]
	if !ok {
		return store.ErrTaskNotFound
	}
	for _, id := range task.AssigneeIDs {
		if id == userID {
			return nil
		}
	}
	task.AssigneeIDs = append(task.AssigneeIDs, userID)
	return nil
}

// RemoveAssignee implements store.TaskStore. Removal of a non-assignee is
// a no-op.
func (s *MemoryTaskStore) RemoveAssignee(_ context.Context, taskID, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[taskID]
	if !ok {
		return store.ErrTaskNotFound
	}
	kept := task.AssigneeIDs[:0]
	for _, id := range task.AssigneeIDs {
		if id != userID {
			kept = append(kept, id)
		}
	}
	task.AssigneeIDs = kept
	return nil
}

// AppendComment implements store.TaskStore.
func (s *MemoryTaskStore) AppendComment(_ context.Context, taskID uuid.UUID, comment *domain.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[taskID]
	if !ok {
		return store.ErrTaskNotFound
	}
	task.Comments = append(task.Comments, *comment)
	return nil
}

// List implements store.TaskStore with the same compound (sort value, id)
// ordering and keyset boundary as the SQL store.
func (s *MemoryTaskStore) List(_ context.Context, q store.TaskQuery) ([]*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := s.filterLocked(q)
	sortTasks(matched, q.SortBy, q.Order)

	if q.After != nil {
		cut := 0
		for i, task := range matched {
			if compareTasks(task, q.After, q.SortBy, q.Order) > 0 {
				cut = i
				break
			}
			cut = len(matched)
		}
		matched = matched[cut:]
	}

	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}

	out := make([]*domain.Task, 0, len(matched))
	for _, task := range matched {
		out = append(out, cloneTask(task))
	}
	return out, nil
}

// CountMatching implements store.TaskStore.
func (s *MemoryTaskStore) CountMatching(_ context.Context, q store.TaskQuery) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.filterLocked(q)), nil
}

// SearchCandidates implements store.TaskStore.
func (s *MemoryTaskStore) SearchCandidates(_ context.Context, projectIDs []uuid.UUID, query string) ([]*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	scope := make(map[uuid.UUID]bool, len(projectIDs))
	for _, id := range projectIDs {
		scope[id] = true
	}
	needle := strings.ToLower(query)

	var out []*domain.Task
	for _, task := range s.tasks {
		if !scope[task.ProjectID] {
			continue
		}
		if taskMatchesText(task, needle) {
			out = append(out, cloneTask(task))
		}
	}
	return out, nil
}

func taskMatchesText(task *domain.Task, needle string) bool {
	if strings.Contains(strings.ToLower(task.Title), needle) {
		return true
	}
	if strings.Contains(strings.ToLower(task.Description), needle) {
		return true
	}
	for _, comment := range task.Comments {
		if strings.Contains(strings.ToLower(comment.Text), needle) {
			return true
		}
	}
	return false
}

func (s *MemoryTaskStore) filterLocked(q store.TaskQuery) []*domain.Task {
	scope := make(map[uuid.UUID]bool, len(q.ProjectIDs))
	for _, id := range q.ProjectIDs {
		scope[id] = true
	}

	var matched []*domain.Task
	for _, task := range s.tasks {
		if !scope[task.ProjectID] {
			continue
		}
		if q.Status != nil && task.Status != *q.Status {
			continue
		}
		if q.Priority != nil && task.Priority != *q.Priority {
			continue
		}
		if q.AssigneeID != nil && !task.HasAssignee(*q.AssigneeID) {
			continue
		}
		matched = append(matched, task)
	}
	return matched
}

// sortKeyTime extracts the primary sort key. A nil due date collapses to
// the epoch, matching the SQL store's COALESCE.
func sortKeyTime(task *domain.Task, field store.TaskSortField) time.Time {
	switch field {
	case store.SortByDueDate:
		if task.DueDate == nil {
			return time.Unix(0, 0).UTC()
		}
		return *task.DueDate
	default:
		return task.CreatedAt
	}
}

// compareTasks orders a against b under the query's compound key in the
// query direction: negative when a precedes b, positive when a follows.
func compareTasks(a, b *domain.Task, field store.TaskSortField, order store.SortOrder) int {
	primary := 0
	switch field {
	case store.SortByPriority:
		primary = a.Priority.Rank() - b.Priority.Rank()
	case store.SortByTitle:
		primary = strings.Compare(a.Title, b.Title)
	default:
		at, bt := sortKeyTime(a, field), sortKeyTime(b, field)
		switch {
		case at.Before(bt):
			primary = -1
		case at.After(bt):
			primary = 1
		}
	}
	if primary == 0 {
		primary = strings.Compare(a.ID.String(), b.ID.String())
	}
	if order == store.SortDesc {
		return -primary
	}
	return primary
}

func sortTasks(tasks []*domain.Task, field store.TaskSortField, order store.SortOrder) {
	sort.Slice(tasks, func(i, j int) bool {
		return compareTasks(tasks[i], tasks[j], field, order) < 0
	})
}
