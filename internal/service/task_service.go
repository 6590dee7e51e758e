package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/taskhub/internal/domain"
	"github.com/phrazzld/taskhub/internal/events"
	"github.com/phrazzld/taskhub/internal/platform/logger"
	"github.com/phrazzld/taskhub/internal/store"
)

// CreateTaskInput carries the fields of a task creation request. Status
// and Priority default to todo/medium when empty.
type CreateTaskInput struct {
	ProjectID   uuid.UUID
	Title       string
	Description string
	Status      domain.TaskStatus
	Priority    domain.TaskPriority
	DueDate     *time.Time
}

// UpdateTaskInput is a partial update: nil fields are left untouched on
// the task, never nulled.
type UpdateTaskInput struct {
	Title       *string
	Description *string
	Status      *domain.TaskStatus
	Priority    *domain.TaskPriority
	DueDate     *time.Time
	ClearDue    bool
}

// TaskService coordinates task mutations: authorize, validate, apply,
// re-fetch the canonical record, emit the matching event. Creation is
// gated on project membership; update and delete require only a valid
// session. That asymmetry is a documented policy choice, not an
// oversight.
type TaskService struct {
	taskStore   store.TaskStore
	membership  *MembershipAuthority
	broadcaster events.Broadcaster
}

// NewTaskService creates a TaskService. A nil broadcaster disables event
// emission.
func NewTaskService(taskStore store.TaskStore, membership *MembershipAuthority, broadcaster events.Broadcaster) *TaskService {
	if broadcaster == nil {
		broadcaster = events.NopBroadcaster{}
	}
	return &TaskService{
		taskStore:   taskStore,
		membership:  membership,
		broadcaster: broadcaster,
	}
}

// CreateTask creates a task in a project the caller belongs to. Returns
// store.ErrProjectNotFound for a missing project and ErrNotProjectMember
// for a non-member.
func (s *TaskService) CreateTask(ctx context.Context, userID uuid.UUID, input CreateTaskInput) (*domain.Task, error) {
	if _, err := s.membership.RequireMember(ctx, input.ProjectID, userID); err != nil {
		return nil, err
	}

	task, err := domain.NewTask(input.ProjectID, input.Title, input.Description, input.Status, input.Priority, input.DueDate)
	if err != nil {
		return nil, err
	}

	if err := s.taskStore.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	log := logger.FromContextOrDefault(ctx, slog.Default())
	log.Info("task created",
		slog.String("task_id", task.ID.String()),
		slog.String("project_id", task.ProjectID.String()))

	s.broadcaster.BroadcastToProject(task.ProjectID, events.Event{Type: events.EventTaskCreated, Payload: task})
	s.emitStatsChanged(task.ProjectID)
	return task, nil
}

// GetTask fetches one task. Any valid session may read any task.
func (s *TaskService) GetTask(ctx context.Context, taskID uuid.UUID) (*domain.Task, error) {
	task, err := s.taskStore.GetByID(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return task, nil
}

// UpdateTask applies a partial update. Only fields present in the input
// are written; absent fields keep their current value. Requires only a
// valid session.
func (s *TaskService) UpdateTask(ctx context.Context, taskID uuid.UUID, input UpdateTaskInput) (*domain.Task, error) {
	task, err := s.taskStore.GetByID(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to load task for update: %w", err)
	}

	if input.Title != nil {
		task.Title = *input.Title
	}
	if input.Description != nil {
		task.Description = *input.Description
	}
	if input.Status != nil {
		task.Status = *input.Status
	}
	if input.Priority != nil {
		task.Priority = *input.Priority
	}
	if input.DueDate != nil {
		task.DueDate = input.DueDate
	} else if input.ClearDue {
		task.DueDate = nil
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	task.UpdatedAt = time.Now().UTC()
	if err := s.taskStore.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	s.broadcaster.BroadcastToProject(task.ProjectID, events.Event{Type: events.EventTaskUpdated, Payload: task})
	s.emitStatsChanged(task.ProjectID)
	return task, nil
}

// DeleteTask hard-deletes a task. The emitted event carries only the task
// and project ids since the record no longer exists. Requires only a
// valid session.
func (s *TaskService) DeleteTask(ctx context.Context, taskID uuid.UUID) error {
	task, err := s.taskStore.GetByID(ctx, taskID)
	if err != nil {
		return fmt.Errorf("failed to load task for delete: %w", err)
	}

	if err := s.taskStore.Delete(ctx, taskID); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	log := logger.FromContextOrDefault(ctx, slog.Default())
	log.Info("task deleted",
		slog.String("task_id", taskID.String()),
		slog.String("project_id", task.ProjectID.String()))

	s.broadcaster.BroadcastToProject(task.ProjectID, events.Event{
		Type:    events.EventTaskDeleted,
		Payload: events.TaskDeletedPayload{TaskID: taskID, ProjectID: task.ProjectID},
	})
	s.emitStatsChanged(task.ProjectID)
	return nil
}

// AssignUser adds assigneeID to the task's assignee set. Assigning a user
// who is already assigned is rejected with ErrAlreadyAssigned; the
// matching unassign operation is deliberately not symmetric.
func (s *TaskService) AssignUser(ctx context.Context, taskID, assigneeID uuid.UUID) (*domain.Task, error) {
	task, err := s.taskStore.GetByID(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to load task for assign: %w", err)
	}
	if task.HasAssignee(assigneeID) {
		return nil, ErrAlreadyAssigned
	}

	if err := s.taskStore.AddAssignee(ctx, taskID, assigneeID); err != nil {
		return nil, fmt.Errorf("failed to add assignee: %w", err)
	}

	return s.refetchAndBroadcast(ctx, taskID)
}

// UnassignUser removes assigneeID from the task's assignee set. Removing
// a user who is not assigned silently succeeds and leaves the set
// unchanged.
func (s *TaskService) UnassignUser(ctx context.Context, taskID, assigneeID uuid.UUID) (*domain.Task, error) {
	if err := s.taskStore.RemoveAssignee(ctx, taskID, assigneeID); err != nil {
		return nil, fmt.Errorf("failed to remove assignee: %w", err)
	}

	return s.refetchAndBroadcast(ctx, taskID)
}

// AddComment appends a comment authored by userID. The emitted event
// carries only the new comment plus the task id.
func (s *TaskService) AddComment(ctx context.Context, userID, taskID uuid.UUID, text string, replyToID *uuid.UUID) (*domain.Comment, error) {
	task, err := s.taskStore.GetByID(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to load task for comment: %w", err)
	}

	comment, err := domain.NewComment(userID, text, replyToID)
	if err != nil {
		return nil, err
	}

	if err := s.taskStore.AppendComment(ctx, taskID, comment); err != nil {
		return nil, fmt.Errorf("failed to append comment: %w", err)
	}

	s.broadcaster.BroadcastToProject(task.ProjectID, events.Event{
		Type:    events.EventTaskComment,
		Payload: events.CommentPayload{TaskID: taskID, Comment: *comment},
	})
	s.emitStatsChanged(task.ProjectID)
	return comment, nil
}

// refetchAndBroadcast reloads the canonical task, announces it as an
// update to its project room and invalidates the project's stats.
func (s *TaskService) refetchAndBroadcast(ctx context.Context, taskID uuid.UUID) (*domain.Task, error) {
	task, err := s.taskStore.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, store.ErrTaskNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to reload task: %w", err)
	}

	s.broadcaster.BroadcastToProject(task.ProjectID, events.Event{Type: events.EventTaskUpdated, Payload: task})
	s.emitStatsChanged(task.ProjectID)
	return task, nil
}

// emitStatsChanged tells every connected session that a project's task
// statistics are stale. Every mutation emits it; dashboards re-fetch on
// receipt.
func (s *TaskService) emitStatsChanged(projectID uuid.UUID) {
	s.broadcaster.BroadcastGlobal(events.Event{
		Type:    events.EventStatsChanged,
		Payload: events.StatsChangedPayload{ProjectID: projectID},
	})
}
