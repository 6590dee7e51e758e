package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/taskhub/internal/domain"
	"github.com/phrazzld/taskhub/internal/platform/logger"
	"github.com/phrazzld/taskhub/internal/store"
)

// PostgresTaskStore implements the store.TaskStore interface
// using a PostgreSQL database as the storage backend.
type PostgresTaskStore struct {
	db store.DBTX
}

// NewPostgresTaskStore creates a new PostgreSQL implementation of the
// TaskStore interface.
func NewPostgresTaskStore(db store.DBTX) *PostgresTaskStore {
	if db == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("db cannot be nil")
	}
	return &PostgresTaskStore{db: db}
}

// Ensure PostgresTaskStore implements store.TaskStore interface
var _ store.TaskStore = (*PostgresTaskStore)(nil)

const taskColumns = `id, project_id, title, description, status, priority,
	array_to_json(assignee_ids), due_date, comments, created_at, updated_at`

// Create implements store.TaskStore.Create
func (s *PostgresTaskStore) Create(ctx context.Context, task *domain.Task) error {
	log := logger.FromContext(ctx)

	comments, err := json.Marshal(task.Comments)
	if err != nil {
		return fmt.Errorf("failed to encode comments: %w", err)
	}

	query := `
		INSERT INTO tasks (id, project_id, title, description, status, priority,
			assignee_ids, due_date, comments, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7::uuid[], $8, $9, $10, $11)
	`

	_, err = s.db.ExecContext(ctx, query,
		task.ID,
		task.ProjectID,
		task.Title,
		task.Description,
		task.Status,
		task.Priority,
		uuidArrayLiteral(task.AssigneeIDs),
		task.DueDate,
		comments,
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to create task", "error", err, "task_id", task.ID)
		return fmt.Errorf("failed to create task: %w", MapError(err))
	}

	return nil
}

// GetByID implements store.TaskStore.GetByID
func (s *PostgresTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`

	task, err := scanTask(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", MapError(err))
	}
	return task, nil
}

// Update implements store.TaskStore.Update as a single document write.
func (s *PostgresTaskStore) Update(ctx context.Context, task *domain.Task) error {
	comments, err := json.Marshal(task.Comments)
	if err != nil {
		return fmt.Errorf("failed to encode comments: %w", err)
	}

	query := `
		UPDATE tasks
		SET title = $2, description = $3, status = $4, priority = $5,
		    assignee_ids = $6::uuid[], due_date = $7, comments = $8, updated_at = $9
		WHERE id = $1
	`

	result, err := s.db.ExecContext(ctx, query,
		task.ID,
		task.Title,
		task.Description,
		task.Status,
		task.Priority,
		uuidArrayLiteral(task.AssigneeIDs),
		task.DueDate,
		comments,
		task.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", MapError(err))
	}

	return CheckRowsAffected(result, store.ErrTaskNotFound)
}

// Delete implements store.TaskStore.Delete. Hard delete, no tombstone.
func (s *PostgresTaskStore) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", MapError(err))
	}

	return CheckRowsAffected(result, store.ErrTaskNotFound)
}

// AddAssignee implements store.TaskStore.AddAssignee
func (s *PostgresTaskStore) AddAssignee(ctx context.Context, taskID, userID uuid.UUID) error {
	query := `
		UPDATE tasks
		SET assignee_ids = array_append(assignee_ids, $2),
		    updated_at = now()
		WHERE id = $1 AND NOT ($2 = ANY(assignee_ids))
	`

	result, err := s.db.ExecContext(ctx, query, taskID, userID)
	if err != nil {
		return fmt.Errorf("failed to add assignee: %w", MapError(err))
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		if _, err := s.GetByID(ctx, taskID); err != nil {
			return err
		}
	}

	return nil
}

// RemoveAssignee implements store.TaskStore.RemoveAssignee. Removing a
// non-assignee is a no-op.
func (s *PostgresTaskStore) RemoveAssignee(ctx context.Context, taskID, userID uuid.UUID) error {
	query := `
		UPDATE tasks
		SET assignee_ids = array_remove(assignee_ids, $2),
		    updated_at = now()
		WHERE id = $1
	`

	result, err := s.db.ExecContext(ctx, query, taskID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove assignee: %w", MapError(err))
	}

	return CheckRowsAffected(result, store.ErrTaskNotFound)
}

// AppendComment implements store.TaskStore.AppendComment as a single jsonb
// append.
func (s *PostgresTaskStore) AppendComment(ctx context.Context, taskID uuid.UUID, comment *domain.Comment) error {
	encoded, err := json.Marshal(comment)
	if err != nil {
		return fmt.Errorf("failed to encode comment: %w", err)
	}

	query := `
		UPDATE tasks
		SET comments = comments || $2::jsonb,
		    updated_at = now()
		WHERE id = $1
	`

	result, err := s.db.ExecContext(ctx, query, taskID, encoded)
	if err != nil {
		return fmt.Errorf("failed to append comment: %w", MapError(err))
	}

	return CheckRowsAffected(result, store.ErrTaskNotFound)
}

// List implements store.TaskStore.List. The listing is ordered by the
// compound key (sort expression, id) in the query direction, and the keyset
// boundary uses a row comparison over the same compound key so pages never
// skip or repeat records across duplicate sort values.
func (s *PostgresTaskStore) List(ctx context.Context, q store.TaskQuery) ([]*domain.Task, error) {
	var sb strings.Builder
	args := []any{}

	sb.WriteString(`SELECT ` + taskColumns + ` FROM tasks`)
	appendTaskFilters(&sb, &args, q)

	sortExpr := taskSortExpression(q.SortBy)
	cmp := ">"
	dir := "ASC"
	if q.Order == store.SortDesc {
		cmp = "<"
		dir = "DESC"
	}

	if q.After != nil {
		args = append(args, taskSortValue(q.SortBy, q.After), q.After.ID)
		fmt.Fprintf(&sb, " AND (%s, id) %s ($%d, $%d)", sortExpr, cmp, len(args)-1, len(args))
	}

	fmt.Fprintf(&sb, " ORDER BY %s %s, id %s", sortExpr, dir, dir)

	if q.Limit > 0 {
		args = append(args, q.Limit)
		fmt.Fprintf(&sb, " LIMIT $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	tasks := []*domain.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tasks: %w", err)
	}

	return tasks, nil
}

// CountMatching implements store.TaskStore.CountMatching
func (s *PostgresTaskStore) CountMatching(ctx context.Context, q store.TaskQuery) (int, error) {
	var sb strings.Builder
	args := []any{}

	sb.WriteString(`SELECT count(*) FROM tasks`)
	appendTaskFilters(&sb, &args, q)

	var count int
	if err := s.db.QueryRowContext(ctx, sb.String(), args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count tasks: %w", MapError(err))
	}
	return count, nil
}

// SearchCandidates implements store.TaskStore.SearchCandidates
func (s *PostgresTaskStore) SearchCandidates(ctx context.Context, projectIDs []uuid.UUID, query string) ([]*domain.Task, error) {
	if len(projectIDs) == 0 {
		return []*domain.Task{}, nil
	}

	pattern := "%" + escapeLike(query) + "%"
	sqlQuery := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE project_id = ANY($1::uuid[])
		  AND (title ILIKE $2
		       OR description ILIKE $2
		       OR EXISTS (
		            SELECT 1 FROM jsonb_array_elements(comments) AS c
		            WHERE c->>'text' ILIKE $2
		          ))
	`

	rows, err := s.db.QueryContext(ctx, sqlQuery, uuidArrayLiteral(projectIDs), pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to search tasks: %w", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	tasks := []*domain.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tasks: %w", err)
	}

	return tasks, nil
}

// appendTaskFilters writes the WHERE clause for the query's filters. It
// always emits at least one predicate so callers can append AND clauses.
func appendTaskFilters(sb *strings.Builder, args *[]any, q store.TaskQuery) {
	*args = append(*args, uuidArrayLiteral(q.ProjectIDs))
	fmt.Fprintf(sb, " WHERE project_id = ANY($%d::uuid[])", len(*args))

	if q.Status != nil {
		*args = append(*args, *q.Status)
		fmt.Fprintf(sb, " AND status = $%d", len(*args))
	}
	if q.Priority != nil {
		*args = append(*args, *q.Priority)
		fmt.Fprintf(sb, " AND priority = $%d", len(*args))
	}
	if q.AssigneeID != nil {
		*args = append(*args, *q.AssigneeID)
		fmt.Fprintf(sb, " AND $%d = ANY(assignee_ids)", len(*args))
	}
}

// taskSortExpression returns the SQL expression for the sort field. Null
// due dates collapse to the epoch so they sort together, and priorities map
// onto their rank so "high" outranks "medium" outranks "low".
func taskSortExpression(field store.TaskSortField) string {
	switch field {
	case store.SortByDueDate:
		return "COALESCE(due_date, 'epoch'::timestamptz)"
	case store.SortByPriority:
		return "CASE priority WHEN 'low' THEN 1 WHEN 'medium' THEN 2 WHEN 'high' THEN 3 ELSE 0 END"
	case store.SortByTitle:
		return "title"
	default:
		return "created_at"
	}
}

// taskSortValue extracts the boundary task's value for the sort field,
// mirroring taskSortExpression.
func taskSortValue(field store.TaskSortField, task *domain.Task) any {
	switch field {
	case store.SortByDueDate:
		if task.DueDate == nil {
			return time.Unix(0, 0).UTC()
		}
		return *task.DueDate
	case store.SortByPriority:
		return task.Priority.Rank()
	case store.SortByTitle:
		return task.Title
	default:
		return task.CreatedAt
	}
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var (
		task         domain.Task
		rawAssignees []byte
		rawComments  []byte
		dueDate      sql.NullTime
	)
	err := row.Scan(
		&task.ID,
		&task.ProjectID,
		&task.Title,
		&task.Description,
		&task.Status,
		&task.Priority,
		&rawAssignees,
		&dueDate,
		&rawComments,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	task.AssigneeIDs, err = scanUUIDArray(rawAssignees)
	if err != nil {
		return nil, err
	}
	if dueDate.Valid {
		t := dueDate.Time
		task.DueDate = &t
	}
	if err := json.Unmarshal(rawComments, &task.Comments); err != nil {
		return nil, fmt.Errorf("failed to decode comments: %w", err)
	}
	if task.Comments == nil {
		task.Comments = []domain.Comment{}
	}

	return &task, nil
}
