package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/phrazzld/taskhub/internal/domain"
	"github.com/phrazzld/taskhub/internal/platform/logger"
	"github.com/phrazzld/taskhub/internal/store"
)

// PostgresProjectStore implements the store.ProjectStore interface
// using a PostgreSQL database as the storage backend.
type PostgresProjectStore struct {
	db store.DBTX
}

// NewPostgresProjectStore creates a new PostgreSQL implementation of the
// ProjectStore interface.
func NewPostgresProjectStore(db store.DBTX) *PostgresProjectStore {
	if db == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("db cannot be nil")
	}
	return &PostgresProjectStore{db: db}
}

// Ensure PostgresProjectStore implements store.ProjectStore interface
var _ store.ProjectStore = (*PostgresProjectStore)(nil)

const projectColumns = `id, name, description, owner_id, array_to_json(member_ids), created_at, updated_at`

// Create implements store.ProjectStore.Create
func (s *PostgresProjectStore) Create(ctx context.Context, project *domain.Project) error {
	log := logger.FromContext(ctx)

	query := `
		INSERT INTO projects (id, name, description, owner_id, member_ids, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5::uuid[], $6, $7)
	`

	_, err := s.db.ExecContext(ctx, query,
		project.ID,
		project.Name,
		project.Description,
		project.OwnerID,
		uuidArrayLiteral(project.MemberIDs),
		project.CreatedAt,
		project.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to create project", "error", err, "project_id", project.ID)
		return fmt.Errorf("failed to create project: %w", MapError(err))
	}

	return nil
}

// GetByID implements store.ProjectStore.GetByID
func (s *PostgresProjectStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = $1`

	project, err := scanProject(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to get project: %w", MapError(err))
	}
	return project, nil
}

// ListByMember implements store.ProjectStore.ListByMember
func (s *PostgresProjectStore) ListByMember(ctx context.Context, userID uuid.UUID) ([]*domain.Project, error) {
	query := `
		SELECT ` + projectColumns + `
		FROM projects
		WHERE $1 = ANY(member_ids)
		ORDER BY created_at DESC, id DESC
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	projects := []*domain.Project{}
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, project)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate projects: %w", err)
	}

	return projects, nil
}

// AddMember implements store.ProjectStore.AddMember as a single document
// update. array_append is unconditional, so the caller handles duplicate
// checks.
func (s *PostgresProjectStore) AddMember(ctx context.Context, projectID, userID uuid.UUID) error {
	query := `
		UPDATE projects
		SET member_ids = array_append(member_ids, $2),
		    updated_at = now()
		WHERE id = $1 AND NOT ($2 = ANY(member_ids))
	`

	result, err := s.db.ExecContext(ctx, query, projectID, userID)
	if err != nil {
		return fmt.Errorf("failed to add project member: %w", MapError(err))
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		// Either the project is gone or the member was already present;
		// distinguish so the not-found contract holds.
		if _, err := s.GetByID(ctx, projectID); err != nil {
			return err
		}
	}

	return nil
}

// RemoveMember implements store.ProjectStore.RemoveMember. Removing a
// non-member is a no-op at this layer.
func (s *PostgresProjectStore) RemoveMember(ctx context.Context, projectID, userID uuid.UUID) error {
	query := `
		UPDATE projects
		SET member_ids = array_remove(member_ids, $2),
		    updated_at = now()
		WHERE id = $1
	`

	result, err := s.db.ExecContext(ctx, query, projectID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove project member: %w", MapError(err))
	}

	return CheckRowsAffected(result, store.ErrProjectNotFound)
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (*domain.Project, error) {
	var (
		project    domain.Project
		rawMembers []byte
	)
	err := row.Scan(
		&project.ID,
		&project.Name,
		&project.Description,
		&project.OwnerID,
		&rawMembers,
		&project.CreatedAt,
		&project.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	project.MemberIDs, err = scanUUIDArray(rawMembers)
	if err != nil {
		return nil, err
	}
	return &project, nil
}
