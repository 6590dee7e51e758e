package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/phrazzld/taskhub/internal/domain"
)

// ProjectStore defines the interface for project data persistence.
type ProjectStore interface {
	// Create saves a new project to the store.
	Create(ctx context.Context, project *domain.Project) error

	// GetByID retrieves a project by its unique ID.
	// Returns ErrProjectNotFound if the project does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Project, error)

	// ListByMember retrieves every project that userID is a member of,
	// most recently created first.
	ListByMember(ctx context.Context, userID uuid.UUID) ([]*domain.Project, error)

	// AddMember appends userID to the project's member set as a single
	// document update. The caller is responsible for duplicate checks.
	// Returns ErrProjectNotFound if the project does not exist.
	AddMember(ctx context.Context, projectID, userID uuid.UUID) error

	// RemoveMember removes userID from the project's member set as a single
	// document update. Removal of a non-member is a no-op at this layer.
	// Returns ErrProjectNotFound if the project does not exist.
	RemoveMember(ctx context.Context, projectID, userID uuid.UUID) error
}
