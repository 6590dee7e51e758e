package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Project-specific validation errors, all classifiable as ErrValidation.
var (
	// ErrProjectIDEmpty is returned when a project ID is empty or nil.
	ErrProjectIDEmpty = fmt.Errorf("project ID cannot be empty: %w", ErrValidation)

	// ErrProjectNameEmpty is returned when a project name is empty.
	ErrProjectNameEmpty = fmt.Errorf("project name cannot be empty: %w", ErrValidation)

	// ErrProjectOwnerEmpty is returned when a project's owner ID is empty or nil.
	ErrProjectOwnerEmpty = fmt.Errorf("project owner ID cannot be empty: %w", ErrValidation)

	// ErrOwnerNotMember is returned when a project's owner is missing from
	// its member set. The owner must always be a member.
	ErrOwnerNotMember = fmt.Errorf("project owner must be a member: %w", ErrValidation)
)

// Project is a membership group for tasks. The owner is always a member
// and can never be removed via member removal.
type Project struct {
	ID          uuid.UUID   `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	OwnerID     uuid.UUID   `json:"owner_id"`
	MemberIDs   []uuid.UUID `json:"member_ids"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// NewProject creates a new Project owned by ownerID. The owner becomes the
// first member. Returns an error if validation fails.
func NewProject(name, description string, ownerID uuid.UUID) (*Project, error) {
	project := &Project{
		ID:          uuid.New(),
		Name:        name,
		Description: description,
		OwnerID:     ownerID,
		MemberIDs:   []uuid.UUID{ownerID},
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}

	if err := project.Validate(); err != nil {
		return nil, err
	}

	return project, nil
}

// Validate checks if the Project has valid data.
// Returns an error if any field fails validation.
func (p *Project) Validate() error {
	if p.ID == uuid.Nil {
		return ErrProjectIDEmpty
	}

	if p.Name == "" {
		return ErrProjectNameEmpty
	}

	if p.OwnerID == uuid.Nil {
		return ErrProjectOwnerEmpty
	}

	if !p.HasMember(p.OwnerID) {
		return ErrOwnerNotMember
	}

	return nil
}

// HasMember reports whether userID is a member of the project.
func (p *Project) HasMember(userID uuid.UUID) bool {
	for _, id := range p.MemberIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// IsOwner reports whether userID owns the project.
func (p *Project) IsOwner(userID uuid.UUID) bool {
	return p.OwnerID == userID
}
