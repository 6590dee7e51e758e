package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/phrazzld/taskhub/internal/domain"
	"github.com/phrazzld/taskhub/internal/store"
)

// MemoryProjectStore is a mutex-guarded in-memory store.ProjectStore.
type MemoryProjectStore struct {
	mu       sync.Mutex
	projects map[uuid.UUID]*domain.Project
}

var _ store.ProjectStore = (*MemoryProjectStore)(nil)

// NewMemoryProjectStore creates an empty MemoryProjectStore.
func NewMemoryProjectStore() *MemoryProjectStore {
	return &MemoryProjectStore{projects: make(map[uuid.UUID]*domain.Project)}
}

func cloneProject(p *domain.Project) *domain.Project {
	clone := *p
	clone.MemberIDs = append([]uuid.UUID(nil), p.MemberIDs...)
	return &clone
}

// Create implements store.ProjectStore.
func (s *MemoryProjectStore) Create(_ context.Context, project *domain.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects[project.ID] = cloneProject(project)
	return nil
}

// GetByID implements store.ProjectStore.
func (s *MemoryProjectStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	project, ok := s.projects[id]
	if !ok {
		return nil, store.ErrProjectNotFound
	}
	return cloneProject(project), nil
}

// ListByMember implements store.ProjectStore.
func (s *MemoryProjectStore) ListByMember(_ context.Context, userID uuid.UUID) ([]*domain.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*domain.Project
	for _, project := range s.projects {
		if project.HasMember(userID) {
			out = append(out, cloneProject(project))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// AddMember implements store.ProjectStore.
func (s *MemoryProjectStore) AddMember(_ context.Context, projectID, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	project, ok := s.projects[projectID]
	if !ok {
		return store.ErrProjectNotFound
	}
	if !project.HasMember(userID) {
		project.MemberIDs = append(project.MemberIDs, userID)
	}
	return nil
}

// RemoveMember implements store.ProjectStore.
func (s *MemoryProjectStore) RemoveMember(_ context.Context, projectID, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	project, ok := s.projects[projectID]
	if !ok {
		return store.ErrProjectNotFound
	}
	kept := project.MemberIDs[:0]
	for _, id := range project.MemberIDs {
		if id != userID {
			kept = append(kept, id)
		}
	}
	project.MemberIDs = kept
	return nil
}
