package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/phrazzld/taskhub/internal/domain"
	"github.com/phrazzld/taskhub/internal/store"
)

// Listing and search bounds.
const (
	DefaultListLimit   = 20
	MaxListLimit       = 100
	DefaultSearchLimit = 20
	MaxSearchLimit     = 50

	MinSearchQueryLen  = 1
	maxCommentSnippets = 3
	snippetMaxRunes    = 100
)

// ListTasksInput describes one page request against the task listing.
// Nil pointer fields mean "no filter".
type ListTasksInput struct {
	ProjectID  *uuid.UUID
	Status     *domain.TaskStatus
	Priority   *domain.TaskPriority
	AssigneeID *uuid.UUID
	SortBy     store.TaskSortField
	Order      store.SortOrder
	Cursor     *uuid.UUID
	Limit      int
}

// TaskPage is one page of a keyset-paginated listing. NextCursor is the id
// of the last task on the page and is nil when HasMore is false. Total is
// the count of all records matching the filter, cursor ignored.
type TaskPage struct {
	Tasks      []*domain.Task
	Total      int
	HasMore    bool
	NextCursor *uuid.UUID
}

// SearchTasksInput describes a relevance-scored text search.
type SearchTasksInput struct {
	Query               string
	ProjectID           *uuid.UUID
	Limit               int
	IncludeMatchDetails bool
}

// MatchDetails reports which fields of a task matched a search query.
type MatchDetails struct {
	TitleMatched       bool
	DescriptionMatched bool
	MatchingComments   int
	CommentSnippets    []string
}

// TaskMatch is one scored search hit. Details is nil unless match details
// were requested.
type TaskMatch struct {
	Task    *domain.Task
	Score   int
	Details *MatchDetails
}

// SearchResult is the outcome of a text search. Total counts every
// qualifying record, not just the returned page.
type SearchResult struct {
	Matches []TaskMatch
	Total   int
}

// QueryService is the task query engine. It resolves the caller's visible
// project set through the membership authority, then runs either a
// keyset-paginated listing or a relevance-scored text search over it.
type QueryService struct {
	taskStore  store.TaskStore
	membership *MembershipAuthority
}

// NewQueryService creates a QueryService.
func NewQueryService(taskStore store.TaskStore, membership *MembershipAuthority) *QueryService {
	return &QueryService{taskStore: taskStore, membership: membership}
}

// ListTasks executes a filtered, sorted, cursor-paginated listing scoped to
// the projects userID belongs to. When input.ProjectID is set it must be one
// of those projects; a missing project is reported as not-found, a project
// the caller does not belong to as ErrNotProjectMember.
//
// The cursor is the id of the last task of the previous page. The engine
// re-fetches that task to recover its sort-field value, and the store
// applies a compound (sort value, id) boundary so pages never skip or
// repeat records even when the sort field has duplicate values.
func (s *QueryService) ListTasks(ctx context.Context, userID uuid.UUID, input ListTasksInput) (*TaskPage, error) {
	sortBy := input.SortBy
	if sortBy == "" {
		sortBy = store.SortByCreatedAt
	}
	if !sortBy.IsValid() {
		return nil, domain.NewValidationError("sortBy", "unsupported sort field", domain.ErrValidation)
	}
	order := input.Order
	if order == "" {
		order = store.SortDesc
	}
	if !order.IsValid() {
		return nil, domain.NewValidationError("sortOrder", "unsupported sort order", domain.ErrValidation)
	}
	limit := clampLimit(input.Limit, DefaultListLimit, MaxListLimit)

	scope, err := s.resolveScope(ctx, userID, input.ProjectID)
	if err != nil {
		return nil, err
	}
	if len(scope) == 0 {
		return &TaskPage{Tasks: []*domain.Task{}}, nil
	}

	query := store.TaskQuery{
		ProjectIDs: scope,
		Status:     input.Status,
		Priority:   input.Priority,
		AssigneeID: input.AssigneeID,
		SortBy:     sortBy,
		Order:      order,
	}

	if input.Cursor != nil {
		boundary, err := s.taskStore.GetByID(ctx, *input.Cursor)
		if err != nil {
			if errors.Is(err, store.ErrTaskNotFound) {
				return nil, ErrInvalidCursor
			}
			return nil, fmt.Errorf("failed to resolve cursor: %w", err)
		}
		// A cursor naming a task outside the caller's visible projects is
		// as invalid as one naming a deleted task.
		if !scopeContains(scope, boundary.ProjectID) {
			return nil, ErrInvalidCursor
		}
		query.After = boundary
	}

	query.Limit = limit + 1
	tasks, err := s.taskStore.List(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	page := &TaskPage{Tasks: tasks}
	if len(tasks) > limit {
		page.Tasks = tasks[:limit]
		page.HasMore = true
		last := page.Tasks[len(page.Tasks)-1].ID
		page.NextCursor = &last
	}

	countQuery := query
	countQuery.After = nil
	countQuery.Limit = 0
	total, err := s.taskStore.CountMatching(ctx, countQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to count tasks: %w", err)
	}
	page.Total = total

	return page, nil
}

// SearchTasks runs a case-insensitive substring search over title,
// description, and comment text of every task visible to userID, scoring
// hits 3 for a title match, 2 for a description match, and 1 for any
// comment match, additively. Results are ordered by (score desc,
// createdAt desc).
func (s *QueryService) SearchTasks(ctx context.Context, userID uuid.UUID, input SearchTasksInput) (*SearchResult, error) {
	query := strings.TrimSpace(input.Query)
	if len([]rune(query)) < MinSearchQueryLen {
		return nil, ErrQueryTooShort
	}
	limit := clampLimit(input.Limit, DefaultSearchLimit, MaxSearchLimit)

	scope, err := s.resolveScope(ctx, userID, input.ProjectID)
	if err != nil {
		return nil, err
	}
	if len(scope) == 0 {
		return &SearchResult{Matches: []TaskMatch{}}, nil
	}

	candidates, err := s.taskStore.SearchCandidates(ctx, scope, query)
	if err != nil {
		return nil, fmt.Errorf("failed to search tasks: %w", err)
	}

	needle := strings.ToLower(query)
	matches := make([]TaskMatch, 0, len(candidates))
	for _, task := range candidates {
		match := scoreTask(task, needle, input.IncludeMatchDetails)
		if match.Score == 0 {
			continue
		}
		matches = append(matches, match)
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		if !matches[i].Task.CreatedAt.Equal(matches[j].Task.CreatedAt) {
			return matches[i].Task.CreatedAt.After(matches[j].Task.CreatedAt)
		}
		return matches[i].Task.ID.String() > matches[j].Task.ID.String()
	})

	result := &SearchResult{Matches: matches, Total: len(matches)}
	if len(matches) > limit {
		result.Matches = matches[:limit]
	}
	return result, nil
}

// resolveScope returns the project ids a listing is allowed to touch:
// either the caller's whole membership set, or the single requested project
// after a membership check.
func (s *QueryService) resolveScope(ctx context.Context, userID uuid.UUID, projectID *uuid.UUID) ([]uuid.UUID, error) {
	if projectID != nil {
		if _, err := s.membership.RequireMember(ctx, *projectID, userID); err != nil {
			return nil, err
		}
		return []uuid.UUID{*projectID}, nil
	}
	return s.membership.MemberProjectIDs(ctx, userID)
}

// scopeContains reports whether projectID is one of the resolved scope ids.
func scopeContains(scope []uuid.UUID, projectID uuid.UUID) bool {
	for _, id := range scope {
		if id == projectID {
			return true
		}
	}
	return false
}

// scoreTask computes the additive relevance score of one task against a
// lowercased needle. A task matching title, description, and a comment
// scores 3+2+1=6.
func scoreTask(task *domain.Task, needle string, withDetails bool) TaskMatch {
	titleHit := strings.Contains(strings.ToLower(task.Title), needle)
	descHit := strings.Contains(strings.ToLower(task.Description), needle)

	commentHits := 0
	var snippets []string
	for _, comment := range task.Comments {
		if !strings.Contains(strings.ToLower(comment.Text), needle) {
			continue
		}
		commentHits++
		if withDetails && len(snippets) < maxCommentSnippets {
			snippets = append(snippets, truncateRunes(comment.Text, snippetMaxRunes))
		}
	}

	score := 0
	if titleHit {
		score += 3
	}
	if descHit {
		score += 2
	}
	if commentHits > 0 {
		score++
	}

	match := TaskMatch{Task: task, Score: score}
	if withDetails && score > 0 {
		match.Details = &MatchDetails{
			TitleMatched:       titleHit,
			DescriptionMatched: descHit,
			MatchingComments:   commentHits,
			CommentSnippets:    snippets,
		}
	}
	return match
}

// truncateRunes cuts s to at most max code points. Counting runes rather
// than bytes keeps multi-byte characters intact.
func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

func clampLimit(limit, def, max int) int {
	switch {
	case limit <= 0:
		return def
	case limit > max:
		return max
	}
	return limit
}
