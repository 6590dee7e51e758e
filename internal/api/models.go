package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/taskhub/internal/domain"
)

// RegisterRequest contains the data needed for user registration
type RegisterRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// LoginRequest contains the data needed for user login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse contains the response data for successful authentication
type AuthResponse struct {
	Token string             `json:"token"`
	User  domain.UserSummary `json:"user"`
}

// CreateProjectRequest contains the data needed to create a project
type CreateProjectRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
}

// AddMemberRequest identifies the user to add to a project
type AddMemberRequest struct {
	UserID string `json:"user_id" validate:"required,uuid"`
}

// ProjectResponse is a project plus its member summaries, owner first.
type ProjectResponse struct {
	ID          uuid.UUID            `json:"id"`
	Name        string               `json:"name"`
	Description string               `json:"description"`
	OwnerID     uuid.UUID            `json:"owner_id"`
	Members     []domain.UserSummary `json:"members"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

// CreateTaskRequest contains the data needed to create a task
type CreateTaskRequest struct {
	ProjectID   string     `json:"project_id" validate:"required,uuid"`
	Title       string     `json:"title" validate:"required,max=500"`
	Description string     `json:"description" validate:"max=5000"`
	Status      string     `json:"status" validate:"omitempty,oneof=todo in-progress done"`
	Priority    string     `json:"priority" validate:"omitempty,oneof=low medium high"`
	DueDate     *time.Time `json:"due_date"`
}

// UpdateTaskRequest is a partial task update. Absent fields are left
// untouched; due_date is cleared with an explicit clear_due_date flag
// because JSON cannot distinguish null from absent after decoding.
type UpdateTaskRequest struct {
	Title        *string    `json:"title" validate:"omitempty,max=500"`
	Description  *string    `json:"description" validate:"omitempty,max=5000"`
	Status       *string    `json:"status" validate:"omitempty,oneof=todo in-progress done"`
	Priority     *string    `json:"priority" validate:"omitempty,oneof=low medium high"`
	DueDate      *time.Time `json:"due_date"`
	ClearDueDate bool       `json:"clear_due_date"`
}

// AssignRequest identifies the user to assign to a task
type AssignRequest struct {
	UserID string `json:"user_id" validate:"required,uuid"`
}

// CommentRequest contains the data needed to add a comment to a task
type CommentRequest struct {
	Text      string  `json:"text" validate:"required,max=5000"`
	ReplyToID *string `json:"reply_to_id" validate:"omitempty,uuid"`
}

// TaskPageResponse is one page of a cursor-paginated task listing.
type TaskPageResponse struct {
	Tasks      []*domain.Task `json:"tasks"`
	Total      int            `json:"total"`
	HasMore    bool           `json:"has_more"`
	NextCursor *uuid.UUID     `json:"next_cursor"`
}

// MatchDetailsResponse reports which parts of a task matched a text search.
type MatchDetailsResponse struct {
	TitleMatched       bool     `json:"title_matched"`
	DescriptionMatched bool     `json:"description_matched"`
	MatchingComments   int      `json:"matching_comments"`
	CommentSnippets    []string `json:"comment_snippets,omitempty"`
}

// TaskMatchResponse is one scored search hit.
type TaskMatchResponse struct {
	Task         *domain.Task          `json:"task"`
	Score        int                   `json:"score"`
	MatchDetails *MatchDetailsResponse `json:"match_details,omitempty"`
}

// SearchResponse is the outcome of a text search over tasks.
type SearchResponse struct {
	Matches []TaskMatchResponse `json:"matches"`
	Total   int                 `json:"total"`
}
