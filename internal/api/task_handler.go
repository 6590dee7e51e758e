package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/phrazzld/taskhub/internal/api/shared"
	"github.com/phrazzld/taskhub/internal/domain"
	"github.com/phrazzld/taskhub/internal/service"
	"github.com/phrazzld/taskhub/internal/store"
)

// TaskHandler handles task-related HTTP requests.
type TaskHandler struct {
	taskService  *service.TaskService
	queryService *service.QueryService
	logger       *slog.Logger
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(
	taskService *service.TaskService,
	queryService *service.QueryService,
	logger *slog.Logger,
) *TaskHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for TaskHandler")
	}

	return &TaskHandler{
		taskService:  taskService,
		queryService: queryService,
		logger:       logger.With(slog.String("component", "task_handler")),
	}
}

// CreateTask handles POST /tasks requests.
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}

	var req CreateTaskRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	projectID, err := uuid.Parse(req.ProjectID)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid project_id format")
		return
	}

	task, err := h.taskService.CreateTask(r.Context(), userID, service.CreateTaskInput{
		ProjectID:   projectID,
		Title:       req.Title,
		Description: req.Description,
		Status:      domain.TaskStatus(req.Status),
		Priority:    domain.TaskPriority(req.Priority),
		DueDate:     req.DueDate,
	})
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, task)
}

// ListTasks handles GET /tasks and GET /tasks/search requests: a filtered,
// sorted, cursor-paginated listing scoped to the caller's projects.
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}

	input, err := parseListTasksQuery(r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	page, err := h.queryService.ListTasks(r.Context(), userID, input)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, TaskPageResponse{
		Tasks:      page.Tasks,
		Total:      page.Total,
		HasMore:    page.HasMore,
		NextCursor: page.NextCursor,
	})
}

// ListTasksByProject handles GET /tasks/project/{projectId} requests. The
// path project id overrides any project_id query parameter.
func (h *TaskHandler) ListTasksByProject(w http.ResponseWriter, r *http.Request) {
	userID, projectID, ok := handleUserIDAndPathUUID(w, r, "projectId", h.logger)
	if !ok {
		return
	}

	input, err := parseListTasksQuery(r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	input.ProjectID = &projectID

	page, err := h.queryService.ListTasks(r.Context(), userID, input)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, TaskPageResponse{
		Tasks:      page.Tasks,
		Total:      page.Total,
		HasMore:    page.HasMore,
		NextCursor: page.NextCursor,
	})
}

// GetTask handles GET /tasks/{id} requests.
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	_, taskID, ok := handleUserIDAndPathUUID(w, r, "id", h.logger)
	if !ok {
		return
	}

	task, err := h.taskService.GetTask(r.Context(), taskID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, task)
}

// UpdateTask handles PUT /tasks/{id} requests. The update is partial:
// absent fields keep their current values.
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	_, taskID, ok := handleUserIDAndPathUUID(w, r, "id", h.logger)
	if !ok {
		return
	}

	var req UpdateTaskRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	input := service.UpdateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
		ClearDue:    req.ClearDueDate,
	}
	if req.Status != nil {
		status := domain.TaskStatus(*req.Status)
		input.Status = &status
	}
	if req.Priority != nil {
		priority := domain.TaskPriority(*req.Priority)
		input.Priority = &priority
	}

	task, err := h.taskService.UpdateTask(r.Context(), taskID, input)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, task)
}

// DeleteTask handles DELETE /tasks/{id} requests.
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	_, taskID, ok := handleUserIDAndPathUUID(w, r, "id", h.logger)
	if !ok {
		return
	}

	if err := h.taskService.DeleteTask(r.Context(), taskID); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, map[string]string{"status": "deleted"})
}

// AssignUser handles POST /tasks/{id}/assign requests. Assigning an
// already-assigned user is a conflict.
func (h *TaskHandler) AssignUser(w http.ResponseWriter, r *http.Request) {
	_, taskID, ok := handleUserIDAndPathUUID(w, r, "id", h.logger)
	if !ok {
		return
	}

	var req AssignRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	assigneeID, err := uuid.Parse(req.UserID)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid user_id format")
		return
	}

	task, err := h.taskService.AssignUser(r.Context(), taskID, assigneeID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, task)
}

// UnassignUser handles DELETE /tasks/{id}/assign/{userId} requests.
// Unassigning a user who is not assigned succeeds and changes nothing.
func (h *TaskHandler) UnassignUser(w http.ResponseWriter, r *http.Request) {
	_, taskID, ok := handleUserIDAndPathUUID(w, r, "id", h.logger)
	if !ok {
		return
	}

	assigneeID, err := getPathUUID(r, "userId")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	task, err := h.taskService.UnassignUser(r.Context(), taskID, assigneeID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, task)
}

// AddComment handles POST /tasks/{id}/comments requests.
func (h *TaskHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	userID, taskID, ok := handleUserIDAndPathUUID(w, r, "id", h.logger)
	if !ok {
		return
	}

	var req CommentRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	var replyToID *uuid.UUID
	if req.ReplyToID != nil {
		id, err := uuid.Parse(*req.ReplyToID)
		if err != nil {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid reply_to_id format")
			return
		}
		replyToID = &id
	}

	comment, err := h.taskService.AddComment(r.Context(), userID, taskID, req.Text, replyToID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, comment)
}

// SearchTasksText handles GET /tasks/search/text requests: a relevance
// scored free-text search over titles, descriptions and comments. Match
// details are included unless include_match_details=false.
func (h *TaskHandler) SearchTasksText(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}

	input := service.SearchTasksInput{
		Query:               r.URL.Query().Get("q"),
		IncludeMatchDetails: true,
	}

	if raw := r.URL.Query().Get("include_match_details"); raw != "" {
		include, err := strconv.ParseBool(raw)
		if err != nil {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid include_match_details format")
			return
		}
		input.IncludeMatchDetails = include
	}
	if raw := r.URL.Query().Get("project_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid project_id format")
			return
		}
		input.ProjectID = &id
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid limit format")
			return
		}
		input.Limit = limit
	}

	result, err := h.queryService.SearchTasks(r.Context(), userID, input)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	resp := SearchResponse{
		Matches: make([]TaskMatchResponse, 0, len(result.Matches)),
		Total:   result.Total,
	}
	for _, m := range result.Matches {
		match := TaskMatchResponse{Task: m.Task, Score: m.Score}
		if m.Details != nil {
			match.MatchDetails = &MatchDetailsResponse{
				TitleMatched:       m.Details.TitleMatched,
				DescriptionMatched: m.Details.DescriptionMatched,
				MatchingComments:   m.Details.MatchingComments,
				CommentSnippets:    m.Details.CommentSnippets,
			}
		}
		resp.Matches = append(resp.Matches, match)
	}

	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// parseListTasksQuery decodes the listing query parameters. Unknown sort
// fields and orders are rejected by the query engine, not here, so the
// error taxonomy stays in one place.
func parseListTasksQuery(r *http.Request) (service.ListTasksInput, error) {
	q := r.URL.Query()
	input := service.ListTasksInput{
		SortBy: store.TaskSortField(q.Get("sort_by")),
		Order:  store.SortOrder(q.Get("order")),
	}

	if raw := q.Get("project_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return input, domain.NewValidationError("project_id", "has invalid format", domain.ErrInvalidID)
		}
		input.ProjectID = &id
	}
	if raw := q.Get("assignee_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return input, domain.NewValidationError("assignee_id", "has invalid format", domain.ErrInvalidID)
		}
		input.AssigneeID = &id
	}
	if raw := q.Get("status"); raw != "" {
		status := domain.TaskStatus(raw)
		if !status.IsValid() {
			return input, domain.NewValidationError("status", "is not a valid task status", domain.ErrInvalidStatus)
		}
		input.Status = &status
	}
	if raw := q.Get("priority"); raw != "" {
		priority := domain.TaskPriority(raw)
		if !priority.IsValid() {
			return input, domain.NewValidationError("priority", "is not a valid task priority", domain.ErrInvalidPriority)
		}
		input.Priority = &priority
	}
	if raw := q.Get("cursor"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return input, domain.NewValidationError("cursor", "has invalid format", domain.ErrInvalidID)
		}
		input.Cursor = &id
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return input, domain.NewValidationError("limit", "must be an integer", domain.ErrValidation)
		}
		input.Limit = limit
	}

	return input, nil
}
