package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/phrazzld/taskhub/internal/api"
	apiMiddleware "github.com/phrazzld/taskhub/internal/api/middleware"
)

// setupRouter creates and configures the application router with all
// routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware)
	r.Use(apiMiddleware.MetricsMiddleware(app.metrics))

	authHandler := api.NewAuthHandler(app.userService, app.logger)
	projectHandler := api.NewProjectHandler(app.projectService, app.logger)
	taskHandler := api.NewTaskHandler(app.taskService, app.queryService, app.logger)
	authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService).WithMetrics(app.metrics)

	// Authentication endpoints (public)
	r.Post("/auth/register", authHandler.Register)
	r.Post("/auth/login", authHandler.Login)

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)

		r.Get("/auth/search", authHandler.SearchUsers)

		r.Post("/projects", projectHandler.CreateProject)
		r.Get("/projects", projectHandler.ListProjects)
		r.Get("/projects/{id}", projectHandler.GetProject)
		r.Post("/projects/{id}/members", projectHandler.AddMember)
		r.Delete("/projects/{id}/members/{userId}", projectHandler.RemoveMember)

		r.Post("/tasks", taskHandler.CreateTask)
		r.Get("/tasks", taskHandler.ListTasks)
		// Literal segments must be registered before the {id} wildcard.
		r.Get("/tasks/search", taskHandler.ListTasks)
		r.Get("/tasks/search/text", taskHandler.SearchTasksText)
		r.Get("/tasks/project/{projectId}", taskHandler.ListTasksByProject)
		r.Get("/tasks/{id}", taskHandler.GetTask)
		r.Put("/tasks/{id}", taskHandler.UpdateTask)
		r.Delete("/tasks/{id}", taskHandler.DeleteTask)
		r.Post("/tasks/{id}/assign", taskHandler.AssignUser)
		r.Delete("/tasks/{id}/assign/{userId}", taskHandler.UnassignUser)
		r.Post("/tasks/{id}/comments", taskHandler.AddComment)
	})

	// Realtime endpoint authenticates itself at connection-open time.
	r.Get("/ws", app.socket.ServeHTTP)

	// Operational endpoints
	r.Get("/metrics", app.metrics.Handler().ServeHTTP)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, err := w.Write([]byte("OK"))
		if err != nil {
			app.logger.Error("Failed to write health check response", "error", err)
		}
	})

	return r
}
