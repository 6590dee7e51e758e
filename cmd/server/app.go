package main

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/phrazzld/taskhub/internal/config"
	"github.com/phrazzld/taskhub/internal/platform/logger"
	"github.com/phrazzld/taskhub/internal/platform/metrics"
	"github.com/phrazzld/taskhub/internal/platform/postgres"
	"github.com/phrazzld/taskhub/internal/realtime"
	"github.com/phrazzld/taskhub/internal/service"
	"github.com/phrazzld/taskhub/internal/service/auth"
	"github.com/phrazzld/taskhub/internal/store"
)

// application holds every long-lived dependency of the server, wired once
// at startup.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	userStore    store.UserStore
	projectStore store.ProjectStore
	taskStore    store.TaskStore

	jwtService auth.JWTService

	userService    *service.UserService
	projectService *service.ProjectService
	taskService    *service.TaskService
	queryService   *service.QueryService
	membership     *service.MembershipAuthority

	hub     *realtime.Hub
	socket  *realtime.SocketHandler
	metrics *metrics.Metrics
}

// newApplication loads configuration, connects the database, runs
// migrations and wires the full dependency graph.
func newApplication() (*application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.Setup(cfg.Server)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	log.Info("Server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel)

	db, err := setupDatabase(cfg, log)
	if err != nil {
		return nil, err
	}

	if err := runMigrations(db, log); err != nil {
		_ = db.Close()
		return nil, err
	}

	jwtService, err := auth.NewJWTService(cfg.Auth)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create JWT service: %w", err)
	}

	userStore := postgres.NewPostgresUserStore(db)
	projectStore := postgres.NewPostgresProjectStore(db)
	taskStore := postgres.NewPostgresTaskStore(db)

	m := metrics.New()

	hub := realtime.NewHub(realtime.NewRegistry(), log)
	m.ObserveRealtime(hub.SessionCount, hub.RoomCount)
	hub.SetEventCounter(m.IncEventEmitted)

	membership := service.NewMembershipAuthority(projectStore)
	bcrypt := auth.NewBcryptVerifier(cfg.Auth.BcryptCost)

	app := &application{
		config: cfg,
		logger: log,
		db:     db,

		userStore:    userStore,
		projectStore: projectStore,
		taskStore:    taskStore,

		jwtService: jwtService,

		userService:    service.NewUserService(userStore, bcrypt, bcrypt, jwtService),
		projectService: service.NewProjectService(projectStore, userStore, membership, hub),
		taskService:    service.NewTaskService(taskStore, membership, hub),
		queryService:   service.NewQueryService(taskStore, membership),
		membership:     membership,

		hub:     hub,
		metrics: m,
	}

	app.socket = realtime.NewSocketHandler(hub, jwtService, userStore, membership, log)

	return app, nil
}

// cleanup releases the application's long-lived resources. Safe to call
// once after the HTTP server has stopped.
func (app *application) cleanup() {
	app.hub.Close()

	if err := app.db.Close(); err != nil {
		app.logger.Error("Failed to close database connection", "error", err)
	}
}
