package api

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/taskhub/internal/api/shared"
	"github.com/phrazzld/taskhub/internal/domain"
	"github.com/phrazzld/taskhub/internal/mocks"
	"github.com/phrazzld/taskhub/internal/service"
)

// testEnv wires the full handler stack over in-memory stores.
type testEnv struct {
	userStore    *mocks.MemoryUserStore
	projectStore *mocks.MemoryProjectStore
	taskStore    *mocks.MemoryTaskStore
	broadcaster  *mocks.RecordingBroadcaster

	auth     *AuthHandler
	projects *ProjectHandler
	tasks    *TaskHandler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	userStore := mocks.NewMemoryUserStore()
	projectStore := mocks.NewMemoryProjectStore()
	taskStore := mocks.NewMemoryTaskStore()
	broadcaster := &mocks.RecordingBroadcaster{}

	membership := service.NewMembershipAuthority(projectStore)
	verifier := &mocks.MockPasswordVerifier{}
	jwtService := &mocks.MockJWTService{}

	userService := service.NewUserService(userStore, verifier, verifier, jwtService)
	projectService := service.NewProjectService(projectStore, userStore, membership, broadcaster)
	taskService := service.NewTaskService(taskStore, membership, broadcaster)
	queryService := service.NewQueryService(taskStore, membership)

	log := slog.Default()

	return &testEnv{
		userStore:    userStore,
		projectStore: projectStore,
		taskStore:    taskStore,
		broadcaster:  broadcaster,
		auth:         NewAuthHandler(userService, log),
		projects:     NewProjectHandler(projectService, log),
		tasks:        NewTaskHandler(taskService, queryService, log),
	}
}

// seedUser stores a user directly, bypassing the registration endpoint.
func (e *testEnv) seedUser(t *testing.T, name, email string) *domain.User {
	t.Helper()

	user, err := domain.NewUser(name, email, "password1234")
	require.NoError(t, err)
	user.HashedPassword = "hashed:password1234"
	user.Password = ""
	require.NoError(t, e.userStore.Create(context.Background(), user))
	return user
}

func (e *testEnv) seedProject(t *testing.T, owner *domain.User, name string) *domain.Project {
	t.Helper()

	project, err := domain.NewProject(name, "", owner.ID)
	require.NoError(t, err)
	require.NoError(t, e.projectStore.Create(context.Background(), project))
	return project
}

// newRequest builds a request with an optional JSON body and, when userID
// is non-nil, the auth middleware's context value.
func newRequest(t *testing.T, method, target string, body interface{}, userID *uuid.UUID) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, target, &buf)
	if userID != nil {
		ctx := context.WithValue(req.Context(), shared.UserIDContextKey, *userID)
		req = req.WithContext(ctx)
	}
	return req
}

// withChiParams attaches chi URL parameters to the request context so
// handlers can be exercised without a router.
func withChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}
