package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/farmtrack/apiserver/internal/auth"
	"github.com/farmtrack/apiserver/internal/services"
	"github.com/farmtrack/apiserver/internal/store"
	"github.com/farmtrack/apiserver/types"
	"github.com/go-chi/chi/v5"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAdminPassword = "farm-boss"

type testEnv struct {
	router *chi.Mux
	now    time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithTasks(t, &memoryTasks{})
}

func newTestEnvWithTasks(t *testing.T, tasks services.TaskRepository) *testEnv {
	t.Helper()
	env := &testEnv{now: time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)}

	issuer, err := auth.NewTokenIssuer(auth.TokenConfig{Secret: []byte("handler-secret"), TTL: auth.DefaultTokenTTL})
	require.NoError(t, err)
	issuer = issuer.WithClock(func() time.Time { return env.now })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	users := newMemoryUsers()
	authService := services.NewAuthService(users, issuer, testAdminPassword, logger)
	userService := services.NewUserService(users)
	taskService := services.NewTaskService(tasks, nil, logger)
	operatorService := services.NewOperatorService(&memoryOperators{})
	authMiddleware := RequireAuth(authService, logger)

	router := chi.NewRouter()
	router.Get("/healthz", Healthz)
	router.Route("/auth", func(r chi.Router) {
		AuthRouter(r, authService, userService, logger)
	})
	router.Route("/operators", func(r chi.Router) {
		OperatorRouter(r, operatorService, authMiddleware)
	})
	router.Route("/tasks", func(r chi.Router) {
		TaskRouter(r, taskService, authMiddleware)
	})
	env.router = router
	return env
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) register(t *testing.T, email, password, adminPassword string) AuthResponse {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/auth/register", "", RegisterRequest{
		Email:         email,
		Username:      "user-" + email,
		Password:      password,
		AdminPassword: adminPassword,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.AccessToken)
	return resp
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRegisterLoginMe(t *testing.T) {
	env := newTestEnv(t)
	registered := env.register(t, "a@x.com", "secret123", "")
	assert.Equal(t, "user", registered.User.Role)
	assert.Equal(t, "bearer", registered.TokenType)
	assert.Equal(t, int64(auth.DefaultTokenTTL.Seconds()), registered.ExpiresIn)

	rec := env.do(t, http.MethodPost, "/auth/login", "", LoginRequest{Email: "A@X.com", Password: "secret123"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	login := decodeBody[AuthResponse](t, rec)
	assert.NotContains(t, rec.Body.String(), "password_hash")

	rec = env.do(t, http.MethodGet, "/auth/me", login.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decodeBody[types.User](t, rec)
	assert.Equal(t, "a@x.com", me.Email)
	assert.Equal(t, registered.User.ID, me.ID)
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "a@x.com", "secret123", "")

	rec := env.do(t, http.MethodPost, "/auth/register", "", RegisterRequest{Email: "a@x.com", Username: "again", Password: "pw"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodPost, "/auth/register", "", RegisterRequest{Email: "b@x.com", Password: "pw"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewBufferString("{not json"))
	out := httptest.NewRecorder()
	env.router.ServeHTTP(out, req)
	assert.Equal(t, http.StatusBadRequest, out.Code)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "a@x.com", "secret123", "")

	wrongPassword := env.do(t, http.MethodPost, "/auth/login", "", LoginRequest{Email: "a@x.com", Password: "nope"})
	unknownEmail := env.do(t, http.MethodPost, "/auth/login", "", LoginRequest{Email: "ghost@x.com", Password: "secret123"})

	assert.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	assert.Equal(t, http.StatusUnauthorized, unknownEmail.Code)
	assert.JSONEq(t, wrongPassword.Body.String(), unknownEmail.Body.String())

	missing := env.do(t, http.MethodPost, "/auth/login", "", LoginRequest{Email: "a@x.com"})
	assert.Equal(t, http.StatusBadRequest, missing.Code)
}

func TestRequireAuthRejections(t *testing.T) {
	env := newTestEnv(t)
	session := env.register(t, "a@x.com", "secret123", "")

	tests := []struct {
		name   string
		header string
	}{
		{name: "missing header", header: ""},
		{name: "wrong scheme", header: "Basic " + session.AccessToken},
		{name: "empty bearer", header: "Bearer   "},
		{name: "garbage token", header: "Bearer not.a.token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			env.router.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestExpiredSessionIsRejected(t *testing.T) {
	env := newTestEnv(t)
	session := env.register(t, "a@x.com", "secret123", "")

	rec := env.do(t, http.MethodGet, "/auth/me", session.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	env.now = env.now.Add(auth.DefaultTokenTTL + time.Minute)
	rec = env.do(t, http.MethodGet, "/auth/me", session.AccessToken, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUpdatePasswordAndProfile(t *testing.T) {
	env := newTestEnv(t)
	session := env.register(t, "a@x.com", "old-pass", "")

	rec := env.do(t, http.MethodPut, "/auth/user/password", session.AccessToken, PasswordUpdateRequest{OldPassword: "wrong", NewPassword: "new-pass"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPut, "/auth/user/password", session.AccessToken, PasswordUpdateRequest{OldPassword: "old-pass", NewPassword: "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPut, "/auth/user/password", session.AccessToken, PasswordUpdateRequest{OldPassword: "old-pass", NewPassword: "new-pass"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/auth/login", "", LoginRequest{Email: "a@x.com", Password: "new-pass"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPut, "/auth/user/profile", session.AccessToken, ProfileUpdateRequest{Username: "renamed"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "renamed", decodeBody[types.User](t, rec).Username)

	rec = env.do(t, http.MethodPut, "/auth/user/profile", session.AccessToken, ProfileUpdateRequest{Username: " "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOperatorRoutesRequireAdmin(t *testing.T) {
	env := newTestEnv(t)
	admin := env.register(t, "boss@x.com", "secret123", testAdminPassword)
	user := env.register(t, "worker@x.com", "secret123", "")
	require.Equal(t, "admin", admin.User.Role)

	payload := OperatorRequest{Name: "Marta", Shift: "night"}

	rec := env.do(t, http.MethodPost, "/operators", "", payload)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/operators", user.AccessToken, payload)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPost, "/operators", admin.AccessToken, payload)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody[types.Operator](t, rec)

	rec = env.do(t, http.MethodGet, "/operators", user.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]types.Operator](t, rec), 1)

	path := fmt.Sprintf("/operators/%d", created.ID)
	rec = env.do(t, http.MethodPut, path, admin.AccessToken, OperatorRequest{Name: "Marta", Shift: "morning"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "morning", decodeBody[types.Operator](t, rec).Shift)

	rec = env.do(t, http.MethodPut, path, admin.AccessToken, OperatorRequest{Name: "Marta"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodDelete, path, user.AccessToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodDelete, path, admin.AccessToken, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodGet, path, admin.AccessToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/operators/abc", admin.AccessToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTaskVisibilityFollowsOperator(t *testing.T) {
	env := newTestEnv(t)
	admin := env.register(t, "boss@x.com", "secret123", testAdminPassword)
	worker := env.register(t, "worker@x.com", "secret123", "")
	require.NotNil(t, admin.User.OperatorID)
	require.NotNil(t, worker.User.OperatorID)

	mine := TaskCreateRequest{OperatorID: *worker.User.OperatorID, Status: "pending", Kind: "feeding", Frequency: "daily"}
	theirs := TaskCreateRequest{OperatorID: *admin.User.OperatorID, Status: "pending", Kind: "cleaning"}

	rec := env.do(t, http.MethodPost, "/tasks", worker.AccessToken, mine)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPost, "/tasks", admin.AccessToken, mine)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	mineTask := decodeBody[types.Task](t, rec)
	require.NotNil(t, mineTask.DueAt)
	assert.True(t, mineTask.DueAt.Equal(mineTask.CreatedAt.AddDate(0, 0, 1)))

	rec = env.do(t, http.MethodPost, "/tasks", admin.AccessToken, theirs)
	require.Equal(t, http.StatusCreated, rec.Code)
	theirTask := decodeBody[types.Task](t, rec)

	rec = env.do(t, http.MethodGet, "/tasks", worker.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	visible := decodeBody[[]types.Task](t, rec)
	require.Len(t, visible, 1)
	assert.Equal(t, mineTask.ID, visible[0].ID)

	rec = env.do(t, http.MethodGet, "/tasks", admin.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]types.Task](t, rec), 2)

	rec = env.do(t, http.MethodPut, fmt.Sprintf("/tasks/%d", theirTask.ID), worker.AccessToken, TaskStatusRequest{Status: "done"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPut, fmt.Sprintf("/tasks/%d", mineTask.ID), worker.AccessToken, TaskStatusRequest{Status: "done"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "done", decodeBody[types.Task](t, rec).Status)

	rec = env.do(t, http.MethodDelete, fmt.Sprintf("/tasks/%d", mineTask.ID), worker.AccessToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodDelete, fmt.Sprintf("/tasks/%d", mineTask.ID), admin.AccessToken, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodPut, fmt.Sprintf("/tasks/%d", mineTask.ID), admin.AccessToken, TaskStatusRequest{Status: "done"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateTaskForUnknownOperator(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	env := newTestEnvWithTasks(t, store.NewTaskRepository(db))
	admin := env.register(t, "boss@x.com", "secret123", testAdminPassword)

	mock.ExpectQuery(`(?s)INSERT INTO tasks`).
		WillReturnError(&pq.Error{Code: "23503", Constraint: "tasks_operator_id_fkey"})

	rec := env.do(t, http.MethodPost, "/tasks", admin.AccessToken, TaskCreateRequest{OperatorID: 999, Status: "pending", Kind: "feeding"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "operator not found", decodeBody[ErrorResponse](t, rec).Error)
	require.NoError(t, mock.ExpectationsWereMet())
}
