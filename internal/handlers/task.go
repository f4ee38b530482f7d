package handlers

import (
	"errors"
	"net/http"

	"github.com/farmtrack/apiserver/internal/services"
	"github.com/farmtrack/apiserver/internal/store"
	"github.com/farmtrack/apiserver/types"
	"github.com/go-chi/chi/v5"
)

// TaskHandler provides HTTP handlers for tasks.
type TaskHandler struct {
	taskService *services.TaskService
}

func NewTaskHandler(taskService *services.TaskService) *TaskHandler {
	return &TaskHandler{taskService: taskService}
}

// TaskRouter registers task routes. Every route needs a session; creating
// and deleting tasks needs the admin role.
func TaskRouter(r chi.Router, taskService *services.TaskService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewTaskHandler(taskService)

	r.Use(authMiddleware)
	r.Get("/", handler.ListTasks)
	r.With(RequireAdmin).Post("/", handler.CreateTask)
	r.Route("/{taskID}", func(r chi.Router) {
		r.Put("/", handler.UpdateTaskStatus)
		r.With(RequireAdmin).Delete("/", handler.DeleteTask)
	})
}

func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	claims, err := claimsFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	tasks, err := h.taskService.ListFor(r.Context(), claims)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list tasks")
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req TaskCreateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	created, err := h.taskService.Create(r.Context(), types.Task{
		ClientID:    req.ClientID,
		OperatorID:  req.OperatorID,
		Status:      req.Status,
		Kind:        req.Kind,
		Description: req.Description,
		Frequency:   types.TaskFrequency(req.Frequency),
		Logistics:   req.Logistics,
	})
	if err != nil {
		writeTaskError(w, err, "failed to create task")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *TaskHandler) UpdateTaskStatus(w http.ResponseWriter, r *http.Request) {
	claims, err := claimsFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := parseIDParam(r, "taskID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid task id")
		return
	}

	var req TaskStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	updated, err := h.taskService.UpdateStatus(r.Context(), claims, id, req.Status)
	if err != nil {
		writeTaskError(w, err, "failed to update task")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "taskID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid task id")
		return
	}

	if err := h.taskService.Delete(r.Context(), id); err != nil {
		writeTaskError(w, err, "failed to delete task")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type TaskCreateRequest struct {
	ClientID    *int   `json:"client_id"`
	OperatorID  int    `json:"operator_id"`
	Status      string `json:"status"`
	Kind        string `json:"kind"`
	Description string `json:"description"`
	Frequency   string `json:"frequency"`
	Logistics   string `json:"logistics"`
}

type TaskStatusRequest struct {
	Status string `json:"status"`
}

func writeTaskError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrForbidden):
		writeError(w, http.StatusForbidden, "task is assigned to another operator")
	case errors.Is(err, store.ErrInvalidReference):
		writeError(w, http.StatusBadRequest, "operator not found")
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "task not found")
	default:
		writeError(w, http.StatusInternalServerError, fallback)
	}
}
