package handlers

import (
	"errors"
	"net/http"

	"github.com/farmtrack/apiserver/internal/services"
	"github.com/farmtrack/apiserver/internal/store"
	"github.com/farmtrack/apiserver/types"
	"github.com/go-chi/chi/v5"
)

// OperatorHandler provides HTTP handlers for operators.
type OperatorHandler struct {
	operatorService *services.OperatorService
}

func NewOperatorHandler(operatorService *services.OperatorService) *OperatorHandler {
	return &OperatorHandler{operatorService: operatorService}
}

// OperatorRouter registers operator routes. Reads need a session, writes
// need the admin role.
func OperatorRouter(r chi.Router, operatorService *services.OperatorService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewOperatorHandler(operatorService)

	r.Use(authMiddleware)
	r.Get("/", handler.ListOperators)
	r.With(RequireAdmin).Post("/", handler.CreateOperator)
	r.Route("/{operatorID}", func(r chi.Router) {
		r.Get("/", handler.GetOperator)
		r.With(RequireAdmin).Put("/", handler.UpdateOperator)
		r.With(RequireAdmin).Delete("/", handler.DeleteOperator)
	})
}

func (h *OperatorHandler) ListOperators(w http.ResponseWriter, r *http.Request) {
	operators, err := h.operatorService.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list operators")
		return
	}
	writeJSON(w, http.StatusOK, operators)
}

func (h *OperatorHandler) GetOperator(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "operatorID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid operator id")
		return
	}

	operator, err := h.operatorService.Get(r.Context(), id)
	if err != nil {
		writeOperatorError(w, err, "failed to fetch operator")
		return
	}
	writeJSON(w, http.StatusOK, operator)
}

func (h *OperatorHandler) CreateOperator(w http.ResponseWriter, r *http.Request) {
	var req OperatorRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	created, err := h.operatorService.Create(r.Context(), types.Operator{Name: req.Name, Shift: req.Shift})
	if err != nil {
		writeOperatorError(w, err, "failed to create operator")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *OperatorHandler) UpdateOperator(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "operatorID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid operator id")
		return
	}

	var req OperatorRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	updated, err := h.operatorService.Update(r.Context(), types.Operator{ID: id, Name: req.Name, Shift: req.Shift})
	if err != nil {
		writeOperatorError(w, err, "failed to update operator")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *OperatorHandler) DeleteOperator(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "operatorID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid operator id")
		return
	}

	if err := h.operatorService.Delete(r.Context(), id); err != nil {
		writeOperatorError(w, err, "failed to delete operator")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// OperatorRequest is the create/update payload.
type OperatorRequest struct {
	Name  string `json:"name"`
	Shift string `json:"shift"`
}

func writeOperatorError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "name and shift are required")
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "operator not found")
	default:
		writeError(w, http.StatusInternalServerError, fallback)
	}
}
