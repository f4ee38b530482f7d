package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/farmtrack/apiserver/internal/auth"
	"github.com/farmtrack/apiserver/types"
	"github.com/google/uuid"
)

// TaskAssignedChannel is the MQ channel task assignment events go to.
const TaskAssignedChannel = "tasks.assigned"

// TaskRepository defines persistence operations for tasks.
type TaskRepository interface {
	List(ctx context.Context) ([]types.Task, error)
	ListByOperator(ctx context.Context, operatorID int) ([]types.Task, error)
	Get(ctx context.Context, id int) (types.Task, error)
	Create(ctx context.Context, task types.Task) (types.Task, error)
	UpdateStatus(ctx context.Context, id int, status string) (types.Task, error)
	Delete(ctx context.Context, id int) error
}

// EventPublisher is the subset of the MQ client the task service needs.
type EventPublisher interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
}

// TaskAssignedEvent is published after a task is created.
type TaskAssignedEvent struct {
	EventID    string     `json:"event_id"`
	TaskID     int        `json:"task_id"`
	OperatorID int        `json:"operator_id"`
	Kind       string     `json:"kind"`
	DueAt      *time.Time `json:"due_at,omitempty"`
	OccurredAt time.Time  `json:"occurred_at"`
}

// TaskService encapsulates task use-cases.
type TaskService struct {
	repo   TaskRepository
	events EventPublisher
	logger *slog.Logger
	now    func() time.Time
}

// NewTaskService builds the service. events may be nil, in which case
// nothing is published.
func NewTaskService(repo TaskRepository, events EventPublisher, logger *slog.Logger) *TaskService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskService{
		repo:   repo,
		events: events,
		logger: logger,
		now:    time.Now,
	}
}

// ListFor returns every task for admins and only the caller's operator
// tasks for everyone else.
func (s *TaskService) ListFor(ctx context.Context, claims auth.Claims) ([]types.Task, error) {
	if claims.IsAdmin() {
		return s.repo.List(ctx)
	}
	if claims.OperatorID == nil {
		return []types.Task{}, nil
	}
	return s.repo.ListByOperator(ctx, *claims.OperatorID)
}

// Create stamps creation and due dates, stores the task and announces it.
func (s *TaskService) Create(ctx context.Context, task types.Task) (types.Task, error) {
	task.Status = strings.TrimSpace(task.Status)
	task.Kind = strings.TrimSpace(task.Kind)
	if task.OperatorID < 1 || task.Status == "" || task.Kind == "" {
		return types.Task{}, fmt.Errorf("%w: operator_id, status and kind are required", ErrInvalidInput)
	}

	task.CreatedAt = s.now()
	task.DueAt = task.Frequency.DueFrom(task.CreatedAt)

	created, err := s.repo.Create(ctx, task)
	if err != nil {
		return types.Task{}, err
	}

	s.publishAssigned(ctx, created)
	return created, nil
}

// UpdateStatus changes a task's status. Non-admins may only touch tasks
// assigned to their own operator.
func (s *TaskService) UpdateStatus(ctx context.Context, claims auth.Claims, id int, status string) (types.Task, error) {
	status = strings.TrimSpace(status)
	if status == "" {
		return types.Task{}, fmt.Errorf("%w: status is required", ErrInvalidInput)
	}

	if !claims.IsAdmin() {
		task, err := s.repo.Get(ctx, id)
		if err != nil {
			return types.Task{}, err
		}
		if !claims.OwnsOperator(task.OperatorID) {
			return types.Task{}, ErrForbidden
		}
	}
	return s.repo.UpdateStatus(ctx, id, status)
}

func (s *TaskService) Delete(ctx context.Context, id int) error {
	return s.repo.Delete(ctx, id)
}

// publishAssigned is best effort: the task is already stored, so a broker
// failure is logged and not returned.
func (s *TaskService) publishAssigned(ctx context.Context, task types.Task) {
	if s.events == nil {
		return
	}

	event := TaskAssignedEvent{
		EventID:    uuid.NewString(),
		TaskID:     task.ID,
		OperatorID: task.OperatorID,
		Kind:       task.Kind,
		DueAt:      task.DueAt,
		OccurredAt: task.CreatedAt,
	}
	data, err := json.Marshal(event)
	if err != nil {
		s.logger.ErrorContext(ctx, "encode task event", "task_id", task.ID, "error", err)
		return
	}

	attrs := map[string]string{
		"content_type": "application/json",
		"operator_id":  strconv.Itoa(task.OperatorID),
	}
	if _, err := s.events.Publish(ctx, TaskAssignedChannel, data, attrs); err != nil {
		s.logger.WarnContext(ctx, "publish task event", "task_id", task.ID, "error", err)
	}
}
