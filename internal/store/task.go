package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/farmtrack/apiserver/types"
)

const taskColumns = `id, client_id, operator_id, status, kind, description, frequency, logistics, created_at, due_at`

// TaskRepository handles persistence for tasks.
type TaskRepository struct {
	db *sql.DB
}

func NewTaskRepository(db *sql.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) List(ctx context.Context) ([]types.Task, error) {
	const query = `
		SELECT ` + taskColumns + `
		FROM tasks
		ORDER BY id`
	return r.query(ctx, query)
}

func (r *TaskRepository) ListByOperator(ctx context.Context, operatorID int) ([]types.Task, error) {
	const query = `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE operator_id = $1
		ORDER BY id`
	return r.query(ctx, query, operatorID)
}

func (r *TaskRepository) Get(ctx context.Context, id int) (types.Task, error) {
	const query = `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE id = $1`
	task, err := scanTask(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Task{}, ErrNotFound
		}
		return types.Task{}, err
	}
	return task, nil
}

func (r *TaskRepository) Create(ctx context.Context, task types.Task) (types.Task, error) {
	const query = `
		INSERT INTO tasks (client_id, operator_id, status, kind, description, frequency, logistics, created_at, due_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		nullableInt(task.ClientID),
		task.OperatorID,
		task.Status,
		task.Kind,
		task.Description,
		string(task.Frequency),
		task.Logistics,
		task.CreatedAt,
		nullableTime(task.DueAt),
	).Scan(&task.ID); err != nil {
		if isForeignKeyViolation(err) {
			return types.Task{}, fmt.Errorf("%w: operator %d", ErrInvalidReference, task.OperatorID)
		}
		return types.Task{}, err
	}
	return task, nil
}

func (r *TaskRepository) UpdateStatus(ctx context.Context, id int, status string) (types.Task, error) {
	const query = `UPDATE tasks SET status = $1 WHERE id = $2`
	if err := execAffectingOne(ctx, r.db, query, status, id); err != nil {
		return types.Task{}, err
	}
	return r.Get(ctx, id)
}

func (r *TaskRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM tasks WHERE id = $1`
	return execAffectingOne(ctx, r.db, query, id)
}

func (r *TaskRepository) query(ctx context.Context, query string, args ...any) ([]types.Task, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := make([]types.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tasks, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (types.Task, error) {
	var task types.Task
	var clientID sql.NullInt64
	var frequency string
	var dueAt sql.NullTime
	if err := row.Scan(
		&task.ID,
		&clientID,
		&task.OperatorID,
		&task.Status,
		&task.Kind,
		&task.Description,
		&frequency,
		&task.Logistics,
		&task.CreatedAt,
		&dueAt,
	); err != nil {
		return types.Task{}, err
	}
	task.ClientID = intFromNull(clientID)
	task.Frequency = types.TaskFrequency(frequency)
	if dueAt.Valid {
		due := dueAt.Time
		task.DueAt = &due
	}
	return task, nil
}
