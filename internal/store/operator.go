package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/farmtrack/apiserver/types"
)

// OperatorRepository handles persistence for operators.
type OperatorRepository struct {
	db *sql.DB
}

func NewOperatorRepository(db *sql.DB) *OperatorRepository {
	return &OperatorRepository{db: db}
}

func (r *OperatorRepository) List(ctx context.Context) ([]types.Operator, error) {
	const query = `
		SELECT id, name, shift, created_at
		FROM operators
		ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	operators := make([]types.Operator, 0)
	for rows.Next() {
		var operator types.Operator
		if err := rows.Scan(&operator.ID, &operator.Name, &operator.Shift, &operator.CreatedAt); err != nil {
			return nil, err
		}
		operators = append(operators, operator)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return operators, nil
}

func (r *OperatorRepository) Get(ctx context.Context, id int) (types.Operator, error) {
	const query = `
		SELECT id, name, shift, created_at
		FROM operators
		WHERE id = $1`
	var operator types.Operator
	err := r.db.QueryRowContext(ctx, query, id).Scan(&operator.ID, &operator.Name, &operator.Shift, &operator.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Operator{}, ErrNotFound
		}
		return types.Operator{}, err
	}
	return operator, nil
}

func (r *OperatorRepository) Create(ctx context.Context, operator types.Operator) (types.Operator, error) {
	operator.CreatedAt = time.Now()

	const query = `
		INSERT INTO operators (name, shift, created_at)
		VALUES ($1, $2, $3)
		RETURNING id`
	if err := r.db.QueryRowContext(ctx, query, operator.Name, operator.Shift, operator.CreatedAt).Scan(&operator.ID); err != nil {
		return types.Operator{}, err
	}
	return operator, nil
}

func (r *OperatorRepository) Update(ctx context.Context, operator types.Operator) (types.Operator, error) {
	const query = `
		UPDATE operators
		SET name = $1,
			shift = $2
		WHERE id = $3`
	if err := execAffectingOne(ctx, r.db, query, operator.Name, operator.Shift, operator.ID); err != nil {
		return types.Operator{}, err
	}
	return r.Get(ctx, operator.ID)
}

func (r *OperatorRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM operators WHERE id = $1`
	return execAffectingOne(ctx, r.db, query, id)
}
