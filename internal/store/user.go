package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/farmtrack/apiserver/types"
)

const userColumns = `id, email, username, role, operator_id, password_hash, created_at, updated_at`

// UserRepository handles persistence for users.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, id int) (types.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE LOWER(email) = LOWER($1)`
	return scanUser(r.db.QueryRowContext(ctx, query, email))
}

// Create inserts the user. When operator is non-nil it is inserted first
// in the same transaction and linked to the new user.
func (r *UserRepository) Create(ctx context.Context, user types.User, operator *types.Operator) (types.User, error) {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return types.User{}, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if operator != nil {
		const operatorQuery = `
			INSERT INTO operators (name, shift, created_at)
			VALUES ($1, $2, $3)
			RETURNING id`
		var operatorID int
		if err := tx.QueryRowContext(ctx, operatorQuery, operator.Name, operator.Shift, now).Scan(&operatorID); err != nil {
			return types.User{}, fmt.Errorf("insert operator: %w", err)
		}
		user.OperatorID = &operatorID
	}

	const query = `
		INSERT INTO users (email, username, role, operator_id, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`
	if err := tx.QueryRowContext(
		ctx,
		query,
		user.Email,
		user.Username,
		user.Role,
		nullableInt(user.OperatorID),
		user.PasswordHash,
		user.CreatedAt,
		user.UpdatedAt,
	).Scan(&user.ID); err != nil {
		if isUniqueViolation(err) {
			return types.User{}, ErrConflict
		}
		return types.User{}, fmt.Errorf("insert user: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return types.User{}, err
	}
	return user, nil
}

// UpdatePasswordHash replaces the stored credential in place.
func (r *UserRepository) UpdatePasswordHash(ctx context.Context, id int, hash string) error {
	const query = `
		UPDATE users
		SET password_hash = $1,
			updated_at = $2
		WHERE id = $3`
	return execAffectingOne(ctx, r.db, query, hash, time.Now(), id)
}

func (r *UserRepository) UpdateUsername(ctx context.Context, id int, username string) error {
	const query = `
		UPDATE users
		SET username = $1,
			updated_at = $2
		WHERE id = $3`
	return execAffectingOne(ctx, r.db, query, username, time.Now(), id)
}

func scanUser(row *sql.Row) (types.User, error) {
	var user types.User
	var operatorID sql.NullInt64
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Username,
		&user.Role,
		&operatorID,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	user.OperatorID = intFromNull(operatorID)
	return user, nil
}

func execAffectingOne(ctx context.Context, db *sql.DB, query string, args ...any) error {
	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func nullableInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func intFromNull(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}

func nullableTime(v *time.Time) sql.NullTime {
	if v == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *v, Valid: true}
}
