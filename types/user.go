package types

import "time"

// User represents an account in the system.
// It contains identity, role, the linked operator, and audit metadata.
type User struct {
	// ID is the unique identifier of the user.
	ID int `json:"id" db:"id"`

	// Email is the login identity. It is stored lowercased.
	Email string `json:"email" db:"email"`

	// Username is the display name chosen by the user.
	Username string `json:"username" db:"username"`

	// Role indicates the user's authorization level
	// within the system ("admin" or "user").
	Role string `json:"role" db:"role"`

	// OperatorID links the account to the operator record it acts as.
	// Task listings for non-admin users are scoped to it.
	OperatorID *int `json:"operator_id,omitempty" db:"operator_id"`

	// PasswordHash stores the bcrypt hash of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the user account.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
