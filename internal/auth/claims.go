package auth

import (
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Role is the closed set of account roles.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ParseRole maps a stored role string onto Role.
func ParseRole(value string) (Role, bool) {
	role := Role(strings.ToLower(strings.TrimSpace(value)))
	return role, role.Valid()
}

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Claims is the payload carried by a session token.
type Claims struct {
	UserID     int  `json:"user_id"`
	Role       Role `json:"role"`
	OperatorID *int `json:"operator_id,omitempty"`
	jwt.RegisteredClaims
}

// IsAdmin is the only authorization predicate the core exposes.
func (c Claims) IsAdmin() bool {
	return c.Role == RoleAdmin
}

// OwnsOperator reports whether the caller is linked to operatorID.
func (c Claims) OwnsOperator(operatorID int) bool {
	return c.OperatorID != nil && *c.OperatorID == operatorID
}

func (c Claims) validate() error {
	if c.UserID < 1 || strings.TrimSpace(c.Subject) != strconv.Itoa(c.UserID) {
		return ErrMalformedClaims
	}
	if !c.Role.Valid() {
		return ErrMalformedClaims
	}
	return nil
}
