package auth

import (
	"errors"
	"fmt"
)

// ErrAuthFailure is the uniform login rejection. Callers outside this
// package should match on it rather than on the concrete cause, so that
// unknown accounts and wrong passwords look the same on the wire.
var ErrAuthFailure = errors.New("invalid credentials")

var (
	ErrCredentialMismatch = fmt.Errorf("%w: password mismatch", ErrAuthFailure)
	ErrPrincipalNotFound  = fmt.Errorf("%w: principal not found", ErrAuthFailure)
)

var (
	ErrEmptyPassword = errors.New("password is empty")
	ErrEncoding      = errors.New("password is not valid utf-8")
)

var (
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrMalformedToken   = errors.New("malformed token")
	ErrExpired          = errors.New("token expired")
	ErrMalformedClaims  = errors.New("malformed token claims")
)
