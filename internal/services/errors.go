package services

import "errors"

var (
	// ErrForbidden is returned when the caller's claims do not cover the target record.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidInput is returned for requests missing required fields.
	ErrInvalidInput = errors.New("invalid input")
)
