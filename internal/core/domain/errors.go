package domain

import "errors"

// Common domain errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("duplicate entry")
	ErrStorage      = errors.New("storage failure")
	ErrInternal     = errors.New("internal server error")
)

// Auth errors. Unauthenticated is deliberately generic: callers never
// learn whether a session was missing, wrong, or expired.
var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
)

// Membership errors
var (
	ErrMemberNotFound    = errors.New("member not found")
	ErrMemberExists      = errors.New("member already exists")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Payment errors
var (
	ErrPaymentNotFound = errors.New("payment not found")
	ErrRefMismatch     = errors.New("external reference belongs to another member")
)
