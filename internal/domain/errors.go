package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")
	ErrUpstream     = errors.New("upstream unavailable")
)

// Refinements of the sentinels above. errors.Is matches both the refinement and its parent.
var (
	ErrInvalidCode = fmt.Errorf("invalid or expired code: %w", ErrNotFound)
	ErrNotVerified = fmt.Errorf("account not verified: %w", ErrForbidden)
)
