package password

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/go-accounts-nosql/internal/domain"
)

const (
	MinLength = 8
	// MaxBytes is the longest input bcrypt accepts, counted in bytes.
	MaxBytes = 72
	// Symbols is the set of characters that satisfy the symbol rule.
	Symbols = "#?!@$%^&*-_"
)

// ErrMismatch is returned when the confirmation differs from the new password.
var ErrMismatch = fmt.Errorf("passwords don't match: %w", domain.ErrBadRequest)

// PolicyError lists every strength rule a password failed.
type PolicyError struct {
	Violations []string
}

func (e *PolicyError) Error() string {
	return "password must " + strings.Join(e.Violations, ", ")
}

// Unwrap lets errors.Is(err, domain.ErrBadRequest) match policy failures.
func (e *PolicyError) Unwrap() error { return domain.ErrBadRequest }

// Validate checks newPassword against the strength rules, then against its confirmation.
// It has no side effects; callers run it before touching any store.
func Validate(newPassword, confirmation string) error {
	if err := CheckStrength(newPassword); err != nil {
		return err
	}
	if newPassword != confirmation {
		return ErrMismatch
	}
	return nil
}

// CheckStrength returns a *PolicyError when p breaks any strength rule.
func CheckStrength(p string) error {
	var upper, lower, digit, symbol bool
	for _, r := range p {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(Symbols, r):
			symbol = true
		}
	}

	var violations []string
	if len([]rune(p)) < MinLength {
		violations = append(violations, fmt.Sprintf("be at least %d characters long", MinLength))
	}
	if len(p) > MaxBytes {
		violations = append(violations, fmt.Sprintf("be at most %d bytes long", MaxBytes))
	}
	if !upper {
		violations = append(violations, "contain an uppercase letter")
	}
	if !lower {
		violations = append(violations, "contain a lowercase letter")
	}
	if !digit {
		violations = append(violations, "contain a digit")
	}
	if !symbol {
		violations = append(violations, "contain one of "+Symbols)
	}
	if len(violations) > 0 {
		return &PolicyError{Violations: violations}
	}
	return nil
}
