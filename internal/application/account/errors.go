package account

import (
	"errors"
	"fmt"

	"github.com/go-accounts-nosql/internal/domain"
	"github.com/samber/oops"
)

// Error codes attached to the errors this package returns.
const (
	CodeInvalidInput     = "ACCOUNT_INVALID_INPUT"
	CodeWeakPassword     = "ACCOUNT_WEAK_PASSWORD"
	CodeDuplicateEmail   = "ACCOUNT_DUPLICATE_EMAIL"
	CodeInvalidCode      = "ACCOUNT_INVALID_CODE"
	CodeWrongEmail       = "ACCOUNT_WRONG_EMAIL"
	CodeWrongPassword    = "ACCOUNT_WRONG_PASSWORD"
	CodeWrongOldPassword = "ACCOUNT_WRONG_OLD_PASSWORD"
	CodeNotVerified      = "ACCOUNT_NOT_VERIFIED"
	CodeNotFound         = "ACCOUNT_NOT_FOUND"
	CodeUpstream         = "UPSTREAM_FAILURE"
)

// known are the sentinels that already describe a caller-facing outcome.
var known = []error{
	domain.ErrNotFound,
	domain.ErrConflict,
	domain.ErrUnauthorized,
	domain.ErrForbidden,
	domain.ErrBadRequest,
	domain.ErrUpstream,
}

// collaboratorErr passes domain errors through and marks anything else from a
// store, hasher or notifier as a transient upstream failure.
func collaboratorErr(op string, err error) error {
	for _, k := range known {
		if errors.Is(err, k) {
			return err
		}
	}
	return oops.Code(CodeUpstream).With("operation", op).Wrap(fmt.Errorf("%w: %w", domain.ErrUpstream, err))
}
