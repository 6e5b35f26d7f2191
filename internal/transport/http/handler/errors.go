package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-accounts-nosql/internal/application/account"
	"github.com/go-accounts-nosql/internal/domain"
	"github.com/go-accounts-nosql/internal/pkg/password"
	"github.com/samber/oops"
)

// StatusNotVerified is the error_code clients use to start the re-verification flow.
const StatusNotVerified = 455

// writeServiceError maps a service error onto an HTTP status and envelope.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var pe *password.PolicyError
	switch {
	case errors.As(err, &pe):
		writeJSON(w, http.StatusBadRequest, MessageEnvelope{Error: "password is too weak", Details: pe.Violations})
	case errors.Is(err, domain.ErrInvalidCode):
		writeError(w, http.StatusBadRequest, message(err, "invalid or expired code"))
	case errors.Is(err, domain.ErrBadRequest):
		writeError(w, http.StatusBadRequest, rootMessage(err))
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, message(err, "unauthorized"))
	case errors.Is(err, domain.ErrNotVerified):
		writeJSON(w, http.StatusForbidden, MessageEnvelope{
			Error:     message(err, "account not verified"),
			ErrorCode: StatusNotVerified,
		})
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, message(err, "forbidden"))
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, message(err, "not found"))
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, message(err, "conflict"))
	case errors.Is(err, domain.ErrUpstream):
		slog.WarnContext(r.Context(), "upstream failure", "path", r.URL.Path, "err", err)
		writeError(w, http.StatusServiceUnavailable, "service temporarily unavailable")
	default:
		slog.ErrorContext(r.Context(), "unhandled error", "path", r.URL.Path, "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// message returns the caller-facing text for a coded error, or fallback.
func message(err error, fallback string) string {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return fallback
	}
	switch oopsErr.Code() {
	case account.CodeWrongEmail:
		return "email is wrong"
	case account.CodeWrongPassword:
		return "password is wrong"
	case account.CodeWrongOldPassword:
		return "old password is wrong"
	case account.CodeNotVerified:
		return "your account has not been verified yet, we sent you the verification code"
	case account.CodeDuplicateEmail:
		return "email already registered"
	case account.CodeInvalidCode:
		return "invalid or expired code"
	case account.CodeNotFound:
		return "account not found"
	}
	return fallback
}

// rootMessage returns the message of the innermost wrapped validation error.
func rootMessage(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil || next == domain.ErrBadRequest {
			return strings.TrimSuffix(err.Error(), ": "+domain.ErrBadRequest.Error())
		}
		err = next
	}
}
