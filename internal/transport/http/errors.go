package http

import (
	"errors"
	"log/slog"
	"net/http"

	"expense-auth/internal/domain"
	obsmw "expense-auth/internal/observability/middleware"
)

type errorMapping struct {
	target error
	status int
	// expose sends err.Error() to the client; otherwise msg is used.
	expose bool
	msg    string
}

// Order matters: wrapped sentinels come before the ones they wrap.
var errorMappings = []errorMapping{
	{target: domain.ErrValidation, status: http.StatusBadRequest, expose: true},
	{target: domain.ErrInvalidMFAMethod, status: http.StatusBadRequest, expose: true},
	{target: domain.ErrProofMismatch, status: http.StatusBadRequest, expose: true},
	{target: domain.ErrMethodNotSelected, status: http.StatusBadRequest, expose: true},
	{target: domain.ErrMfaNotEnabled, status: http.StatusBadRequest, expose: true},
	{target: domain.ErrMfaAlreadyEnabled, status: http.StatusConflict, expose: true},

	{target: domain.ErrChallengeInvalid, status: http.StatusUnauthorized, expose: true},
	{target: domain.ErrInvalidOTP, status: http.StatusUnauthorized, expose: true},
	{target: domain.ErrInvalidCredentials, status: http.StatusUnauthorized, msg: "Invalid email or password"},
	{target: domain.ErrTokenInvalidOrExpired, status: http.StatusUnauthorized, expose: true},
	{target: domain.ErrAccountInactive, status: http.StatusForbidden, expose: true},
	{target: domain.ErrMfaSetupRequired, status: http.StatusForbidden, msg: "MFA is not enabled. Please complete MFA setup."},
	{target: domain.ErrBootstrapForbidden, status: http.StatusForbidden, expose: true},

	{target: domain.ErrCeremonyMismatch, status: http.StatusBadRequest, expose: true},
	{target: domain.ErrCeremonyMissing, status: http.StatusBadRequest, expose: true},
	{target: domain.ErrIncompleteCredential, status: http.StatusBadRequest, msg: "Incomplete credential data received"},
	{target: domain.ErrCredentialExists, status: http.StatusConflict, expose: true},
	{target: domain.ErrNoCredentials, status: http.StatusNotFound, expose: true},
	{target: domain.ErrCredentialNotFound, status: http.StatusUnauthorized, expose: true},
	{target: domain.ErrCounterReplay, status: http.StatusUnauthorized, msg: "Passkey authentication failed"},
	{target: domain.ErrCeremonyFailed, status: http.StatusUnauthorized, msg: "Passkey authentication failed"},

	{target: domain.ErrAlreadyAccepted, status: http.StatusBadRequest, expose: true},
	{target: domain.ErrUsernameTaken, status: http.StatusConflict, expose: true},
	{target: domain.ErrEmailTaken, status: http.StatusConflict, expose: true},
	{target: domain.ErrUserNotFound, status: http.StatusNotFound, expose: true},
	{target: domain.ErrPendingAdminNotFound, status: http.StatusNotFound, expose: true},

	{target: domain.ErrNotificationFailed, status: http.StatusBadGateway, msg: "State saved, but the invitation email could not be sent. Resend the invitation."},
}

func statusFor(err error) (int, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			if m.expose {
				return m.status, err.Error()
			}
			return m.status, m.msg
		}
	}
	return http.StatusInternalServerError, "internal server error"
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)
	attrs := []any{
		"error", err,
		"status", status,
		"path", r.URL.Path,
		"request_id", obsmw.RequestIDFromContext(r.Context()),
		"trace_id", obsmw.TraceIDFromContext(r.Context()),
	}
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", attrs...)
	} else {
		slog.Warn("request rejected", attrs...)
	}
	writeMessage(w, status, msg)
}
