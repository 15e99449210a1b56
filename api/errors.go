package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/zlovtnik/iead-sub002/auth"
)

// Machine-readable error codes. Downstream clients switch on these, not
// on the human-readable message.
const (
	CodeMissingToken            = "MISSING_TOKEN"
	CodeInvalidToken            = "INVALID_TOKEN"
	CodeTokenExpired            = "TOKEN_EXPIRED"
	CodeAccountDeactivated      = "ACCOUNT_DEACTIVATED"
	CodeInsufficientPermissions = "INSUFFICIENT_PERMISSIONS"
	CodeAccessDenied            = "ACCESS_DENIED"
	CodeRateLimitExceeded       = "RATE_LIMIT_EXCEEDED"
	CodeInvalidCredentials      = "INVALID_CREDENTIALS"
	CodeInvalidRequest          = "INVALID_REQUEST"
	CodeInternalError           = "INTERNAL_ERROR"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{
		Code:      code,
		Error:     msg,
		Timestamp: time.Now().UTC(),
	})
}

// writeInternalError reports persistence-layer failures as a generic
// server failure. The underlying error is logged, never sent to the
// client, and not retried here.
func writeInternalError(w http.ResponseWriter, msg string, err error) {
	slog.Error(msg, slog.String("error", err.Error()))
	writeError(w, http.StatusInternalServerError, CodeInternalError, msg)
}

// writeSessionError maps session lookup failures onto the error surface.
// The ordering of reasons is fixed by the session manager; this switch
// only translates.
func writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrTokenNotFound):
		writeError(w, http.StatusUnauthorized, CodeInvalidToken, "invalid session token")
	case errors.Is(err, auth.ErrTokenExpired):
		writeError(w, http.StatusUnauthorized, CodeTokenExpired, "session token expired")
	case errors.Is(err, auth.ErrAccountDeactivated):
		writeError(w, http.StatusUnauthorized, CodeAccountDeactivated, "account deactivated")
	default:
		writeInternalError(w, "failed to resolve session", err)
	}
}

// decodeJSON decodes a bounded JSON body, emitting the invalid-request
// response itself on failure.
func decodeJSON[T any](w http.ResponseWriter, r *http.Request, maxSize int64) (T, bool) {
	var v T
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, "invalid request body")
		return v, false
	}
	return v, true
}
