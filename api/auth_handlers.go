package api

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zlovtnik/iead-sub002/identity"
)

const maxAuthBodySize = 64 << 10

// Login handles POST /auth/login. The rate limiter runs before
// credential verification: every attempt for an identifier counts
// against the window, and the window is cleared on success.
func (a *API) Login(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[LoginRequest](w, r, maxAuthBodySize)
	if !ok {
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, "username and password are required")
		return
	}

	allowed, err := a.limiter.Check(req.Username)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, "invalid rate limit identifier")
		return
	}
	if !allowed {
		a.audit.logFailure(AuditLoginRateLimited, r, "window exhausted",
			slog.String("username", req.Username),
			slog.String("client_ip", a.clientIP(r)))
		writeRateLimited(w, a.limiter.Remaining(req.Username))
		return
	}

	user, err := a.users.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) {
			a.audit.logFailure(AuditLoginFailure, r, "invalid credentials",
				slog.String("username", req.Username),
				slog.String("client_ip", a.clientIP(r)))
			writeError(w, http.StatusUnauthorized, CodeInvalidCredentials, "invalid username or password")
			return
		}
		writeInternalError(w, "failed to verify credentials", err)
		return
	}

	session, err := a.sessions.Create(r.Context(), user.ID, req.Remember)
	if err != nil {
		writeInternalError(w, "failed to create session", err)
		return
	}

	// Successful login resets brute-force tracking for this identifier.
	a.limiter.Clear(req.Username)

	a.audit.logEvent(AuditLoginSuccess, r, user.ID,
		slog.String("client_ip", a.clientIP(r)),
		slog.Bool("extended", req.Remember))
	writeJSON(w, http.StatusOK, LoginResponse{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
	})
}

// Logout handles POST /auth/logout. Invalidation is idempotent: an
// unknown or already-invalidated token still yields success.
func (a *API) Logout(w http.ResponseWriter, r *http.Request) {
	token, ok := bearerToken(r.Header)
	if !ok {
		writeError(w, http.StatusBadRequest, CodeMissingToken, "missing bearer token")
		return
	}
	if err := a.sessions.Invalidate(r.Context(), token); err != nil {
		writeInternalError(w, "failed to invalidate session", err)
		return
	}
	a.audit.log(AuditLogout, r)
	writeJSON(w, http.StatusOK, struct{}{})
}

// Refresh handles POST /auth/refresh. Slides the session expiry forward
// from now; with remember set, the extended lifetime applies.
func (a *API) Refresh(w http.ResponseWriter, r *http.Request) {
	token, ok := bearerToken(r.Header)
	if !ok {
		writeError(w, http.StatusBadRequest, CodeMissingToken, "missing bearer token")
		return
	}
	var req RefreshRequest
	if r.ContentLength > 0 {
		if req, ok = decodeJSON[RefreshRequest](w, r, maxAuthBodySize); !ok {
			return
		}
	}

	expiresAt, err := a.sessions.Refresh(r.Context(), token, req.Remember)
	if err != nil {
		a.audit.logFailure(AuditTokenRejected, r, err.Error())
		writeSessionError(w, err)
		return
	}
	a.audit.log(AuditSessionRefreshed, r, slog.Bool("extended", req.Remember))
	writeJSON(w, http.StatusOK, RefreshResponse{ExpiresAt: expiresAt})
}

// SessionInfo handles GET /auth/session.
func (a *API) SessionInfo(w http.ResponseWriter, r *http.Request) {
	user, _ := CurrentUser(r.Context())
	session, _ := CurrentSession(r.Context())
	writeJSON(w, http.StatusOK, SessionInfoResponse{
		User:      user,
		ExpiresAt: session.ExpiresAt,
	})
}

// ChangePassword handles POST /auth/password. On success every session
// belonging to the user is invalidated, including the one that made
// this request.
func (a *API) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user, _ := CurrentUser(r.Context())

	req, ok := decodeJSON[ChangePasswordRequest](w, r, maxAuthBodySize)
	if !ok {
		return
	}
	if req.NewPassword == "" {
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, "new password is required")
		return
	}

	if err := a.users.VerifyPassword(r.Context(), user.ID, req.CurrentPassword); err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, CodeInvalidCredentials, "current password is incorrect")
			return
		}
		writeInternalError(w, "failed to verify current password", err)
		return
	}
	if err := a.users.SetPassword(r.Context(), user.ID, req.NewPassword); err != nil {
		writeInternalError(w, "failed to update password", err)
		return
	}
	if err := a.sessions.InvalidateAllForUser(r.Context(), user.ID); err != nil {
		writeInternalError(w, "failed to invalidate sessions", err)
		return
	}

	a.audit.logEvent(AuditPasswordChanged, r, user.ID)
	writeJSON(w, http.StatusOK, struct{}{})
}

// RevokeUserSessions handles POST /admin/users/{userID}/sessions/revoke.
// Admin-only administrative invalidation of another account's sessions.
func (a *API) RevokeUserSessions(w http.ResponseWriter, r *http.Request) {
	admin, _ := CurrentUser(r.Context())
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, "user id is required")
		return
	}

	if err := a.sessions.InvalidateAllForUser(r.Context(), userID); err != nil {
		writeInternalError(w, "failed to revoke sessions", err)
		return
	}
	a.audit.logEvent(AuditSessionsRevoked, r, admin.ID,
		slog.String("target_user", userID))
	writeJSON(w, http.StatusOK, struct{}{})
}

// writeRateLimited sends the 429 response, with the remaining window in
// minutes in the message and seconds in the Retry-After header.
func writeRateLimited(w http.ResponseWriter, retryAfter time.Duration) {
	secs := int(retryAfter.Seconds())
	if secs < 1 {
		secs = 1
	}
	mins := int(math.Ceil(retryAfter.Minutes()))
	if mins < 1 {
		mins = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(secs))
	writeError(w, http.StatusTooManyRequests, CodeRateLimitExceeded,
		fmt.Sprintf("too many attempts; try again in %d minute(s)", mins))
}
