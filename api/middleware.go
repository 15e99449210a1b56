package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/zlovtnik/iead-sub002/auth"
)

type contextKey int

const (
	currentUserKey contextKey = iota
	sessionKey
)

const bearerPrefix = "Bearer "

// bearerToken pulls the bearer credential out of the request headers.
// Lookup is case-insensitive on the header name; any scheme other than
// Bearer, or a missing header, yields absent. Pure function.
func bearerToken(h http.Header) (string, bool) {
	value := h.Get("Authorization")
	if !strings.HasPrefix(value, bearerPrefix) {
		return "", false
	}
	token := value[len(bearerPrefix):]
	if token == "" {
		return "", false
	}
	return token, true
}

// Guard is one stage of the request-authorization pipeline. On success
// Evaluate returns the request (possibly carrying added context) and
// true. On failure the guard has already emitted the terminal response
// and returns false; the pipeline must not write anything further.
type Guard interface {
	Evaluate(w http.ResponseWriter, r *http.Request) (*http.Request, bool)
}

// Protect wraps handler so that guards run strictly in order, stopping
// at the first failure. The handler is never invoked after a guard
// fails.
func Protect(handler http.HandlerFunc, guards ...Guard) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		for _, g := range guards {
			next, ok := g.Evaluate(w, r)
			if !ok {
				return
			}
			r = next
		}
		handler(w, r)
	}
}

// guard adapts an ordered guard chain to chi middleware for r.With.
func (a *API) guard(guards ...Guard) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, g := range guards {
				nr, ok := g.Evaluate(w, r)
				if !ok {
					return
				}
				r = nr
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CurrentUser returns the authenticated user attached by the auth guard.
// Downstream handlers consume this without re-validating.
func CurrentUser(ctx context.Context) (auth.User, bool) {
	user, ok := ctx.Value(currentUserKey).(auth.User)
	return user, ok
}

// CurrentSession returns the resolved session attached by the auth guard.
func CurrentSession(ctx context.Context) (auth.Session, bool) {
	s, ok := ctx.Value(sessionKey).(auth.Session)
	return s, ok
}

// SessionToken returns the raw bearer token the request presented.
func SessionToken(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(sessionKey).(auth.Session)
	return s.Token, ok
}

// ---------------------------------------------------------------------------
// Guards
// ---------------------------------------------------------------------------

// authGuard extracts the bearer token, resolves the session, and attaches
// the current user and session to the request context.
type authGuard struct {
	a *API
}

func (a *API) requireAuth() Guard { return authGuard{a: a} }

func (g authGuard) Evaluate(w http.ResponseWriter, r *http.Request) (*http.Request, bool) {
	token, ok := bearerToken(r.Header)
	if !ok {
		writeError(w, http.StatusBadRequest, CodeMissingToken, "missing bearer token")
		return r, false
	}

	user, session, err := g.a.sessions.FindByToken(r.Context(), token)
	if err != nil {
		g.a.audit.logFailure(AuditTokenRejected, r, err.Error())
		writeSessionError(w, err)
		return r, false
	}

	ctx := context.WithValue(r.Context(), currentUserKey, user)
	ctx = context.WithValue(ctx, sessionKey, session)
	return r.WithContext(ctx), true
}

// rankGuard enforces a minimum role rank. Must run after authGuard.
type rankGuard struct {
	a    *API
	rank int
}

func (a *API) requireRank(rank int) Guard { return rankGuard{a: a, rank: rank} }

func (g rankGuard) Evaluate(w http.ResponseWriter, r *http.Request) (*http.Request, bool) {
	user, ok := CurrentUser(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, CodeInvalidToken, "authentication required")
		return r, false
	}
	if !auth.HasPermission(user.Role, g.rank) {
		g.a.audit.logEvent(AuditPermissionDenied, r, user.ID,
			slog.String("role", string(user.Role)),
			slog.Int("required_rank", g.rank))
		writeError(w, http.StatusForbidden, CodeInsufficientPermissions, "insufficient permissions")
		return r, false
	}
	return r, true
}

// ownerGuard enforces resource ownership against a URL parameter
// carrying the resource owner's ID. Must run after authGuard.
type ownerGuard struct {
	a     *API
	param string
}

func (a *API) requireOwner(param string) Guard { return ownerGuard{a: a, param: param} }

func (g ownerGuard) Evaluate(w http.ResponseWriter, r *http.Request) (*http.Request, bool) {
	user, ok := CurrentUser(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, CodeInvalidToken, "authentication required")
		return r, false
	}
	ownerID := chi.URLParam(r, g.param)
	if !auth.CanAccessOwnedResource(user, ownerID) {
		g.a.audit.logEvent(AuditAccessDenied, r, user.ID,
			slog.String("resource_owner", ownerID))
		writeError(w, http.StatusForbidden, CodeAccessDenied, "access denied")
		return r, false
	}
	return r, true
}
