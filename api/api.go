// Package api exposes the request-authorization core over HTTP: bearer
// session endpoints, the guard pipeline protecting resource routes, and
// the error surface downstream services rely on.
package api

import (
	_ "embed"
	"log/slog"
	"net/http"
	"net/netip"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-openapi/runtime/middleware"

	"github.com/zlovtnik/iead-sub002/auth"
	"github.com/zlovtnik/iead-sub002/identity"
)

// API holds the dependencies needed by the REST handlers. The session
// manager and rate limiter are constructed once by the caller and passed
// in by reference, so tests get isolated state and a distributed backend
// can be swapped in without touching this package.
type API struct {
	users          identity.Service
	sessions       *auth.Manager
	limiter        *auth.SlidingWindowLimiter
	audit          *auditLogger
	alertFn        AlertFunc
	trustedProxies []netip.Prefix
}

//go:embed openapi.yaml
var openapiSpec []byte

// Option configures the API instance.
type Option func(*API)

// WithLogger sets the structured logger for audit events. If not set, a
// default JSON logger writing to stderr is used.
func WithLogger(logger *slog.Logger) Option {
	return func(a *API) {
		a.audit = newAuditLogger(logger)
	}
}

// WithAlertFunc installs a callback for anomaly alerts (login failure
// spikes). Without it no anomaly tracking is done.
func WithAlertFunc(fn AlertFunc) Option {
	return func(a *API) {
		a.alertFn = fn
	}
}

// WithTrustedProxies configures the CIDR ranges whose proxy headers
// (X-Forwarded-For) are honored when resolving the client IP for audit
// logs. A bare IP is treated as a /32 (or /128) prefix.
func WithTrustedProxies(cidrs []string) (Option, error) {
	prefixes, err := parseTrustedProxies(cidrs)
	if err != nil {
		return nil, err
	}
	return func(a *API) {
		a.trustedProxies = prefixes
	}, nil
}

// New creates a new API instance around the given identity service,
// session manager and login rate limiter.
func New(users identity.Service, sessions *auth.Manager, limiter *auth.SlidingWindowLimiter, opts ...Option) *API {
	a := &API{
		users:    users,
		sessions: sessions,
		limiter:  limiter,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.audit == nil {
		a.audit = newAuditLogger(slog.New(slog.NewJSONHandler(os.Stderr, nil)))
	}
	if a.alertFn != nil {
		a.audit.metrics = newMetricsCollector(a.alertFn)
	}
	return a
}

// Router returns a chi.Router with all API routes mounted. Guard order
// is deliberate: rate limiting runs inside the login handler before
// authentication, while everywhere else authentication precedes
// authorization.
func (a *API) Router() chi.Router {
	r := chi.NewRouter()

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(openapiSpec)
	})

	r.Handle("/docs*", middleware.SwaggerUI(middleware.SwaggerUIOpts{
		SpecURL: "/api/v1/openapi.yaml",
		Path:    "api/v1/docs",
	}, nil))

	r.Handle("/redoc*", middleware.Redoc(middleware.RedocOpts{
		SpecURL: "/api/v1/openapi.yaml",
		Path:    "api/v1/redoc",
	}, nil))

	r.Post("/auth/login", a.Login)
	r.Post("/auth/logout", a.Logout)
	r.Post("/auth/refresh", a.Refresh)
	r.With(a.guard(a.requireAuth())).Get("/auth/session", a.SessionInfo)
	r.With(a.guard(a.requireAuth())).Post("/auth/password", a.ChangePassword)

	// Self-scoped resource access: Members reach only their linked record,
	// Pastor and Admin reach any.
	r.With(a.guard(a.requireAuth(), a.requireOwner("memberID"))).
		Get("/members/{memberID}/records", a.MemberRecords)

	// Pastor rank and up.
	r.With(a.guard(a.requireAuth(), a.requireRank(auth.RankPastor))).
		Get("/congregation/overview", a.CongregationOverview)

	// Admin only.
	r.With(a.guard(a.requireAuth(), a.requireRank(auth.RankAdmin))).
		Post("/admin/users/{userID}/sessions/revoke", a.RevokeUserSessions)

	return r
}
