// Package auth implements the request-authorization core: bearer-token
// session lifecycle, the role hierarchy with per-resource ownership
// checks, and a sliding-window rate limiter for credential submission.
package auth

import "errors"

var (
	// ErrTokenNotFound indicates the token does not resolve to a live session.
	// Invalidated sessions report this reason, never their stale contents.
	ErrTokenNotFound = errors.New("session token not found")
	// ErrTokenExpired indicates the session exists but its expiry has passed.
	ErrTokenExpired = errors.New("session token expired")
	// ErrAccountDeactivated indicates the session's owning account is no longer active.
	ErrAccountDeactivated = errors.New("account deactivated")
	// ErrTokenCollision indicates a freshly generated token already exists in
	// the store. Statistically this should never happen; treat it as fatal.
	ErrTokenCollision = errors.New("generated session token already exists")

	// ErrEmptyIdentifier indicates a rate-limit check was attempted without an
	// identifier. This is an input error, not a rate-limit decision.
	ErrEmptyIdentifier = errors.New("rate limit identifier is empty")

	// ErrUserNotFound indicates the identity provider has no such user.
	ErrUserNotFound = errors.New("user not found")
	// ErrUnknownRole indicates a role string outside the closed role set.
	ErrUnknownRole = errors.New("unknown role")
)
