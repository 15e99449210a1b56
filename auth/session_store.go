package auth

import (
	"context"
	"time"
)

// Session is the server-side state behind a bearer token. Invalidation
// flips a flag rather than deleting the record; lookups treat expired and
// invalidated sessions as absent and cleanup happens lazily.
type Session struct {
	Token       string    `json:"token"`
	UserID      string    `json:"user_id"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
	Extended    bool      `json:"extended,omitempty"`
	Invalidated bool      `json:"invalidated,omitempty"`
}

func (s Session) expiredAt(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// SessionStore abstracts session persistence so sessions can live
// in-memory (default), in bbolt, or in redis without changing the
// Manager's contract. Only the Manager writes session state.
type SessionStore interface {
	// Put creates or overwrites the session keyed by its token.
	Put(ctx context.Context, s Session) error
	// Get retrieves the raw session record, including expired and
	// invalidated ones; interpreting them is the Manager's job.
	Get(ctx context.Context, token string) (Session, bool, error)
	// ByUser returns all stored sessions owned by userID.
	ByUser(ctx context.Context, userID string) ([]Session, error)
	// Delete removes the session record entirely.
	Delete(ctx context.Context, token string) error
}
