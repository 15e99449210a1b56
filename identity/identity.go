// Package identity implements the user-identity provider the
// authorization core consumes: user records, their roles and active
// flags, and bcrypt credential verification performed once at login.
package identity

import (
	"context"
	"errors"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/zlovtnik/iead-sub002/auth"
)

var (
	// ErrInvalidCredentials indicates the username/password pair does not
	// verify. Callers must not distinguish a missing user from a wrong
	// password.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrUsernameTaken indicates the username is already registered.
	ErrUsernameTaken = errors.New("username already taken")
)

// NewUser describes an account to create.
type NewUser struct {
	Username      string
	Password      string
	Role          auth.Role
	LinkedOwnerID string
}

// Service is the identity surface the authorization core and CLI consume.
// It extends auth.Provider with the login-time credential verifier and
// the mutations the surrounding admin application performs.
type Service interface {
	auth.Provider
	// Authenticate verifies a username/password pair and returns the user
	// on success. Inactive accounts fail with ErrInvalidCredentials; the
	// caller never learns why.
	Authenticate(ctx context.Context, username, password string) (auth.User, error)
	// Create registers a new account.
	Create(ctx context.Context, nu NewUser) (auth.User, error)
	// VerifyPassword checks password against the stored hash for userID.
	// Returns ErrInvalidCredentials on mismatch.
	VerifyPassword(ctx context.Context, userID, password string) error
	// SetPassword replaces the user's password hash.
	SetPassword(ctx context.Context, userID, password string) error
	// Deactivate clears the account's active flag. Existing sessions
	// start failing lookups with the deactivated reason.
	Deactivate(ctx context.Context, userID string) error
}

// normalizePassword applies NFKD before hashing or comparing, so the
// same passphrase typed on platforms that compose Unicode differently
// always verifies against one stored hash.
func normalizePassword(password string) []byte {
	return []byte(norm.NFKD.String(password))
}

// record is the stored shape of an account. The PasswordHash never
// leaves this package.
type record struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	PasswordHash  []byte    `json:"password_hash"`
	Role          auth.Role `json:"role"`
	LinkedOwnerID string    `json:"linked_owner_id,omitempty"`
	Active        bool      `json:"active"`
	CreatedAt     time.Time `json:"created_at"`
}

func (r record) user() auth.User {
	return auth.User{
		ID:            r.ID,
		Role:          r.Role,
		LinkedOwnerID: r.LinkedOwnerID,
		Active:        r.Active,
	}
}
