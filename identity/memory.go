package identity

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/zlovtnik/iead-sub002/auth"
)

// MemoryDirectory is an in-memory identity Service for tests and
// single-run tooling.
type MemoryDirectory struct {
	mu      sync.RWMutex
	byID    map[string]record
	byName  map[string]string
	minCost int
}

var _ Service = (*MemoryDirectory)(nil)

// NewMemoryDirectory creates an empty in-memory directory. It hashes
// with bcrypt.MinCost to keep test setup fast.
func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{
		byID:    make(map[string]record),
		byName:  make(map[string]string),
		minCost: bcrypt.MinCost,
	}
}

func (d *MemoryDirectory) Create(_ context.Context, nu NewUser) (auth.User, error) {
	hash, err := bcrypt.GenerateFromPassword(normalizePassword(nu.Password), d.minCost)
	if err != nil {
		return auth.User{}, fmt.Errorf("hashing password: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, taken := d.byName[nu.Username]; taken {
		return auth.User{}, fmt.Errorf("%q: %w", nu.Username, ErrUsernameTaken)
	}
	rec := record{
		ID:            uuid.NewString(),
		Username:      nu.Username,
		PasswordHash:  hash,
		Role:          nu.Role,
		LinkedOwnerID: nu.LinkedOwnerID,
		Active:        true,
		CreatedAt:     time.Now().UTC(),
	}
	d.byID[rec.ID] = rec
	d.byName[rec.Username] = rec.ID
	return rec.user(), nil
}

func (d *MemoryDirectory) UserByID(_ context.Context, id string) (auth.User, error) {
	d.mu.RLock()
	rec, ok := d.byID[id]
	d.mu.RUnlock()
	if !ok {
		return auth.User{}, fmt.Errorf("%s: %w", id, auth.ErrUserNotFound)
	}
	return rec.user(), nil
}

func (d *MemoryDirectory) Authenticate(_ context.Context, username, password string) (auth.User, error) {
	d.mu.RLock()
	id, ok := d.byName[username]
	var rec record
	if ok {
		rec = d.byID[id]
	}
	d.mu.RUnlock()
	if !ok || !rec.Active {
		return auth.User{}, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword(rec.PasswordHash, normalizePassword(password)) != nil {
		return auth.User{}, ErrInvalidCredentials
	}
	return rec.user(), nil
}

func (d *MemoryDirectory) VerifyPassword(_ context.Context, userID, password string) error {
	d.mu.RLock()
	rec, ok := d.byID[userID]
	d.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%s: %w", userID, auth.ErrUserNotFound)
	}
	if bcrypt.CompareHashAndPassword(rec.PasswordHash, normalizePassword(password)) != nil {
		return ErrInvalidCredentials
	}
	return nil
}

func (d *MemoryDirectory) SetPassword(_ context.Context, userID, password string) error {
	hash, err := bcrypt.GenerateFromPassword(normalizePassword(password), d.minCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	return d.update(userID, func(rec *record) {
		rec.PasswordHash = hash
	})
}

func (d *MemoryDirectory) Deactivate(_ context.Context, userID string) error {
	return d.update(userID, func(rec *record) {
		rec.Active = false
	})
}

func (d *MemoryDirectory) update(userID string, mutate func(*record)) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	rec, ok := d.byID[userID]
	if !ok {
		return fmt.Errorf("%s: %w", userID, auth.ErrUserNotFound)
	}
	mutate(&rec)
	d.byID[userID] = rec
	return nil
}
