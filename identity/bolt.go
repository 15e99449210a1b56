package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"
	"golang.org/x/crypto/bcrypt"

	"github.com/zlovtnik/iead-sub002/auth"
)

var (
	userBucket     = []byte("users")
	usernameBucket = []byte("usernames")
)

// BoltDirectory is a bbolt-backed identity Service. Users are stored by
// ID with a username index bucket for login lookups.
type BoltDirectory struct {
	db *bbolt.DB
}

var _ Service = (*BoltDirectory)(nil)

// NewBoltDirectory wraps an already-open bbolt database.
func NewBoltDirectory(db *bbolt.DB) (*BoltDirectory, error) {
	err := db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(userBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(usernameBucket)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("creating identity buckets: %w", err)
	}
	return &BoltDirectory{db: db}, nil
}

// NewBoltDirectoryFromFile opens a bbolt database at path and returns a
// directory backed by it.
func NewBoltDirectoryFromFile(path string, options *bbolt.Options) (*BoltDirectory, error) {
	db, err := bbolt.Open(path, 0o600, options)
	if err != nil {
		return nil, fmt.Errorf("opening identity db: %w", err)
	}
	return NewBoltDirectory(db)
}

// Close closes the underlying database.
func (d *BoltDirectory) Close() error {
	return d.db.Close()
}

func (d *BoltDirectory) Create(_ context.Context, nu NewUser) (auth.User, error) {
	hash, err := bcrypt.GenerateFromPassword(normalizePassword(nu.Password), bcrypt.DefaultCost)
	if err != nil {
		return auth.User{}, fmt.Errorf("hashing password: %w", err)
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
	err = d.db.Update(func(tx *bbolt.Tx) error {
		names := tx.Bucket(usernameBucket)
		if names.Get([]byte(nu.Username)) != nil {
			return fmt.Errorf("%q: %w", nu.Username, ErrUsernameTaken)
		}
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		if err := tx.Bucket(userBucket).Put([]byte(rec.ID), data); err != nil {
			return err
		}
		return names.Put([]byte(nu.Username), []byte(rec.ID))
	})
	if err != nil {
		return auth.User{}, err
	}
	return rec.user(), nil
}

func (d *BoltDirectory) UserByID(_ context.Context, id string) (auth.User, error) {
	var rec record
	err := d.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(userBucket).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%s: %w", id, auth.ErrUserNotFound)
		}
		return json.Unmarshal(data, &rec)
	})
	if err != nil {
		return auth.User{}, err
	}
	return rec.user(), nil
}

func (d *BoltDirectory) Authenticate(_ context.Context, username, password string) (auth.User, error) {
	var rec record
	err := d.db.View(func(tx *bbolt.Tx) error {
		id := tx.Bucket(usernameBucket).Get([]byte(username))
		if id == nil {
			return ErrInvalidCredentials
		}
		data := tx.Bucket(userBucket).Get(id)
		if data == nil {
			return ErrInvalidCredentials
		}
		return json.Unmarshal(data, &rec)
	})
	if err != nil {
		return auth.User{}, err
	}
	if !rec.Active {
		return auth.User{}, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword(rec.PasswordHash, normalizePassword(password)) != nil {
		return auth.User{}, ErrInvalidCredentials
	}
	return rec.user(), nil
}

func (d *BoltDirectory) VerifyPassword(_ context.Context, userID, password string) error {
	var rec record
	err := d.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(userBucket).Get([]byte(userID))
		if data == nil {
			return fmt.Errorf("%s: %w", userID, auth.ErrUserNotFound)
		}
		return json.Unmarshal(data, &rec)
	})
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword(rec.PasswordHash, normalizePassword(password)) != nil {
		return ErrInvalidCredentials
	}
	return nil
}

func (d *BoltDirectory) SetPassword(_ context.Context, userID, password string) error {
	hash, err := bcrypt.GenerateFromPassword(normalizePassword(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	return d.update(userID, func(rec *record) {
		rec.PasswordHash = hash
	})
}

func (d *BoltDirectory) Deactivate(_ context.Context, userID string) error {
	return d.update(userID, func(rec *record) {
		rec.Active = false
	})
}

func (d *BoltDirectory) update(userID string, mutate func(*record)) error {
	return d.db.Update(func(tx *bbolt.Tx) error {
		users := tx.Bucket(userBucket)
		data := users.Get([]byte(userID))
		if data == nil {
			return fmt.Errorf("%s: %w", userID, auth.ErrUserNotFound)
		}
		var rec record
		if err := json.Unmarshal(data, &rec); err != nil {
			return err
		}
		mutate(&rec)
		out, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return users.Put([]byte(userID), out)
	})
}
