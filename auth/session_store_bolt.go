package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.etcd.io/bbolt"
)

var sessionBucket = []byte("sessions")

const boltSweepInterval = 5 * time.Minute

// BoltSessionStore stores sessions in a bbolt database so they survive
// restarts. A background sweep removes records whose expiry is long past;
// live lookups still interpret expiry lazily in the Manager.
type BoltSessionStore struct {
	db       *bbolt.DB
	stopOnce sync.Once
	stopCh   chan struct{}
}

var _ SessionStore = (*BoltSessionStore)(nil)

// NewBoltSessionStore wraps an already-open bbolt database.
func NewBoltSessionStore(db *bbolt.DB) (*BoltSessionStore, error) {
	err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(sessionBucket)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("creating session bucket: %w", err)
	}
	s := &BoltSessionStore{db: db, stopCh: make(chan struct{})}
	go s.sweepLoop()
	return s, nil
}

// NewBoltSessionStoreFromFile opens a bbolt database at path and returns
// a session store backed by it.
func NewBoltSessionStoreFromFile(path string, options *bbolt.Options) (*BoltSessionStore, error) {
	db, err := bbolt.Open(path, 0o600, options)
	if err != nil {
		return nil, fmt.Errorf("opening session db: %w", err)
	}
	return NewBoltSessionStore(db)
}

// Close stops the sweep goroutine and closes the database.
func (s *BoltSessionStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopCh) })
	return s.db.Close()
}

func (s *BoltSessionStore) Put(_ context.Context, sess Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(sessionBucket).Put([]byte(sess.Token), data)
	})
}

func (s *BoltSessionStore) Get(_ context.Context, token string) (Session, bool, error) {
	var sess Session
	var found bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(sessionBucket).Get([]byte(token))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &sess)
	})
	if err != nil {
		return Session{}, false, err
	}
	return sess, found, nil
}

func (s *BoltSessionStore) ByUser(_ context.Context, userID string) ([]Session, error) {
	var out []Session
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(sessionBucket).ForEach(func(_, data []byte) error {
			var sess Session
			if err := json.Unmarshal(data, &sess); err != nil {
				return err
			}
			if sess.UserID == userID {
				out = append(out, sess)
			}
			return nil
		})
	})
	return out, err
}

func (s *BoltSessionStore) Delete(_ context.Context, token string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(sessionBucket).Delete([]byte(token))
	})
}

func (s *BoltSessionStore) sweepLoop() {
	ticker := time.NewTicker(boltSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.sweepExpired(time.Now())
		}
	}
}

// sweepExpired deletes sessions whose expiry has passed. Invalidated
// sessions stay until expiry so lookups keep reporting them as absent
// rather than resurrecting a reused token.
func (s *BoltSessionStore) sweepExpired(now time.Time) {
	var stale [][]byte
	_ = s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(sessionBucket).ForEach(func(k, data []byte) error {
			var sess Session
			if err := json.Unmarshal(data, &sess); err != nil {
				stale = append(stale, append([]byte(nil), k...))
				return nil
			}
			if sess.expiredAt(now) {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
	})
	if len(stale) == 0 {
		return
	}
	_ = s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(sessionBucket)
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}
