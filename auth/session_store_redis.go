package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisSessionPrefix = "session:"
	redisUserPrefix    = "user_sessions:"
)

// RedisSessionStore keeps sessions in redis so several deployment units
// can share one authoritative session state. Records carry a TTL slightly
// past their expiry, which replaces the lazy sweep the local backends use.
type RedisSessionStore struct {
	client *redis.Client
}

var _ SessionStore = (*RedisSessionStore)(nil)

// NewRedisSessionStore wraps an existing redis client.
func NewRedisSessionStore(client *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{client: client}
}

func sessionKey(token string) string { return redisSessionPrefix + token }
func userKey(userID string) string   { return redisUserPrefix + userID }

func (s *RedisSessionStore) Put(ctx context.Context, sess Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	// Keep the record one hour past expiry so invalidated-but-unexpired
	// sessions stay resolvable as absent instead of vanishing into
	// not-found-because-reaped ambiguity.
	ttl := time.Until(sess.ExpiresAt) + time.Hour
	if ttl <= 0 {
		ttl = time.Hour
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, sessionKey(sess.Token), data, ttl)
	pipe.SAdd(ctx, userKey(sess.UserID), sess.Token)
	pipe.Expire(ctx, userKey(sess.UserID), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("writing session to redis: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) Get(ctx context.Context, token string) (Session, bool, error) {
	data, err := s.client.Get(ctx, sessionKey(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Session{}, false, nil
	}
	if err != nil {
		return Session{}, false, fmt.Errorf("reading session from redis: %w", err)
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return Session{}, false, err
	}
	return sess, true, nil
}

func (s *RedisSessionStore) ByUser(ctx context.Context, userID string) ([]Session, error) {
	tokens, err := s.client.SMembers(ctx, userKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("listing user sessions from redis: %w", err)
	}
	var out []Session
	for _, token := range tokens {
		sess, ok, err := s.Get(ctx, token)
		if err != nil {
			return nil, err
		}
		if !ok {
			// Token outlived its session record; drop it from the index.
			_ = s.client.SRem(ctx, userKey(userID), token).Err()
			continue
		}
		out = append(out, sess)
	}
	return out, nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, token string) error {
	sess, ok, err := s.Get(ctx, token)
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, sessionKey(token))
	if ok {
		pipe.SRem(ctx, userKey(sess.UserID), token)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("deleting session from redis: %w", err)
	}
	return nil
}
