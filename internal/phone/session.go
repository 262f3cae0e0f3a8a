package phone

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionTTL bounds how long a sent code is considered pending.
const SessionTTL = 10 * time.Minute

// SessionStore remembers the carrier verification id for a principal between
// the send and the check.
type SessionStore interface {
	Put(ctx context.Context, userID, verificationSid string) error
	Pending(ctx context.Context, userID string) (bool, error)
	Clear(ctx context.Context, userID string) error
}

// RedisSessionStore keeps one key per principal with a TTL.
type RedisSessionStore struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisSessionStore(rdb redis.Cmdable) *RedisSessionStore {
	return &RedisSessionStore{rdb: rdb, ttl: SessionTTL}
}

func sessionKey(userID string) string {
	return "phone:verification:" + userID
}

func (s *RedisSessionStore) Put(ctx context.Context, userID, verificationSid string) error {
	return s.rdb.Set(ctx, sessionKey(userID), verificationSid, s.ttl).Err()
}

func (s *RedisSessionStore) Pending(ctx context.Context, userID string) (bool, error) {
	err := s.rdb.Get(ctx, sessionKey(userID)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *RedisSessionStore) Clear(ctx context.Context, userID string) error {
	return s.rdb.Del(ctx, sessionKey(userID)).Err()
}
