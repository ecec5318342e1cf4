package lock

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// ErrLockNotHeld is returned when a lock expired before it was released.
var ErrLockNotHeld = errors.New("lock was not held or already expired")

// DefaultExpiry bounds how long a crashed holder can block a key.
const DefaultExpiry = 5 * time.Second

// RedisLocker is a Locker backed by redsync so every API instance shares the same locks.
type RedisLocker struct {
	rs     *redsync.Redsync
	expiry time.Duration
}

func NewRedisLocker(rdb redis.UniversalClient, expiry time.Duration) *RedisLocker {
	if expiry <= 0 {
		expiry = DefaultExpiry
	}
	return &RedisLocker{rs: redsync.New(goredis.NewPool(rdb)), expiry: expiry}
}

// TryLock makes a single acquisition attempt.
func (l *RedisLocker) TryLock(ctx context.Context, key string) (Handle, bool, error) {
	if strings.TrimSpace(key) == "" {
		return nil, false, ErrEmptyKey
	}
	mutex := l.rs.NewMutex(key, redsync.WithExpiry(l.expiry), redsync.WithTries(1))
	if err := mutex.LockContext(ctx); err != nil {
		var taken *redsync.ErrTaken
		if errors.Is(err, redsync.ErrFailed) || errors.As(err, &taken) || strings.Contains(err.Error(), "lock already taken") {
			log.Debug().Str("lock_key", key).Msg("lock already held")
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("acquire lock %s: %w", key, err)
	}
	return &redisHandle{mutex: mutex}, true, nil
}

type redisHandle struct {
	mutex *redsync.Mutex
}

func (h *redisHandle) Unlock(ctx context.Context) error {
	ok, err := h.mutex.UnlockContext(ctx)
	if !ok {
		log.Warn().Err(err).Str("lock_key", h.mutex.Name()).Msg("lock was not held or already expired")
		if err != nil {
			return fmt.Errorf("%w: %v", ErrLockNotHeld, err)
		}
		return ErrLockNotHeld
	}
	if err != nil {
		log.Error().Err(err).Str("lock_key", h.mutex.Name()).Msg("failed to release lock")
		return fmt.Errorf("release lock: %w", err)
	}
	return nil
}
