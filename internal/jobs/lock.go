package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dakar-humidity/alert-gateway/pkg/logger"
	"github.com/dakar-humidity/alert-gateway/pkg/redis"
	"github.com/google/uuid"
)

var (
	ErrLockHeld          = errors.New("cycle lock held by another scheduler")
	ErrLockAcquireFailed = errors.New("failed to acquire cycle lock")
)

type LockConfig struct {
	TTL       time.Duration
	KeyPrefix string
}

func DefaultLockConfig() LockConfig {
	return LockConfig{
		TTL:       5 * time.Minute,
		KeyPrefix: "lock:",
	}
}

// CycleLock lets one scheduler replica own a cycle at a time.
type CycleLock struct {
	redis  redis.RedisAdapter
	config LockConfig
}

func NewCycleLock(redisAdapter redis.RedisAdapter, config LockConfig) *CycleLock {
	if config.TTL <= 0 {
		config.TTL = DefaultLockConfig().TTL
	}
	return &CycleLock{redis: redisAdapter, config: config}
}

// Lease is a held lock. Only the holder's token can release it.
type Lease struct {
	Key   string
	token []byte
	lock  *CycleLock
}

func (l *CycleLock) Acquire(ctx context.Context, name string) (*Lease, error) {
	key := l.config.KeyPrefix + name
	token := []byte(uuid.NewString())

	acquired, err := l.redis.SetNX(key, token, l.config.TTL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLockAcquireFailed, err)
	}
	if !acquired {
		return nil, ErrLockHeld
	}

	logger.Debug("Cycle lock acquired", "key", key, "ttl", l.config.TTL)

	return &Lease{Key: key, token: token, lock: l}, nil
}

// Release drops the lease if it is still ours. An expired lease taken over
// by another replica is left alone.
func (le *Lease) Release(ctx context.Context) error {
	if le == nil {
		return nil
	}
	released, err := le.lock.redis.DelIfEquals(le.Key, le.token)
	if err != nil {
		logger.Warn("Failed to release cycle lock", "key", le.Key, "error", err)
		return err
	}
	if !released {
		logger.Warn("Cycle lock expired before release", "key", le.Key)
	}
	return nil
}
