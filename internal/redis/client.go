package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Options struct {
	Addr     string
	Username string
	Password string
	LockTTL  time.Duration
}

// NewRedisClient dials Redis and pings it once. Short socket timeouts keep a
// slow Redis from stalling confirm-time requests that hold a slot lock.
func NewRedisClient(ctx context.Context, opts Options) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Username:     opts.Username,
		Password:     opts.Password,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
		PoolSize:     10,
		MinIdleConns: 1,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", opts.Addr, err)
	}

	return rdb, nil
}

// Connect returns the slot locker for opts. Without an address it falls back
// to an in-process locker and a nil client, which is fine for a single
// api-server instance.
func Connect(ctx context.Context, opts Options, logger *zap.Logger) (*redis.Client, Locker, error) {
	if opts.Addr == "" {
		logger.Warn("REDIS_ADDR not set, using in-process slot locks")
		return nil, NewLocalLocker(), nil
	}

	rdb, err := NewRedisClient(ctx, opts)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("connected to Redis", zap.String("addr", opts.Addr), zap.Duration("lock_ttl", opts.LockTTL))
	return rdb, NewRedisSlotLocker(rdb, opts.LockTTL), nil
}
