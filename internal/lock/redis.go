package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/timmy/personashop/internal/config"
	"github.com/timmy/personashop/internal/logger"
)

const pollInterval = 50 * time.Millisecond

// releaseScript deletes the key only if it still holds our token.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a Locker backed by SET NX PX on a shared Redis.
type Redis struct {
	rdb    *goredis.Client
	prefix string
	ttl    time.Duration
	wait   time.Duration
}

// NewRedis connects to Redis and verifies the connection.
// Parameters:
//   - cfg: redis configuration; Addr must be set.
// Returns:
//   - *Redis: locker bound to the client.
//   - error: non-nil if the server cannot be reached.
func NewRedis(cfg *config.RedisConfig) (*Redis, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("missing redis addr")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return NewRedisWithClient(rdb, cfg.LockTTL, cfg.LockWait), nil
}

// NewRedisWithClient builds a locker over an existing client.
func NewRedisWithClient(rdb *goredis.Client, ttl, wait time.Duration) *Redis {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Redis{rdb: rdb, prefix: "personashop:lock:", ttl: ttl, wait: wait}
}

// Acquire implements Locker. It polls until the lock is free, the wait
// elapses (ErrNotAcquired) or ctx is done.
func (l *Redis) Acquire(ctx context.Context, key string) (func(), error) {
	fullKey := l.prefix + key
	token := uuid.New().String()
	deadline := time.Now().Add(l.wait)

	for {
		ok, err := l.rdb.SetNX(ctx, fullKey, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("redis setnx: %w", err)
		}
		if ok {
			return func() {
				// Release with a fresh context so a cancelled request still frees the key.
				rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				if err := releaseScript.Run(rctx, l.rdb, []string{fullKey}, token).Err(); err != nil {
					logger.CtxWarn(ctx, "Failed to release lock %s: %v", fullKey, err)
				}
			}, nil
		}
		if !time.Now().Before(deadline) {
			return nil, ErrNotAcquired
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

// Close closes the underlying client.
func (l *Redis) Close() error {
	return l.rdb.Close()
}
