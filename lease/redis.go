package lease

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/parleyhq/parley/logging"
)

// releaseScript deletes the lease key only when the stored token matches, so
// an expired lease taken over by another replica is never released by the
// original holder.
const releaseScript = `if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end`

// RedisConfig describes the connection and lease parameters for RedisLocker.
type RedisConfig struct {
	Address   string
	Password  string
	DB        int
	KeyPrefix string
	// TTL bounds lease lifetime so a crashed holder cannot wedge a project
	// forever. It must comfortably exceed the longest expected run.
	TTL time.Duration
}

// RedisLocker implements Locker with SET NX + TTL, making the lease effective
// across replicas.
type RedisLocker struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger logging.Logger
}

var _ Locker = (*RedisLocker)(nil)

// NewRedisLocker connects to Redis and verifies the connection.
func NewRedisLocker(cfg RedisConfig, logger logging.Logger) (*RedisLocker, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address must not be empty")
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "parley:lease"
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return &RedisLocker{client: client, prefix: prefix, ttl: ttl, logger: logger}, nil
}

// Acquire implements Locker. Transport failures count as not acquired: a run
// that cannot prove exclusivity must not proceed.
func (l *RedisLocker) Acquire(ctx context.Context, projectID int64) (func(), bool) {
	key := fmt.Sprintf("%s:%d", l.prefix, projectID)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		l.logger.Error("lease acquire failed", "error", err, "project_id", projectID)
		return nil, false
	}
	if !ok {
		return nil, false
	}

	release := func() {
		if err := l.client.Eval(context.Background(), releaseScript, []string{key}, token).Err(); err != nil {
			l.logger.Warn("lease release failed; key will expire via TTL",
				"error", err, "project_id", projectID)
		}
	}
	return release, true
}

// Close releases the underlying Redis connection.
func (l *RedisLocker) Close() error { return l.client.Close() }
