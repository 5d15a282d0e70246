package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Backend selects the queue implementation
type Backend string

const (
	BackendMemory Backend = "memory"
	BackendRedis  Backend = "redis"
)

// Config selects and configures the queue backend
type Config struct {
	Backend   Backend
	KeyPrefix string
	LockTTL   time.Duration
}

// RedisOptions are the connection settings used by the redis backend
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// New creates the configured queue. For the redis backend the returned close
// function closes the client.
func New(ctx context.Context, cfg Config, redisOpts RedisOptions, logger *zap.Logger) (Queue, func() error, error) {
	switch cfg.Backend {
	case BackendMemory, "":
		logger.Warn("Using in-memory job queue; jobs are lost on restart and not shared between instances")
		return NewMemoryQueue(), func() error { return nil }, nil
	case BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     redisOpts.Addr,
			Password: redisOpts.Password,
			DB:       redisOpts.DB,
		})

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}

		logger.Info("Using Redis job queue",
			zap.String("addr", redisOpts.Addr),
			zap.String("key_prefix", cfg.KeyPrefix),
		)
		q := NewRedisQueue(client, RedisConfig{KeyPrefix: cfg.KeyPrefix, LockTTL: cfg.LockTTL}, logger)
		return q, client.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown queue backend %q", cfg.Backend)
	}
}
