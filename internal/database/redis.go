package database

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"carecall-backend/pkg/logger"
)

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	PoolSize int
	Timeout  time.Duration
}

// RedisClient wraps the Redis client with degraded mode support: when the
// health check fails, callers can skip the cache instead of erroring
type RedisClient struct {
	Client *redis.Client

	degradedMode   bool
	degradedModeMu sync.RWMutex
}

// NewRedisDB creates a new Redis client from config
func NewRedisDB(cfg *RedisConfig) (*RedisClient, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
		DialTimeout:  cfg.Timeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	rc := &RedisClient{Client: client}
	if err := client.Ping(ctx).Err(); err != nil {
		rc.setDegraded(true)
		return rc, fmt.Errorf("failed to ping redis: %w", err)
	}

	return rc, nil
}

// IsDegraded reports whether Redis is currently unreachable
func (r *RedisClient) IsDegraded() bool {
	r.degradedModeMu.RLock()
	defer r.degradedModeMu.RUnlock()
	return r.degradedMode
}

func (r *RedisClient) setDegraded(degraded bool) {
	r.degradedModeMu.Lock()
	defer r.degradedModeMu.Unlock()
	r.degradedMode = degraded
}

// StartHealthCheck pings Redis periodically and flips degraded mode on
// failures. Runs until the context is cancelled.
func (r *RedisClient) StartHealthCheck(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			err := r.Client.Ping(pingCtx).Err()
			cancel()

			wasDegraded := r.IsDegraded()
			r.setDegraded(err != nil)

			if err != nil && !wasDegraded {
				logger.Warn("redis entered degraded mode")
			} else if err == nil && wasDegraded {
				logger.Info("redis recovered from degraded mode")
			}
		}
	}
}

// Close closes the Redis connection
func (r *RedisClient) Close() error {
	if r == nil || r.Client == nil {
		return nil
	}
	return r.Client.Close()
}
