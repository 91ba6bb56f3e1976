package cache

import (
	"context"

	"github.com/redis/go-redis/v9"

	"social-gateway/infrastructure/logger"
)

// NewCache connects a redis client used for rate-limit state and the job queue.
func NewCache(ctx context.Context, addr, username, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Username: username,
		Password: password,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		logger.GetLogger().WithField("error", err).Warn("Redis ping failed")
		return client, err
	}
	return client, nil
}
