package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const lastCalledPrefix = "ratelimit:last:"

// RateLimitStore keeps the per-guid last-called-on timestamp in redis so that
// workers in different processes observe each other's reservations.
type RateLimitStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRateLimitStore(client *redis.Client) *RateLimitStore {
	return &RateLimitStore{client: client, ttl: 24 * time.Hour}
}

func (s *RateLimitStore) LastCalledOn(ctx context.Context, key string) (time.Time, error) {
	v, err := s.client.Get(ctx, lastCalledPrefix+key).Result()
	if err == redis.Nil {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	nanos, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(0, nanos).UTC(), nil
}

func (s *RateLimitStore) SetLastCalledOn(ctx context.Context, key string, t time.Time) error {
	return s.client.Set(ctx, lastCalledPrefix+key, strconv.FormatInt(t.UnixNano(), 10), s.ttl).Err()
}
