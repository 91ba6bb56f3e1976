package request

import (
	"context"
	"math/rand"
	"time"

	"social-gateway/domain/repository"
	"social-gateway/infrastructure/logger"
)

// KeyedLimiter enforces max calls per unit for each key, coordinating across
// workers through the shared last-called-on store. The reservation is written
// before the underlying call runs: overshoot is preferable to undershoot given
// provider strictness.
type KeyedLimiter struct {
	store repository.IRateLimit
	max   int
	unit  time.Duration
	sleep func(context.Context, time.Duration) error
	now   func() time.Time
}

func NewKeyedLimiter(store repository.IRateLimit, max int, unit time.Duration) *KeyedLimiter {
	if max <= 0 {
		max = 1
	}
	return &KeyedLimiter{
		store: store,
		max:   max,
		unit:  unit,
		sleep: sleepCtx,
		now:   time.Now,
	}
}

// UnitFromString maps a config value to its duration; unknown values fall back
// to a minute.
func UnitFromString(unit string) time.Duration {
	switch unit {
	case "second":
		return time.Second
	case "hour":
		return time.Hour
	default:
		return time.Minute
	}
}

// MinInterval is the spacing the limiter enforces between calls for one key.
func (l *KeyedLimiter) MinInterval() time.Duration {
	return l.unit / time.Duration(l.max)
}

// Do runs fn once the key's slot is free. Concurrent invokers for the same key
// serialize through the store: each waits a jittered interval and re-reads
// until the elapsed gap is wide enough, then optimistically reserves.
func (l *KeyedLimiter) Do(ctx context.Context, key string, fn func(context.Context) error) error {
	minInterval := l.MinInterval()
	for {
		last, err := l.store.LastCalledOn(ctx, key)
		if err != nil {
			return err
		}
		elapsed := l.now().Sub(last)
		if last.IsZero() || elapsed >= minInterval {
			break
		}
		wait := minInterval + time.Duration(rand.Float64()*float64(minInterval))
		logger.GetLogger().WithField("key", key).WithField("wait", wait.String()).Debug("Rate limited; waiting")
		if err := l.sleep(ctx, wait); err != nil {
			return err
		}
	}
	if err := l.store.SetLastCalledOn(ctx, key, l.now()); err != nil {
		return err
	}
	return fn(ctx)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
