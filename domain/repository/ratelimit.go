package repository

import (
	"context"
	"time"

	"social-gateway/domain/model"
)

// IRateLimit is the shared last-called-on store the per-key limiter
// coordinates through. The write-before-call update is intentionally racy;
// overshoot is preferred to undershoot.
type IRateLimit interface {
	// LastCalledOn returns the zero time when the key has never been seen.
	LastCalledOn(ctx context.Context, key string) (time.Time, error)
	SetLastCalledOn(ctx context.Context, key string, t time.Time) error
}

// IJobQueue is the scheduler's transport: a ready queue plus a delayed set
// keyed by scheduled epoch.
type IJobQueue interface {
	Push(ctx context.Context, job *model.Job) error
	PushDelayed(ctx context.Context, job *model.Job, at time.Time) error

	// Pop blocks up to timeout for a ready job; returns (nil, nil) on timeout.
	Pop(ctx context.Context, timeout time.Duration) (*model.Job, error)

	// PromoteDelayed moves jobs whose scheduled time has passed onto the ready
	// queue and reports how many moved.
	PromoteDelayed(ctx context.Context, now time.Time) (int, error)
}
