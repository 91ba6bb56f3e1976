package jobqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"social-gateway/domain/model"
)

const (
	readyKey   = "jobs:ready"
	delayedKey = "jobs:delayed"
)

// RedisQueue is the scheduler's transport: a ready list workers block-pop from
// and a delayed zset scored by scheduled epoch. Enqueuers and workers agree
// only on the JSON job encoding and the Class tag.
type RedisQueue struct {
	client *redis.Client
}

func NewRedisQueue(client *redis.Client) *RedisQueue {
	return &RedisQueue{client: client}
}

func (q *RedisQueue) Push(ctx context.Context, job *model.Job) error {
	if job.EnqueueTimestamp == 0 {
		job.EnqueueTimestamp = time.Now().Unix()
	}
	raw, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return q.client.RPush(ctx, readyKey, raw).Err()
}

// PushDelayed schedules the job to surface at `at`. The zset member identifies
// the job by (class, guid, method) alone, so rescheduling a pending job moves
// its due time instead of stacking a second entry; the seeder and the
// completion re-enqueue can never multiply a collection chain.
func (q *RedisQueue) PushDelayed(ctx context.Context, job *model.Job, at time.Time) error {
	raw, err := json.Marshal(delayedMember(job))
	if err != nil {
		return err
	}
	return q.client.ZAdd(ctx, delayedKey, redis.Z{Score: float64(at.Unix()), Member: raw}).Err()
}

// delayedMember strips the volatile enqueue timestamp so identical jobs
// marshal to identical members.
func delayedMember(job *model.Job) *model.Job {
	return &model.Job{Class: job.Class, GUID: job.GUID, Method: job.Method}
}

// Pop blocks up to timeout for a ready job; (nil, nil) on timeout.
func (q *RedisQueue) Pop(ctx context.Context, timeout time.Duration) (*model.Job, error) {
	res, err := q.client.BLPop(ctx, timeout, readyKey).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(res) != 2 {
		return nil, fmt.Errorf("jobqueue: unexpected blpop reply of length %d", len(res))
	}
	job := &model.Job{}
	if err := json.Unmarshal([]byte(res[1]), job); err != nil {
		return nil, fmt.Errorf("jobqueue: decode job: %w", err)
	}
	return job, nil
}

// PromoteDelayed moves due jobs from the delayed zset onto the ready list.
// Removal before push keeps a crashed promoter from double-delivering more
// than one batch.
func (q *RedisQueue) PromoteDelayed(ctx context.Context, now time.Time) (int, error) {
	members, err := q.client.ZRangeByScore(ctx, delayedKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: fmt.Sprintf("%d", now.Unix()),
	}).Result()
	if err != nil {
		return 0, err
	}
	moved := 0
	for _, m := range members {
		removed, err := q.client.ZRem(ctx, delayedKey, m).Result()
		if err != nil {
			return moved, err
		}
		if removed == 0 {
			continue // another promoter won the race
		}
		if err := q.client.RPush(ctx, readyKey, m).Err(); err != nil {
			return moved, err
		}
		moved++
	}
	return moved, nil
}
