package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultRetention is how long completed jobs stay pollable.
const DefaultRetention = 7 * 24 * time.Hour

// RedisQueue is the Redis-backed Queue implementation. Each topic has a
// list of ready job ids; each job lives as a JSON value under its own
// key so pollers can read it without touching the queue itself.
type RedisQueue struct {
	rdb       *redis.Client
	retention time.Duration
}

// NewRedisQueue connects to Redis and verifies reachability. On ping
// failure the error is returned and the caller should continue without
// a queue (synchronous-only mode) rather than crash.
func NewRedisQueue(ctx context.Context, addr, password string, db int) (*RedisQueue, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &RedisQueue{rdb: rdb, retention: DefaultRetention}, nil
}

func jobKey(id string) string {
	return "import:job:" + id
}

func queueKey(topic string) string {
	return "import:queue:" + topic
}

// Enqueue persists a new queued job and pushes its id onto the topic list.
func (q *RedisQueue) Enqueue(ctx context.Context, topic string, payload any, total int, policy RetryPolicy) (*Job, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = DefaultRetryPolicy.MaxAttempts
	}
	if policy.Backoff <= 0 {
		policy.Backoff = DefaultRetryPolicy.Backoff
	}

	now := time.Now().UTC()
	job := &Job{
		ID:          uuid.NewString(),
		Topic:       topic,
		State:       stateQueued,
		Total:       total,
		Errors:      []string{},
		MaxAttempts: policy.MaxAttempts,
		Backoff:     policy.Backoff,
		Payload:     raw,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := q.save(ctx, job); err != nil {
		return nil, err
	}
	if err := q.rdb.LPush(ctx, queueKey(topic), job.ID).Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return job, nil
}

// Get returns a snapshot of the job by id.
func (q *RedisQueue) Get(ctx context.Context, id string) (*Job, error) {
	raw, err := q.rdb.Get(ctx, jobKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var job Job
	if err := json.Unmarshal(raw, &job); err != nil {
		return nil, fmt.Errorf("decode job %s: %w", id, err)
	}
	return &job, nil
}

// Available reports whether Redis currently answers pings.
func (q *RedisQueue) Available() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return q.rdb.Ping(ctx).Err() == nil
}

// Close releases the underlying Redis connection.
func (q *RedisQueue) Close() error {
	return q.rdb.Close()
}

// save writes the job JSON under its key with the store's retention.
func (q *RedisQueue) save(ctx context.Context, job *Job) error {
	job.UpdatedAt = time.Now().UTC()
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := q.rdb.Set(ctx, jobKey(job.ID), raw, q.retention).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// requeueAfter schedules a delayed re-enqueue of a job id. The delay
// timer lives in-process; a process restart drops pending retries,
// which is acceptable for whole-batch crash retries.
func (q *RedisQueue) requeueAfter(topic, id string, delay time.Duration) {
	time.AfterFunc(delay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = q.rdb.LPush(ctx, queueKey(topic), id).Err()
	})
}
