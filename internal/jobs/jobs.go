// Package jobs provides the background job queue used for large import
// batches. Jobs are persisted in Redis, executed one at a time by a
// single worker, and pollable by id until the store's retention evicts
// them.
//
// The queue is a process-wide collaborator with fallible construction:
// when Redis is unreachable the application keeps running and callers
// fall back to synchronous execution instead of losing work.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Native job states as stored in the queue. These are the queue's own
// vocabulary; clients see the four-state lifecycle via Job.Status.
const (
	stateQueued    = "queued"
	stateDelayed   = "delayed"
	stateActive    = "active"
	stateCompleted = "completed"
	stateFailed    = "failed"
)

// Status is the client-facing job lifecycle state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// ErrNotFound is returned when a job id is unknown to the store: never
// seen, or already evicted by retention.
var ErrNotFound = errors.New("job not found")

// ErrUnavailable is returned when the job infrastructure itself cannot
// be reached. It is never conflated with ErrNotFound; callers must be
// able to tell "no such job" from "can't reach the job system".
var ErrUnavailable = errors.New("job queue unavailable")

// RetryPolicy controls whole-job retries. It applies when the worker
// crashes or aborts a job, not to individual rows within a batch.
type RetryPolicy struct {
	// MaxAttempts is the total number of times the job may run.
	MaxAttempts int

	// Backoff is the delay before the first retry; each subsequent
	// retry doubles it.
	Backoff time.Duration
}

// DefaultRetryPolicy bounds crashed jobs to three runs with exponential
// backoff starting at five seconds.
var DefaultRetryPolicy = RetryPolicy{MaxAttempts: 3, Backoff: 5 * time.Second}

// Job is a pollable background batch. Progress, Processed, and Errors
// are mutated only by the worker executing the job; pollers receive
// read-only snapshots.
type Job struct {
	ID           string          `json:"id"`
	Topic        string          `json:"topic"`
	State        string          `json:"state"` // native state
	Progress     int             `json:"progress"`
	Total        int             `json:"total"`
	Processed    int             `json:"processed"`
	Errors       []string        `json:"errors"`
	FailedReason string          `json:"failedReason,omitempty"`
	Attempts     int             `json:"attempts"`
	MaxAttempts  int             `json:"maxAttempts"`
	Backoff      time.Duration   `json:"backoff"`
	Payload      json.RawMessage `json:"payload"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// Status maps the queue's native state vocabulary onto the four-state
// client lifecycle. Anything neither running nor terminal (queued,
// delayed) is pending.
func (j *Job) Status() Status {
	switch j.State {
	case stateActive:
		return StatusProcessing
	case stateCompleted:
		return StatusCompleted
	case stateFailed:
		return StatusFailed
	default:
		return StatusPending
	}
}

// Terminal reports whether the job has finished, successfully or not.
func (j *Job) Terminal() bool {
	return j.State == stateCompleted || j.State == stateFailed
}

// Queue is the background-job collaborator consumed by the rest of the
// application. The Redis implementation is the only production one;
// tests substitute in-memory fakes.
type Queue interface {
	// Enqueue persists a new pending job carrying the given payload and
	// submitted row total, and makes it visible to the worker.
	Enqueue(ctx context.Context, topic string, payload any, total int, policy RetryPolicy) (*Job, error)

	// Get returns a snapshot of the job, ErrNotFound for unknown ids,
	// or ErrUnavailable when the queue cannot be reached.
	Get(ctx context.Context, id string) (*Job, error)

	// Available reports whether the queue is currently reachable.
	Available() bool
}

// backoffDelay returns the delay before the given retry attempt.
// attempt is 1-based: the delay before attempt 2 is the base backoff,
// before attempt 3 twice that, and so on.
func backoffDelay(policy RetryPolicy, attempt int) time.Duration {
	d := policy.Backoff
	if d <= 0 {
		d = DefaultRetryPolicy.Backoff
	}
	for i := 2; i < attempt; i++ {
		d *= 2
	}
	return d
}
