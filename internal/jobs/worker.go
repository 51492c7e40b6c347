package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nordform/catalog-admin/internal/logging"
)

// ProgressUpdater persists incremental progress for a running job.
// Progress never decreases; the worker clamps regressions.
type ProgressUpdater func(progress, processed int, errs []string)

// Handler executes one job. A returned error (or a panic, which the
// worker recovers) fails the run and triggers the job's retry policy.
// Per-row failures inside a batch are data, reported via the updater,
// and do not fail the job.
type Handler func(ctx context.Context, job *Job, update ProgressUpdater) error

// pollTimeout bounds each blocking pop so the worker notices context
// cancellation between jobs.
const pollTimeout = 5 * time.Second

// Worker drains the queue one job at a time. A single worker process
// runs a single job at a time; within a job, rows are strictly
// sequential. The downstream catalog API is the shared bottleneck and
// is not assumed safe under concurrent writes from the same import.
type Worker struct {
	queue    *RedisQueue
	handlers map[string]Handler
}

// NewWorker creates a worker draining the given queue.
func NewWorker(queue *RedisQueue) *Worker {
	return &Worker{
		queue:    queue,
		handlers: make(map[string]Handler),
	}
}

// Handle registers the handler for a topic. Must be called before Run.
func (w *Worker) Handle(topic string, h Handler) {
	w.handlers[topic] = h
}

// Run blocks, executing jobs until the context is cancelled. A running
// job is not interrupted mid-batch; cancellation takes effect between
// jobs.
func (w *Worker) Run(ctx context.Context) {
	topics := make([]string, 0, len(w.handlers))
	keys := make([]string, 0, len(w.handlers))
	for topic := range w.handlers {
		topics = append(topics, topic)
		keys = append(keys, queueKey(topic))
	}

	slog.Info("job worker started", "topics", topics)

	for {
		if ctx.Err() != nil {
			slog.Info("job worker stopped")
			return
		}

		res, err := w.queue.rdb.BRPop(ctx, pollTimeout, keys...).Result()
		if err != nil {
			if ctx.Err() != nil {
				slog.Info("job worker stopped")
				return
			}
			// redis.Nil on timeout, transport errors otherwise
			if !errors.Is(err, redis.Nil) {
				slog.Warn("job queue poll failed", "error", err)
				sleepCtx(ctx, pollTimeout)
			}
			continue
		}
		if len(res) != 2 {
			continue
		}

		topic := strings.TrimPrefix(res[0], queueKey(""))
		w.runJob(ctx, topic, res[1])
	}
}

// runJob executes a single dequeued job id through its topic handler.
func (w *Worker) runJob(ctx context.Context, topic, id string) {
	handler, ok := w.handlers[topic]
	if !ok {
		slog.Warn("no handler for job topic", "topic", topic, "job_id", id)
		return
	}

	job, err := w.queue.Get(ctx, id)
	if err != nil {
		slog.Error("failed to load job", "job_id", id, "error", err)
		return
	}

	job.State = stateActive
	job.Attempts++
	if err := w.queue.save(ctx, job); err != nil {
		slog.Error("failed to mark job active", "job_id", id, "error", err)
		return
	}

	log := logging.WithFields(ctx, "job_id", job.ID, "topic", topic, "attempt", job.Attempts)
	log.Info("job started", "total", job.Total)
	start := time.Now()

	update := func(progress, processed int, errs []string) {
		if progress > job.Progress {
			job.Progress = progress
		}
		job.Processed = processed
		job.Errors = errs
		if err := w.queue.save(ctx, job); err != nil {
			log.Warn("failed to persist job progress", "error", err)
		}
	}

	runErr := w.execute(ctx, handler, job, update)
	if runErr == nil {
		job.State = stateCompleted
		job.Progress = 100
		job.FailedReason = ""
		if err := w.queue.save(ctx, job); err != nil {
			log.Error("failed to mark job completed", "error", err)
		}
		log.Info("job completed",
			"processed", job.Processed,
			"failed_rows", len(job.Errors),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return
	}

	policy := RetryPolicy{MaxAttempts: job.MaxAttempts, Backoff: job.Backoff}
	if job.Attempts < job.MaxAttempts {
		delay := backoffDelay(policy, job.Attempts+1)
		job.State = stateDelayed
		job.FailedReason = runErr.Error()
		if err := w.queue.save(ctx, job); err != nil {
			log.Error("failed to mark job delayed", "error", err)
			return
		}
		w.queue.requeueAfter(topic, job.ID, delay)
		log.Warn("job failed, retry scheduled", "error", runErr, "retry_in", delay)
		return
	}

	job.State = stateFailed
	job.FailedReason = runErr.Error()
	if err := w.queue.save(ctx, job); err != nil {
		log.Error("failed to mark job failed", "error", err)
	}
	log.Error("job failed permanently", "error", runErr)
}

// execute invokes the handler, converting panics into job failures so a
// crashing batch fails the job instead of the worker.
func (w *Worker) execute(ctx context.Context, handler Handler, job *Job, update ProgressUpdater) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job handler panicked: %v", r)
		}
	}()
	return handler(ctx, job, update)
}

// sleepCtx sleeps for d or until ctx is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
