package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nordform/catalog-admin/internal/jobs"
)

// TopicProductImport is the queue topic for background import batches.
const TopicProductImport = "product-import"

// Input errors reject the whole request before any row is processed.
var (
	ErrNoRows       = errors.New("no rows to import")
	ErrNoMapping    = errors.New("no field mapping provided")
	ErrUnknownField = errors.New("unknown target field")
)

// InputError reports whether err is a request-validation failure (as
// opposed to an infrastructure fault). Callers map the former to a
// client error and the latter to a server error.
func InputError(err error) bool {
	return errors.Is(err, ErrNoRows) ||
		errors.Is(err, ErrNoMapping) ||
		errors.Is(err, ErrUnknownField)
}

// jobPayload is what a background batch carries through the queue.
type jobPayload struct {
	Rows    []RawRow     `json:"rows"`
	Mapping FieldMapping `json:"mapping"`
	Token   string       `json:"token"`
	UserID  int64        `json:"userId"`
}

// StartResult is the tagged outcome of an import start: exactly one of
// Batch (synchronous path) or Job (background path) is set, and Mode is
// the discriminant callers must branch on.
type StartResult struct {
	Mode  Mode
	Batch *BatchResult
	Job   *jobs.Job
}

// Service coordinates the import pipeline: it validates requests, picks
// the execution path, runs inline batches, and enqueues background ones.
type Service struct {
	runner *BatchRunner
	queue  jobs.Queue
	retry  jobs.RetryPolicy
}

// NewService creates the import service. queue may be nil when the job
// infrastructure was unreachable at startup; every batch then runs
// synchronously.
func NewService(client ProductCreator, queue jobs.Queue, retry jobs.RetryPolicy) *Service {
	if retry.MaxAttempts <= 0 {
		retry = jobs.DefaultRetryPolicy
	}
	return &Service{
		runner: NewBatchRunner(client),
		queue:  queue,
		retry:  retry,
	}
}

// StartImport validates and executes an import request. Batches above
// SyncRowLimit are enqueued when the queue is reachable; otherwise the
// batch runs inline regardless of size, trading throughput for not
// losing the import.
func (s *Service) StartImport(ctx context.Context, rows []RawRow, mapping FieldMapping, token string, userID int64) (*StartResult, error) {
	if len(rows) == 0 {
		return nil, ErrNoRows
	}
	if len(mapping) == 0 {
		return nil, ErrNoMapping
	}
	for column, field := range mapping {
		if !field.Valid() {
			return nil, fmt.Errorf("%w %q for column %q", ErrUnknownField, field, column)
		}
	}

	available := s.queue != nil && s.queue.Available()
	mode := SelectMode(len(rows), available)

	if mode == ModeBackground {
		payload := jobPayload{
			Rows:    rows,
			Mapping: mapping,
			Token:   token,
			UserID:  userID,
		}
		job, err := s.queue.Enqueue(ctx, TopicProductImport, payload, len(rows), s.retry)
		if err == nil {
			slog.Info("import batch enqueued", "job_id", job.ID, "total", job.Total, "user_id", userID)
			return &StartResult{Mode: ModeBackground, Job: job}, nil
		}
		if !errors.Is(err, jobs.ErrUnavailable) {
			return nil, fmt.Errorf("enqueue import: %w", err)
		}
		// Queue went away between the availability check and the
		// enqueue; run inline rather than losing the batch.
		slog.Warn("job queue unavailable, running batch inline", "rows", len(rows))
	}

	result := s.runner.Run(ctx, rows, mapping, token, nil)
	return &StartResult{Mode: ModeSynchronous, Batch: &result}, nil
}

// JobStatus returns a snapshot of a background import job.
func (s *Service) JobStatus(ctx context.Context, id string) (*jobs.Job, error) {
	if s.queue == nil {
		return nil, jobs.ErrUnavailable
	}
	return s.queue.Get(ctx, id)
}

// HandleJob is the worker handler for TopicProductImport. Per-row
// failures are reported through the updater and never fail the job; a
// decode failure or runner crash does.
func (s *Service) HandleJob(ctx context.Context, job *jobs.Job, update jobs.ProgressUpdater) error {
	var payload jobPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("decode import payload: %w", err)
	}

	s.runner.Run(ctx, payload.Rows, payload.Mapping, payload.Token, func(p ProgressUpdate) {
		update(p.Progress, p.Processed, p.Errors)
	})
	return nil
}
