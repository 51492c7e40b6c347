package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/nordform/catalog-admin/internal/jobs"
)

// fakeQueue implements jobs.Queue in memory.
type fakeQueue struct {
	available  bool
	enqueueErr error
	jobs       map[string]*jobs.Job
	enqueued   int
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{available: true, jobs: make(map[string]*jobs.Job)}
}

func (q *fakeQueue) Enqueue(_ context.Context, topic string, payload any, total int, policy jobs.RetryPolicy) (*jobs.Job, error) {
	if q.enqueueErr != nil {
		return nil, q.enqueueErr
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	q.enqueued++
	job := &jobs.Job{
		ID:          fmt.Sprintf("job-%d", q.enqueued),
		Topic:       topic,
		State:       "queued",
		Total:       total,
		Errors:      []string{},
		MaxAttempts: policy.MaxAttempts,
		Backoff:     policy.Backoff,
		Payload:     raw,
		CreatedAt:   time.Now(),
	}
	q.jobs[job.ID] = job
	return job, nil
}

func (q *fakeQueue) Get(_ context.Context, id string) (*jobs.Job, error) {
	job, ok := q.jobs[id]
	if !ok {
		return nil, jobs.ErrNotFound
	}
	return job, nil
}

func (q *fakeQueue) Available() bool { return q.available }

func manyRows(n int) []RawRow {
	rows := make([]RawRow, n)
	for i := range rows {
		rows[i] = RawRow{"Name": fmt.Sprintf("Chair %d", i)}
	}
	return rows
}

var nameMapping = FieldMapping{"Name": FieldName}

func TestService_InputValidation(t *testing.T) {
	svc := NewService(&fakeCatalog{}, newFakeQueue(), jobs.DefaultRetryPolicy)
	ctx := context.Background()

	if _, err := svc.StartImport(ctx, nil, nameMapping, "t", 1); !errors.Is(err, ErrNoRows) {
		t.Errorf("expected ErrNoRows, got %v", err)
	}
	if _, err := svc.StartImport(ctx, manyRows(1), nil, "t", 1); !errors.Is(err, ErrNoMapping) {
		t.Errorf("expected ErrNoMapping, got %v", err)
	}
	bad := FieldMapping{"Name": Field("bogus")}
	if _, err := svc.StartImport(ctx, manyRows(1), bad, "t", 1); !errors.Is(err, ErrUnknownField) {
		t.Errorf("expected ErrUnknownField, got %v", err)
	}
}

func TestService_SmallBatchRunsInline(t *testing.T) {
	queue := newFakeQueue()
	svc := NewService(&fakeCatalog{}, queue, jobs.DefaultRetryPolicy)

	res, err := svc.StartImport(context.Background(), manyRows(50), nameMapping, "t", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.Mode != ModeSynchronous {
		t.Fatalf("expected synchronous mode, got %v", res.Mode)
	}
	if res.Batch == nil || res.Job != nil {
		t.Fatal("sync result must carry Batch and not Job")
	}
	if res.Batch.Processed != 50 {
		t.Errorf("expected 50 processed, got %d", res.Batch.Processed)
	}
	if queue.enqueued != 0 {
		t.Errorf("expected no enqueue for small batch, got %d", queue.enqueued)
	}
}

func TestService_LargeBatchEnqueued(t *testing.T) {
	queue := newFakeQueue()
	client := &fakeCatalog{}
	svc := NewService(client, queue, jobs.DefaultRetryPolicy)

	res, err := svc.StartImport(context.Background(), manyRows(60), nameMapping, "t", 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.Mode != ModeBackground {
		t.Fatalf("expected background mode, got %v", res.Mode)
	}
	if res.Job == nil || res.Batch != nil {
		t.Fatal("background result must carry Job and not Batch")
	}
	if res.Job.Total != 60 {
		t.Errorf("expected job total 60, got %d", res.Job.Total)
	}
	if res.Job.Status() != jobs.StatusPending {
		t.Errorf("expected pending status, got %q", res.Job.Status())
	}
	if res.Job.Progress != 0 {
		t.Errorf("expected progress 0, got %d", res.Job.Progress)
	}
	if client.calls != 0 {
		t.Errorf("expected no inline catalog calls, got %d", client.calls)
	}
}

func TestService_QueueUnavailableFallsBackToSync(t *testing.T) {
	queue := newFakeQueue()
	queue.available = false
	svc := NewService(&fakeCatalog{}, queue, jobs.DefaultRetryPolicy)

	res, err := svc.StartImport(context.Background(), manyRows(60), nameMapping, "t", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Mode != ModeSynchronous {
		t.Errorf("expected synchronous fallback, got %v", res.Mode)
	}
	if res.Batch == nil || res.Batch.Processed != 60 {
		t.Errorf("expected all 60 rows processed inline, got %+v", res.Batch)
	}
}

func TestService_EnqueueUnavailableFallsBackToSync(t *testing.T) {
	queue := newFakeQueue()
	queue.enqueueErr = jobs.ErrUnavailable
	svc := NewService(&fakeCatalog{}, queue, jobs.DefaultRetryPolicy)

	res, err := svc.StartImport(context.Background(), manyRows(60), nameMapping, "t", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Mode != ModeSynchronous {
		t.Errorf("expected synchronous fallback on enqueue failure, got %v", res.Mode)
	}
}

// An enqueue failure that is not an availability problem surfaces as an
// infrastructure error, never as a request-validation one.
func TestService_EnqueueFaultSurfacesError(t *testing.T) {
	queue := newFakeQueue()
	queue.enqueueErr = errors.New("redis write refused")
	svc := NewService(&fakeCatalog{}, queue, jobs.DefaultRetryPolicy)

	_, err := svc.StartImport(context.Background(), manyRows(60), nameMapping, "t", 1)
	if err == nil {
		t.Fatal("expected error when enqueue fails")
	}
	if InputError(err) {
		t.Errorf("enqueue fault must not classify as an input error: %v", err)
	}
}

func TestService_NilQueueRunsInline(t *testing.T) {
	svc := NewService(&fakeCatalog{}, nil, jobs.DefaultRetryPolicy)

	res, err := svc.StartImport(context.Background(), manyRows(60), nameMapping, "t", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Mode != ModeSynchronous {
		t.Errorf("expected synchronous mode with nil queue, got %v", res.Mode)
	}

	if _, err := svc.JobStatus(context.Background(), "any"); !errors.Is(err, jobs.ErrUnavailable) {
		t.Errorf("expected ErrUnavailable from JobStatus with nil queue, got %v", err)
	}
}

func TestService_HandleJob(t *testing.T) {
	queue := newFakeQueue()
	svc := NewService(&fakeCatalog{}, queue, jobs.DefaultRetryPolicy)

	res, err := svc.StartImport(context.Background(), manyRows(60), nameMapping, "t", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var lastProgress, lastProcessed int
	var lastErrors []string
	update := func(progress, processed int, errs []string) {
		if progress < lastProgress {
			t.Errorf("progress decreased: %d -> %d", lastProgress, progress)
		}
		lastProgress = progress
		lastProcessed = processed
		lastErrors = errs
	}

	if err := svc.HandleJob(context.Background(), res.Job, update); err != nil {
		t.Fatalf("unexpected handler error: %v", err)
	}
	if lastProgress != 100 {
		t.Errorf("expected final progress 100, got %d", lastProgress)
	}
	if lastProcessed != 60 {
		t.Errorf("expected 60 processed, got %d", lastProcessed)
	}
	if len(lastErrors) != 0 {
		t.Errorf("expected no errors, got %v", lastErrors)
	}
}

// A batch where every row fails still completes; per-row failure is
// data, not a job fault.
func TestService_HandleJob_AllRowsFailStillCompletes(t *testing.T) {
	queue := newFakeQueue()
	svc := NewService(&fakeCatalog{err: errors.New("rejected")}, queue, jobs.DefaultRetryPolicy)

	res, err := svc.StartImport(context.Background(), manyRows(60), nameMapping, "t", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var lastErrors []string
	if err := svc.HandleJob(context.Background(), res.Job, func(_, _ int, errs []string) {
		lastErrors = errs
	}); err != nil {
		t.Fatalf("handler must not fail on row errors, got %v", err)
	}
	if len(lastErrors) != 60 {
		t.Errorf("expected 60 row errors, got %d", len(lastErrors))
	}
}

func TestService_HandleJob_BadPayload(t *testing.T) {
	svc := NewService(&fakeCatalog{}, newFakeQueue(), jobs.DefaultRetryPolicy)

	job := &jobs.Job{ID: "x", Payload: json.RawMessage(`{not json`)}
	if err := svc.HandleJob(context.Background(), job, func(_, _ int, _ []string) {}); err == nil {
		t.Error("expected error for undecodable payload")
	}
}
