package importer

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// BatchResult aggregates the outcome of one import batch.
type BatchResult struct {
	Total         int      `json:"total"`
	Processed     int      `json:"processed"`
	Errors        []string `json:"errors"`
	PendingAssets int      `json:"pendingAssets"`
}

// ProgressUpdate is emitted after each attempted row when a batch runs
// in the background. Progress is 0-100 and non-decreasing.
type ProgressUpdate struct {
	Progress  int
	Attempted int
	Processed int
	Errors    []string
}

// ProgressFunc receives incremental progress during a background run.
// A nil ProgressFunc disables reporting (synchronous path).
type ProgressFunc func(ProgressUpdate)

// BatchRunner drives the row mapper and record importer over a batch.
//
// Rows are processed strictly in input order, one at a time: the
// downstream catalog API is not assumed safe under concurrent writes,
// and ordering determines which row index appears in failure messages.
// No row failure aborts the batch; the batch is complete once every
// row has been attempted.
type BatchRunner struct {
	importer *RecordImporter
}

// NewBatchRunner creates a runner submitting records via client.
func NewBatchRunner(client ProductCreator) *BatchRunner {
	return &BatchRunner{importer: NewRecordImporter(client)}
}

// Run executes the batch and returns the aggregate result. Mapping
// failures and submission failures are both recorded as error entries
// carrying the row's 1-based index; neither stops the run.
func (r *BatchRunner) Run(ctx context.Context, rows []RawRow, mapping FieldMapping, token string, onProgress ProgressFunc) BatchResult {
	start := time.Now()
	result := BatchResult{
		Total:  len(rows),
		Errors: []string{},
	}

	for i, row := range rows {
		rowNum := i + 1

		rec, err := MapRow(row, mapping)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %s", rowNum, err.Error()))
			r.report(onProgress, rowNum, &result)
			continue
		}

		outcome := r.importer.ImportOne(ctx, token, rec)
		if outcome.Failed() {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %s", rowNum, outcome.Failure))
			r.report(onProgress, rowNum, &result)
			continue
		}

		result.Processed++
		result.PendingAssets += rec.AssetCount()
		r.report(onProgress, rowNum, &result)
	}

	slog.Info("import batch finished",
		"total", result.Total,
		"processed", result.Processed,
		"failed", len(result.Errors),
		"pending_assets", result.PendingAssets,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return result
}

// report emits a progress update after an attempted row.
func (r *BatchRunner) report(onProgress ProgressFunc, attempted int, result *BatchResult) {
	if onProgress == nil {
		return
	}
	onProgress(ProgressUpdate{
		Progress:  progressPercent(attempted, result.Total),
		Attempted: attempted,
		Processed: result.Processed,
		Errors:    result.Errors,
	})
}

// progressPercent returns the percentage of attempted rows, floored.
// Flooring (rather than rounding) keeps 100 reserved for the terminal
// state: on large batches a rounded percentage would report 100 one
// row before the last.
func progressPercent(attempted, total int) int {
	if total <= 0 || attempted >= total {
		return 100
	}
	return 100 * attempted / total
}
