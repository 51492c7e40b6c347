package importer

// Mode is the execution path chosen for an import request.
type Mode int

const (
	// ModeSynchronous runs the batch inline and returns the result in
	// the initial response.
	ModeSynchronous Mode = iota

	// ModeBackground enqueues the batch and returns a pollable job.
	ModeBackground
)

// String returns the wire discriminant for the mode.
func (m Mode) String() string {
	if m == ModeBackground {
		return "background"
	}
	return "sync"
}

// SyncRowLimit is the largest batch processed inline. Batches above the
// limit are enqueued as background jobs. Fixed, not configurable.
const SyncRowLimit = 50

// SelectMode picks the execution path for a batch of rowCount rows.
// Background mode requires the job queue to be reachable; when it is
// not, every batch runs synchronously rather than losing the import.
func SelectMode(rowCount int, queueAvailable bool) Mode {
	if rowCount > SyncRowLimit && queueAvailable {
		return ModeBackground
	}
	return ModeSynchronous
}
