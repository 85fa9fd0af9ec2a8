package runner

import (
	"time"

	"github.com/nssanta/bybitarc/internal/plan"
)

// Status is the terminal state of one task. The set is closed: every task
// ends in exactly one of these.
type Status int

const (
	// StatusSuccess - artifact published under its final name.
	StatusSuccess Status = iota

	// StatusSkipped - destination artifact already existed; no network call.
	StatusSkipped

	// StatusNotFound - remote archive absent for that (symbol, date).
	// Terminal after a single attempt; not a failure.
	StatusNotFound

	// StatusFailed - transient-failure retry budget exhausted.
	StatusFailed
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusSkipped:
		return "skipped"
	case StatusNotFound:
		return "not_found"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome reports the terminal result of one task. Produced once by the
// worker that ran the task; consumed only by the aggregator.
type Outcome struct {
	Task   plan.Task
	Status Status

	// Records is the number of rows published (decoded datasets only).
	Records int64

	// BytesWritten is the size of the published artifact.
	BytesWritten int64

	// ParseErrors counts malformed lines that were skipped.
	ParseErrors int64

	// Attempts is how many attempts the task consumed.
	Attempts int

	// Elapsed is wall time from stagger start to terminal state.
	Elapsed time.Duration

	// Detail carries the last error text for failed tasks.
	Detail string
}
