// Package stats aggregates download outcomes across concurrent workers.
package stats

import (
	"sync"
	"sync/atomic"
)

// TaskError describes one failed download.
type TaskError struct {
	AttachmentID string
	Name         string
	Err          error
}

// Snapshot is an immutable copy of the counters at one point in time.
type Snapshot struct {
	Downloaded int64
	Skipped    int64
	Failed     int64
	Bytes      int64
	Errors     []TaskError
}

// Total returns the number of tasks that reached a terminal state.
func (s Snapshot) Total() int64 {
	return s.Downloaded + s.Skipped + s.Failed
}

// Add returns the sum of two snapshots, used for run-wide totals.
func (s Snapshot) Add(other Snapshot) Snapshot {
	errs := make([]TaskError, 0, len(s.Errors)+len(other.Errors))
	errs = append(errs, s.Errors...)
	errs = append(errs, other.Errors...)
	return Snapshot{
		Downloaded: s.Downloaded + other.Downloaded,
		Skipped:    s.Skipped + other.Skipped,
		Failed:     s.Failed + other.Failed,
		Bytes:      s.Bytes + other.Bytes,
		Errors:     errs,
	}
}

// Aggregator is safe for concurrent use by download workers.
type Aggregator struct {
	downloaded atomic.Int64
	skipped    atomic.Int64
	failed     atomic.Int64
	bytes      atomic.Int64

	mu     sync.Mutex
	errors []TaskError
}

// NewAggregator returns a zeroed aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// RecordDownloaded counts one completed download of n bytes.
func (a *Aggregator) RecordDownloaded(n int64) {
	a.downloaded.Add(1)
	a.bytes.Add(n)
}

// RecordSkipped counts one task whose destination already existed.
func (a *Aggregator) RecordSkipped() {
	a.skipped.Add(1)
}

// RecordFailed counts one failed task and keeps its cause for the summary.
func (a *Aggregator) RecordFailed(attachmentID, name string, err error) {
	a.failed.Add(1)

	a.mu.Lock()
	a.errors = append(a.errors, TaskError{AttachmentID: attachmentID, Name: name, Err: err})
	a.mu.Unlock()
}

// Snapshot returns a copy of the current counters.
func (a *Aggregator) Snapshot() Snapshot {
	a.mu.Lock()
	errs := make([]TaskError, len(a.errors))
	copy(errs, a.errors)
	a.mu.Unlock()

	return Snapshot{
		Downloaded: a.downloaded.Load(),
		Skipped:    a.skipped.Load(),
		Failed:     a.failed.Load(),
		Bytes:      a.bytes.Load(),
		Errors:     errs,
	}
}
