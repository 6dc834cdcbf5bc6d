// Package progress reports workflow progress to the terminal or to tests.
//
// The core packages only see the Sink interface. Implementations must be
// safe for concurrent use because download workers report from their own
// goroutines.
package progress

import (
	"sync"

	"github.com/sfextract/sf-attachments/internal/models"
)

// DiscoveryEvent is emitted once a record source has been read.
type DiscoveryEvent struct {
	Source      string
	SourceIndex int // zero-based
	SourceCount int
	Records     int
	Err         error
}

// BatchEvent is emitted after each metadata query batch.
type BatchEvent struct {
	Source     string
	BatchIndex int // zero-based
	BatchCount int
	BatchSize  int
	Found      int // rows returned by the query
	Merged     int // rows added after dedup
	Err        error
}

// DownloadEvent is emitted when a download phase starts (Completed == 0,
// no AttachmentID) and after every task reaches a terminal state.
type DownloadEvent struct {
	Source       string
	AttachmentID string
	Name         string
	State        models.TaskState
	Bytes        int64
	Completed    int
	Total        int
	Downloaded   int64
	Skipped      int64
	Failed       int64
	Err          error
}

// Sink receives progress events.
type Sink interface {
	DiscoveryProgress(DiscoveryEvent)
	BatchProgress(BatchEvent)
	DownloadProgress(DownloadEvent)
}

// NoOp discards every event.
type NoOp struct{}

func (NoOp) DiscoveryProgress(DiscoveryEvent) {}
func (NoOp) BatchProgress(BatchEvent)         {}
func (NoOp) DownloadProgress(DownloadEvent)   {}

// safeSink shields callers from a misbehaving sink.
type safeSink struct {
	inner Sink
}

// Safe wraps s so that a panic inside any callback is recovered and the
// event dropped. A nil sink becomes NoOp.
func Safe(s Sink) Sink {
	if s == nil {
		return NoOp{}
	}
	if _, ok := s.(safeSink); ok {
		return s
	}
	return safeSink{inner: s}
}

func (s safeSink) DiscoveryProgress(e DiscoveryEvent) {
	defer func() { _ = recover() }()
	s.inner.DiscoveryProgress(e)
}

func (s safeSink) BatchProgress(e BatchEvent) {
	defer func() { _ = recover() }()
	s.inner.BatchProgress(e)
}

func (s safeSink) DownloadProgress(e DownloadEvent) {
	defer func() { _ = recover() }()
	s.inner.DownloadProgress(e)
}

// Recorder keeps every event in memory. Used by tests.
type Recorder struct {
	mu        sync.Mutex
	discovery []DiscoveryEvent
	batches   []BatchEvent
	downloads []DownloadEvent
}

func (r *Recorder) DiscoveryProgress(e DiscoveryEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.discovery = append(r.discovery, e)
}

func (r *Recorder) BatchProgress(e BatchEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, e)
}

func (r *Recorder) DownloadProgress(e DownloadEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.downloads = append(r.downloads, e)
}

// Discovery returns a copy of the recorded discovery events.
func (r *Recorder) Discovery() []DiscoveryEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]DiscoveryEvent(nil), r.discovery...)
}

// Batches returns a copy of the recorded batch events.
func (r *Recorder) Batches() []BatchEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]BatchEvent(nil), r.batches...)
}

// Downloads returns a copy of the recorded download events.
func (r *Recorder) Downloads() []DownloadEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]DownloadEvent(nil), r.downloads...)
}
