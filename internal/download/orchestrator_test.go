package download

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/afero"

	"github.com/sfextract/sf-attachments/internal/models"
	"github.com/sfextract/sf-attachments/internal/progress"
)

const outDir = "/out/src/files"

// fakeFetcher serves bodies from a map; errs override per id.
type fakeFetcher struct {
	mu     sync.Mutex
	bodies map[string]string
	errs   map[string]error
	calls  []string
	// brokenAfter makes the body of that id fail after its first bytes
	brokenAfter map[string]bool
}

func (f *fakeFetcher) Fetch(ctx context.Context, id string) (io.ReadCloser, error) {
	f.mu.Lock()
	f.calls = append(f.calls, id)
	f.mu.Unlock()

	if err, ok := f.errs[id]; ok {
		return nil, err
	}
	body, ok := f.bodies[id]
	if !ok {
		return nil, &models.NotFoundError{AttachmentID: id}
	}
	if f.brokenAfter[id] {
		return io.NopCloser(io.MultiReader(strings.NewReader(body), errReader{})), nil
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, errors.New("connection reset by peer") }

func makeTasks(ids ...string) []models.DownloadTask {
	tasks := make([]models.DownloadTask, len(ids))
	for i, id := range ids {
		tasks[i] = models.DownloadTask{
			Record:          models.AttachmentRecord{ID: id, ParentID: "001A", Name: id + ".txt", Size: 4},
			DestinationPath: filepath.Join(outDir, "001A_"+id+".txt"),
		}
	}
	return tasks
}

func newOrchestrator(fs afero.Fs, f Fetcher, workers int) *Orchestrator {
	return &Orchestrator{
		Fetcher:     f,
		Concurrency: workers,
		StagingDir:  "/out/src/.staging",
		OutputDir:   outDir,
		Source:      "src",
		Fs:          fs,
	}
}

func readFile(t *testing.T, fs afero.Fs, path string) string {
	t.Helper()
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func TestRunDownloadsAndIsIdempotent(t *testing.T) {
	fs := afero.NewMemMapFs()
	f := &fakeFetcher{bodies: map[string]string{"00P1": "aaaa", "00P2": "bbbb", "00P3": "cccc"}}
	tasks := makeTasks("00P1", "00P2", "00P3")

	snap, err := newOrchestrator(fs, f, 2).Run(context.Background(), tasks)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if snap.Downloaded != 3 || snap.Bytes != 12 {
		t.Errorf("snapshot = %+v, want 3 downloaded, 12 bytes", snap)
	}
	if got := readFile(t, fs, tasks[1].DestinationPath); got != "bbbb" {
		t.Errorf("content = %q", got)
	}

	// Second run finds everything in place.
	snap, err = newOrchestrator(fs, f, 2).Run(context.Background(), tasks)
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	if snap.Skipped != 3 || snap.Downloaded != 0 {
		t.Errorf("second snapshot = %+v, want 3 skipped", snap)
	}
	if f.callCount() != 3 {
		t.Errorf("fetch calls = %d, want 3", f.callCount())
	}
}

func TestRunEmptyDestinationIsRefetched(t *testing.T) {
	fs := afero.NewMemMapFs()
	tasks := makeTasks("00P1")
	afero.WriteFile(fs, tasks[0].DestinationPath, nil, 0644)

	f := &fakeFetcher{bodies: map[string]string{"00P1": "data"}}
	snap, err := newOrchestrator(fs, f, 1).Run(context.Background(), tasks)
	if err != nil {
		t.Fatal(err)
	}
	if snap.Downloaded != 1 {
		t.Errorf("snapshot = %+v, want refetch of zero-length file", snap)
	}
}

func TestRunInterruptedBodyLeavesNoPartialFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	f := &fakeFetcher{
		bodies:      map[string]string{"00P1": "half", "00P2": "full"},
		brokenAfter: map[string]bool{"00P1": true},
	}
	tasks := makeTasks("00P1", "00P2")

	snap, err := newOrchestrator(fs, f, 1).Run(context.Background(), tasks)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if snap.Failed != 1 || snap.Downloaded != 1 {
		t.Errorf("snapshot = %+v", snap)
	}
	if ok, _ := afero.Exists(fs, tasks[0].DestinationPath); ok {
		t.Error("partial body reached its destination")
	}
	if ok, _ := afero.Exists(fs, "/out/src/.staging"); ok {
		t.Error("staging directory not removed")
	}
}

func TestRunIsolatesNotFound(t *testing.T) {
	fs := afero.NewMemMapFs()
	f := &fakeFetcher{bodies: map[string]string{"00P1": "aaaa", "00P3": "cccc"}}
	tasks := makeTasks("00P1", "00P2", "00P3")

	snap, err := newOrchestrator(fs, f, 3).Run(context.Background(), tasks)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if snap.Downloaded != 2 || snap.Failed != 1 {
		t.Fatalf("snapshot = %+v", snap)
	}
	if len(snap.Errors) != 1 || snap.Errors[0].AttachmentID != "00P2" || !models.IsNotFound(snap.Errors[0].Err) {
		t.Errorf("errors = %+v", snap.Errors)
	}
}

func TestRunFatalStopsPhase(t *testing.T) {
	fs := afero.NewMemMapFs()
	fatal := &models.FatalTransportError{Op: "fetch", Err: errors.New("status 401: INVALID_SESSION_ID")}
	f := &fakeFetcher{
		bodies: map[string]string{"00P1": "a", "00P3": "c", "00P4": "d", "00P5": "e"},
		errs:   map[string]error{"00P2": fatal},
	}
	tasks := makeTasks("00P1", "00P2", "00P3", "00P4", "00P5")

	snap, err := newOrchestrator(fs, f, 1).Run(context.Background(), tasks)
	if !models.IsFatal(err) {
		t.Fatalf("Run() error = %v, want fatal", err)
	}
	if snap.Downloaded != 1 || snap.Failed != 1 {
		t.Errorf("snapshot = %+v, want 1 downloaded, 1 failed", snap)
	}
	if f.callCount() != 2 {
		t.Errorf("fetch calls = %d, remaining tasks should not start", f.callCount())
	}
}

func TestRunRejectsEscapingDestination(t *testing.T) {
	fs := afero.NewMemMapFs()
	f := &fakeFetcher{bodies: map[string]string{"00P1": "x"}}
	tasks := []models.DownloadTask{{
		Record:          models.AttachmentRecord{ID: "00P1", Name: "x"},
		DestinationPath: filepath.Join(outDir, "..", "..", "escape.txt"),
	}}

	snap, err := newOrchestrator(fs, f, 1).Run(context.Background(), tasks)
	if err != nil {
		t.Fatal(err)
	}
	if snap.Failed != 1 || f.callCount() != 0 {
		t.Errorf("snapshot = %+v, calls = %d", snap, f.callCount())
	}
}

func TestRunCoercesConcurrencyAndReportsProgress(t *testing.T) {
	fs := afero.NewMemMapFs()
	f := &fakeFetcher{bodies: map[string]string{"00P1": "a", "00P2": "b"}}
	rec := &progress.Recorder{}

	o := newOrchestrator(fs, f, 0)
	o.Sink = rec
	if _, err := o.Run(context.Background(), makeTasks("00P1", "00P2")); err != nil {
		t.Fatal(err)
	}
	if o.Concurrency != 1 {
		t.Errorf("Concurrency = %d, want 1", o.Concurrency)
	}

	events := rec.Downloads()
	if len(events) != 3 {
		t.Fatalf("got %d events, want start + 2", len(events))
	}
	if events[0].Completed != 0 || events[0].Total != 2 {
		t.Errorf("start event = %+v", events[0])
	}
	last := events[len(events)-1]
	if last.Completed != 2 || last.Downloaded != 2 {
		t.Errorf("last event = %+v", last)
	}
}

func TestRunCancelledContext(t *testing.T) {
	fs := afero.NewMemMapFs()
	f := &fakeFetcher{bodies: map[string]string{"00P1": "a"}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newOrchestrator(fs, f, 1).Run(ctx, makeTasks("00P1"))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
	if f.callCount() != 0 {
		t.Errorf("fetch calls = %d", f.callCount())
	}
}

func TestRunClearsStaleStaging(t *testing.T) {
	fs := afero.NewMemMapFs()
	stale := "/out/src/.staging/old.part"
	afero.WriteFile(fs, stale, []byte("junk"), 0644)

	f := &fakeFetcher{bodies: map[string]string{"00P1": "a"}}
	if _, err := newOrchestrator(fs, f, 1).Run(context.Background(), makeTasks("00P1")); err != nil {
		t.Fatal(err)
	}
	if ok, _ := afero.Exists(fs, stale); ok {
		t.Errorf("stale staging file %s survived", stale)
	}
}
