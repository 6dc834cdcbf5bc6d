package progress

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/sfextract/sf-attachments/internal/models"
)

type panicSink struct{}

func (panicSink) DiscoveryProgress(DiscoveryEvent) { panic("discovery") }
func (panicSink) BatchProgress(BatchEvent)         { panic("batch") }
func (panicSink) DownloadProgress(DownloadEvent)   { panic("download") }

func TestSafeRecoversPanics(t *testing.T) {
	s := Safe(panicSink{})

	// None of these may propagate.
	s.DiscoveryProgress(DiscoveryEvent{Source: "a"})
	s.BatchProgress(BatchEvent{Source: "a"})
	s.DownloadProgress(DownloadEvent{Source: "a"})
}

func TestSafeNilAndIdempotent(t *testing.T) {
	if _, ok := Safe(nil).(NoOp); !ok {
		t.Error("Safe(nil) should return NoOp")
	}

	once := Safe(&Recorder{})
	twice := Safe(once)
	if _, ok := twice.(safeSink); !ok {
		t.Fatalf("Safe(Safe(x)) = %T", twice)
	}
	if twice.(safeSink).inner != once.(safeSink).inner {
		t.Error("Safe should not double wrap")
	}
}

func TestRecorderConcurrent(t *testing.T) {
	r := &Recorder{}
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r.DownloadProgress(DownloadEvent{Completed: i})
		}(i)
	}
	wg.Wait()

	if got := len(r.Downloads()); got != 50 {
		t.Errorf("recorded %d events, want 50", got)
	}
}

func TestCLISinkPlainOutput(t *testing.T) {
	var buf bytes.Buffer
	s := newWriterSink(&buf)

	s.DiscoveryProgress(DiscoveryEvent{Source: "accounts", SourceIndex: 0, SourceCount: 2, Records: 3})
	s.BatchProgress(BatchEvent{Source: "accounts", BatchIndex: 0, BatchCount: 2, Found: 4, Merged: 4})
	s.BatchProgress(BatchEvent{Source: "accounts", BatchIndex: 1, BatchCount: 2, Err: errors.New("boom")})
	s.DownloadProgress(DownloadEvent{Source: "accounts", Total: 2})
	s.DownloadProgress(DownloadEvent{
		Source: "accounts", AttachmentID: "00P1", Name: "a.pdf",
		State: models.TaskFailed, Err: errors.New("not found"),
		Completed: 1, Total: 2, Failed: 1,
	})
	s.DownloadProgress(DownloadEvent{
		Source: "accounts", AttachmentID: "00P2", Name: "b.pdf",
		State: models.TaskDownloaded, Completed: 2, Total: 2, Downloaded: 1, Failed: 1,
	})
	s.Close()

	out := buf.String()
	for _, want := range []string{
		"[1/2] accounts: 3 records",
		"batch 1/2: 4 found, 4 new",
		"batch 2/2: boom",
		"downloading 2 attachments",
		"a.pdf (00P1): not found",
		"1 downloaded, 0 skipped, 1 failed",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestCLISinkZeroTotalPrintsNothing(t *testing.T) {
	var buf bytes.Buffer
	s := newWriterSink(&buf)
	s.DownloadProgress(DownloadEvent{Source: "empty", Total: 0})
	if buf.Len() != 0 {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestCLISinkPagedQuery(t *testing.T) {
	var buf bytes.Buffer
	s := newWriterSink(&buf)
	s.BatchProgress(BatchEvent{Source: "query", BatchIndex: 0, Found: 100, Merged: 12})
	s.BatchProgress(BatchEvent{Source: "query", BatchIndex: 1, Found: 40, Merged: 3})
	s.Close()

	out := buf.String()
	for _, want := range []string{"page 1: 100 fetched, 12 kept", "page 2: 40 fetched, 3 kept"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestCLISinkWriterForwards(t *testing.T) {
	var buf bytes.Buffer
	s := newWriterSink(&buf)
	if _, err := s.Writer().Write([]byte("log line\n")); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "log line\n" {
		t.Errorf("got %q", buf.String())
	}
}
