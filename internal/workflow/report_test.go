package workflow

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/sfextract/sf-attachments/internal/stats"
)

func TestReportExitCode(t *testing.T) {
	tests := []struct {
		name   string
		report Report
		want   int
	}{
		{"empty", Report{}, 0},
		{"all ok", Report{Sources: []SourceResult{{Status: StatusOK}, {Status: StatusSkipped}}}, 0},
		{"partial", Report{Sources: []SourceResult{{Status: StatusOK}, {Status: StatusPartial}}}, 1},
		{"failed source", Report{Sources: []SourceResult{{Status: StatusFailed}}}, 1},
		{"fatal", Report{Fatal: errors.New("auth"), Sources: []SourceResult{{Status: StatusPartial}}}, 2},
		{"interrupted wins", Report{Interrupted: true, Fatal: errors.New("auth")}, 130},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.report.ExitCode(); got != tt.want {
				t.Errorf("ExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestReportWriteSummary(t *testing.T) {
	var r Report
	r.add(SourceResult{Name: "accounts", Records: 10, Batches: 1, Attachments: 3, Status: StatusPartial,
		Stats: stats.Snapshot{Downloaded: 2, Failed: 1, Bytes: 2048, Errors: []stats.TaskError{{AttachmentID: "00P9", Name: "x.pdf", Err: errors.New("not found")}}}})
	r.add(SourceResult{Name: "empty", Status: StatusSkipped})
	r.add(SourceResult{Name: "filtered", Records: 4, Batches: 1, Status: StatusSkipped})

	var buf bytes.Buffer
	r.WriteSummary(&buf)
	out := buf.String()
	for _, want := range []string{
		"accounts: 3 attachments, 2 downloaded, 0 skipped, 1 failed",
		"empty: no records, skipped",
		"filtered: no attachments to download, skipped",
		"CSV files: 3  Records: 14  Batches: 2  Attachments: 3",
		"Downloaded: 2 (2.0 KiB)",
		"x.pdf (00P9): not found",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}
