package workflow

import (
	"fmt"
	"io"
	"time"

	"github.com/sfextract/sf-attachments/internal/constants"
	"github.com/sfextract/sf-attachments/internal/stats"
)

// Status is the outcome of one source.
type Status string

const (
	StatusOK      Status = "ok"
	StatusSkipped Status = "skipped" // no records or no attachments to download
	StatusPartial Status = "partial" // some downloads failed
	StatusFailed  Status = "failed"  // the source was abandoned
)

// SourceResult summarizes one record source.
type SourceResult struct {
	Name         string
	Records      int // parent ids read
	Batches      int
	Attachments  int // unique attachments after merge and filter
	Duplicates   int
	Collisions   int
	MetadataPath string
	Stats        stats.Snapshot
	Status       Status
	Err          error
}

// Report is the outcome of one run.
type Report struct {
	RunID       string
	Started     time.Time
	Finished    time.Time
	Sources     []SourceResult
	Totals      stats.Snapshot
	Fatal       error
	Interrupted bool
}

func (r *Report) add(res SourceResult) {
	r.Sources = append(r.Sources, res)
	r.Totals = r.Totals.Add(res.Stats)
}

// ExitCode maps the report to the process exit status: 130 when
// interrupted, 2 after a fatal error, 1 when any source failed or any
// download failed, 0 otherwise.
func (r *Report) ExitCode() int {
	if r.Interrupted {
		return constants.ExitInterrupted
	}
	if r.Fatal != nil {
		return constants.ExitFatal
	}
	for _, s := range r.Sources {
		if s.Status == StatusFailed || s.Status == StatusPartial {
			return constants.ExitPartialFailure
		}
	}
	return constants.ExitSuccess
}

// WriteSummary prints a human readable run summary.
func (r *Report) WriteSummary(w io.Writer) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Summary")
	fmt.Fprintln(w, "-------")

	var records, batches, attachments int
	for _, s := range r.Sources {
		records += s.Records
		batches += s.Batches
		attachments += s.Attachments

		switch s.Status {
		case StatusSkipped:
			if s.Records == 0 {
				fmt.Fprintf(w, "  - %s: no records, skipped\n", s.Name)
			} else {
				fmt.Fprintf(w, "  - %s: no attachments to download, skipped\n", s.Name)
			}
		case StatusFailed:
			fmt.Fprintf(w, "  ✗ %s: %v\n", s.Name, s.Err)
		default:
			mark := "✓"
			if s.Status == StatusPartial {
				mark = "⚠"
			}
			fmt.Fprintf(w, "  %s %s: %d attachments, %d downloaded, %d skipped, %d failed\n",
				mark, s.Name, s.Attachments, s.Stats.Downloaded, s.Stats.Skipped, s.Stats.Failed)
		}
	}

	fmt.Fprintf(w, "\nCSV files: %d  Records: %d  Batches: %d  Attachments: %d\n",
		len(r.Sources), records, batches, attachments)
	fmt.Fprintf(w, "Downloaded: %d (%s)  Skipped: %d  Failed: %d\n",
		r.Totals.Downloaded, formatBytes(r.Totals.Bytes), r.Totals.Skipped, r.Totals.Failed)
	if !r.Finished.IsZero() {
		fmt.Fprintf(w, "Elapsed: %s\n", r.Finished.Sub(r.Started).Round(time.Second))
	}

	if len(r.Totals.Errors) > 0 {
		fmt.Fprintln(w, "\nFailed downloads:")
		for _, e := range r.Totals.Errors {
			fmt.Fprintf(w, "  %s (%s): %v\n", e.Name, e.AttachmentID, e.Err)
		}
	}
	if r.Fatal != nil {
		fmt.Fprintf(w, "\nAborted: %v\n", r.Fatal)
	}
	if r.Interrupted {
		fmt.Fprintln(w, "\nInterrupted")
	}
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
