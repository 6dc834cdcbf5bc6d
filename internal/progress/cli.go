package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"golang.org/x/term"

	"github.com/sfextract/sf-attachments/internal/constants"
	"github.com/sfextract/sf-attachments/internal/models"
)

// CLISink renders progress on a terminal.
// Batch queries get a single-line progressbar, downloads get an mpb bar
// with live counters. When the output is not a terminal, plain lines are
// printed instead.
type CLISink struct {
	mu  sync.Mutex
	out io.Writer
	tty bool

	batchBar    *progressbar.ProgressBar
	batchSource string

	dl       *mpb.Progress
	dlBar    *mpb.Bar
	dlSource string
}

// NewCLISink creates a sink writing to f (normally os.Stderr).
func NewCLISink(f *os.File) *CLISink {
	tty := term.IsTerminal(int(f.Fd()))
	if tty {
		enableVirtualTerminal(f)
	}
	return &CLISink{out: f, tty: tty}
}

// newWriterSink is used by tests to capture plain output.
func newWriterSink(w io.Writer) *CLISink {
	return &CLISink{out: w}
}

// IsTerminal reports whether bars are rendered.
func (c *CLISink) IsTerminal() bool {
	return c.tty
}

// LogWriter returns a writer that prints above active bars.
func (c *CLISink) LogWriter() io.Writer {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dl != nil {
		return c.dl
	}
	return c.out
}

// Writer returns an io.Writer that always forwards to the current
// LogWriter, so a logger can be pointed at it once for the whole run.
func (c *CLISink) Writer() io.Writer {
	return logWriter{c}
}

type logWriter struct{ sink *CLISink }

func (w logWriter) Write(p []byte) (int, error) {
	return w.sink.LogWriter().Write(p)
}

func (c *CLISink) DiscoveryProgress(e DiscoveryEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e.Err != nil {
		fmt.Fprintf(c.out, "✗ [%d/%d] %s: %v\n", e.SourceIndex+1, e.SourceCount, e.Source, e.Err)
		return
	}
	fmt.Fprintf(c.out, "📄 [%d/%d] %s: %d records\n", e.SourceIndex+1, e.SourceCount, e.Source, e.Records)
}

func (c *CLISink) BatchProgress(e BatchEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Paginated queries do not know their page count up front
	if e.BatchCount <= 0 {
		c.pageProgress(e)
		return
	}

	if !c.tty {
		if e.Err != nil {
			fmt.Fprintf(c.out, "  batch %d/%d: %v\n", e.BatchIndex+1, e.BatchCount, e.Err)
			return
		}
		fmt.Fprintf(c.out, "  batch %d/%d: %d found, %d new\n", e.BatchIndex+1, e.BatchCount, e.Found, e.Merged)
		return
	}

	if c.batchBar == nil || c.batchSource != e.Source {
		c.batchSource = e.Source
		c.batchBar = progressbar.NewOptions(e.BatchCount,
			progressbar.OptionSetDescription(fmt.Sprintf("[%s] querying", e.Source)),
			progressbar.OptionSetWriter(c.out),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(40),
			progressbar.OptionThrottle(65*time.Millisecond),
			progressbar.OptionSetRenderBlankState(true),
			progressbar.OptionOnCompletion(func() {
				fmt.Fprint(c.out, "\n")
			}),
		)
	}

	if e.Err != nil {
		fmt.Fprintf(c.out, "\n✗ batch %d/%d: %v\n", e.BatchIndex+1, e.BatchCount, e.Err)
		c.batchBar = nil
		return
	}

	_ = c.batchBar.Set(e.BatchIndex + 1)
	if e.BatchIndex+1 >= e.BatchCount {
		_ = c.batchBar.Finish()
		c.batchBar = nil
	}
}

func (c *CLISink) pageProgress(e BatchEvent) {
	if !c.tty {
		fmt.Fprintf(c.out, "  page %d: %d fetched, %d kept\n", e.BatchIndex+1, e.Found, e.Merged)
		return
	}
	if c.batchBar == nil || c.batchSource != e.Source {
		c.batchSource = e.Source
		c.batchBar = progressbar.NewOptions(-1,
			progressbar.OptionSetDescription(fmt.Sprintf("[%s] paging", e.Source)),
			progressbar.OptionSetWriter(c.out),
			progressbar.OptionShowCount(),
			progressbar.OptionSpinnerType(14),
		)
	}
	_ = c.batchBar.Add(1)
}

func (c *CLISink) DownloadProgress(e DownloadEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e.AttachmentID == "" {
		c.startDownloads(e)
		return
	}

	if e.State == models.TaskFailed {
		c.print(fmt.Sprintf("✗ %s (%s): %v\n", e.Name, e.AttachmentID, e.Err))
	}

	if c.dlBar != nil {
		c.dlBar.SetCurrent(int64(e.Completed))
	}

	if e.Completed >= e.Total {
		c.finishDownloads()
		fmt.Fprintf(c.out, "✓ [%s] %d downloaded, %d skipped, %d failed\n",
			e.Source, e.Downloaded, e.Skipped, e.Failed)
	}
}

// Close stops any active bar. Call once the run has ended, including on
// abort, so the terminal is left in a clean state.
func (c *CLISink) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.finishDownloads()
	if c.batchBar != nil {
		fmt.Fprint(c.out, "\n")
		c.batchBar = nil
	}
}

func (c *CLISink) startDownloads(e DownloadEvent) {
	c.finishDownloads()
	if c.batchBar != nil {
		_ = c.batchBar.Finish()
		fmt.Fprint(c.out, "\n")
		c.batchBar = nil
	}
	if e.Total == 0 {
		return
	}
	c.dlSource = e.Source

	if !c.tty {
		fmt.Fprintf(c.out, "⬇ [%s] downloading %d attachments\n", e.Source, e.Total)
		return
	}

	c.dl = mpb.New(
		mpb.WithOutput(c.out),
		mpb.WithRefreshRate(constants.ProgressRefreshRate),
		mpb.WithWidth(100),
	)
	c.dlBar = c.dl.New(int64(e.Total),
		mpb.BarStyle().
			Lbound("[").
			Filler("█").
			Tip("█").
			Padding("░").
			Rbound("]"),
		mpb.PrependDecorators(
			decor.Name(fmt.Sprintf("[%s] ", e.Source), decor.WCSyncSpace),
			decor.CountersNoUnit("%d / %d", decor.WCSyncSpace),
		),
		mpb.AppendDecorators(
			decor.Percentage(decor.WCSyncSpace),
			decor.Name("  "),
			decor.Elapsed(decor.ET_STYLE_GO),
		),
		mpb.BarRemoveOnComplete(),
	)
}

func (c *CLISink) finishDownloads() {
	if c.dl == nil {
		return
	}
	if c.dlBar != nil && !c.dlBar.Completed() {
		c.dlBar.Abort(true)
	}
	c.dl.Wait()
	c.dl = nil
	c.dlBar = nil
	c.dlSource = ""
}

// print writes through mpb when bars are live so lines land above them.
func (c *CLISink) print(msg string) {
	if c.dl != nil {
		_, _ = c.dl.Write([]byte(msg))
		return
	}
	fmt.Fprint(c.out, msg)
}
