// Package download streams attachment bodies to disk with a bounded worker
// pool. Bodies are written to a staging directory and renamed into place
// once complete, so a destination file is either absent or whole.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/sfextract/sf-attachments/internal/constants"
	"github.com/sfextract/sf-attachments/internal/diskspace"
	"github.com/sfextract/sf-attachments/internal/logging"
	"github.com/sfextract/sf-attachments/internal/models"
	"github.com/sfextract/sf-attachments/internal/progress"
	"github.com/sfextract/sf-attachments/internal/stats"
	"github.com/sfextract/sf-attachments/internal/util/buffers"
	"github.com/sfextract/sf-attachments/internal/validation"
)

// Fetcher opens the binary body of one attachment.
type Fetcher interface {
	Fetch(ctx context.Context, attachmentID string) (io.ReadCloser, error)
}

// Orchestrator runs one download phase.
type Orchestrator struct {
	Fetcher     Fetcher
	Concurrency int
	// StagingDir holds in-flight .part files. It is cleared at the start
	// of Run and removed when Run returns.
	StagingDir string
	// OutputDir is the directory every destination must stay within.
	OutputDir string
	Source    string

	Sink   progress.Sink
	Logger *logging.Logger
	Stats  *stats.Aggregator

	// Fs defaults to the OS filesystem.
	Fs             afero.Fs
	CheckDiskSpace bool
	// ChunkSize is the copy buffer size in bytes.
	ChunkSize int

	buffers *buffers.Pool
}

// taskResult is the terminal outcome of one task
type taskResult struct {
	state models.TaskState
	bytes int64
	err   error
}

// Run downloads tasks and returns the phase counters.
//
// Per-task failures are recorded and never stop sibling tasks. A
// *models.FatalTransportError cancels the phase: tasks not yet started are
// abandoned and the fatal error is returned with the partial snapshot.
func (o *Orchestrator) Run(ctx context.Context, tasks []models.DownloadTask) (stats.Snapshot, error) {
	o.applyDefaults()

	if len(tasks) == 0 {
		return o.Stats.Snapshot(), nil
	}

	if err := o.prepareStaging(); err != nil {
		return o.Stats.Snapshot(), err
	}
	defer func() {
		if err := o.Fs.RemoveAll(o.StagingDir); err != nil {
			o.Logger.Warn().Err(err).Str("path", o.StagingDir).Msg("Failed to remove staging directory")
		}
	}()

	if o.CheckDiskSpace {
		if err := o.checkSpace(tasks); err != nil {
			return o.Stats.Snapshot(), err
		}
	}

	total := len(tasks)
	o.Sink.DownloadProgress(progress.DownloadEvent{Source: o.Source, Total: total})

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		fatalOnce sync.Once
		fatalErr  error
		completed atomic.Int64
		wg        sync.WaitGroup
	)

	semaphore := make(chan struct{}, o.Concurrency)

dispatch:
	for _, task := range tasks {
		select {
		case <-runCtx.Done():
			break dispatch
		case semaphore <- struct{}{}:
		}
		if runCtx.Err() != nil {
			<-semaphore
			break dispatch
		}

		wg.Add(1)
		go func(task models.DownloadTask) {
			defer wg.Done()
			defer func() { <-semaphore }()

			res := o.downloadOne(runCtx, task)
			o.record(task, res)

			if models.IsFatal(res.err) {
				fatalOnce.Do(func() {
					fatalErr = res.err
					cancel()
				})
			}

			snap := o.Stats.Snapshot()
			o.Sink.DownloadProgress(progress.DownloadEvent{
				Source:       o.Source,
				AttachmentID: task.Record.ID,
				Name:         filepath.Base(task.DestinationPath),
				State:        res.state,
				Bytes:        res.bytes,
				Completed:    int(completed.Add(1)),
				Total:        total,
				Downloaded:   snap.Downloaded,
				Skipped:      snap.Skipped,
				Failed:       snap.Failed,
				Err:          res.err,
			})
		}(task)
	}

	wg.Wait()

	snap := o.Stats.Snapshot()
	if fatalErr != nil {
		return snap, fatalErr
	}
	if err := ctx.Err(); err != nil {
		return snap, err
	}
	return snap, nil
}

func (o *Orchestrator) applyDefaults() {
	if o.Fs == nil {
		o.Fs = afero.NewOsFs()
	}
	if o.Logger == nil {
		o.Logger = logging.NewNop()
	}
	o.Sink = progress.Safe(o.Sink)
	if o.Stats == nil {
		o.Stats = stats.NewAggregator()
	}
	if o.Concurrency < 1 {
		o.Logger.Warn().Int("workers", o.Concurrency).Msg("Download concurrency below 1, using 1")
		o.Concurrency = 1
	}
	if o.ChunkSize < 1 {
		o.ChunkSize = constants.CopyBufferSize
	}
	o.buffers = buffers.NewPool(o.ChunkSize)
	if o.StagingDir == "" {
		o.StagingDir = filepath.Join(o.OutputDir, constants.StagingDirName)
	}
}

// prepareStaging removes leftovers of an interrupted run and recreates the
// staging directory.
func (o *Orchestrator) prepareStaging() error {
	if err := o.Fs.RemoveAll(o.StagingDir); err != nil {
		return fmt.Errorf("failed to clear staging directory: %w", err)
	}
	if err := o.Fs.MkdirAll(o.StagingDir, 0755); err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}
	return nil
}

// checkSpace verifies room for every task that will actually be fetched.
func (o *Orchestrator) checkSpace(tasks []models.DownloadTask) error {
	var required int64
	for _, t := range tasks {
		if !o.exists(t.DestinationPath) {
			required += t.Record.Size
		}
	}
	return diskspace.CheckAvailableSpace(o.OutputDir, required, constants.DiskSpaceBufferPercent)
}

// exists reports whether dest is a non-empty regular file.
func (o *Orchestrator) exists(dest string) bool {
	info, err := o.Fs.Stat(dest)
	return err == nil && !info.IsDir() && info.Size() > 0
}

func (o *Orchestrator) downloadOne(ctx context.Context, task models.DownloadTask) taskResult {
	dest := task.DestinationPath
	if err := validation.ValidateDestination(dest, o.OutputDir); err != nil {
		return taskResult{state: models.TaskFailed, err: fmt.Errorf("invalid destination: %w", err)}
	}

	if o.exists(dest) {
		return taskResult{state: models.TaskSkipped}
	}

	if err := ctx.Err(); err != nil {
		return taskResult{state: models.TaskFailed, err: err}
	}

	body, err := o.Fetcher.Fetch(ctx, task.Record.ID)
	if err != nil {
		return taskResult{state: models.TaskFailed, err: err}
	}
	defer body.Close()

	n, err := o.stageAndRename(ctx, body, dest)
	if err != nil {
		return taskResult{state: models.TaskFailed, err: err}
	}
	return taskResult{state: models.TaskDownloaded, bytes: n}
}

// stageAndRename copies body into a fresh .part file and moves it to dest.
// The .part file is removed on every failure path.
func (o *Orchestrator) stageAndRename(ctx context.Context, body io.Reader, dest string) (int64, error) {
	partPath := filepath.Join(o.StagingDir, uuid.NewString()+constants.StagingFileSuffix)

	part, err := o.Fs.OpenFile(partPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return 0, fmt.Errorf("failed to create staging file: %w", err)
	}

	buf := o.buffers.Get()
	n, copyErr := io.CopyBuffer(part, &contextReader{ctx: ctx, r: body}, *buf)
	o.buffers.Put(buf)
	closeErr := part.Close()

	if copyErr != nil || closeErr != nil {
		o.Fs.Remove(partPath)
		if copyErr != nil {
			return 0, fmt.Errorf("failed to write body: %w", copyErr)
		}
		return 0, fmt.Errorf("failed to close staging file: %w", closeErr)
	}

	if err := o.Fs.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		o.Fs.Remove(partPath)
		return 0, fmt.Errorf("failed to create destination directory: %w", err)
	}
	if err := o.Fs.Rename(partPath, dest); err != nil {
		o.Fs.Remove(partPath)
		return 0, fmt.Errorf("failed to move file into place: %w", err)
	}
	return n, nil
}

func (o *Orchestrator) record(task models.DownloadTask, res taskResult) {
	id := task.Record.ID
	switch res.state {
	case models.TaskDownloaded:
		o.Stats.RecordDownloaded(res.bytes)
		o.Logger.Debug().Str("attachment_id", id).Str("path", task.DestinationPath).Int64("bytes", res.bytes).Msg("Downloaded")
	case models.TaskSkipped:
		o.Stats.RecordSkipped()
		o.Logger.Debug().Str("attachment_id", id).Str("path", task.DestinationPath).Msg("Already present, skipped")
	default:
		o.Stats.RecordFailed(id, task.Record.Name, res.err)
		if errors.Is(res.err, context.Canceled) {
			return
		}
		o.Logger.Error().Err(res.err).Str("source", o.Source).Str("attachment_id", id).Str("name", task.Record.Name).Msg("Download failed")
	}
}

// contextReader stops a copy as soon as ctx is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
