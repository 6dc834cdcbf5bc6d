// Package workflow drives a run end to end: read record sources, query
// attachment metadata in batches, merge, persist the metadata artifact and
// download the bodies. Each source is handled independently so one bad
// source does not stop the others.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/sfextract/sf-attachments/internal/archive"
	"github.com/sfextract/sf-attachments/internal/batch"
	"github.com/sfextract/sf-attachments/internal/config"
	"github.com/sfextract/sf-attachments/internal/constants"
	"github.com/sfextract/sf-attachments/internal/download"
	"github.com/sfextract/sf-attachments/internal/logging"
	"github.com/sfextract/sf-attachments/internal/metadata"
	"github.com/sfextract/sf-attachments/internal/models"
	"github.com/sfextract/sf-attachments/internal/progress"
	"github.com/sfextract/sf-attachments/internal/query"
	"github.com/sfextract/sf-attachments/internal/records"
	"github.com/sfextract/sf-attachments/internal/stats"
)

// QuerySourceName names the single source produced by the query workflow.
const QuerySourceName = "query"

// Querier fetches attachment metadata.
type Querier interface {
	QueryByParentIDs(ctx context.Context, parentIDs []string) ([]models.AttachmentRecord, error)
	QueryPage(ctx context.Context, where string, limit, offset int) ([]models.AttachmentRecord, error)
}

// Coordinator runs the workflows. Config, Querier and Fetcher are required.
type Coordinator struct {
	Config  *config.Config
	Querier Querier
	Fetcher download.Fetcher

	// Sources overrides discovery under Config.RecordsDir when set.
	Sources []records.Source

	Sink     progress.Sink
	Logger   *logging.Logger
	Archiver archive.Archiver
	Fs       afero.Fs
	Now      func() time.Time

	filter *query.ParentIDFilter
}

func (c *Coordinator) init() (*Report, error) {
	if c.Fs == nil {
		c.Fs = afero.NewOsFs()
	}
	if c.Logger == nil {
		c.Logger = logging.NewNop()
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	c.Sink = progress.Safe(c.Sink)

	report := &Report{RunID: uuid.NewString(), Started: c.Now()}
	c.Logger = c.Logger.WithField("run_id", report.RunID)

	filter, warnings, err := query.ParseFilter(c.Config.ParentIDPrefixes, c.Config.ParentIDs, c.Config.FilterStrategy)
	if err != nil {
		return report, err
	}
	for _, w := range warnings {
		c.Logger.Warn().Msg(w)
	}
	if filter.HasFilters() {
		c.Logger.Info().Str("filter", filter.String()).Msg("ParentId filter active")
	}
	c.filter = filter
	return report, nil
}

// finish stamps the report and translates err into its fields.
func (c *Coordinator) finish(ctx context.Context, report *Report, err error) (*Report, error) {
	report.Finished = c.Now()

	switch {
	case err == nil && ctx.Err() != nil:
		err = ctx.Err()
		report.Interrupted = true
	case errors.Is(err, context.Canceled):
		report.Interrupted = true
	case err != nil:
		report.Fatal = err
	}
	return report, err
}

// RunRecords processes every CSV of parent record ids.
func (c *Coordinator) RunRecords(ctx context.Context) (*Report, error) {
	report, err := c.init()
	if err != nil {
		return c.finish(ctx, report, err)
	}

	sources := c.Sources
	if sources == nil {
		sources, err = records.Discover(c.Fs, c.Config.RecordsDir)
		if err != nil {
			return c.finish(ctx, report, err)
		}
	}
	c.Logger.Info().Int("sources", len(sources)).Str("dir", c.Config.RecordsDir).Msg("Discovered record sources")

	for i, src := range sources {
		if ctx.Err() != nil {
			break
		}
		res, err := c.runSource(ctx, i, len(sources), src)
		report.add(res)
		if err != nil {
			return c.finish(ctx, report, err)
		}
	}
	return c.finish(ctx, report, nil)
}

func (c *Coordinator) runSource(ctx context.Context, idx, count int, src records.Source) (SourceResult, error) {
	res := SourceResult{Name: src.Name}
	logger := c.Logger.WithField("source", src.Name)

	ids, err := src.ReadIDs(c.Fs)
	c.Sink.DiscoveryProgress(progress.DiscoveryEvent{
		Source:      src.Name,
		SourceIndex: idx,
		SourceCount: count,
		Records:     len(ids),
		Err:         err,
	})
	if err != nil {
		logger.Error().Err(err).Msg("Cannot read record source")
		res.Status, res.Err = StatusFailed, err
		return res, nil
	}

	ids = batch.Dedup(ids)
	res.Records = len(ids)
	if len(ids) == 0 {
		logger.Warn().Msg("No records found, skipping")
		res.Status = StatusSkipped
		return res, nil
	}

	batches, err := batch.Split(ids, c.Config.BatchSize)
	if err != nil {
		res.Status, res.Err = StatusFailed, err
		return res, nil
	}
	res.Batches = len(batches)
	logger.Info().Int("records", len(ids)).Int("batches", len(batches)).Int("batch_size", c.Config.BatchSize).Msg("Querying attachment metadata")

	merged := metadata.NewMerged(src.Name)
	for i, b := range batches {
		rows, err := c.Querier.QueryByParentIDs(ctx, b)
		if err != nil {
			if ctx.Err() != nil {
				res.Status, res.Err = StatusFailed, ctx.Err()
				return res, ctx.Err()
			}
			bqe := &models.BatchQueryError{BatchIndex: i, Cause: err, TooLong: errors.Is(err, query.ErrTooLong)}
			c.Sink.BatchProgress(progress.BatchEvent{Source: src.Name, BatchIndex: i, BatchCount: len(batches), BatchSize: len(b), Err: bqe})

			event := logger.Error().Err(err).Int("batch", i+1).Int("batch_size", len(b))
			if bqe.TooLong {
				event.Msg("Metadata query too long; reduce --batch-size")
			} else {
				event.Msg("Metadata query failed; skipping source")
			}
			res.Status, res.Err = StatusFailed, bqe
			return res, nil
		}

		kept := c.filter.Apply(rows)
		added := merged.MergeBatch(i, kept)
		c.Sink.BatchProgress(progress.BatchEvent{
			Source:     src.Name,
			BatchIndex: i,
			BatchCount: len(batches),
			BatchSize:  len(b),
			Found:      len(rows),
			Merged:     added,
		})
		logger.Debug().Int("batch", i+1).Int("found", len(rows)).Int("kept", len(kept)).Int("added", added).Msg("Batch merged")
	}

	return c.finishSource(ctx, res, merged, true)
}

// RunQuery selects attachments directly with the ParentId filter and
// LIMIT/OFFSET pagination, then downloads them as one source.
func (c *Coordinator) RunQuery(ctx context.Context) (*Report, error) {
	report, err := c.init()
	if err != nil {
		return c.finish(ctx, report, err)
	}

	res := SourceResult{Name: QuerySourceName}
	logger := c.Logger.WithField("source", QuerySourceName)

	var rows []models.AttachmentRecord
	if c.Config.TargetCount > 0 {
		logger.Info().Int("target", c.Config.TargetCount).Str("mode", c.Config.TargetMode).Int("page_size", c.Config.QueryLimit).Msg("Paginating attachments")
		rows, err = query.Paginate(ctx, c.Querier, query.PaginateOptions{
			Target:   c.Config.TargetCount,
			PageSize: c.Config.QueryLimit,
			Mode:     c.Config.TargetMode,
			Filter:   c.filter,
			Logger:   logger,
			OnPage: func(page, fetched, kept int) {
				res.Batches++
				c.Sink.BatchProgress(progress.BatchEvent{Source: QuerySourceName, BatchIndex: page, BatchSize: fetched, Found: fetched, Merged: kept})
			},
		})
	} else {
		res.Batches = 1
		rows, err = c.Querier.QueryPage(ctx, c.filter.WhereClause(), c.Config.QueryLimit, 0)
		if err == nil {
			rows = c.filter.Apply(rows)
			c.Sink.BatchProgress(progress.BatchEvent{Source: QuerySourceName, BatchCount: 1, BatchSize: len(rows), Found: len(rows), Merged: len(rows)})
		}
	}
	if err != nil {
		if ctx.Err() != nil {
			res.Status, res.Err = StatusFailed, ctx.Err()
			report.add(res)
			return c.finish(ctx, report, ctx.Err())
		}
		logger.Error().Err(err).Msg("Attachment query failed")
		res.Status, res.Err = StatusFailed, err
		report.add(res)
		if models.IsFatal(err) {
			return c.finish(ctx, report, err)
		}
		return c.finish(ctx, report, nil)
	}

	merged := metadata.NewMerged(QuerySourceName)
	merged.MergeBatch(0, rows)

	res, err = c.finishSource(ctx, res, merged, true)
	report.add(res)
	return c.finish(ctx, report, err)
}

// RunMetadata downloads the attachments listed in an existing metadata CSV.
func (c *Coordinator) RunMetadata(ctx context.Context, path string) (*Report, error) {
	report, err := c.init()
	if err != nil {
		return c.finish(ctx, report, err)
	}

	recs, err := metadata.ReadCSV(c.Fs, path)
	if err != nil {
		return c.finish(ctx, report, err)
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	res := SourceResult{Name: name, Records: len(recs), Batches: 1, MetadataPath: path}

	merged := metadata.NewMerged(name)
	merged.MergeBatch(0, c.filter.Apply(recs))
	c.Logger.Info().Str("path", path).Int("rows", len(recs)).Int("attachments", merged.Len()).Msg("Loaded metadata CSV")

	res, err = c.finishSource(ctx, res, merged, false)
	report.add(res)
	return c.finish(ctx, report, err)
}

// finishSource persists metadata (when writeMetadata), downloads every
// merged entry and mirrors the source directory. A source with nothing
// merged is skipped without writing anything. The returned error is
// non-nil only when the run must stop.
func (c *Coordinator) finishSource(ctx context.Context, res SourceResult, merged *metadata.Merged, writeMetadata bool) (SourceResult, error) {
	logger := c.Logger.WithField("source", merged.Source)

	res.Attachments = merged.Len()
	res.Duplicates = merged.Duplicates()
	res.Collisions = merged.Collisions()

	if res.Attachments == 0 {
		logger.Warn().Int("records", res.Records).Msg("No attachments to download, skipping")
		res.Status = StatusSkipped
		return res, nil
	}

	sourceDir := filepath.Join(c.Config.OutputDir, merged.Source)
	filesDir := filepath.Join(sourceDir, constants.FilesDirName)

	if writeMetadata {
		path, err := metadata.Finalize(c.Fs, filepath.Join(sourceDir, constants.MetadataDirName), merged, c.Now())
		if err != nil {
			logger.Error().Err(err).Msg("Failed to write metadata")
			res.Status, res.Err = StatusFailed, err
			return res, nil
		}
		res.MetadataPath = path
		logger.Info().
			Str("path", path).
			Int("attachments", res.Attachments).
			Int("duplicates", res.Duplicates).
			Int("collisions", res.Collisions).
			Msg("Metadata written")
	}

	entries := merged.Entries()
	tasks := make([]models.DownloadTask, len(entries))
	for i, e := range entries {
		tasks[i] = models.DownloadTask{
			Record:          e.Record,
			DestinationPath: filepath.Join(filesDir, e.FileName),
		}
	}

	orch := &download.Orchestrator{
		Fetcher:        c.Fetcher,
		Concurrency:    c.Config.Concurrency,
		StagingDir:     filepath.Join(sourceDir, constants.StagingDirName),
		OutputDir:      filesDir,
		Source:         merged.Source,
		Sink:           c.Sink,
		Logger:         logger,
		Stats:          stats.NewAggregator(),
		Fs:             c.Fs,
		CheckDiskSpace: c.Config.CheckDiskSpace,
		ChunkSize:      c.Config.ChunkSize,
	}
	snap, err := orch.Run(ctx, tasks)
	res.Stats = snap

	switch {
	case err == nil:
	case models.IsFatal(err):
		logger.Error().Err(err).Msg("Fatal transport error, aborting run")
		res.Status, res.Err = StatusFailed, err
		return res, err
	case ctx.Err() != nil:
		res.Status, res.Err = StatusFailed, ctx.Err()
		return res, ctx.Err()
	default:
		logger.Error().Err(err).Msg("Download phase failed")
		res.Status, res.Err = StatusFailed, err
		return res, nil
	}

	res.Status = StatusOK
	if snap.Failed > 0 {
		res.Status = StatusPartial
		res.Err = fmt.Errorf("%d of %d downloads failed", snap.Failed, len(tasks))
	}

	logger.Info().
		Int64("downloaded", snap.Downloaded).
		Int64("skipped", snap.Skipped).
		Int64("failed", snap.Failed).
		Int64("bytes", snap.Bytes).
		Msg("Source complete")

	if c.Archiver != nil {
		if _, err := archive.MirrorDir(ctx, c.Fs, c.Archiver, sourceDir, c.Config.ArchivePrefix, logger); err != nil {
			logger.Warn().Err(err).Msg("Archive mirror incomplete")
		}
	}

	return res, nil
}
