// Package archive mirrors a finished source directory to object storage.
// Mirroring is best effort: upload failures are logged and counted but
// never change the outcome of the download run.
package archive

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/sfextract/sf-attachments/internal/config"
	"github.com/sfextract/sf-attachments/internal/localfs"
		"github.com/sfextract/sf-attachments/internal/logging"
)

// Archiver uploads one local file under key.
type Archiver interface {
	Upload(ctx context.Context, localPath, key string) error
	// Name identifies the backend in logs, e.g. "s3://bucket".
	Name() string
}

// Result summarizes one MirrorDir call.
type Result struct {
	Uploaded int
	Failed   int
	Bytes    int64
}

// New returns the archiver selected by cfg.ArchiveBackend, or nil when
// archiving is disabled.
func New(ctx context.Context, cfg *config.Config) (Archiver, error) {
	switch strings.ToLower(cfg.ArchiveBackend) {
	case config.ArchiveNone:
		return nil, nil
	case config.ArchiveS3:
		a, err := NewS3Archiver(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return a, nil
	case config.ArchiveAzure:
		a, err := NewAzureArchiver(cfg)
		if err != nil {
			return nil, err
		}
		return a, nil
	default:
		return nil, fmt.Errorf("unsupported archive backend: %s", cfg.ArchiveBackend)
	}
}

// MirrorDir uploads every regular file under dir, keyed as
// prefix/<path relative to dir's parent>. Hidden entries below dir, such
// as the staging directory, are skipped.
func MirrorDir(ctx context.Context, fs afero.Fs, a Archiver, dir, prefix string, logger *logging.Logger) (Result, error) {
	var res Result
	if a == nil {
		return res, nil
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	root := filepath.Dir(filepath.Clean(dir))

	err := afero.Walk(fs, dir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if p != dir && localfs.IsHiddenName(info.Name()) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info.IsDir() {
			return nil
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		key := objectKey(prefix, rel)

		if err := a.Upload(ctx, p, key); err != nil {
			res.Failed++
			logger.Warn().Err(err).Str("path", p).Str("key", key).Msg("Archive upload failed")
			return nil
		}
		res.Uploaded++
		res.Bytes += info.Size()
		logger.Debug().Str("path", p).Str("key", key).Msg("Archived")
		return nil
	})
	if err != nil {
		return res, fmt.Errorf("failed to walk %s: %w", dir, err)
	}

	logger.Info().
		Str("backend", a.Name()).
		Int("uploaded", res.Uploaded).
		Int("failed", res.Failed).
		Int64("bytes", res.Bytes).
		Msg("Archive mirror complete")
	return res, nil
}

// objectKey joins prefix and a relative OS path with forward slashes.
func objectKey(prefix, rel string) string {
	rel = filepath.ToSlash(rel)
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return rel
	}
	return path.Join(prefix, rel)
}
