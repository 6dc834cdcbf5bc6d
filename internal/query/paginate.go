package query

import (
	"context"
	"errors"
	"fmt"

	"github.com/sfextract/sf-attachments/internal/config"
	"github.com/sfextract/sf-attachments/internal/constants"
	"github.com/sfextract/sf-attachments/internal/logging"
	"github.com/sfextract/sf-attachments/internal/models"
)

// ErrOffsetLimit is returned when reaching the target would need an OFFSET
// beyond what SOQL allows.
var ErrOffsetLimit = errors.New("SOQL OFFSET limit exceeded")

// MaxOffset is the largest OFFSET SOQL accepts.
const MaxOffset = constants.MaxQueryOffset

// Pager fetches one page of Attachment rows.
type Pager interface {
	QueryPage(ctx context.Context, where string, limit, offset int) ([]models.AttachmentRecord, error)
}

// PaginateOptions control Paginate.
type PaginateOptions struct {
	Target   int    // records wanted, must be positive
	PageSize int    // LIMIT per request
	Mode     string // config.TargetModeExact or config.TargetModeMinimum
	Filter   *ParentIDFilter
	Logger   *logging.Logger
	// OnPage, when set, is called after each page with its zero-based
	// index, the raw row count and the count kept after filtering.
	OnPage func(page, fetched, kept int)
}

// Paginate pages through Attachment rows with LIMIT/OFFSET until Target
// matching records are collected or the data runs out.
//
// With the local filter strategy each page is filtered locally and paging
// continues until enough matches accumulate. In exact mode the result is
// trimmed to Target; in minimum mode the last page is kept whole.
func Paginate(ctx context.Context, pager Pager, opts PaginateOptions) ([]models.AttachmentRecord, error) {
	if opts.Target <= 0 {
		return nil, &models.ConfigurationError{Field: "target_count", Message: fmt.Sprintf("must be positive, got %d", opts.Target)}
	}
	if opts.PageSize <= 0 {
		return nil, &models.ConfigurationError{Field: "query_limit", Message: fmt.Sprintf("must be positive, got %d", opts.PageSize)}
	}
	if opts.Mode == "" {
		opts.Mode = config.TargetModeExact
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	where := opts.Filter.WhereClause()

	var (
		results []models.AttachmentRecord
		offset  int
		page    int
	)

	for len(results) < opts.Target {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if offset > MaxOffset {
			return nil, fmt.Errorf("%w: offset %d > %d after %d records; reduce the target count",
				ErrOffsetLimit, offset, MaxOffset, len(results))
		}

		logger.Info().Int("page", page+1).Int("offset", offset).Int("limit", opts.PageSize).Msg("Fetching page")

		rows, err := pager.QueryPage(ctx, where, opts.PageSize, offset)
		if err != nil {
			return nil, fmt.Errorf("page %d (offset %d): %w", page+1, offset, err)
		}
		if len(rows) == 0 {
			logger.Info().Int("page", page+1).Msg("Empty page, no more records")
			break
		}

		kept := opts.Filter.Apply(rows)
		if opts.OnPage != nil {
			opts.OnPage(page, len(rows), len(kept))
		}
		results = append(results, kept...)

		offset += opts.PageSize
		page++

		if len(rows) < opts.PageSize {
			break
		}
	}

	if opts.Mode == config.TargetModeExact && len(results) > opts.Target {
		logger.Info().Int("fetched", len(results)).Int("target", opts.Target).Msg("Trimming to target")
		results = results[:opts.Target]
	}
	if len(results) < opts.Target {
		logger.Warn().Int("fetched", len(results)).Int("target", opts.Target).Msg("Fewer records than target; all available records retrieved")
	}

	return results, nil
}
