package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/sfextract/sf-attachments/internal/workflow"
)

// newExtractCmd creates the 'extract' command.
func newExtractCmd() *cobra.Command {
	var f runFlags

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Download attachments for parent ids listed in CSV files",
		Long: `Read every CSV file in the records directory, collect the parent record
ids from its first column, query their attachments in batches and download
the bodies.

Each CSV becomes one source with its own output folder:
  <output-dir>/<csv name>/metadata/attachments_<timestamp>_merged.csv
  <output-dir>/<csv name>/files/<ParentId>_<Id>_<Name>

Files that already exist are skipped, so an interrupted run can simply be
started again.

Examples:
  # All CSVs in ./records, default org
  sf-attachments extract --records-dir ./records

  # Only attachments on accounts, 4 parallel downloads
  sf-attachments extract -r ./records --parent-prefix 001 --workers 4`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(GetContext(), cmd, &f)
			if err != nil {
				return err
			}
			GetLogger().Debug().Str("records_dir", cfg.RecordsDir).Int("batch_size", cfg.BatchSize).Msg("Starting extract")
			return runWorkflow(cfg, func(ctx context.Context, c *workflow.Coordinator) (*workflow.Report, error) {
				return c.RunRecords(ctx)
			})
		},
	}

	f.addCommon(cmd)
	f.addBatch(cmd)
	f.addFilter(cmd)

	return cmd
}
