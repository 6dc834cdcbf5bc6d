package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/sfextract/sf-attachments/internal/workflow"
)

// newDownloadCmd creates the 'download' command.
func newDownloadCmd() *cobra.Command {
	var (
		f            runFlags
		metadataFile string
	)

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download the attachments listed in a metadata CSV",
		Long: `Download attachment bodies for an existing metadata CSV, such as one
written by a previous extract or query run. No queries are issued.

Files are written to <output-dir>/<metadata file name>/files/ and existing
files are skipped.

Example:
  sf-attachments download --metadata ./output/accounts/metadata/attachments_20240301_123000_merged.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(GetContext(), cmd, &f)
			if err != nil {
				return err
			}
			return runWorkflow(cfg, func(ctx context.Context, c *workflow.Coordinator) (*workflow.Report, error) {
				return c.RunMetadata(ctx, metadataFile)
			})
		},
	}

	f.addCommon(cmd)
	cmd.Flags().StringVarP(&metadataFile, "metadata", "m", "", "Metadata CSV to download (required)")
	_ = cmd.MarkFlagRequired("metadata")

	return cmd
}
