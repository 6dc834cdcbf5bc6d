package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/sfextract/sf-attachments/internal/workflow"
)

// newQueryCmd creates the 'query' command.
func newQueryCmd() *cobra.Command {
	var f runFlags

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Select attachments with paginated queries and download them",
		Long: `Query attachments directly, without a records directory, using
LIMIT/OFFSET pagination. The ParentId filter narrows the selection.

Without --target a single page of --limit records is fetched. With --target
pages are fetched until that many matching attachments are collected; in
exact mode the result is trimmed to the target, in minimum mode whole pages
are kept. Pagination stops at the platform OFFSET limit of 2000.

Results are written to <output-dir>/query/.

Examples:
  # First 100 attachments on accounts
  sf-attachments query --parent-prefix 001

  # 500 attachments on two specific records
  sf-attachments query --parent-ids 001xx000003DGb1,001xx000003DGb2 --filter-strategy soql --target 500`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(GetContext(), cmd, &f)
			if err != nil {
				return err
			}
			return runWorkflow(cfg, func(ctx context.Context, c *workflow.Coordinator) (*workflow.Report, error) {
				return c.RunQuery(ctx)
			})
		},
	}

	f.addCommon(cmd)
	f.addFilter(cmd)
	f.addPaging(cmd)

	return cmd
}
