package cli

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sfextract/sf-attachments/internal/config"
	"github.com/sfextract/sf-attachments/internal/http"
)

// runFlags holds the per-workflow flags. Only flags the user actually set
// override the file and environment layers.
type runFlags struct {
	org         string
	outputDir   string
	workers     int
	noDiskCheck bool
	rps         float64
	archive     string

	recordsDir string
	batchSize  int

	prefixes       []string
	parentIDs      []string
	filterStrategy string

	limit      int
	target     int
	targetMode string
}

func (f *runFlags) addCommon(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.org, "org", "", "sf CLI org alias or username (default: sf default org)")
	cmd.Flags().StringVarP(&f.outputDir, "output-dir", "o", "", "Output directory (default ./output)")
	cmd.Flags().IntVarP(&f.workers, "workers", "w", 0, "Concurrent downloads per source (default 1)")
	cmd.Flags().BoolVar(&f.noDiskCheck, "no-disk-check", false, "Skip the free disk space check")
	cmd.Flags().Float64Var(&f.rps, "rps", 0, "REST requests per second (0 disables pacing)")
	cmd.Flags().StringVar(&f.archive, "archive", "", "Mirror downloads to a bucket: s3 or azure")
}

func (f *runFlags) addFilter(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&f.prefixes, "parent-prefix", nil, "Keep attachments whose ParentId starts with one of these prefixes")
	cmd.Flags().StringSliceVar(&f.parentIDs, "parent-ids", nil, "Keep attachments with exactly these ParentIds")
	cmd.Flags().StringVar(&f.filterStrategy, "filter-strategy", "", "Where to filter: local (after fetching) or soql (in the query)")
}

func (f *runFlags) addBatch(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.recordsDir, "records-dir", "r", "", "Directory of CSV files with parent record ids")
	cmd.Flags().IntVarP(&f.batchSize, "batch-size", "b", 0, "Parent ids per metadata query (default 100)")
}

func (f *runFlags) addPaging(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.limit, "limit", 0, "Page size for each query (default 100)")
	cmd.Flags().IntVar(&f.target, "target", 0, "Number of attachments to collect across pages (0 = one page)")
	cmd.Flags().StringVar(&f.targetMode, "target-mode", "", "exact (trim to target) or minimum (keep whole pages)")
}

// apply copies every changed flag onto cfg.
func (f *runFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	changed := cmd.Flags().Changed

	if changed("org") {
		cfg.OrgAlias = f.org
	}
	if changed("output-dir") {
		cfg.OutputDir = f.outputDir
	}
	if changed("workers") {
		cfg.Concurrency = f.workers
	}
	if changed("no-disk-check") {
		cfg.CheckDiskSpace = !f.noDiskCheck
	}
	if changed("rps") {
		cfg.RequestsPerSecond = f.rps
	}
	if changed("archive") {
		cfg.ArchiveBackend = strings.ToLower(f.archive)
	}
	if changed("records-dir") {
		cfg.RecordsDir = f.recordsDir
	}
	if changed("batch-size") {
		cfg.BatchSize = f.batchSize
	}
	if changed("parent-prefix") {
		cfg.ParentIDPrefixes = trimAll(f.prefixes)
	}
	if changed("parent-ids") {
		cfg.ParentIDs = trimAll(f.parentIDs)
	}
	if changed("filter-strategy") {
		cfg.FilterStrategy = strings.ToLower(f.filterStrategy)
	}
	if changed("limit") {
		cfg.QueryLimit = f.limit
	}
	if changed("target") {
		cfg.TargetCount = f.target
	}
	if changed("target-mode") {
		cfg.TargetMode = strings.ToLower(f.targetMode)
	}
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// loadConfig layers defaults, the config CSV, the environment and the
// changed flags, then validates the result.
func loadConfig(ctx context.Context, cmd *cobra.Command, f *runFlags) (*config.Config, error) {
	configPath := cfgFile
	if configPath == "" {
		configPath = config.DefaultConfigPath()
	}
	opts := config.LoadOptions{
		ConfigFile:      configPath,
		EnvFile:         envFile,
		EnvFileRequired: envFile != "",
	}
	if opts.EnvFile == "" {
		opts.EnvFile = config.DefaultEnvFile
	}

	cfg, err := config.Load(ctx, opts)
	if err != nil {
		return nil, err
	}
	if logFile != "" {
		cfg.LogFile = logFile
	}
	if f != nil {
		f.apply(cmd, cfg)
	}

	if http.NeedsProxyPassword(cfg) && stdinIsTerminal() {
		pw, err := promptPassword("Proxy password for " + cfg.ProxyUser + ": ")
		if err != nil {
			return nil, err
		}
		cfg.ProxyPassword = pw
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
