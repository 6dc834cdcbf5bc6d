package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/spf13/cobra"

	"github.com/sfextract/sf-attachments/internal/config"
	"github.com/sfextract/sf-attachments/internal/models"
)

func TestRootCommandTree(t *testing.T) {
	root := NewRootCmd()
	AddCommands(root)

	for _, name := range []string{"extract", "query", "download", "config", "completion"} {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("command %q not registered (err=%v)", name, err)
		}
	}
	for _, name := range []string{"config", "env-file", "log-file", "verbose", "debug"} {
		if root.PersistentFlags().Lookup(name) == nil {
			t.Errorf("missing persistent flag --%s", name)
		}
	}
}

func TestWorkflowFlags(t *testing.T) {
	tests := []struct {
		cmd   *cobra.Command
		has   []string
		lacks []string
	}{
		{newExtractCmd(), []string{"org", "records-dir", "batch-size", "parent-prefix", "workers", "archive"}, []string{"limit", "metadata"}},
		{newQueryCmd(), []string{"org", "limit", "target", "target-mode", "parent-ids", "filter-strategy"}, []string{"records-dir", "metadata"}},
		{newDownloadCmd(), []string{"metadata", "output-dir", "no-disk-check", "rps"}, []string{"batch-size", "parent-prefix"}},
	}

	for _, tt := range tests {
		t.Run(tt.cmd.Name(), func(t *testing.T) {
			for _, name := range tt.has {
				if tt.cmd.Flags().Lookup(name) == nil {
					t.Errorf("missing --%s", name)
				}
			}
			for _, name := range tt.lacks {
				if tt.cmd.Flags().Lookup(name) != nil {
					t.Errorf("unexpected --%s", name)
				}
			}
		})
	}
}

func TestRunFlagsApplyOnlyChanged(t *testing.T) {
	var f runFlags
	cmd := &cobra.Command{Use: "x"}
	f.addCommon(cmd)
	f.addBatch(cmd)
	f.addFilter(cmd)
	f.addPaging(cmd)

	if err := cmd.ParseFlags([]string{
		"--workers", "4",
		"--parent-prefix", "001, 500",
		"--filter-strategy", "SOQL",
		"--no-disk-check",
		"--target", "250",
	}); err != nil {
		t.Fatal(err)
	}

	cfg := config.Defaults()
	cfg.BatchSize = 50
	cfg.OutputDir = "/from/file"
	f.apply(cmd, cfg)

	if cfg.Concurrency != 4 {
		t.Errorf("Concurrency = %d, want 4", cfg.Concurrency)
	}
	if !reflect.DeepEqual(cfg.ParentIDPrefixes, []string{"001", "500"}) {
		t.Errorf("ParentIDPrefixes = %v", cfg.ParentIDPrefixes)
	}
	if cfg.FilterStrategy != "soql" {
		t.Errorf("FilterStrategy = %q", cfg.FilterStrategy)
	}
	if cfg.CheckDiskSpace {
		t.Error("--no-disk-check should disable the disk check")
	}
	if cfg.TargetCount != 250 {
		t.Errorf("TargetCount = %d", cfg.TargetCount)
	}
	// Unset flags keep lower layers.
	if cfg.BatchSize != 50 || cfg.OutputDir != "/from/file" {
		t.Errorf("unchanged flags overrode config: batch=%d out=%q", cfg.BatchSize, cfg.OutputDir)
	}
}

func TestLoadConfigPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.csv")
	content := "key,value\nbatch_size,50\ndownload_workers,3\noutput_dir,/from/file\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	withGlobals(t, path, "")
	t.Setenv("BATCH_SIZE", "25")
	t.Setenv("DOWNLOAD_WORKERS", "2")

	var f runFlags
	cmd := &cobra.Command{Use: "x"}
	f.addCommon(cmd)
	f.addBatch(cmd)
	if err := cmd.ParseFlags([]string{"--batch-size", "10"}); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadConfig(context.Background(), cmd, &f)
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.BatchSize != 10 {
		t.Errorf("BatchSize = %d, flag should win", cfg.BatchSize)
	}
	if cfg.Concurrency != 2 {
		t.Errorf("Concurrency = %d, env should beat file", cfg.Concurrency)
	}
	if cfg.OutputDir != "/from/file" {
		t.Errorf("OutputDir = %q, file should beat defaults", cfg.OutputDir)
	}
}

func TestLoadConfigValidates(t *testing.T) {
	withGlobals(t, filepath.Join(t.TempDir(), "missing.csv"), "")

	var f runFlags
	cmd := &cobra.Command{Use: "x"}
	f.addCommon(cmd)
	f.addBatch(cmd)
	if err := cmd.ParseFlags([]string{"--batch-size", "0"}); err != nil {
		t.Fatal(err)
	}

	_, err := loadConfig(context.Background(), cmd, &f)
	if !models.IsConfigurationError(err) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
	if ExitCode(err) != ExitFatal {
		t.Errorf("ExitCode = %d, want %d", ExitCode(err), ExitFatal)
	}
}

func TestLoadConfigRequiredEnvFile(t *testing.T) {
	dir := t.TempDir()
	withGlobals(t, filepath.Join(dir, "missing.csv"), filepath.Join(dir, "missing.env"))

	if _, err := loadConfig(context.Background(), &cobra.Command{Use: "x"}, nil); err == nil {
		t.Error("expected error for explicit --env-file that does not exist")
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"partial", &ExitError{Code: ExitPartial}, ExitPartial},
		{"wrapped exit error", fmt.Errorf("run: %w", &ExitError{Code: ExitInterrupted, Err: context.Canceled}), ExitInterrupted},
		{"cancelled", context.Canceled, ExitInterrupted},
		{"config", &models.ConfigurationError{Field: "batch_size", Message: "bad"}, ExitFatal},
		{"other", errors.New("boom"), ExitFatal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestExitErrorMessage(t *testing.T) {
	if msg := (&ExitError{Code: ExitPartial}).Error(); msg != "completed with failures" {
		t.Errorf("partial message = %q", msg)
	}
	inner := errors.New("session expired")
	e := &ExitError{Code: ExitFatal, Err: inner}
	if e.Error() != "session expired" || !errors.Is(e, inner) {
		t.Errorf("fatal ExitError does not wrap its cause: %v", e)
	}
}

// withGlobals sets the persistent flag globals for one test.
func withGlobals(t *testing.T, cfgPath, env string) {
	t.Helper()
	oldCfg, oldEnv, oldLog := cfgFile, envFile, logFile
	cfgFile, envFile, logFile = cfgPath, env, ""
	t.Cleanup(func() { cfgFile, envFile, logFile = oldCfg, oldEnv, oldLog })
}
