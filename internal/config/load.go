package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

// LoadOptions selects the file based layers.
type LoadOptions struct {
	// ConfigFile is a key,value CSV. Missing files are ignored.
	ConfigFile string
	// EnvFile is a dotenv file loaded into the process environment before
	// it is read. Variables already set are not replaced. A missing file is
	// only an error when EnvFileRequired is set.
	EnvFile         string
	EnvFileRequired bool
}

// Load builds a Config from defaults, the config file and the environment.
// CLI flags are applied afterwards by the caller.
func Load(ctx context.Context, opts LoadOptions) (*Config, error) {
	cfg, err := LoadConfigCSV(opts.ConfigFile)
	if err != nil {
		return nil, err
	}

	if opts.EnvFile != "" {
		if err := godotenv.Load(opts.EnvFile); err != nil {
			if opts.EnvFileRequired || !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to load env file %s: %w", opts.EnvFile, err)
			}
		}
	}

	if err := cfg.applyEnv(ctx, envconfig.OsLookuper()); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays variables visible through l onto c.
func (c *Config) applyEnv(ctx context.Context, l envconfig.Lookuper) error {
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   c,
		Lookuper: l,
	}); err != nil {
		return fmt.Errorf("failed to read environment: %w", err)
	}

	// Environment lists may use ';' like the config file.
	c.ParentIDPrefixes = splitList(strings.Join(c.ParentIDPrefixes, ","))
	c.ParentIDs = splitList(strings.Join(c.ParentIDs, ","))
	c.TargetMode = strings.ToLower(c.TargetMode)
	c.FilterStrategy = strings.ToLower(c.FilterStrategy)
	c.ArchiveBackend = strings.ToLower(c.ArchiveBackend)
	return nil
}

// SessionFromEnvironment reports whether a token/instance pair was supplied
// directly, bypassing the sf CLI.
func (c *Config) SessionFromEnvironment() bool {
	return c.AccessToken != "" && c.InstanceURL != ""
}

// Redacted returns a copy safe to print.
func (c *Config) Redacted() Config {
	out := *c
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "********"
	}
	out.AccessToken = mask(out.AccessToken)
	out.ProxyPassword = mask(out.ProxyPassword)
	out.ArchiveSecretKey = mask(out.ArchiveSecretKey)
	out.AzureSASToken = mask(out.AzureSASToken)
	out.AzureAccountKey = mask(out.AzureAccountKey)
	return out
}

// Pairs returns the non-secret settings as ordered key,value rows.
func (c *Config) Pairs() [][]string {
	return c.pairs()
}

// DefaultEnvFile is loaded when present.
const DefaultEnvFile = ".env"

// FileExists reports whether path exists. Used by config init to avoid
// clobbering an existing file.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
