package config

import (
	"fmt"
	"strings"

	"github.com/sfextract/sf-attachments/internal/constants"
	"github.com/sfextract/sf-attachments/internal/models"
)

var validProxyModes = map[string]bool{
	"no-proxy": true,
	"system":   true,
	"basic":    true,
	"ntlm":     true,
}

// Validate checks static settings. Every failure is a
// *models.ConfigurationError naming the offending field.
func (c *Config) Validate() error {
	fail := func(field, format string, args ...interface{}) error {
		return &models.ConfigurationError{Field: field, Message: fmt.Sprintf(format, args...)}
	}

	if c.BatchSize < 1 {
		return fail("batch_size", "must be at least 1, got %d", c.BatchSize)
	}
	if c.Concurrency > constants.MaxDownloadWorkers {
		return fail("download_workers", "must be at most %d, got %d", constants.MaxDownloadWorkers, c.Concurrency)
	}
	if c.ChunkSize < 0 {
		return fail("chunk_size", "must not be negative")
	}
	if c.OutputDir == "" {
		return fail("output_dir", "must not be empty")
	}
	if c.QueryLimit < 1 {
		return fail("query_limit", "must be at least 1, got %d", c.QueryLimit)
	}
	if c.TargetCount < 0 {
		return fail("target_count", "must not be negative")
	}
	if c.TargetMode != TargetModeExact && c.TargetMode != TargetModeMinimum {
		return fail("target_mode", "must be %q or %q, got %q", TargetModeExact, TargetModeMinimum, c.TargetMode)
	}
	if c.FilterStrategy != FilterStrategyLocal && c.FilterStrategy != FilterStrategySOQL {
		return fail("filter_strategy", "must be %q or %q, got %q", FilterStrategyLocal, FilterStrategySOQL, c.FilterStrategy)
	}
	if c.FilterStrategy == FilterStrategySOQL && len(c.ParentIDPrefixes) > 0 {
		return fail("filter_strategy", "soql strategy supports exact parent ids only; use local for prefixes")
	}
	if c.RequestsPerSecond < 0 {
		return fail("requests_per_second", "must not be negative")
	}
	if c.HTTPRetries < 0 {
		return fail("http_max_retries", "must not be negative")
	}
	if c.APIVersion == "" {
		return fail("api_version", "must not be empty")
	}

	if !validProxyModes[c.ProxyMode] {
		return fail("proxy_mode", "unknown mode %q (no-proxy, system, basic, ntlm)", c.ProxyMode)
	}
	if c.ProxyMode == "basic" || c.ProxyMode == "ntlm" {
		if c.ProxyHost == "" {
			return fail("proxy_host", "required for proxy mode %s", c.ProxyMode)
		}
		if c.ProxyPort <= 0 {
			return fail("proxy_port", "required for proxy mode %s", c.ProxyMode)
		}
	}

	if c.AccessToken != "" && c.InstanceURL == "" {
		return fail("instance_url", "required when SF_ACCESS_TOKEN is set")
	}
	if c.InstanceURL != "" && !strings.HasPrefix(c.InstanceURL, "https://") && !strings.HasPrefix(c.InstanceURL, "http://") {
		return fail("instance_url", "must be an http(s) URL, got %q", c.InstanceURL)
	}

	switch c.ArchiveBackend {
	case ArchiveNone:
	case ArchiveS3:
		if c.ArchiveBucket == "" {
			return fail("archive_bucket", "required for s3 archive")
		}
		if (c.ArchiveAccessKey == "") != (c.ArchiveSecretKey == "") {
			return fail("archive_access_key_id", "access key id and secret must be set together")
		}
	case ArchiveAzure:
		if c.ArchiveBucket == "" {
			return fail("archive_bucket", "container name required for azure archive")
		}
		if c.AzureAccountURL == "" {
			return fail("azure_storage_url", "required for azure archive")
		}
	default:
		return fail("archive_backend", "unknown backend %q (s3, azure)", c.ArchiveBackend)
	}

	return nil
}
