package config

import (
	"errors"
	"testing"

	"github.com/sfextract/sf-attachments/internal/models"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{"defaults", func(c *Config) {}, ""},
		{"zero batch size", func(c *Config) { c.BatchSize = 0 }, "batch_size"},
		{"too many workers", func(c *Config) { c.Concurrency = 1000 }, "download_workers"},
		{"bad target mode", func(c *Config) { c.TargetMode = "most" }, "target_mode"},
		{"bad strategy", func(c *Config) { c.FilterStrategy = "sql" }, "filter_strategy"},
		{"soql with prefixes", func(c *Config) {
			c.FilterStrategy = FilterStrategySOQL
			c.ParentIDPrefixes = []string{"001"}
		}, "filter_strategy"},
		{"unknown proxy", func(c *Config) { c.ProxyMode = "socks" }, "proxy_mode"},
		{"ntlm without host", func(c *Config) { c.ProxyMode = "ntlm" }, "proxy_host"},
		{"token without instance", func(c *Config) { c.AccessToken = "x" }, "instance_url"},
		{"instance not a url", func(c *Config) { c.InstanceURL = "example.my.salesforce.com" }, "instance_url"},
		{"s3 without bucket", func(c *Config) { c.ArchiveBackend = ArchiveS3 }, "archive_bucket"},
		{"s3 half credentials", func(c *Config) {
			c.ArchiveBackend = ArchiveS3
			c.ArchiveBucket = "b"
			c.ArchiveAccessKey = "AKIA"
		}, "archive_access_key_id"},
		{"azure without url", func(c *Config) {
			c.ArchiveBackend = ArchiveAzure
			c.ArchiveBucket = "c"
		}, "azure_storage_url"},
		{"unknown archive", func(c *Config) { c.ArchiveBackend = "gcs" }, "archive_backend"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			err := cfg.Validate()

			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}

			var ce *models.ConfigurationError
			if !errors.As(err, &ce) {
				t.Fatalf("Validate() error = %v, want ConfigurationError", err)
			}
			if ce.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", ce.Field, tt.wantField)
			}
		})
	}
}
