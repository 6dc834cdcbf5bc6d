// Package config provides configuration management for sf-attachments.
//
// Values are layered, lowest to highest precedence:
// built-in defaults, a key,value CSV file, the environment (optionally
// seeded from a .env file) and finally explicitly set CLI flags.
package config

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sfextract/sf-attachments/internal/constants"
	"github.com/sfextract/sf-attachments/internal/models"
)

// Target modes for paginated queries.
const (
	TargetModeExact   = "exact"
	TargetModeMinimum = "minimum"
)

// Filter strategies.
const (
	FilterStrategyLocal = "local" // fetch then filter locally
	FilterStrategySOQL  = "soql"  // filter in the WHERE clause
)

// Archive backends.
const (
	ArchiveNone  = ""
	ArchiveS3    = "s3"
	ArchiveAzure = "azure"
)

// Config represents the complete runtime configuration.
type Config struct {
	// Salesforce session
	OrgAlias          string  `env:"SF_ORG_ALIAS,overwrite"`
	AccessToken       string  `env:"SF_ACCESS_TOKEN,overwrite"`
	InstanceURL       string  `env:"SF_INSTANCE_URL,overwrite"`
	APIVersion        string  `env:"SF_API_VERSION,overwrite"`
	RequestsPerSecond float64 `env:"SF_REQUESTS_PER_SECOND,overwrite"`
	HTTPRetries       int     `env:"HTTP_MAX_RETRIES,overwrite"`

	// Input and output
	RecordsDir string `env:"RECORDS_DIR,overwrite"`
	OutputDir  string `env:"OUTPUT_DIR,overwrite"`
	LogFile    string `env:"LOG_FILE,overwrite"`

	// Batching and downloads
	BatchSize      int  `env:"BATCH_SIZE,overwrite"`
	Concurrency    int  `env:"DOWNLOAD_WORKERS,overwrite"`
	ChunkSize      int  `env:"CHUNK_SIZE,overwrite"`
	CheckDiskSpace bool `env:"CHECK_DISK_SPACE,overwrite"`

	// Paginated query workflow
	QueryLimit  int    `env:"QUERY_LIMIT,overwrite"`
	TargetCount int    `env:"TARGET_COUNT,overwrite"`
	TargetMode  string `env:"TARGET_MODE,overwrite"`

	// ParentId filter
	ParentIDPrefixes []string `env:"PARENT_ID_PREFIX,overwrite"`
	ParentIDs        []string `env:"PARENT_IDS,overwrite"`
	FilterStrategy   string   `env:"FILTER_STRATEGY,overwrite"`

	// Proxy settings
	ProxyMode     string `env:"PROXY_MODE,overwrite"` // "no-proxy", "system", "basic", "ntlm"
	ProxyHost     string `env:"PROXY_HOST,overwrite"`
	ProxyPort     int    `env:"PROXY_PORT,overwrite"`
	ProxyUser     string `env:"PROXY_USER,overwrite"`
	ProxyPassword string `env:"PROXY_PASSWORD,overwrite"`
	NoProxy       string `env:"NO_PROXY,overwrite"`
	ProxyWarmup   bool   `env:"PROXY_WARMUP,overwrite"`

	// Offsite mirror
	ArchiveBackend   string `env:"ARCHIVE_BACKEND,overwrite"`
	ArchiveBucket    string `env:"ARCHIVE_BUCKET,overwrite"` // S3 bucket or Azure container
	ArchivePrefix    string `env:"ARCHIVE_PREFIX,overwrite"`
	ArchiveRegion    string `env:"ARCHIVE_REGION,overwrite"`
	ArchiveAccessKey string `env:"ARCHIVE_ACCESS_KEY_ID,overwrite"`
	ArchiveSecretKey string `env:"ARCHIVE_SECRET_ACCESS_KEY,overwrite"`
	AzureAccountURL  string `env:"AZURE_STORAGE_URL,overwrite"`     // https://<account>.blob.core.windows.net
	AzureSASToken    string `env:"AZURE_STORAGE_SAS_TOKEN,overwrite"`
	AzureAccountKey  string `env:"AZURE_STORAGE_KEY,overwrite"`
}

// Defaults returns a Config holding the built-in defaults.
func Defaults() *Config {
	return &Config{
		APIVersion:        constants.DefaultAPIVersion,
		RequestsPerSecond: constants.DefaultRequestsPerSecond,
		OutputDir:         "./output",
		LogFile:           "./logs/download.log",
		BatchSize:         constants.DefaultBatchSize,
		Concurrency:       constants.DefaultDownloadWorkers,
		ChunkSize:         constants.CopyBufferSize,
		CheckDiskSpace:    true,
		QueryLimit:        constants.DefaultQueryLimit,
		TargetMode:        TargetModeExact,
		FilterStrategy:    FilterStrategyLocal,
		ProxyMode:         "no-proxy",
	}
}

// LoadConfigCSV loads configuration from a CSV file
// CSV format: key,value pairs. A missing file yields the defaults.
func LoadConfigCSV(path string) (*Config, error) {
	cfg := Defaults()

	if path == "" {
		return cfg, nil
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read config CSV: %w", err)
	}

	for i, record := range records {
		if i == 0 && len(record) >= 2 && strings.ToLower(record[0]) == "key" {
			continue
		}
		if len(record) < 2 {
			continue
		}

		key := strings.TrimSpace(strings.ToLower(record[0]))
		value := strings.TrimSpace(record[1])

		if err := cfg.set(key, value); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// set applies one key,value pair. Unknown keys are ignored so older files
// keep loading.
func (c *Config) set(key, value string) error {
	atoi := func(dst *int) error {
		v, err := strconv.Atoi(value)
		if err != nil {
			return &models.ConfigurationError{Field: key, Message: fmt.Sprintf("not an integer: %q", value)}
		}
		*dst = v
		return nil
	}

	switch key {
	case "org_alias":
		c.OrgAlias = value
	case "instance_url":
		c.InstanceURL = value
	case "access_token":
		// Tokens belong in the environment or the sf CLI keychain.
		if value != "" {
			return &models.ConfigurationError{Field: key, Message: "access_token is not accepted in config files; use SF_ACCESS_TOKEN"}
		}
	case "api_version":
		c.APIVersion = value
	case "requests_per_second":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return &models.ConfigurationError{Field: key, Message: fmt.Sprintf("not a number: %q", value)}
		}
		c.RequestsPerSecond = v
	case "http_max_retries":
		return atoi(&c.HTTPRetries)
	case "records_dir":
		c.RecordsDir = value
	case "output_dir":
		c.OutputDir = value
	case "log_file":
		c.LogFile = value
	case "batch_size":
		return atoi(&c.BatchSize)
	case "download_workers":
		return atoi(&c.Concurrency)
	case "chunk_size":
		return atoi(&c.ChunkSize)
	case "check_disk_space":
		c.CheckDiskSpace = parseBool(value)
	case "query_limit":
		return atoi(&c.QueryLimit)
	case "target_count":
		return atoi(&c.TargetCount)
	case "target_mode":
		c.TargetMode = strings.ToLower(value)
	case "parent_id_prefix":
		c.ParentIDPrefixes = splitList(value)
	case "parent_ids":
		c.ParentIDs = splitList(value)
	case "filter_strategy":
		c.FilterStrategy = strings.ToLower(value)
	case "proxy_mode":
		c.ProxyMode = value
	case "proxy_host":
		c.ProxyHost = value
	case "proxy_port":
		return atoi(&c.ProxyPort)
	case "proxy_user":
		c.ProxyUser = value
	case "no_proxy":
		c.NoProxy = value
	case "proxy_warmup":
		c.ProxyWarmup = parseBool(value)
	case "archive_backend":
		c.ArchiveBackend = strings.ToLower(value)
	case "archive_bucket":
		c.ArchiveBucket = value
	case "archive_prefix":
		c.ArchivePrefix = value
	case "archive_region":
		c.ArchiveRegion = value
	case "azure_storage_url":
		c.AzureAccountURL = value
	}
	return nil
}

// SaveConfigCSV saves configuration to a CSV file
// CSV format: key,value pairs. Secrets are never written.
func SaveConfigCSV(cfg *Config, path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	if err := writer.Write([]string{"key", "value"}); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, record := range cfg.pairs() {
		if record[1] == "" {
			continue
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// pairs lists every non-secret setting as key,value.
func (c *Config) pairs() [][]string {
	return [][]string{
		{"org_alias", c.OrgAlias},
		{"instance_url", c.InstanceURL},
		{"api_version", c.APIVersion},
		{"requests_per_second", strconv.FormatFloat(c.RequestsPerSecond, 'g', -1, 64)},
		{"http_max_retries", strconv.Itoa(c.HTTPRetries)},
		{"records_dir", c.RecordsDir},
		{"output_dir", c.OutputDir},
		{"log_file", c.LogFile},
		{"batch_size", strconv.Itoa(c.BatchSize)},
		{"download_workers", strconv.Itoa(c.Concurrency)},
		{"chunk_size", strconv.Itoa(c.ChunkSize)},
		{"check_disk_space", strconv.FormatBool(c.CheckDiskSpace)},
		{"query_limit", strconv.Itoa(c.QueryLimit)},
		{"target_count", strconv.Itoa(c.TargetCount)},
		{"target_mode", c.TargetMode},
		{"parent_id_prefix", strings.Join(c.ParentIDPrefixes, ";")},
		{"parent_ids", strings.Join(c.ParentIDs, ";")},
		{"filter_strategy", c.FilterStrategy},
		{"proxy_mode", c.ProxyMode},
		{"proxy_host", c.ProxyHost},
		{"proxy_port", strconv.Itoa(c.ProxyPort)},
		{"proxy_user", c.ProxyUser},
		{"no_proxy", c.NoProxy},
		{"proxy_warmup", strconv.FormatBool(c.ProxyWarmup)},
		{"archive_backend", c.ArchiveBackend},
		{"archive_bucket", c.ArchiveBucket},
		{"archive_prefix", c.ArchivePrefix},
		{"archive_region", c.ArchiveRegion},
		{"azure_storage_url", c.AzureAccountURL},
	}
}

func parseBool(value string) bool {
	v := strings.ToLower(value)
	return v == "true" || v == "1" || v == "yes"
}

// splitList accepts ';' or ',' separated values and drops blanks.
func splitList(value string) []string {
	fields := strings.FieldsFunc(value, func(r rune) bool { return r == ';' || r == ',' })
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
