package constants

import (
	"time"
)

// Batching and query limits
const (
	// DefaultBatchSize - ParentIds per metadata query (100)
	// Keeps the IN (...) clause well under the SOQL length ceiling
	DefaultBatchSize = 100

	// MaxQueryLength - SOQL statements longer than this are rejected by the platform
	MaxQueryLength = 20000

	// DefaultQueryLimit - page size for paginated queries
	DefaultQueryLimit = 100

	// MaxQueryOffset - SOQL OFFSET ceiling
	MaxQueryOffset = 2000
)

// Salesforce defaults
const (
	// DefaultAPIVersion - REST API version used when the session does not report one
	DefaultAPIVersion = "65.0"

	// DefaultRequestsPerSecond - pacing for REST calls (0 disables the limiter)
	DefaultRequestsPerSecond = 10.0

	// DefaultRequestBurst - burst allowance for the REST limiter
	DefaultRequestBurst = 10
)

// Download defaults
const (
	// DefaultDownloadWorkers - concurrent downloads per source (sequential)
	DefaultDownloadWorkers = 1

	// MaxDownloadWorkers - upper bound for --workers
	MaxDownloadWorkers = 32

	// StagingDirName - per-source staging directory, created under the files dir's parent
	StagingDirName = ".staging"

	// StagingFileSuffix - suffix of in-flight partial files
	StagingFileSuffix = ".part"

	// CopyBufferSize - buffer used when streaming bodies to disk (8 KiB)
	CopyBufferSize = 8192

	// MaxFilenameLength - longest filename produced by the resolver
	MaxFilenameLength = 255

	// DefaultParentID - placeholder for attachments without ParentId
	DefaultParentID = "NO_PARENT"

	// DefaultAttachmentName - placeholder for attachments without Name
	DefaultAttachmentName = "unnamed"
)

// Output layout
const (
	// MetadataDirName - per-source metadata directory
	MetadataDirName = "metadata"

	// FilesDirName - per-source downloaded files directory
	FilesDirName = "files"

	// MetadataTimestampFormat - timestamp embedded in metadata artifact names
	MetadataTimestampFormat = "20060102_150405"
)

// Disk space safety margin
const (
	// DiskSpaceBufferPercent - additional space to require beyond attachment sizes (15%)
	DiskSpaceBufferPercent = 0.15
)

// Exit codes
const (
	ExitSuccess        = 0
	ExitPartialFailure = 1
	ExitFatal          = 2
	ExitInterrupted    = 130
)

// HTTP Client Timeouts
const (
	// HTTPIdleConnTimeout - how long to keep idle connections open (90 seconds)
	HTTPIdleConnTimeout = 90 * time.Second

	// HTTPTLSHandshakeTimeout - timeout for TLS handshake (60 seconds)
	HTTPTLSHandshakeTimeout = 60 * time.Second

	// HTTPExpectContinueTimeout - timeout for 100-continue response (1 second)
	HTTPExpectContinueTimeout = 1 * time.Second

	// HTTPDialTimeout - timeout for establishing connection (30 seconds)
	HTTPDialTimeout = 30 * time.Second

	// HTTPDialKeepAlive - keep-alive period for dialer (30 seconds)
	HTTPDialKeepAlive = 30 * time.Second

	// HTTPClientTimeout - overall timeout for metadata requests (5 minutes)
	// Body downloads rely on the context instead
	HTTPClientTimeout = 300 * time.Second

	// ProxyWarmupTimeout - timeout for the optional proxy warmup request
	ProxyWarmupTimeout = 15 * time.Second
)

// Progress
const (
	// ProgressRefreshRate - redraw interval for multi-bar output
	ProgressRefreshRate = 300 * time.Millisecond
)
