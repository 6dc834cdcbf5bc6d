package models

import (
	"strconv"
	"time"
)

// SalesforceTimeLayout is the datetime format used by the REST API and
// written back to metadata CSVs.
const SalesforceTimeLayout = "2006-01-02T15:04:05.000-0700"

// AttachmentRecord is one queried Attachment row. Immutable once fetched.
type AttachmentRecord struct {
	ID          string
	ParentID    string
	Name        string
	ContentType string
	Size        int64 // BodyLength
	CreatedAt   time.Time
}

// CreatedDate returns the creation time in Salesforce format, or "" when unknown.
func (r AttachmentRecord) CreatedDate() string {
	if r.CreatedAt.IsZero() {
		return ""
	}
	return r.CreatedAt.Format(SalesforceTimeLayout)
}

// BodyLength returns the size as a decimal string.
func (r AttachmentRecord) BodyLength() string {
	return strconv.FormatInt(r.Size, 10)
}

// ParseCreatedDate accepts the REST format as well as RFC 3339.
// Empty input yields the zero time.
func ParseCreatedDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(SalesforceTimeLayout, s)
	if err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// TaskState is the lifecycle state of a DownloadTask.
type TaskState int

const (
	TaskPending TaskState = iota
	TaskInFlight
	TaskDownloaded
	TaskSkipped
	TaskFailed
)

func (s TaskState) String() string {
	switch s {
	case TaskPending:
		return "pending"
	case TaskInFlight:
		return "in-flight"
	case TaskDownloaded:
		return "downloaded"
	case TaskSkipped:
		return "skipped"
	case TaskFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// DownloadTask is one unit of download work.
type DownloadTask struct {
	Record          AttachmentRecord
	DestinationPath string
}
