package models

import (
	"errors"
	"fmt"
)

// ConfigurationError indicates static misconfiguration (invalid batch size,
// unknown proxy mode, missing org). Fatal at startup.
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return "configuration error: " + e.Message
	}
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Message)
}

// InvalidInputError indicates a malformed record source (missing required
// column, empty file). Aborts that source only.
type InvalidInputError struct {
	Source string
	Reason string
	Err    error
}

func (e *InvalidInputError) Error() string {
	msg := fmt.Sprintf("invalid input %s: %s", e.Source, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *InvalidInputError) Unwrap() error { return e.Err }

// BatchQueryError reports that one batch's metadata query failed.
// TooLong is set when the platform rejected the statement for its length.
type BatchQueryError struct {
	BatchIndex int
	Cause      error
	TooLong    bool
}

func (e *BatchQueryError) Error() string {
	if e.TooLong {
		return fmt.Sprintf("batch %d: query too long: %v", e.BatchIndex+1, e.Cause)
	}
	return fmt.Sprintf("batch %d: query failed: %v", e.BatchIndex+1, e.Cause)
}

func (e *BatchQueryError) Unwrap() error { return e.Cause }

// FatalTransportError indicates the session or the service is unusable
// (authentication failure, connection refused). Aborts the run.
type FatalTransportError struct {
	Op  string
	Err error
}

func (e *FatalTransportError) Error() string {
	return fmt.Sprintf("fatal transport error during %s: %v", e.Op, e.Err)
}

func (e *FatalTransportError) Unwrap() error { return e.Err }

// NotFoundError indicates the requested attachment body does not exist.
type NotFoundError struct {
	AttachmentID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("attachment %s not found", e.AttachmentID)
}

// TransportError is a non-fatal HTTP or network failure for one request.
type TransportError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s failed: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsFatal reports whether err (or anything it wraps) is a FatalTransportError.
func IsFatal(err error) bool {
	var fatal *FatalTransportError
	return errors.As(err, &fatal)
}

// IsNotFound reports whether err wraps a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsConfigurationError reports whether err wraps a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// IsQueryTooLong reports whether err wraps a BatchQueryError of the too-long kind.
func IsQueryTooLong(err error) bool {
	var bq *BatchQueryError
	return errors.As(err, &bq) && bq.TooLong
}
