package http

import (
	"context"
	"errors"
	"math/rand"
	nethttp "net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// ErrorType represents different classes of request failures.
type ErrorType int

const (
	// ErrorTypeSuccess indicates operation succeeded
	ErrorTypeSuccess ErrorType = iota
	// ErrorTypeCredential indicates authentication/authorization failure (401, expired or invalid session)
	ErrorTypeCredential
	// ErrorTypeUnreachable indicates the service cannot be reached at all (DNS, connection refused)
	ErrorTypeUnreachable
	// ErrorTypeNetwork indicates transient network issues (timeouts, resets)
	ErrorTypeNetwork
	// ErrorTypeRetryable indicates server errors (500, 502, 503, throttling)
	ErrorTypeRetryable
	// ErrorTypeFatal indicates client errors that repeating will not fix (400, 404)
	ErrorTypeFatal
)

// ClassifyError determines the error class from its message.
func ClassifyError(err error) ErrorType {
	if err == nil {
		return ErrorTypeSuccess
	}

	errStr := strings.ToLower(err.Error())

	if strings.Contains(errStr, "invalid_session_id") ||
		strings.Contains(errStr, "invalid session") ||
		strings.Contains(errStr, "session expired") ||
		strings.Contains(errStr, "not authenticated") ||
		strings.Contains(errStr, "no authorization") ||
		strings.Contains(errStr, "unauthorized") ||
		strings.Contains(errStr, "status 401") ||
		strings.Contains(errStr, "authentication failed") {
		return ErrorTypeCredential
	}

	if strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no such host") ||
		strings.Contains(errStr, "network is unreachable") {
		return ErrorTypeUnreachable
	}

	if strings.Contains(errStr, "tls handshake timeout") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "i/o timeout") ||
		strings.Contains(errStr, "unexpected eof") ||
		strings.Contains(errStr, "broken pipe") ||
		strings.Contains(errStr, "timeout") {
		return ErrorTypeNetwork
	}

	if strings.Contains(errStr, "request_limit_exceeded") ||
		strings.Contains(errStr, "server_unavailable") ||
		strings.Contains(errStr, "throttl") ||
		strings.Contains(errStr, "status 429") ||
		strings.Contains(errStr, "status 500") ||
		strings.Contains(errStr, "status 502") ||
		strings.Contains(errStr, "status 503") ||
		strings.Contains(errStr, "status 504") ||
		strings.Contains(errStr, "service unavailable") {
		return ErrorTypeRetryable
	}

	return ErrorTypeFatal
}

// IsFatalType reports whether t means the session or service is unusable.
func IsFatalType(t ErrorType) bool {
	return t == ErrorTypeCredential || t == ErrorTypeUnreachable
}

// CalculateBackoff returns exponential backoff duration with full jitter.
//
// Formula: random(0, min(maxDelay, initialDelay * 2^attempt))
func CalculateBackoff(attempt int, initialDelay, maxDelay time.Duration) time.Duration {
	if attempt <= 0 || initialDelay <= 0 {
		return 0
	}

	base := time.Duration(1<<uint(attempt)) * initialDelay
	if base > maxDelay {
		base = maxDelay
	}
	if base <= 0 {
		return 0
	}

	return time.Duration(rand.Int63n(int64(base)))
}

// JitterBackoff adapts CalculateBackoff to retryablehttp.Backoff.
// A Retry-After header on 429/503 takes precedence.
func JitterBackoff(min, max time.Duration, attemptNum int, resp *nethttp.Response) time.Duration {
	if resp != nil && (resp.StatusCode == nethttp.StatusTooManyRequests || resp.StatusCode == nethttp.StatusServiceUnavailable) {
		return retryablehttp.DefaultBackoff(min, max, attemptNum, resp)
	}
	return CalculateBackoff(attemptNum+1, min, max)
}

// RetryPolicy retries only transient failures. Credential and
// unreachable errors, and all 4xx except 429, are returned at once.
func RetryPolicy(ctx context.Context, resp *nethttp.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return false, err
		}
		switch ClassifyError(err) {
		case ErrorTypeNetwork, ErrorTypeRetryable:
			return true, nil
		default:
			return false, nil
		}
	}

	if resp == nil {
		return false, nil
	}
	if resp.StatusCode == nethttp.StatusTooManyRequests {
		return true, nil
	}
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return false, nil
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}

// ErrorTypeName returns a human-readable name for an ErrorType
func ErrorTypeName(errType ErrorType) string {
	switch errType {
	case ErrorTypeSuccess:
		return "success"
	case ErrorTypeCredential:
		return "credential"
	case ErrorTypeUnreachable:
		return "unreachable"
	case ErrorTypeNetwork:
		return "network"
	case ErrorTypeRetryable:
		return "retryable"
	case ErrorTypeFatal:
		return "fatal"
	default:
		return "unknown"
	}
}
