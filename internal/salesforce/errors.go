package salesforce

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	nethttp "net/http"
	"strings"

	"github.com/sfextract/sf-attachments/internal/http"
	"github.com/sfextract/sf-attachments/internal/models"
	"github.com/sfextract/sf-attachments/internal/query"
)

// apiError is one entry of the REST error array.
type apiError struct {
	Message   string `json:"message"`
	ErrorCode string `json:"errorCode"`
}

// errorMessage extracts "CODE: message" from a REST error body, falling
// back to the raw body.
func errorMessage(body []byte) (code, msg string) {
	var errs []apiError
	if err := json.Unmarshal(body, &errs); err == nil && len(errs) > 0 {
		return errs[0].ErrorCode, errs[0].Message
	}
	var single apiError
	if err := json.Unmarshal(body, &single); err == nil && (single.Message != "" || single.ErrorCode != "") {
		return single.ErrorCode, single.Message
	}
	return "", strings.TrimSpace(string(body))
}

// statusError maps a non-2xx response to the error taxonomy.
// attachmentID is set for body fetches so 404 becomes NotFoundError.
func statusError(op string, status int, body []byte, attachmentID string) error {
	code, msg := errorMessage(body)
	detail := msg
	if code != "" {
		detail = code + ": " + msg
	}

	if status == nethttp.StatusUnauthorized || code == "INVALID_SESSION_ID" ||
		http.ClassifyError(errors.New(detail)) == http.ErrorTypeCredential {
		return &models.FatalTransportError{Op: op, Err: fmt.Errorf("status %d: %s", status, detail)}
	}

	if status == nethttp.StatusNotFound && attachmentID != "" {
		return &models.NotFoundError{AttachmentID: attachmentID}
	}

	if attachmentID == "" && (status == nethttp.StatusRequestURITooLong || query.IsTooLongMessage(msg)) {
		return fmt.Errorf("%w: %s", query.ErrTooLong, detail)
	}

	return &models.TransportError{Op: op, StatusCode: status, Err: errors.New(detail)}
}

// requestError maps a failure to get any response.
func requestError(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if http.IsFatalType(http.ClassifyError(err)) {
		return &models.FatalTransportError{Op: op, Err: err}
	}
	return &models.TransportError{Op: op, Err: err}
}
