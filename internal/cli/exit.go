package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/sfextract/sf-attachments/internal/constants"
)

// Process exit codes.
const (
	ExitOK          = constants.ExitSuccess
	ExitPartial     = constants.ExitPartialFailure
	ExitFatal       = constants.ExitFatal
	ExitInterrupted = constants.ExitInterrupted
)

// ExitError carries a workflow's exit code out of cobra's RunE.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code == ExitPartial {
		return "completed with failures"
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

func (e *ExitError) Unwrap() error { return e.Err }

// ExitCode maps an error returned by the root command to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	if errors.Is(err, context.Canceled) {
		return ExitInterrupted
	}
	return ExitFatal
}
