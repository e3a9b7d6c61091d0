// Package workererrors turns print failures into short messages for clients.
package workererrors

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/adcondev/print-bridge/pkg/printers"
)

// ErrPanic marks a job that crashed instead of failing cleanly.
var ErrPanic = errors.New("panic recovered")

// ExtractUserFriendlyError creates a clean error message for the UI.
// Spooler diagnostics are passed through as-is; their wording is locale
// dependent and is never matched on.
func ExtractUserFriendlyError(err error) string {
	var (
		stageErr *printers.StageError
		cmdErr   *printers.CommandError
	)

	switch {
	case errors.Is(err, printers.ErrNoPrinter):
		return "VALIDATION: No printer specified"
	case errors.Is(err, printers.ErrNoFile):
		return "VALIDATION: No file specified"
	case errors.Is(err, ErrPanic):
		return "INTERNAL: Unexpected failure while printing"
	case errors.Is(err, context.DeadlineExceeded):
		return "TIMEOUT: Spooler did not respond in time"
	case errors.Is(err, context.Canceled):
		return "CANCELLED: Job cancelled before the spooler answered"
	case errors.As(err, &stageErr):
		return fmt.Sprintf("STAGING: Could not write print data (%v)", stageErr.Err)
	case errors.As(err, &cmdErr):
		if cmdErr.Err != nil {
			return fmt.Sprintf("SPOOLER: Could not run %s: %v", cmdErr.Command, cmdErr.Err)
		}
		if diag := strings.TrimSpace(cmdErr.Stderr); diag != "" {
			return "PRINTER: " + diag
		}
		return fmt.Sprintf("PRINTER: %s exited with status %d", cmdErr.Command, cmdErr.ExitCode)
	}

	return "ERROR: " + err.Error()
}
