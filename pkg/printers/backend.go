package printers

import (
	"context"
	"fmt"

	"github.com/adcondev/print-bridge/pkg/process"
)

// Backend is the platform-specific half of the spooler: how to list printers
// and how to hand a file to one of them.
type Backend interface {
	// Name identifies the backend in logs and health output.
	Name() string
	// Discover queries the OS for installed printers. It never panics on bad
	// output; problems are reported inside the returned Discovery.
	Discover(ctx context.Context) Discovery
	// PrintFile submits the file at path to the printer with the given
	// system name and waits for the spooler tool to accept or reject it.
	PrintFile(ctx context.Context, printer, path string) error
}

// ListFormat selects how the Windows backend asks PowerShell for printers.
type ListFormat string

const (
	// FormatJSON lists printers through ConvertTo-Json.
	FormatJSON ListFormat = "json"
	// FormatList lists printers through Format-List.
	FormatList ListFormat = "list"
)

// Config tunes backend construction.
type Config struct {
	// ListFormat applies to the Windows backend. Empty means FormatJSON.
	ListFormat ListFormat
}

// NewBackend returns the backend for goos (a runtime.GOOS value). Every
// non-Windows system is assumed to have the CUPS client tools.
func NewBackend(goos string, runner process.Runner, cfg Config) Backend {
	if goos == "windows" {
		return NewWindowsBackend(runner, cfg.ListFormat)
	}
	return NewUnixBackend(runner)
}

func validateTarget(printer, path string) error {
	if printer == "" {
		return ErrNoPrinter
	}
	if path == "" {
		return ErrNoFile
	}
	return nil
}

// runListing runs a listing command and returns its stdout, or a Discovery
// carrying the failure.
func runListing(ctx context.Context, runner process.Runner, cmd process.Command) ([]byte, *Discovery) {
	res, err := runner.Run(ctx, cmd)
	if err := checkResult(cmd, res, err); err != nil {
		return nil, &Discovery{Printers: []Printer{}, Err: fmt.Errorf("listing printers: %w", err)}
	}
	return res.Stdout, nil
}
