package printers

import (
	"context"

	"github.com/adcondev/print-bridge/pkg/process"
)

const (
	lpstatBin = "lpstat"
	lpBin     = "lp"
)

// UnixBackend drives the CUPS command line tools.
type UnixBackend struct {
	runner process.Runner
}

// NewUnixBackend creates a CUPS backend.
func NewUnixBackend(runner process.Runner) *UnixBackend {
	return &UnixBackend{runner: runner}
}

// Name implements Backend.
func (b *UnixBackend) Name() string { return "cups" }

// Discover lists the destinations reported by `lpstat -e`.
func (b *UnixBackend) Discover(ctx context.Context) Discovery {
	out, failed := runListing(ctx, b.runner, process.Command{Name: lpstatBin, Args: []string{"-e"}})
	if failed != nil {
		return *failed
	}
	return Discovery{Printers: ParseLpstat(out)}
}

// PrintFile runs `lp -d printer path`.
func (b *UnixBackend) PrintFile(ctx context.Context, printer, path string) error {
	if err := validateTarget(printer, path); err != nil {
		return err
	}
	cmd := process.Command{Name: lpBin, Args: []string{"-d", printer, path}}
	res, err := b.runner.Run(ctx, cmd)
	return checkResult(cmd, res, err)
}
