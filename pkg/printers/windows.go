package printers

import (
	"context"
	"fmt"

	"github.com/adcondev/print-bridge/pkg/process"
)

const (
	powershellBin = "powershell"

	// Redirected output otherwise uses the OEM code page, which mangles
	// non-ASCII printer names before they can be parsed.
	utf8Prelude = "[Console]::OutputEncoding = [System.Text.Encoding]::UTF8; "

	listJSONScript = utf8Prelude + "Get-Printer | Select-Object Name,DriverName | ConvertTo-Json"
	listTextScript = utf8Prelude + "Get-Printer | Format-List Name,DriverName"

	// The printer and file reach the script through the environment so that
	// neither is ever parsed as PowerShell.
	envPrinter  = "PRINTBRIDGE_PRINTER"
	envFile     = "PRINTBRIDGE_FILE"
	printScript = "$ErrorActionPreference = 'Stop'; " +
		"Get-Content -LiteralPath $env:" + envFile + " | Out-Printer -Name $env:" + envPrinter
)

// WindowsBackend drives the PrintManagement cmdlets through PowerShell.
type WindowsBackend struct {
	runner process.Runner
	format ListFormat
}

// NewWindowsBackend creates a PowerShell backend. An empty format means
// FormatJSON.
func NewWindowsBackend(runner process.Runner, format ListFormat) *WindowsBackend {
	if format == "" {
		format = FormatJSON
	}
	return &WindowsBackend{runner: runner, format: format}
}

// Name implements Backend.
func (b *WindowsBackend) Name() string { return "powershell" }

// Discover lists printers with Get-Printer.
func (b *WindowsBackend) Discover(ctx context.Context) Discovery {
	script := listJSONScript
	if b.format == FormatList {
		script = listTextScript
	}

	out, failed := runListing(ctx, b.runner, psCommand(script))
	if failed != nil {
		return *failed
	}

	if b.format == FormatList {
		printers, skipped := ParseFormatList(out)
		return Discovery{Printers: nonNil(printers), Skipped: skipped}
	}

	printers, skipped, err := ParseJSON(out)
	if err != nil {
		return Discovery{Printers: []Printer{}, Err: fmt.Errorf("listing printers: %w", err)}
	}
	return Discovery{Printers: nonNil(printers), Skipped: skipped}
}

// PrintFile streams the file into Out-Printer and waits for PowerShell to exit.
func (b *WindowsBackend) PrintFile(ctx context.Context, printer, path string) error {
	if err := validateTarget(printer, path); err != nil {
		return err
	}
	cmd := psCommand(printScript, envFile+"="+path, envPrinter+"="+printer)
	res, err := b.runner.Run(ctx, cmd)
	return checkResult(cmd, res, err)
}

func psCommand(script string, env ...string) process.Command {
	return process.Command{
		Name: powershellBin,
		Args: []string{"-NoProfile", "-NonInteractive", "-Command", script},
		Env:  env,
	}
}

func nonNil(p []Printer) []Printer {
	if p == nil {
		return []Printer{}
	}
	return p
}
