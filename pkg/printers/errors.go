package printers

import (
	"errors"
	"fmt"

	"github.com/adcondev/print-bridge/pkg/process"
)

var (
	// ErrNoPrinter is returned when a submission names no printer.
	ErrNoPrinter = errors.New("printer name not specified")
	// ErrNoFile is returned when PrintFile is called without a path.
	ErrNoFile = errors.New("file path not specified")
)

// CommandError reports a spooler command that failed to run or exited with a
// non-zero status.
type CommandError struct {
	Command  string
	ExitCode int
	// Stderr is the tool's diagnostic output, verbatim. Its format depends on
	// platform and locale; display it, don't parse it.
	Stderr string
	// Err is set when the process could not be started or timed out.
	Err error
}

// Error returns the captured diagnostic stream when there is one.
func (e *CommandError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Stderr != "" {
		return e.Stderr
	}
	return fmt.Sprintf("%s exited with status %d", e.Command, e.ExitCode)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// StageError reports a failure writing a print buffer to its temporary file.
type StageError struct {
	Path string
	Err  error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("staging print data: %v", e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// checkResult turns a runner outcome into a *CommandError, or nil on success.
func checkResult(cmd process.Command, res process.Result, err error) error {
	if err != nil {
		return &CommandError{Command: cmd.Name, ExitCode: res.ExitCode, Stderr: string(res.Stderr), Err: err}
	}
	if !res.Success() {
		return &CommandError{
			Command:  cmd.Name,
			ExitCode: res.ExitCode,
			Stderr:   string(res.Stderr),
		}
	}
	return nil
}
