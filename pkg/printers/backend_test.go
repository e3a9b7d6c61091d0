package printers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adcondev/print-bridge/pkg/process"
)

// fakeRunner records every command and answers with respond.
type fakeRunner struct {
	mu      sync.Mutex
	calls   []process.Command
	respond func(cmd process.Command) (process.Result, error)
}

func (f *fakeRunner) Run(_ context.Context, cmd process.Command) (process.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, cmd)
	f.mu.Unlock()
	if f.respond == nil {
		return process.Result{}, nil
	}
	return f.respond(cmd)
}

func (f *fakeRunner) Calls() []process.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]process.Command(nil), f.calls...)
}

func stdout(s string) func(process.Command) (process.Result, error) {
	return func(process.Command) (process.Result, error) {
		return process.Result{Stdout: []byte(s)}, nil
	}
}

func exitWith(code int, stderr string) func(process.Command) (process.Result, error) {
	return func(process.Command) (process.Result, error) {
		return process.Result{ExitCode: code, Stderr: []byte(stderr)}, nil
	}
}

func TestNewBackend(t *testing.T) {
	r := &fakeRunner{}
	assert.IsType(t, &WindowsBackend{}, NewBackend("windows", r, Config{}))
	assert.IsType(t, &UnixBackend{}, NewBackend("linux", r, Config{}))
	assert.IsType(t, &UnixBackend{}, NewBackend("darwin", r, Config{}))
	assert.IsType(t, &UnixBackend{}, NewBackend("freebsd", r, Config{}))
}

func TestUnixBackend_Discover(t *testing.T) {
	r := &fakeRunner{respond: stdout("Printer_A\nPrinter_B\n")}
	b := NewUnixBackend(r)

	d := b.Discover(context.Background())
	require.NoError(t, d.Err)
	assert.False(t, d.Failed())
	assert.Equal(t, []Printer{
		{Name: "Printer A", SystemName: "Printer_A", DriverName: ""},
		{Name: "Printer B", SystemName: "Printer_B", DriverName: ""},
	}, d.Printers)

	calls := r.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "lpstat", calls[0].Name)
	assert.Equal(t, []string{"-e"}, calls[0].Args)
}

func TestUnixBackend_DiscoverDeterministic(t *testing.T) {
	b := NewUnixBackend(&fakeRunner{respond: stdout("a_b\nc\nd_e_f\n")})

	first := b.Discover(context.Background())
	second := b.Discover(context.Background())
	assert.Equal(t, first, second)

	// Each call hands out its own slice.
	first.Printers[0].Name = "changed"
	assert.Equal(t, "a b", second.Printers[0].Name)
}

func TestUnixBackend_DiscoverFailure(t *testing.T) {
	b := NewUnixBackend(&fakeRunner{respond: exitWith(1, "lpstat: No destinations added.\n")})

	d := b.Discover(context.Background())
	assert.True(t, d.Failed())
	assert.NotNil(t, d.Printers)
	assert.Empty(t, d.Printers)

	var cmdErr *CommandError
	require.True(t, errors.As(d.Err, &cmdErr))
	assert.Equal(t, "lpstat: No destinations added.\n", cmdErr.Stderr)
}

func TestUnixBackend_DiscoverNoPrinters(t *testing.T) {
	d := NewUnixBackend(&fakeRunner{respond: stdout("")}).Discover(context.Background())
	assert.False(t, d.Failed())
	assert.Empty(t, d.Printers)
}

func TestUnixBackend_PrintFile(t *testing.T) {
	r := &fakeRunner{}
	b := NewUnixBackend(r)

	require.NoError(t, b.PrintFile(context.Background(), "Printer_A", "/tmp/job.prn"))

	calls := r.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "lp", calls[0].Name)
	assert.Equal(t, []string{"-d", "Printer_A", "/tmp/job.prn"}, calls[0].Args)
}

func TestUnixBackend_PrintFileFailure(t *testing.T) {
	const diag = "lp: The printer or class does not exist."
	b := NewUnixBackend(&fakeRunner{respond: exitWith(1, diag)})

	err := b.PrintFile(context.Background(), "Nope", "/tmp/job.prn")
	require.Error(t, err)
	assert.Equal(t, diag, err.Error())
}

func TestUnixBackend_PrintFileEmptyDiagnostic(t *testing.T) {
	b := NewUnixBackend(&fakeRunner{respond: exitWith(3, "")})

	err := b.PrintFile(context.Background(), "P", "/tmp/job.prn")
	require.Error(t, err)
	assert.Equal(t, "lp exited with status 3", err.Error())
}

func TestUnixBackend_PrintFileRunnerError(t *testing.T) {
	b := NewUnixBackend(&fakeRunner{respond: func(process.Command) (process.Result, error) {
		return process.Result{ExitCode: -1}, fmt.Errorf("lp: %w", context.DeadlineExceeded)
	}})

	err := b.PrintFile(context.Background(), "P", "/tmp/job.prn")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestBackends_RejectMissingTarget(t *testing.T) {
	r := &fakeRunner{}
	for _, b := range []Backend{NewUnixBackend(r), NewWindowsBackend(r, "")} {
		t.Run(b.Name(), func(t *testing.T) {
			assert.ErrorIs(t, b.PrintFile(context.Background(), "", "/tmp/x"), ErrNoPrinter)
			assert.ErrorIs(t, b.PrintFile(context.Background(), "P", ""), ErrNoFile)
		})
	}
	assert.Empty(t, r.Calls())
}

func TestWindowsBackend_DiscoverJSON(t *testing.T) {
	r := &fakeRunner{respond: stdout(`[{"Name":"HP1","DriverName":"HP Universal"}]`)}
	b := NewWindowsBackend(r, FormatJSON)

	d := b.Discover(context.Background())
	require.NoError(t, d.Err)
	assert.Equal(t, []Printer{{Name: "HP1", SystemName: "HP1", DriverName: "HP Universal"}}, d.Printers)

	calls := r.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "powershell", calls[0].Name)
	assert.Contains(t, calls[0].Args[len(calls[0].Args)-1], "ConvertTo-Json")
}

func TestWindowsBackend_DiscoverJSONPartial(t *testing.T) {
	b := NewWindowsBackend(&fakeRunner{respond: stdout(`[{"Name":"A"},{"Nome":"broken"},{"Name":"B"}]`)}, "")

	d := b.Discover(context.Background())
	assert.False(t, d.Failed())
	assert.Len(t, d.Printers, 2)
	require.Len(t, d.Skipped, 1)
	assert.Equal(t, 1, d.Skipped[0].Index)
}

func TestWindowsBackend_DiscoverJSONGarbage(t *testing.T) {
	b := NewWindowsBackend(&fakeRunner{respond: stdout("WARNING: something odd")}, FormatJSON)

	d := b.Discover(context.Background())
	assert.True(t, d.Failed())
	assert.Empty(t, d.Printers)
}

func TestWindowsBackend_DiscoverList(t *testing.T) {
	out := "\r\nName       : HP1\r\nDriverName : HP Universal\r\n\r\nName       : PDF\r\nDriverName : Microsoft Print To PDF\r\n\r\n"
	r := &fakeRunner{respond: stdout(out)}
	b := NewWindowsBackend(r, FormatList)

	d := b.Discover(context.Background())
	require.NoError(t, d.Err)
	require.Len(t, d.Printers, 2)
	for _, p := range d.Printers {
		assert.Equal(t, p.Name, p.SystemName)
	}
	assert.Equal(t, "Microsoft Print To PDF", d.Printers[1].DriverName)
	assert.Contains(t, r.Calls()[0].Args[len(r.Calls()[0].Args)-1], "Format-List")
}

func TestWindowsBackend_ListingForcesUTF8Output(t *testing.T) {
	for _, format := range []ListFormat{FormatJSON, FormatList} {
		r := &fakeRunner{respond: stdout("")}
		NewWindowsBackend(r, format).Discover(context.Background())

		calls := r.Calls()
		require.Len(t, calls, 1, "format %s", format)
		script := calls[0].Args[len(calls[0].Args)-1]
		assert.True(t, strings.HasPrefix(script, "[Console]::OutputEncoding = [System.Text.Encoding]::UTF8;"),
			"format %s script %q", format, script)
	}
}

func TestWindowsBackend_NonASCIINamesSurvive(t *testing.T) {
	const name = "Büro Drucker – 3.OG"

	jsonOut := `[{"Name":"` + name + `","DriverName":"Kyocera ÜberDriver"}]`
	d := NewWindowsBackend(&fakeRunner{respond: stdout(jsonOut)}, FormatJSON).Discover(context.Background())
	require.NoError(t, d.Err)
	require.Len(t, d.Printers, 1)
	assert.Equal(t, []byte(name), []byte(d.Printers[0].SystemName))
	assert.Equal(t, "Kyocera ÜberDriver", d.Printers[0].DriverName)

	listOut := "Name       : " + name + "\r\nDriverName : Kyocera ÜberDriver\r\n"
	d = NewWindowsBackend(&fakeRunner{respond: stdout(listOut)}, FormatList).Discover(context.Background())
	require.NoError(t, d.Err)
	require.Len(t, d.Printers, 1)
	assert.Equal(t, []byte(name), []byte(d.Printers[0].SystemName))

	r := &fakeRunner{}
	require.NoError(t, NewWindowsBackend(r, "").PrintFile(context.Background(), d.Printers[0].SystemName, `C:\tmp\a.prn`))
	assert.Contains(t, r.Calls()[0].Env, "PRINTBRIDGE_PRINTER="+name)
}

func TestWindowsBackend_DiscoverFailure(t *testing.T) {
	b := NewWindowsBackend(&fakeRunner{respond: exitWith(1, "Get-Printer : Access denied")}, FormatList)

	d := b.Discover(context.Background())
	assert.True(t, d.Failed())
	assert.Empty(t, d.Printers)
}

func TestWindowsBackend_PrintFilePassesValuesOutOfBand(t *testing.T) {
	r := &fakeRunner{}
	b := NewWindowsBackend(r, "")
	printer := `Evil"; Remove-Item -Recurse C:\; "`
	path := `C:\Users\me\AppData\Local\Temp\it's $(here).prn`

	require.NoError(t, b.PrintFile(context.Background(), printer, path))

	calls := r.Calls()
	require.Len(t, calls, 1)
	cmd := calls[0]
	assert.Equal(t, "powershell", cmd.Name)
	assert.Equal(t, printScript, cmd.Args[len(cmd.Args)-1])
	for _, a := range cmd.Args {
		assert.NotContains(t, a, printer)
		assert.NotContains(t, a, path)
	}
	assert.Contains(t, cmd.Env, "PRINTBRIDGE_PRINTER="+printer)
	assert.Contains(t, cmd.Env, "PRINTBRIDGE_FILE="+path)
}

func TestWindowsBackend_PrintFileFailure(t *testing.T) {
	const diag = "Out-Printer : The printer name is invalid."
	b := NewWindowsBackend(&fakeRunner{respond: exitWith(1, diag)}, "")

	err := b.PrintFile(context.Background(), "Missing", `C:\tmp\a.prn`)
	require.Error(t, err)
	assert.Equal(t, diag, err.Error())
	assert.False(t, strings.HasPrefix(err.Error(), "listing"))
}
