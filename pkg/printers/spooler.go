package printers

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"runtime"

	"github.com/google/uuid"

	"github.com/adcondev/print-bridge/pkg/process"
)

const stagePrefix = "printbridge-"

// Spooler is the entry point for discovery and submission. It is safe for
// concurrent use as long as the underlying OS tools are.
type Spooler struct {
	backend Backend

	// TempDir receives staged buffers. Empty means os.TempDir().
	TempDir string
	// KeepStaged leaves staged files on disk after submission.
	KeepStaged bool
}

// New returns a Spooler for the running platform.
func New(runner process.Runner) *Spooler {
	return NewSpooler(NewBackend(runtime.GOOS, runner, Config{}))
}

// NewSpooler wraps an explicit backend.
func NewSpooler(backend Backend) *Spooler {
	return &Spooler{backend: backend}
}

// Backend returns the backend in use.
func (s *Spooler) Backend() Backend {
	return s.backend
}

// Discover queries the OS for printers. Each call runs the listing command
// again; nothing is cached.
func (s *Spooler) Discover(ctx context.Context) Discovery {
	d := s.backend.Discover(ctx)
	if d.Printers == nil {
		d.Printers = []Printer{}
	}
	if d.Err != nil {
		log.Printf("[DISCOVERY] ⚠️ %s: failed to get printers: %v", s.backend.Name(), d.Err)
	}
	for _, skip := range d.Skipped {
		log.Printf("[DISCOVERY] ⚠️ %s: skipped malformed %v", s.backend.Name(), skip)
	}
	return d
}

// ListPrinters returns the installed printers, or an empty slice when the
// query fails. Use Discover to tell the two apart.
func (s *Spooler) ListPrinters(ctx context.Context) []Printer {
	return s.Discover(ctx).Printers
}

// FindPrinter looks up an installed printer by name. An exact SystemName
// match wins over a display Name match. It reports false when nothing
// matches or the query failed.
func (s *Spooler) FindPrinter(ctx context.Context, name string) (Printer, bool) {
	if name == "" {
		return Printer{}, false
	}
	return Lookup(s.Discover(ctx).Printers, name)
}

// PrintFile submits an existing file to printer.
func (s *Spooler) PrintFile(ctx context.Context, printer, path string) error {
	return s.backend.PrintFile(ctx, printer, path)
}

// Print stages data in a uniquely named temporary file and submits it.
// The file is removed once the spooler tool returns, whatever the outcome.
func (s *Spooler) Print(ctx context.Context, printer string, data []byte) error {
	if printer == "" {
		return ErrNoPrinter
	}

	path, err := s.stage(data)
	if err != nil {
		return err
	}
	if !s.KeepStaged {
		defer func() {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				log.Printf("[PRINT] ⚠️ Could not remove staged file %s: %v", path, err)
			}
		}()
	}

	return s.PrintFile(ctx, printer, path)
}

func (s *Spooler) stage(data []byte) (string, error) {
	dir := s.TempDir
	if dir == "" {
		dir = os.TempDir()
	}
	path := filepath.Join(dir, stagePrefix+uuid.NewString()+".prn")

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600) //nolint:gosec
	if err != nil {
		return "", &StageError{Path: path, Err: err}
	}

	_, err = f.Write(data)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		return "", &StageError{Path: path, Err: err}
	}
	return path, nil
}
