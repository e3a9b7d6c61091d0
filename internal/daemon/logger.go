// Package daemon hosts the print bridge as a service.
package daemon

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"sync/atomic"
)

const (
	defaultLogMaxBytes  = 5 << 20
	defaultLogKeepLines = 1000
	flushKeepLines      = 50
	tailWindow          = 64 << 10
)

// Per-job chatter, dropped unless verbose.
var chattyMarkers = [][]byte{
	[]byte("[WORKER] 🔄 Processing job"),
	[]byte("[WORKER] 🖨️ Job"),
	[]byte("[PRINT] 📥 Job accepted"),
	[]byte("[WS] ➕ Client connected"),
	[]byte("[WS] ➖ Client disconnected"),
}

// LogOptions configures the service log.
type LogOptions struct {
	Verbose bool
	// Echo mirrors every kept line to stderr (console mode).
	Echo bool
	// MaxBytes is the size past which the file is trimmed to KeepLines.
	MaxBytes  int64
	KeepLines int
}

// logSink owns the open log file. The standard logger writes through it.
type logSink struct {
	verbose atomic.Bool

	mu   sync.Mutex
	path string
	file *os.File
	size int64
	opts LogOptions
}

var sink = newLogSink()

func newLogSink() *logSink {
	s := &logSink{}
	s.verbose.Store(true)
	return s
}

func isChatty(p []byte) bool {
	for _, m := range chattyMarkers {
		if bytes.Contains(p, m) {
			return true
		}
	}
	return false
}

// Write implements io.Writer for log.SetOutput.
func (s *logSink) Write(p []byte) (int, error) {
	if !s.verbose.Load() && isChatty(p) {
		return len(p), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.opts.Echo {
		_, _ = os.Stderr.Write(p)
	}
	if s.file == nil {
		return 0, fmt.Errorf("log file not initialized")
	}

	n, err := s.file.Write(p)
	s.size += int64(n)
	if err == nil && s.size > s.opts.MaxBytes {
		if terr := s.trimLocked(s.opts.KeepLines); terr != nil {
			fmt.Fprintf(os.Stderr, "[!] Log trim failed: %v\n", terr)
		}
	}
	return n, err
}

// trimLocked rewrites the file with its last keep lines and reopens it.
func (s *logSink) trimLocked(keep int) error {
	if s.file != nil {
		if err := s.file.Close(); err != nil {
			return err
		}
		s.file = nil
	}
	trimErr := trimLog(s.path, keep)
	if err := s.openLocked(); err != nil {
		return err
	}
	return trimErr
}

func (s *logSink) openLocked() error {
	f, err := os.OpenFile(s.path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600) //nolint:gosec
	if err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return err
	}
	s.file = f
	s.size = info.Size()
	return nil
}

// InitLogger points the standard logger at path. An oversized file left by a
// previous run is trimmed first.
func InitLogger(path string, opts LogOptions) error {
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = defaultLogMaxBytes
	}
	if opts.KeepLines <= 0 {
		opts.KeepLines = defaultLogKeepLines
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()

	if sink.file != nil {
		_ = sink.file.Close()
		sink.file = nil
	}
	sink.path = path
	sink.opts = opts
	sink.verbose.Store(opts.Verbose)

	if info, err := os.Stat(path); err == nil && info.Size() > opts.MaxBytes {
		if err := trimLog(path, opts.KeepLines); err != nil {
			fmt.Fprintf(os.Stderr, "[!] Log rotation failed: %v\n", err)
		}
	}
	if err := sink.openLocked(); err != nil {
		return err
	}

	log.SetOutput(sink)
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)
	return nil
}

// CloseLogger restores stderr logging and closes the log file.
func CloseLogger() error {
	sink.mu.Lock()
	defer sink.mu.Unlock()

	log.SetOutput(os.Stderr)
	if sink.file == nil {
		return nil
	}
	err := sink.file.Close()
	sink.file = nil
	sink.size = 0
	return err
}

// SetVerbose changes the verbosity level at runtime
func SetVerbose(v bool) {
	sink.verbose.Store(v)
	log.Printf("[OK] Log verbosity: %v", v)
}

// GetVerbose returns current verbosity level
func GetVerbose() bool {
	return sink.verbose.Load()
}

// GetLogFileSize returns the bytes currently in the log file.
func GetLogFileSize() int64 {
	sink.mu.Lock()
	defer sink.mu.Unlock()
	if sink.file == nil {
		return 0
	}
	return sink.size
}

// FlushLogFile drops everything but the last few lines.
func FlushLogFile() error {
	sink.mu.Lock()
	defer sink.mu.Unlock()

	if sink.path == "" {
		return fmt.Errorf("log path not configured")
	}
	return sink.trimLocked(flushKeepLines)
}

// trimLog rewrites path with its last keep lines. A missing file is fine.
func trimLog(path string, keep int) error {
	lines, err := tailLines(path, keep)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	content := ""
	if len(lines) > 0 {
		content = strings.Join(lines, "\n") + "\n"
	}
	return os.WriteFile(path, []byte(content), 0600)
}

// tailLines returns up to n trailing lines from the last
// tailWindow bytes of path.
func tailLines(path string, n int) ([]string, error) {
	f, err := os.Open(path) //nolint:gosec
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	start := info.Size() - tailWindow
	if start < 0 {
		start = 0
	}
	buf := make([]byte, info.Size()-start)
	if _, err := f.ReadAt(buf, start); err != nil && err != io.EOF {
		return nil, err
	}

	lines := strings.Split(strings.TrimRight(string(buf), "\n"), "\n")
	if start > 0 {
		// The window began mid-line.
		lines = lines[1:]
	}
	if len(lines) == 1 && lines[0] == "" {
		return []string{}, nil
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines, nil
}
