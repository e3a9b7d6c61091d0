// Package config defines environment-specific settings for the Print Bridge.
package config

import (
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/adcondev/print-bridge/pkg/printers"
)

// Build variables, injected at compile time
var (
	BuildEnvironment = "local"
	BuildDate        = "unknown"
	BuildTime        = "unknown"
	// ServiceName is used for logging and as part of the log file path.
	ServiceName = "PrintBridge"
	// PasswordHashB64 is a base64-encoded bcrypt hash injected via ldflags.
	// If empty, password protected routes are open (dev mode).
	PasswordHashB64 = ""
	// AuthToken is injected via ldflags.
	// If empty, print submissions are accepted without token validation.
	AuthToken = ""
	// ServerPort is the default port for the service.
	ServerPort = "8767"
	// AllowedOrigins is a comma-separated list of allowed origins injected via ldflags.
	// Example: "https://pos.example.com,http://localhost:*"
	AllowedOrigins = ""
)

// Environment holds environment-specific settings
type Environment struct {
	Name        string
	ServiceName string

	// Network
	ListenAddr   string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// Spooler. CommandTimeout stays below WriteTimeout so handlers that
	// query the spooler can still answer when a tool hangs.
	CommandTimeout time.Duration
	ListFormat     printers.ListFormat
	DefaultPrinter string

	// Submissions
	JobsPerMinute   int
	MaxPayloadBytes int64

	// Logging. The log is trimmed to its last LogKeepLines lines once it
	// grows past LogMaxBytes.
	Verbose      bool
	LogMaxBytes  int64
	LogKeepLines int

	// Security
	AllowedOrigins []string
}

// LogPath returns the full log file path for this environment.
// Uses the convention: <dataDir>/<ServiceName>/<ServiceName>.log
func (e Environment) LogPath(dataDir string) string {
	return filepath.Join(dataDir, e.ServiceName, e.ServiceName+".log")
}

// environments defines available deployment configurations
var environments = map[string]Environment{
	"remote": {
		Name:            "REMOTE",
		ServiceName:     ServiceName,
		ListenAddr:      "0.0.0.0:" + ServerPort,
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    15 * time.Second,
		IdleTimeout:     60 * time.Second,
		CommandTimeout:  10 * time.Second,
		ListFormat:      printers.FormatJSON,
		DefaultPrinter:  "",
		JobsPerMinute:   30,
		MaxPayloadBytes: 8 << 20,
		Verbose:         false,
		LogMaxBytes:     5 << 20,
		LogKeepLines:    1000,
		// By default, restrict to localhost and file (Electron) for security
		AllowedOrigins: []string{"http://localhost:*", "https://localhost:*", "file://*"},
	},
	"local": {
		Name:            "LOCAL",
		ServiceName:     ServiceName,
		ListenAddr:      "localhost:" + ServerPort,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		IdleTimeout:     120 * time.Second,
		CommandTimeout:  20 * time.Second,
		ListFormat:      printers.FormatJSON,
		DefaultPrinter:  "",
		JobsPerMinute:   120,
		MaxPayloadBytes: 32 << 20,
		Verbose:         true,
		LogMaxBytes:     10 << 20,
		LogKeepLines:    2000,
		AllowedOrigins:  []string{"*"},
	},
}

// GetEnvironment returns config for the specified environment.
func GetEnvironment(env string) Environment {
	cfg, ok := environments[env]
	if !ok {
		log.Printf("[!] Unknown environment '%s', defaulting to 'local'", env)
		cfg = environments["local"]
	}

	// Override allowed origins from ldflags if provided
	if AllowedOrigins != "" {
		cfg.AllowedOrigins = strings.Split(AllowedOrigins, ",")
	}

	return cfg
}
