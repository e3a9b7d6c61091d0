package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/adcondev/print-bridge/pkg/printers"
)

func TestGetEnvironment(t *testing.T) {
	// Table-driven test cases
	tests := []struct {
		name          string
		inputEnv      string
		expectedName  string
		expectedAddr  string
		expectDefault bool // If true, we expect the fallback (local) config
	}{
		{
			name:         "Get local environment",
			inputEnv:     "local",
			expectedName: "LOCAL",
			expectedAddr: "localhost:" + ServerPort,
		},
		{
			name:         "Get remote environment",
			inputEnv:     "remote",
			expectedName: "REMOTE",
			expectedAddr: "0.0.0.0:" + ServerPort,
		},
		{
			name:          "Get unknown environment (defaults to local)",
			inputEnv:      "unknown_env",
			expectedName:  "LOCAL",
			expectedAddr:  "localhost:" + ServerPort,
			expectDefault: true,
		},
		{
			name:          "Get empty environment (defaults to local)",
			inputEnv:      "",
			expectedName:  "LOCAL",
			expectedAddr:  "localhost:" + ServerPort,
			expectDefault: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GetEnvironment(tt.inputEnv)

			// Verify key fields
			if got.Name != tt.expectedName {
				t.Errorf("GetEnvironment(%q).Name = %q; want %q", tt.inputEnv, got.Name, tt.expectedName)
			}
			if got.ListenAddr != tt.expectedAddr {
				t.Errorf("GetEnvironment(%q).ListenAddr = %q; want %q", tt.inputEnv, got.ListenAddr, tt.expectedAddr)
			}

			if got.CommandTimeout <= 0 {
				t.Errorf("GetEnvironment(%q).CommandTimeout = %v; want a positive bound", tt.inputEnv, got.CommandTimeout)
			}
			if got.ListFormat != printers.FormatJSON {
				t.Errorf("GetEnvironment(%q).ListFormat = %q; want %q", tt.inputEnv, got.ListFormat, printers.FormatJSON)
			}
			if got.JobsPerMinute <= 0 || got.MaxPayloadBytes <= 0 {
				t.Errorf("GetEnvironment(%q) has no submission limits: %d jobs/min, %d bytes", tt.inputEnv, got.JobsPerMinute, got.MaxPayloadBytes)
			}

			// Verify timeout settings are reasonable (not zero)
			if got.ReadTimeout == 0 {
				t.Errorf("GetEnvironment(%q).ReadTimeout is 0; expected non-zero duration", tt.inputEnv)
			}
			if got.WriteTimeout == 0 {
				t.Errorf("GetEnvironment(%q).WriteTimeout is 0; expected non-zero duration", tt.inputEnv)
			}

			// Specific check for local environment details if expected
			if tt.expectDefault {
				// Verify it matches the 'local' config exactly
				localCfg := environments["local"]
				if got.Name != localCfg.Name {
					t.Errorf("GetEnvironment(%q) did not return local config as default", tt.inputEnv)
				}
			}
		})
	}
}

func TestEnvironments_SpoolerAnswersWithinWriteTimeout(t *testing.T) {
	for name, env := range environments {
		// One extra second for the runner to drain output after a kill.
		if env.CommandTimeout+2*time.Second > env.WriteTimeout {
			t.Errorf("%s: CommandTimeout %v leaves no room within WriteTimeout %v", name, env.CommandTimeout, env.WriteTimeout)
		}
		if env.LogMaxBytes <= 0 || env.LogKeepLines <= 0 {
			t.Errorf("%s: log rotation not configured (%d bytes, %d lines)", name, env.LogMaxBytes, env.LogKeepLines)
		}
	}
}

func TestEnvironment_LogPath(t *testing.T) {
	env := Environment{
		ServiceName: "TestService",
	}
	programData := "/var/lib"
	expected := filepath.Join(programData, "TestService", "TestService.log")

	got := env.LogPath(programData)

	if got != expected {
		t.Errorf("LogPath(%q) = %q; want %q", programData, got, expected)
	}
}

func TestGetEnvironment_AllowedOriginsOverride(t *testing.T) {
	old := AllowedOrigins
	defer func() { AllowedOrigins = old }()

	AllowedOrigins = "https://pos.example.com,http://localhost:*"
	got := GetEnvironment("remote")

	if len(got.AllowedOrigins) != 2 || got.AllowedOrigins[0] != "https://pos.example.com" {
		t.Errorf("AllowedOrigins = %v; want ldflags override", got.AllowedOrigins)
	}
	if environments["remote"].AllowedOrigins[0] != "http://localhost:*" {
		t.Errorf("override leaked into the environment table: %v", environments["remote"].AllowedOrigins)
	}
}
