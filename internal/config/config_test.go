// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-passkey.
//
// go-passkey is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jeremyhahn/go-passkey/pkg/passkey"
)

// serviceConfig is a test helper that converts the webauthn section,
// failing the test on error.
func serviceConfig(t *testing.T, cfg *Config) *passkey.Config {
	t.Helper()
	svcCfg, err := cfg.WebAuthn.ServiceConfig()
	if err != nil {
		t.Fatalf("ServiceConfig() error = %v, want nil", err)
	}
	return svcCfg
}

// TestLoad_Success tests successful loading of a valid config file
func TestLoad_Success(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
server:
  host: "0.0.0.0"
  port: 8443

webauthn:
  id: "example.com"
  display_name: "Example Corp"
  origins:
    - "https://example.com"
    - "https://www.example.com"
  challenge_ttl: 5m
  user_verification: "required"
  attestation: "direct"

logging:
  level: "info"
  format: "json"

tls:
  enabled: true
  cert_file: "/path/to/cert.pem"
  key_file: "/path/to/key.pem"

metrics:
  enabled: true
  path: "/metrics"

health:
  enabled: true
  path: "/health"

storage:
  backend: "sqlite"
  path: "/data/passkey/passkey.db"
`

	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write test config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}

	if cfg == nil {
		t.Fatal("Load() returned nil config")
	}

	// Validate server config
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %v, want 0.0.0.0", cfg.Server.Host)
	}
	if cfg.Server.Port != 8443 {
		t.Errorf("Server.Port = %v, want 8443", cfg.Server.Port)
	}

	// Validate Relying Party settings
	if cfg.WebAuthn.RPID != "example.com" {
		t.Errorf("WebAuthn.RPID = %v, want example.com", cfg.WebAuthn.RPID)
	}
	if cfg.WebAuthn.RPDisplayName != "Example Corp" {
		t.Errorf("WebAuthn.RPDisplayName = %v, want Example Corp", cfg.WebAuthn.RPDisplayName)
	}
	if len(cfg.WebAuthn.RPOrigins) != 2 {
		t.Fatalf("len(WebAuthn.RPOrigins) = %v, want 2", len(cfg.WebAuthn.RPOrigins))
	}
	if cfg.WebAuthn.RPOrigins[0] != "https://example.com" {
		t.Errorf("WebAuthn.RPOrigins[0] = %v, want https://example.com", cfg.WebAuthn.RPOrigins[0])
	}
	if cfg.WebAuthn.ChallengeTTL != "5m" {
		t.Errorf("WebAuthn.ChallengeTTL = %v, want 5m", cfg.WebAuthn.ChallengeTTL)
	}
	svcCfg := serviceConfig(t, cfg)
	if svcCfg.ChallengeTTL != 5*time.Minute {
		t.Errorf("ServiceConfig().ChallengeTTL = %v, want 5m", svcCfg.ChallengeTTL)
	}
	if cfg.WebAuthn.UserVerification != "required" {
		t.Errorf("WebAuthn.UserVerification = %v, want required", cfg.WebAuthn.UserVerification)
	}
	if cfg.WebAuthn.AttestationPreference != "direct" {
		t.Errorf("WebAuthn.AttestationPreference = %v, want direct", cfg.WebAuthn.AttestationPreference)
	}

	// Validate logging
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %v, want info", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Logging.Format = %v, want json", cfg.Logging.Format)
	}

	// Validate TLS
	if !cfg.TLS.Enabled {
		t.Error("TLS.Enabled = false, want true")
	}
	if cfg.TLS.CertFile != "/path/to/cert.pem" {
		t.Errorf("TLS.CertFile = %v, want /path/to/cert.pem", cfg.TLS.CertFile)
	}

	// Validate storage
	if cfg.Storage.Backend != StorageSQLite {
		t.Errorf("Storage.Backend = %v, want sqlite", cfg.Storage.Backend)
	}
	if cfg.Storage.Path != "/data/passkey/passkey.db" {
		t.Errorf("Storage.Path = %v, want /data/passkey/passkey.db", cfg.Storage.Path)
	}
}

// TestLoad_MinimalConfig tests that omitted sections fall back to defaults
func TestLoad_MinimalConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
webauthn:
  id: "example.com"
  display_name: "Example Corp"
  origins:
    - "https://example.com"
`

	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write test config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}

	if cfg.Server.Host != "localhost" {
		t.Errorf("Server.Host = %v, want localhost default", cfg.Server.Host)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %v, want 8080 default", cfg.Server.Port)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %v, want info default", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Logging.Format = %v, want text default", cfg.Logging.Format)
	}
	if cfg.Storage.Backend != StorageMemory {
		t.Errorf("Storage.Backend = %v, want memory default", cfg.Storage.Backend)
	}
	if !cfg.Metrics.Enabled {
		t.Error("Metrics.Enabled = false, want true default")
	}
	if cfg.Metrics.Path != "/metrics" {
		t.Errorf("Metrics.Path = %v, want /metrics default", cfg.Metrics.Path)
	}
}

// TestLoad_FileNotFound tests loading a non-existent config file
func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	if err == nil {
		t.Error("Load() error = nil, want error for missing file")
	}
}

// TestLoad_InvalidYAML tests loading a malformed config file
func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	if err := os.WriteFile(configPath, []byte("server: [not a mapping"), 0644); err != nil {
		t.Fatalf("Failed to write test config file: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() error = nil, want error for invalid YAML")
	}
}

// TestLoad_EnvOverrides tests environment variable overrides
func TestLoad_EnvOverrides(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
server:
  host: "localhost"
  port: 8080

webauthn:
  id: "example.com"
  display_name: "Example Corp"
  origins:
    - "https://example.com"
`

	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write test config file: %v", err)
	}

	t.Setenv("PASSKEY_HOST", "0.0.0.0")
	t.Setenv("PASSKEY_PORT", "9090")
	t.Setenv("PASSKEY_RP_ID", "login.example.com")
	t.Setenv("PASSKEY_RP_ORIGINS", "https://login.example.com, https://example.com")
	t.Setenv("PASSKEY_LOG_LEVEL", "debug")
	t.Setenv("PASSKEY_LOG_FORMAT", "json")
	t.Setenv("PASSKEY_STORAGE_BACKEND", "sqlite")
	t.Setenv("PASSKEY_STORAGE_PATH", "/tmp/passkey.db")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}

	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %v, want 0.0.0.0", cfg.Server.Host)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %v, want 9090", cfg.Server.Port)
	}
	if cfg.WebAuthn.RPID != "login.example.com" {
		t.Errorf("WebAuthn.RPID = %v, want login.example.com", cfg.WebAuthn.RPID)
	}
	if len(cfg.WebAuthn.RPOrigins) != 2 {
		t.Fatalf("len(WebAuthn.RPOrigins) = %v, want 2", len(cfg.WebAuthn.RPOrigins))
	}
	if cfg.WebAuthn.RPOrigins[0] != "https://login.example.com" {
		t.Errorf("WebAuthn.RPOrigins[0] = %v, want https://login.example.com", cfg.WebAuthn.RPOrigins[0])
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %v, want debug", cfg.Logging.Level)
	}
	if cfg.Storage.Backend != StorageSQLite {
		t.Errorf("Storage.Backend = %v, want sqlite", cfg.Storage.Backend)
	}
	if cfg.Storage.Path != "/tmp/passkey.db" {
		t.Errorf("Storage.Path = %v, want /tmp/passkey.db", cfg.Storage.Path)
	}
}

// TestLoad_InvalidEnvPort tests that a malformed port override falls back to the file value
func TestLoad_InvalidEnvPort(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
server:
  port: 8080

webauthn:
  id: "example.com"
  display_name: "Example Corp"
  origins:
    - "https://example.com"
`

	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write test config file: %v", err)
	}

	tests := []struct {
		name  string
		value string
	}{
		{"non-numeric", "not-a-port"},
		{"zero", "0"},
		{"out of range", "70000"},
		{"negative", "-1"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("PASSKEY_PORT", tc.value)

			cfg, err := Load(configPath)
			if err != nil {
				t.Fatalf("Load() error = %v, want nil", err)
			}
			if cfg.Server.Port != 8080 {
				t.Errorf("Server.Port = %v, want 8080 fallback", cfg.Server.Port)
			}
		})
	}
}

// TestValidate tests configuration validation rules
func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := Default()
		cfg.WebAuthn.RPID = "example.com"
		cfg.WebAuthn.RPDisplayName = "Example Corp"
		cfg.WebAuthn.RPOrigins = []string{"https://example.com"}
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid config",
			mutate:  func(cfg *Config) {},
			wantErr: false,
		},
		{
			name:    "invalid port",
			mutate:  func(cfg *Config) { cfg.Server.Port = 0 },
			wantErr: true,
		},
		{
			name:    "missing rp id",
			mutate:  func(cfg *Config) { cfg.WebAuthn.RPID = "" },
			wantErr: true,
		},
		{
			name:    "missing origins",
			mutate:  func(cfg *Config) { cfg.WebAuthn.RPOrigins = nil },
			wantErr: true,
		},
		{
			name:    "invalid log level",
			mutate:  func(cfg *Config) { cfg.Logging.Level = "verbose" },
			wantErr: true,
		},
		{
			name:    "invalid log format",
			mutate:  func(cfg *Config) { cfg.Logging.Format = "xml" },
			wantErr: true,
		},
		{
			name: "tls enabled without cert",
			mutate: func(cfg *Config) {
				cfg.TLS.Enabled = true
				cfg.TLS.KeyFile = "/path/to/key.pem"
			},
			wantErr: true,
		},
		{
			name: "tls enabled without key",
			mutate: func(cfg *Config) {
				cfg.TLS.Enabled = true
				cfg.TLS.CertFile = "/path/to/cert.pem"
			},
			wantErr: true,
		},
		{
			name: "sqlite without path",
			mutate: func(cfg *Config) {
				cfg.Storage.Backend = StorageSQLite
				cfg.Storage.Path = ""
			},
			wantErr: true,
		},
		{
			name:    "unknown storage backend",
			mutate:  func(cfg *Config) { cfg.Storage.Backend = "postgres" },
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(cfg)

			err := cfg.Validate()
			if tc.wantErr && err == nil {
				t.Error("Validate() error = nil, want error")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("Validate() error = %v, want nil", err)
			}
		})
	}
}

// TestServiceConfig tests conversion of the webauthn section
func TestServiceConfig(t *testing.T) {
	t.Run("defaults applied", func(t *testing.T) {
		w := WebAuthnConfig{
			RPID:          "example.com",
			RPDisplayName: "Example Corp",
			RPOrigins:     []string{"https://example.com"},
		}

		svcCfg, err := w.ServiceConfig()
		if err != nil {
			t.Fatalf("ServiceConfig() error = %v, want nil", err)
		}
		if svcCfg.ChallengeTTL != 2*time.Minute {
			t.Errorf("ChallengeTTL = %v, want 2m default", svcCfg.ChallengeTTL)
		}
		if svcCfg.UserVerification != "preferred" {
			t.Errorf("UserVerification = %v, want preferred default", svcCfg.UserVerification)
		}
		if svcCfg.AttestationPreference != "none" {
			t.Errorf("AttestationPreference = %v, want none default", svcCfg.AttestationPreference)
		}
	})

	t.Run("invalid ttl", func(t *testing.T) {
		w := WebAuthnConfig{
			RPID:          "example.com",
			RPDisplayName: "Example Corp",
			RPOrigins:     []string{"https://example.com"},
			ChallengeTTL:  "five minutes",
		}

		if _, err := w.ServiceConfig(); err == nil {
			t.Error("ServiceConfig() error = nil, want error for invalid duration")
		}
	})

	t.Run("invalid user verification", func(t *testing.T) {
		w := WebAuthnConfig{
			RPID:             "example.com",
			RPDisplayName:    "Example Corp",
			RPOrigins:        []string{"https://example.com"},
			UserVerification: "mandatory",
		}

		if _, err := w.ServiceConfig(); err == nil {
			t.Error("ServiceConfig() error = nil, want error for invalid user verification")
		}
	})
}

// TestDefault tests the default configuration is valid
func TestDefault(t *testing.T) {
	cfg := Default()

	if err := cfg.Validate(); err != nil {
		t.Errorf("Default().Validate() error = %v, want nil", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %v, want 8080", cfg.Server.Port)
	}
	if cfg.Storage.Backend != StorageMemory {
		t.Errorf("Storage.Backend = %v, want memory", cfg.Storage.Backend)
	}
}
