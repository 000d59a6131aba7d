package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dshills/cedar/internal/logging"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want info", cfg.Logging.Level)
	}
	if cfg.Core.Path != "" {
		t.Errorf("Core.Path = %q, want empty", cfg.Core.Path)
	}
	if cfg.Core.ShutdownTimeout != 5 {
		t.Errorf("Core.ShutdownTimeout = %d, want 5", cfg.Core.ShutdownTimeout)
	}
}

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want info", cfg.Logging.Level)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[core]
path = "/opt/ced/bin/ced-core"
args = ["--verbose"]

[logging]
level = "debug"

[telemetry]
endpoint = "http://localhost:4318"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Core.Path != "/opt/ced/bin/ced-core" {
		t.Errorf("Core.Path = %q", cfg.Core.Path)
	}
	if len(cfg.Core.Args) != 1 || cfg.Core.Args[0] != "--verbose" {
		t.Errorf("Core.Args = %v", cfg.Core.Args)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
	if cfg.Telemetry.Endpoint != "http://localhost:4318" {
		t.Errorf("Telemetry.Endpoint = %q", cfg.Telemetry.Endpoint)
	}
}

func TestLoad_ParseError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[core\npath = oops"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("Load() of invalid TOML should fail")
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[logging]\nlevel = \"warn\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("CEDAR_LOG_LEVEL", "debug")
	t.Setenv("CEDAR_CORE_ARGS", "--trace --slow")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want env override debug", cfg.Logging.Level)
	}
	if len(cfg.Core.Args) != 2 || cfg.Core.Args[0] != "--trace" {
		t.Errorf("Core.Args = %v, want [--trace --slow]", cfg.Core.Args)
	}
}

func TestLoad_InvalidLevelRejected(t *testing.T) {
	t.Setenv("CEDAR_LOG_LEVEL", "loud")
	if _, err := Load(""); err == nil {
		t.Fatal("Load() with an invalid level should fail")
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() on defaults error = %v", err)
	}

	cfg.Core.ShutdownTimeout = -1
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() with negative timeout should fail")
	}
}

func TestConfig_LogLevel(t *testing.T) {
	cfg := Default()
	cfg.Logging.Level = "error"
	if got := cfg.LogLevel(); got != logging.LevelError {
		t.Errorf("LogLevel() = %v, want error", got)
	}
}
