package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dshills/cedar/internal/logging"
)

func TestWatch_ReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("[logging]\nlevel = \"info\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	reloaded := make(chan *Config, 4)
	w, err := Watch(path, func(c *Config) { reloaded <- c }, logging.Null)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(path, []byte("[logging]\nlevel = \"debug\"\n"), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	select {
	case cfg := <-reloaded:
		if cfg.Logging.Level != "debug" {
			t.Errorf("reloaded level = %q, want debug", cfg.Logging.Level)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no reload delivered")
	}
}

func TestWatch_SkipsUnparseableRewrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("[logging]\nlevel = \"info\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	reloaded := make(chan *Config, 4)
	w, err := Watch(path, func(c *Config) { reloaded <- c }, logging.Null)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	defer w.Close()

	// The broken rewrite produces no callback; the next good one does.
	if err := os.WriteFile(path, []byte("[logging\nlevel ="), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}
	time.Sleep(400 * time.Millisecond)
	if err := os.WriteFile(path, []byte("[logging]\nlevel = \"error\"\n"), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	select {
	case cfg := <-reloaded:
		if cfg.Logging.Level != "error" {
			t.Errorf("reloaded level = %q, want error", cfg.Logging.Level)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no reload delivered")
	}
}

func TestWatch_MissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope", "config.toml")
	if _, err := Watch(path, nil, logging.Null); err == nil {
		t.Fatal("Watch() on a missing directory should fail")
	}
}

func TestWatcher_CloseIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	w, err := Watch(path, nil, logging.Null)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}
