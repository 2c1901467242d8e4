package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/exploopio/passcheck/pkg/errors"
)

// isolate points every config search location at an empty temp dir.
func isolate(t *testing.T) {
	t.Helper()
	tmp := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmp)
	t.Setenv("HOME", tmp)
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(tmp); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func newCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "serve"}
	RegisterFlags(cmd.Flags())
	return cmd
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	c, err := Load(newCmd(), "")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if c.Server.Address != ":5000" {
		t.Errorf("Server.Address = %q, want :5000", c.Server.Address)
	}
	if c.Server.MaxBodyBytes != 64<<10 {
		t.Errorf("Server.MaxBodyBytes = %d, want %d", c.Server.MaxBodyBytes, 64<<10)
	}
	if c.Server.ReadTimeout != 10*time.Second || c.Server.ShutdownTimeout != 15*time.Second {
		t.Errorf("timeouts = %v / %v", c.Server.ReadTimeout, c.Server.ShutdownTimeout)
	}
	if !c.Server.Compression || !c.Metrics.Enabled || c.Audit.Enabled {
		t.Errorf("unexpected toggles: %+v", c)
	}
	if c.Log.Level != "info" || c.Log.Format != "json" {
		t.Errorf("Log = %+v", c.Log)
	}
}

func TestLoad_ExplicitFile(t *testing.T) {
	isolate(t)
	path := writeFile(t, t.TempDir(), "custom.yaml", `
server:
  address: "127.0.0.1:8080"
  max_body_bytes: 1024
  read_timeout: 2s
log:
  level: debug
  format: console
metrics:
  enabled: false
`)

	c, err := Load(newCmd(), path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if c.Server.Address != "127.0.0.1:8080" || c.Server.MaxBodyBytes != 1024 || c.Server.ReadTimeout != 2*time.Second {
		t.Errorf("Server = %+v", c.Server)
	}
	if c.Log.Level != "debug" || c.Log.Format != "console" {
		t.Errorf("Log = %+v", c.Log)
	}
	if c.Metrics.Enabled {
		t.Error("Metrics.Enabled should be false")
	}
	// Untouched keys keep their defaults.
	if c.Server.WriteTimeout != 10*time.Second {
		t.Errorf("Server.WriteTimeout = %v, want 10s", c.Server.WriteTimeout)
	}
}

func TestLoad_DiscoversWorkingDirFile(t *testing.T) {
	isolate(t)
	wd, _ := os.Getwd()
	writeFile(t, wd, "passcheck.yaml", "server:\n  address: \":6000\"\n")

	c, err := Load(newCmd(), "")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if c.Server.Address != ":6000" {
		t.Errorf("Server.Address = %q, want :6000", c.Server.Address)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	isolate(t)
	if _, err := Load(newCmd(), filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing explicit config file")
	}
}

func TestLoad_BrokenFile(t *testing.T) {
	isolate(t)
	path := writeFile(t, t.TempDir(), "broken.yaml", "server: [unclosed\n")
	if _, err := Load(newCmd(), path); err == nil {
		t.Error("expected parse error")
	}
}

func TestLoad_Precedence(t *testing.T) {
	isolate(t)
	path := writeFile(t, t.TempDir(), "cfg.yaml", "server:\n  address: \":7000\"\nlog:\n  level: warn\n")
	t.Setenv("PASSCHECK_SERVER_ADDRESS", ":7100")
	t.Setenv("PASSCHECK_LOG_LEVEL", "error")
	t.Setenv("PASSCHECK_SERVER_MAX_BODY_BYTES", "2048")

	cmd := newCmd()
	if err := cmd.Flags().Set("address", ":7200"); err != nil {
		t.Fatalf("set flag: %v", err)
	}

	c, err := Load(cmd, path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if c.Server.Address != ":7200" {
		t.Errorf("flag should win: Server.Address = %q", c.Server.Address)
	}
	if c.Log.Level != "error" {
		t.Errorf("env should beat file: Log.Level = %q", c.Log.Level)
	}
	if c.Server.MaxBodyBytes != 2048 {
		t.Errorf("env should beat default: MaxBodyBytes = %d", c.Server.MaxBodyBytes)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	isolate(t)
	path := writeFile(t, t.TempDir(), "bad.yaml", "server:\n  max_body_bytes: 0\n")

	_, err := Load(newCmd(), path)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if errors.GetKind(err) != errors.KindInvalidInput {
		t.Errorf("GetKind() = %v, want %v", errors.GetKind(err), errors.KindInvalidInput)
	}
}

func validConfig(t *testing.T) Config {
	t.Helper()
	isolate(t)
	c, err := Load(nil, "")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return c
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty address", func(c *Config) { c.Server.Address = "  " }},
		{"zero read timeout", func(c *Config) { c.Server.ReadTimeout = 0 }},
		{"zero write timeout", func(c *Config) { c.Server.WriteTimeout = 0 }},
		{"zero shutdown timeout", func(c *Config) { c.Server.ShutdownTimeout = 0 }},
		{"negative body limit", func(c *Config) { c.Server.MaxBodyBytes = -1 }},
		{"negative compression min", func(c *Config) { c.Server.CompressMinSize = -1 }},
		{"relative metrics path", func(c *Config) { c.Metrics.Path = "metrics" }},
		{"metrics shadows check", func(c *Config) { c.Metrics.Path = "/check" }},
		{"audit without file", func(c *Config) { c.Audit.Enabled = true; c.Audit.File = "" }},
		{"zero health timeout", func(c *Config) { c.Health.Timeout = 0 }},
		{"host memory over 100", func(c *Config) { c.Health.MaxHostMemoryPercent = 150 }},
		{"bad log level", func(c *Config) { c.Log.Level = "verbose" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig(t)
			if err := c.Validate(); err != nil {
				t.Fatalf("baseline Validate() error = %v", err)
			}
			tt.mutate(&c)
			if err := c.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}

	t.Run("metrics path ignored when disabled", func(t *testing.T) {
		c := validConfig(t)
		c.Metrics.Enabled = false
		c.Metrics.Path = ""
		if err := c.Validate(); err != nil {
			t.Errorf("Validate() error = %v", err)
		}
	})
}
