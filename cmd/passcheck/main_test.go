package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/exploopio/passcheck/pkg/config"
)

// isolate keeps config discovery away from the developer's own files.
func isolate(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmp)
	t.Setenv("HOME", tmp)
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(tmp))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return tmp
}

func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := executeCommand(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "passcheck "+version+" "), out)
}

func TestServeCommand_MissingConfigFile(t *testing.T) {
	tmp := isolate(t)
	_, err := executeCommand(t, "serve", "--config", filepath.Join(tmp, "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestServeCommand_InvalidConfig(t *testing.T) {
	tmp := isolate(t)
	path := filepath.Join(tmp, "passcheck.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: loud\n"), 0o600))

	_, err := executeCommand(t, "serve", "--config", path)
	require.Error(t, err)
}

func loadConfig(t *testing.T) config.Config {
	t.Helper()
	isolate(t)
	cfg, err := config.Load(nil, "")
	require.NoError(t, err)
	return cfg
}

func TestBuildServer(t *testing.T) {
	cfg := loadConfig(t)
	cfg.Audit.Enabled = true
	cfg.Audit.File = filepath.Join(t.TempDir(), "audit.log")

	srv, cleanup, err := buildServer(cfg, zap.NewNop())
	require.NoError(t, err)
	defer cleanup()

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/check", strings.NewReader(`{"password": "Tr0ub4dor&3XyZ"}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "passcheck_evaluations_total")

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	var body struct {
		Checks map[string]json.RawMessage `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body.Checks, "ping")
	assert.Contains(t, body.Checks, "evaluator")
	assert.Contains(t, body.Checks, "memory")
	assert.Contains(t, body.Checks, "host_memory")

	_, err = os.Stat(cfg.Audit.File)
	assert.NoError(t, err)
}

func TestBuildServer_MetricsDisabled(t *testing.T) {
	cfg := loadConfig(t)
	cfg.Metrics.Enabled = false

	srv, cleanup, err := buildServer(cfg, zap.NewNop())
	require.NoError(t, err)
	defer cleanup()

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBuildServer_AuditFileUnwritable(t *testing.T) {
	cfg := loadConfig(t)
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))
	cfg.Audit.Enabled = true
	cfg.Audit.File = filepath.Join(blocker, "audit.log")

	_, _, err := buildServer(cfg, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open audit trail")
}

func TestServe_StopsOnCancel(t *testing.T) {
	cfg := loadConfig(t)
	cfg.Server.Address = "127.0.0.1:0"
	cfg.Log.Level = "error"

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, serve(ctx, cfg))
}
