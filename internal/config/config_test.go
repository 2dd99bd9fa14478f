package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "cms.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := NewLoader("", nil).Load()
	require.NoError(t, err)
	assert.Equal(t, ":8081", cfg.Admin.Addr)
	assert.True(t, cfg.Admin.CSRF)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "json", cfg.Storage.Driver)
	assert.Equal(t, "/uploads", cfg.Uploads.URLPrefix)
	assert.Equal(t, int64(10<<20), cfg.Uploads.MaxBytes)
	assert.Equal(t, slog.LevelInfo, cfg.Log.SlogLevel())
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
storage:
  driver: sqlite
  path: cms.db
uploads:
  max_bytes: 1024
render:
  sanitize: true
log:
  level: debug
`)
	t.Setenv("CMS_ADMIN_ADDR", ":9000")

	cfg, err := NewLoader(path, nil).Load()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, "cms.db", cfg.Storage.Path)
	assert.Equal(t, int64(1024), cfg.Uploads.MaxBytes)
	assert.True(t, cfg.Render.Sanitize)
	assert.Equal(t, slog.LevelDebug, cfg.Log.SlogLevel())
	assert.Equal(t, ":9000", cfg.Admin.Addr)
}

func TestLoad_Errors(t *testing.T) {
	_, err := NewLoader(filepath.Join(t.TempDir(), "missing.yaml"), nil).Load()
	assert.Error(t, err, "an explicit file must exist")

	path := writeConfig(t, t.TempDir(), "storage:\n  driver: postgres\n")
	_, err = NewLoader(path, nil).Load()
	assert.ErrorContains(t, err, "unknown storage driver")
}

func TestSlogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelWarn, LogConfig{Level: "WARN"}.SlogLevel())
	assert.Equal(t, slog.LevelError, LogConfig{Level: " error "}.SlogLevel())
	assert.Equal(t, slog.LevelInfo, LogConfig{Level: "chatty"}.SlogLevel())
}

func TestReload(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "log:\n  level: info\n")

	var logs bytes.Buffer
	level := new(slog.LevelVar)
	l := NewLoader(path, NewLogger(&logs, level))
	_, err := l.Load()
	require.NoError(t, err)

	var got *Config
	writeConfig(t, dir, "log:\n  level: debug\nrender:\n  sanitize: true\n")
	require.NoError(t, l.Viper().ReadInConfig())
	l.reload(fsnotify.Event{Name: path, Op: fsnotify.Write}, level, func(c *Config) { got = c })

	require.NotNil(t, got)
	assert.True(t, got.Render.Sanitize)
	assert.Equal(t, slog.LevelDebug, level.Level())
	assert.Contains(t, logs.String(), "Config reloaded")

	got = nil
	writeConfig(t, dir, "storage:\n  driver: nope\n")
	require.NoError(t, l.Viper().ReadInConfig())
	l.reload(fsnotify.Event{Name: path, Op: fsnotify.Write}, level, func(c *Config) { got = c })
	assert.Nil(t, got, "invalid edits are ignored")
	assert.Equal(t, slog.LevelDebug, level.Level())
}
