package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, StoreMemory, cfg.Store.Driver)
	assert.Equal(t, UploadsLocal, cfg.Uploads.Backend)
	assert.Equal(t, int64(52428800), cfg.Uploads.MaxBytes)
	assert.Equal(t, 2*time.Second, cfg.Simulator.TickInterval)
	assert.Equal(t, 30*time.Second, cfg.Monitor.Interval)
	assert.Empty(t, cfg.Redis.Addr)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
server:
  port: "9090"
log:
  level: debug
  format: json
simulator:
  tick_interval: 500ms
uploads:
  dir: /tmp/artifacts
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("SIMULATOR_TICK_INTERVAL", "250ms")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "/tmp/artifacts", cfg.Uploads.Dir)
	assert.Equal(t, 250*time.Millisecond, cfg.Simulator.TickInterval)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	// untouched keys keep their defaults
	assert.Equal(t, "*", cfg.Server.CORSOrigin)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Run("tick interval", func(t *testing.T) {
		t.Setenv("SIMULATOR_TICK_INTERVAL", "soon")
		_, err := Load("")
		require.Error(t, err)
	})

	t.Run("store driver", func(t *testing.T) {
		t.Setenv("STORE_DRIVER", "sqlite")
		_, err := Load("")
		require.ErrorContains(t, err, "unknown store driver")
	})

	t.Run("s3 without bucket", func(t *testing.T) {
		t.Setenv("UPLOAD_BACKEND", "s3")
		_, err := Load("")
		require.ErrorContains(t, err, "s3_bucket")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
	})
}

func TestSetupLogging(t *testing.T) {
	require.NoError(t, SetupLogging(LogConfig{Level: "warn", Format: "json"}))
	require.Error(t, SetupLogging(LogConfig{Level: "loud"}))
	require.Error(t, SetupLogging(LogConfig{Level: "info", Format: "xml"}))
	require.NoError(t, SetupLogging(LogConfig{Level: "info", Format: "text"}))
}
