package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", t.TempDir())
		t.Setenv("HOME", t.TempDir())

		cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
		require.NoError(t, err)

		assert.Equal(t, "http://localhost:8080/api/v1", cfg.APIURL)
		assert.Equal(t, "ws://localhost:8080/gateway", cfg.GatewayURL)
		assert.Equal(t, 5, cfg.Sync.CacheCapacity)
		assert.Equal(t, 8*time.Second, cfg.Sync.TypingTimeout)
		assert.Equal(t, 500*time.Millisecond, cfg.Sync.AckDebounce)
		assert.True(t, cfg.Sync.DetectZombieSessions)
		assert.False(t, cfg.Status.IsConfigured())
		assert.False(t, cfg.Credentials.IsConfigured())
		assert.Equal(t, "drocsid", filepath.Base(cfg.DataDir))
	})

	t.Run("env file values", func(t *testing.T) {
		envFile := filepath.Join(t.TempDir(), "test.env")
		content := "DROCSID_API_URL=https://chat.example.com/api/v1\n" +
			"DROCSID_CACHE_CAPACITY=3\n" +
			"DROCSID_DETECT_ZOMBIE=false\n" +
			"DROCSID_STATUS_ADDR=127.0.0.1:7878\n" +
			"DROCSID_DATA_DIR=/tmp/drocsid-test\n"
		require.NoError(t, os.WriteFile(envFile, []byte(content), 0o600))
		for _, key := range []string{"DROCSID_API_URL", "DROCSID_CACHE_CAPACITY", "DROCSID_DETECT_ZOMBIE", "DROCSID_STATUS_ADDR", "DROCSID_DATA_DIR"} {
			t.Setenv(key, "")
			os.Unsetenv(key)
		}

		cfg, err := LoadConfig(envFile)
		require.NoError(t, err)

		assert.Equal(t, "https://chat.example.com/api/v1", cfg.APIURL)
		assert.Equal(t, 3, cfg.Sync.CacheCapacity)
		assert.False(t, cfg.Sync.DetectZombieSessions)
		assert.True(t, cfg.Status.IsConfigured())
		assert.Equal(t, "/tmp/drocsid-test", cfg.DataDir)
	})

	t.Run("rejects invalid capacity", func(t *testing.T) {
		t.Setenv("DROCSID_CACHE_CAPACITY", "0")

		_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
		assert.Error(t, err)
	})

	t.Run("rejects non-numeric timeout", func(t *testing.T) {
		t.Setenv("DROCSID_TYPING_TIMEOUT_MS", "soon")

		_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "DROCSID_TYPING_TIMEOUT_MS")
	})
}
