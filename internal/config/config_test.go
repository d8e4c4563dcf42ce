package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/inkwell/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "inkwell.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
log_level: debug
max_steps: 500
store:
  driver: sqlite
  path: /tmp/inkwell.db
  ttl: 10m
server:
  addr: ":9000"
variables:
  name: Ana
  coins: 3
`)
	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 500, cfg.MaxSteps)
	assert.Equal(t, config.DriverSQLite, cfg.Store.Driver)
	assert.Equal(t, 10*time.Minute, cfg.Store.TTL)
	assert.Equal(t, "inkwell:", cfg.Store.Prefix, "unset keys keep defaults")
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, map[string]any{"name": "Ana", "coins": 3}, cfg.Variables)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "store:\n  driver: file\n  path: ./sessions\n")
	t.Setenv("INKWELL_STORE_DRIVER", "redis")
	t.Setenv("INKWELL_STORE_URL", "redis://localhost:6379/0")
	t.Setenv("INKWELL_LOG_FORMAT", "json")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.DriverRedis, cfg.Store.Driver)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Store.URL)
	assert.Equal(t, "./sessions", cfg.Store.Path)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"Unknown key", "colour: blue\n"},
		{"Unknown driver", "store:\n  driver: tape\n"},
		{"File without path", "store:\n  driver: file\n"},
		{"Redis without url", "store:\n  driver: redis\n"},
		{"Bad level", "log_level: loud\n"},
		{"Bad duration", "store:\n  ttl: soon\n"},
		{"Negative steps", "max_steps: -1\n"},
		{"Short key", "store:\n  encryption_key: abcd\n"},
		{"Fallback without key", "store:\n  fallback_keys: [" + testKey + "]\n"},
		{"Bad mask", "store:\n  mask: [\"(\"]\n"},
		{"Not yaml", "store: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}

	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

const testKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func TestLoad_StoreSecurity(t *testing.T) {
	path := writeConfig(t, "store:\n  encryption_key: "+testKey+"\n  mask: [password, ^ssn$]\n")
	t.Setenv("INKWELL_STORE_FALLBACK_KEYS", testKey)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, testKey, cfg.Store.EncryptionKey)
	assert.Equal(t, []string{testKey}, cfg.Store.FallbackKeys)
	assert.Equal(t, []string{"password", "^ssn$"}, cfg.Store.Mask)
}
