package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8080", cfg.Listen)
	assert.Equal(t, DefaultDB, cfg.DB)
	assert.Equal(t, 8, cfg.MinPasswordLength)
	assert.True(t, cfg.RequirePasswordConfirm)
	assert.Equal(t, int64(5<<20), cfg.MaxImageBytes)
	assert.Equal(t, 720*time.Hour, cfg.SessionLifetime)
}

func TestLoadFile(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name: "ini",
			file: "infodesk.ini",
			content: `listen = 0.0.0.0:9000
base = /info/
min_password_length = 12
require_password_confirm = false
session_lifetime = 24h
`,
		},
		{
			name: "yaml",
			file: "infodesk.yaml",
			content: `listen: 0.0.0.0:9000
base: info
min_password_length: 12
require_password_confirm: false
session_lifetime: 24h
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeFile(t, tt.file, tt.content))
			require.NoError(t, err)
			assert.Equal(t, "0.0.0.0:9000", cfg.Listen)
			assert.Equal(t, "/info", cfg.Base)
			assert.Equal(t, 12, cfg.MinPasswordLength)
			assert.False(t, cfg.RequirePasswordConfirm)
			assert.Equal(t, 24*time.Hour, cfg.SessionLifetime)
			assert.Equal(t, 12*time.Hour, cfg.SessionIdleTimeout) // default kept
			assert.Equal(t, DefaultDB, cfg.DB)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("INFODESK_DB", "sqlite3:other.sqlite3")
	t.Setenv("INFODESK_LISTEN", ":8081")
	t.Setenv("INFODESK_SESSION_LIFETIME", "1h")
	t.Setenv("INFODESK_MAX_IMAGE_BYTES", "1024")

	cfg, err := Load(writeFile(t, "infodesk.yml", "listen: 0.0.0.0:9000\n"))
	require.NoError(t, err)
	assert.Equal(t, "sqlite3:other.sqlite3", cfg.DB)
	assert.Equal(t, ":8081", cfg.Listen)
	assert.Equal(t, time.Hour, cfg.SessionLifetime)
	assert.Equal(t, int64(1024), cfg.MaxImageBytes)

	t.Setenv("INFODESK_SESSION_LIFETIME", "forever")
	_, err = Load("")
	assert.Error(t, err)
}

func TestCleanBase(t *testing.T) {
	assert.Equal(t, "", CleanBase("/"))
	assert.Equal(t, "/a/b", CleanBase("a/b/"))
}
