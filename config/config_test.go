package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"listen_addr": ":9090",
		"max_retries": 5,
		"endpoints": ["https://api.example.com/v?id=%s"]
	}`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.Equal(t, 5, cfg.MaxRetries)
	assert.Equal(t, []string{"https://api.example.com/v?id=%s"}, cfg.Endpoints)
	// 文件没写的字段保持默认
	assert.Equal(t, 15, cfg.RequestTimeout)
	assert.Equal(t, 20, cfg.EndpointAbort)
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, 2, cfg.MaxRetries)
	assert.NotEmpty(t, cfg.Endpoints)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("LISTEN_ADDR", ":7000")
	t.Setenv("DOUYIN_ENDPOINTS", " https://a/v?id=%s , https://b/v?id=%s ")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.ListenAddr)
	assert.Equal(t, []string{"https://a/v?id=%s", "https://b/v?id=%s"}, cfg.Endpoints)
}

func TestLoadConfigBadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{broken`), 0o644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}
