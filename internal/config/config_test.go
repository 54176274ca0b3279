package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Bot config
	assert.Equal(t, "https://api.telegram.org", cfg.Bot.APIBase)
	assert.Equal(t, 30*time.Second, cfg.Bot.PollTimeout)

	// Ops config
	assert.Equal(t, "8090", cfg.Ops.Port)
	assert.True(t, cfg.Ops.Enabled)

	// Limits
	assert.Equal(t, int64(100*1024*1024), cfg.Limits.UserDownloadLimit)
	assert.Equal(t, int64(19*1024*1024), cfg.Limits.FetchCeiling)
	assert.Equal(t, int64(49*1024*1024), cfg.Limits.UploadCeiling)

	// Cooldowns
	assert.Equal(t, time.Second, cfg.Cooldown.Inbound)
	assert.Equal(t, time.Second, cfg.Cooldown.Outbound)

	// Logging config
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Logging.Development)
}

func TestLoadOrDefault(t *testing.T) {
	// Should return default when no env vars set
	cfg := LoadOrDefault()

	assert.NotNil(t, cfg)
	assert.Equal(t, "python3", cfg.Builder.Python)
	assert.Equal(t, "out", cfg.Builder.WorkRoot)
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	envVars := map[string]string{
		"BOT_TOKEN":           "test-token",
		"BOT_POLL_TIMEOUT":    "10s",
		"OPS_PORT":            "9090",
		"USER_DOWNLOAD_LIMIT": "1048576",
		"FETCH_CEILING":       "524288",
		"UPLOAD_CEILING":      "262144",
		"COOLDOWN_INBOUND":    "2s",
		"BUILDER_PYTHON":      "python",
		"LOG_LEVEL":           "debug",
		"LOG_DEV":             "true",
	}

	for key, value := range envVars {
		t.Setenv(key, value)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "test-token", cfg.Bot.Token)
	assert.Equal(t, 10*time.Second, cfg.Bot.PollTimeout)
	assert.Equal(t, "9090", cfg.Ops.Port)
	assert.Equal(t, int64(1048576), cfg.Limits.UserDownloadLimit)
	assert.Equal(t, int64(524288), cfg.Limits.FetchCeiling)
	assert.Equal(t, int64(262144), cfg.Limits.UploadCeiling)
	assert.Equal(t, 2*time.Second, cfg.Cooldown.Inbound)
	assert.Equal(t, "python", cfg.Builder.Python)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Development)
}

func TestAllowedIconExtensionsOverride(t *testing.T) {
	t.Setenv("ICON_EXTENSIONS", ".ico,.icns,.png")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{".ico", ".icns", ".png"}, cfg.AllowedIconExtensions())
}

func TestAllowedIconExtensionsPlatformDefault(t *testing.T) {
	os.Unsetenv("ICON_EXTENSIONS")
	cfg := Default()

	exts := cfg.AllowedIconExtensions()
	assert.NotEmpty(t, exts)
	for _, ext := range exts {
		assert.Contains(t, []string{".ico", ".icns"}, ext)
	}
}
