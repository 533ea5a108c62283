package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolateHome points config and data paths at a temp dir so tests never read
// or write the real user config.
func isolateHome(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
}

func TestLoadConfig_Defaults(t *testing.T) {
	isolateHome(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "api", cfg.Source.Mode)
	assert.Empty(t, cfg.Source.URL)
	assert.False(t, cfg.IsConfigured())
	assert.Equal(t, 30, cfg.Sync.RecentWindowDays)
	assert.Equal(t, 10, cfg.Sync.TimeoutSeconds)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	isolateHome(t)
	t.Setenv("BOXIII_SOURCE_URL", "https://content.example")
	t.Setenv("BOXIII_SOURCE_MODE", "static")
	t.Setenv("BOXIII_SYNC_RECENT_WINDOW_DAYS", "7")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "https://content.example", cfg.Source.URL)
	assert.Equal(t, "static", cfg.Source.Mode)
	assert.Equal(t, 7, cfg.Sync.RecentWindowDays)
	assert.True(t, cfg.IsConfigured())
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	isolateHome(t)

	cfg := DefaultConfig()
	cfg.Source.Mode = "static"
	cfg.Source.URL = "https://content.example"
	cfg.Sync.RecentWindowDays = 14
	require.NoError(t, SaveConfig(cfg))

	loaded, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "static", loaded.Source.Mode)
	assert.Equal(t, "https://content.example", loaded.Source.URL)
	assert.Equal(t, 14, loaded.Sync.RecentWindowDays)
}

func TestLoadConfig_FileBeatenByEnv(t *testing.T) {
	isolateHome(t)

	cfg := DefaultConfig()
	cfg.Source.URL = "https://from-file.example"
	require.NoError(t, SaveConfig(cfg))

	t.Setenv("BOXIII_SOURCE_URL", "https://from-env.example")

	loaded, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "https://from-env.example", loaded.Source.URL)
}
