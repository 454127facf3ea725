package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"subsight/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := config.LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "textrazor", cfg.Extractor.Strategy)
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subsight.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[server]
port = 8080

[extractor]
strategy = "local"
`), 0o644))

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "local", cfg.Extractor.Strategy)
	// Untouched sections keep their defaults.
	assert.Equal(t, "subsight/0.1", cfg.Reddit.UserAgent)
}
