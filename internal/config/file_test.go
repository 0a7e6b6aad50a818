package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.True(t, cfg.Notifications.Desktop)
	assert.Equal(t, DefaultIncidentLookback, cfg.History.IncidentLookback)
	assert.False(t, cfg.Notifications.Email.Enabled())
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
log:
  level: debug
  format: json
notifications:
  desktop: false
  email:
    host: smtp.example.com
    from: alerts@example.com
    recipients:
      - ops@example.com
  webhooks:
    - https://hooks.example.com/abc
history:
  incident_lookback: 50
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.False(t, cfg.Notifications.Desktop)
	assert.True(t, cfg.Notifications.Email.Enabled())
	assert.Equal(t, 587, cfg.Notifications.Email.Port)
	assert.Equal(t, []string{"ops@example.com"}, cfg.Notifications.Email.Recipients)
	assert.Equal(t, []string{"https://hooks.example.com/abc"}, cfg.Notifications.Webhooks)
	assert.Equal(t, 50, cfg.History.IncidentLookback)
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log: [unclosed"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestConfigFilePathFromEnv(t *testing.T) {
	t.Setenv(ConfigEnv, "/tmp/custom.yaml")
	p, err := GetConfigFilePath()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/custom.yaml", p)
}
