package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 15*time.Second, cfg.Server.SubmitTimeout)
	assert.Equal(t, time.Second, cfg.Store.QuietPeriod)
	assert.Equal(t, "scoreform", cfg.Theme.Name)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  addr: ":9090"
  submit_timeout: 5s
model:
  path: /opt/models/credit.json
  watch: true
store:
  dir: /var/lib/scoreform
log:
  level: debug
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 5*time.Second, cfg.Server.SubmitTimeout)
	assert.Equal(t, "/opt/models/credit.json", cfg.Model.Path)
	assert.True(t, cfg.Model.Watch)
	assert.Equal(t, "/var/lib/scoreform", cfg.Store.Dir)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	// untouched sections keep defaults
	assert.Equal(t, time.Second, cfg.Store.QuietPeriod)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SCOREFORM_ADDR", ":7070")
	t.Setenv("SCOREFORM_MODEL_PATH", "/tmp/model.json")
	t.Setenv("SCOREFORM_QUIET_PERIOD", "250ms")
	t.Setenv("SCOREFORM_MODEL_WATCH", "true")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.Server.Addr)
	assert.Equal(t, "/tmp/model.json", cfg.Model.Path)
	assert.Equal(t, 250*time.Millisecond, cfg.Store.QuietPeriod)
	assert.True(t, cfg.Model.Watch)
}

func TestLoad_InvalidEnvDurationFallsBack(t *testing.T) {
	t.Setenv("SCOREFORM_QUIET_PERIOD", "soon")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, time.Second, cfg.Store.QuietPeriod)
}

func TestValidate_Rejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty addr", func(c *Config) { c.Server.Addr = "" }},
		{"zero submit timeout", func(c *Config) { c.Server.SubmitTimeout = 0 }},
		{"zero quiet period", func(c *Config) { c.Store.QuietPeriod = 0 }},
		{"bad log level", func(c *Config) { c.Log.Level = "verbose" }},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
