package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chTempDir(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chTempDir(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 5, cfg.Pipeline.Concurrency)
	assert.InDelta(t, 0.5, cfg.Pipeline.PerDomainRate, 0.001)
	assert.Equal(t, 1, cfg.Pipeline.PerDomainBurst)
	assert.Equal(t, 8, cfg.Patterns.MaxCandidates)
	assert.False(t, cfg.Patterns.Extended)
	assert.True(t, cfg.Verify.SMTPEnabled)
	assert.Equal(t, "verify.local", cfg.Verify.HeloDomain)
	assert.Equal(t, 10, cfg.Verify.TimeoutSecs)
	assert.Equal(t, 3, cfg.Verify.RetryAttempts)
	assert.InDelta(t, 0.9, cfg.Verify.ConfidenceValid, 0.001)
	assert.InDelta(t, 0.5, cfg.Verify.ConfidenceCatchAll, 0.001)
	assert.InDelta(t, 0.85, cfg.Verify.ConfidenceInvalid, 0.001)
	assert.InDelta(t, 0.3, cfg.Verify.ConfidenceMXOnly, 0.001)
	assert.Equal(t, 5, cfg.Resolver.DNSTimeoutSecs)
	assert.True(t, cfg.Resolver.SearchEnabled)
	assert.Equal(t, "https://html.duckduckgo.com/html", cfg.Search.BaseURL)
	assert.Equal(t, "https://api.brevo.com/v3", cfg.Brevo.BaseURL)
	assert.Equal(t, "LinkedIn Connections", cfg.Brevo.ListName)
}

func TestLoadFromYAML(t *testing.T) {
	chTempDir(t)

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/mailscout
pipeline:
  concurrency: 20
verify:
  smtp_enabled: false
  confidence_catch_all: 0.4
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile("config.yaml", []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/mailscout", cfg.Store.DatabaseURL)
	assert.Equal(t, 20, cfg.Pipeline.Concurrency)
	assert.False(t, cfg.Verify.SMTPEnabled)
	assert.InDelta(t, 0.4, cfg.Verify.ConfidenceCatchAll, 0.001)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)

	// Untouched keys keep their defaults.
	assert.Equal(t, 8, cfg.Patterns.MaxCandidates)
}

func TestInitLogger_BadLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "nope", Format: "json"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse log level")
}

func TestInitLogger_Console(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
}
