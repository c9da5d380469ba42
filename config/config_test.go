package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfigFile(t, ""))
	require.NoError(t, err)

	assert.Equal(t, "https://metal.com/Silver/20110225392", cfg.Source.URL)
	assert.Equal(t, 30*time.Second, cfg.Source.Timeout)
	assert.Equal(t, 2, cfg.Source.MaxRetries)
	assert.Equal(t, 5*time.Second, cfg.Source.RetryBackoff)

	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, 1920, cfg.Browser.WindowWidth)

	assert.True(t, cfg.Engine.HTTPFallback)

	assert.Equal(t, 1.0, cfg.Validate.RateMin)
	assert.Equal(t, 1000000.0, cfg.Validate.RateMax)

	assert.Equal(t, "csv/smm_silver_prices.csv", cfg.Store.CSVPath)
	assert.True(t, cfg.Store.DailyFiles)
	assert.True(t, cfg.Store.AuditFailedRows)

	assert.Equal(t, "screenshots", cfg.Diag.ScreenshotDir)
	assert.Equal(t, "logs", cfg.Diag.LogDir)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFileOverrides(t *testing.T) {
	path := writeConfigFile(t, `
source:
  url: https://example.com/silver
  timeout: 45s
  max_retries: 5
browser:
  headless: false
  wait_selector: ".price-block"
store:
  daily_files: false
  csv_path: data/rates.csv
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://example.com/silver", cfg.Source.URL)
	assert.Equal(t, 45*time.Second, cfg.Source.Timeout)
	assert.Equal(t, 5, cfg.Source.MaxRetries)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, ".price-block", cfg.Browser.WaitSelector)
	assert.False(t, cfg.Store.DailyFiles)
	assert.Equal(t, "data/rates.csv", cfg.Store.CSVPath)

	// Untouched keys keep their defaults.
	assert.Equal(t, 5*time.Second, cfg.Source.RetryBackoff)
	assert.True(t, cfg.Store.AuditFailedRows)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("SILVERSCRAPE_SOURCE_URL", "https://env.example.com/silver")

	cfg, err := Load(writeConfigFile(t, ""))
	require.NoError(t, err)
	assert.Equal(t, "https://env.example.com/silver", cfg.Source.URL)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"empty url", "source:\n  url: \"\"\n"},
		{"zero timeout", "source:\n  timeout: 0s\n"},
		{"negative retries", "source:\n  max_retries: -1\n"},
		{"inverted band", "validate:\n  rate_min: 100\n  rate_max: 10\n"},
		{"empty csv path", "store:\n  csv_path: \"\"\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfigFile(t, tc.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingExplicitFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
