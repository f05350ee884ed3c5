package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	t.Setenv("COINGECKO_API_KEY", "")
	t.Setenv("COINGECKO_BASE_URL", "")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "coingecko", cfg.API.Type)
	assert.Equal(t, DefaultBaseURL, cfg.API.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.API.Timeout)
	assert.Equal(t, "bitcoin", cfg.Asset.ID)
	assert.Equal(t, "Bitcoin", cfg.Asset.Name)
	assert.Equal(t, []string{"usd", "nok"}, cfg.Currencies)
	assert.Equal(t, 7, cfg.History.Days)
	assert.Equal(t, "daily", cfg.History.Interval)
	assert.Equal(t, "usd", cfg.History.Currency)
	assert.Equal(t, 60*time.Second, cfg.Poll.Interval)
	assert.Empty(t, cfg.Metrics.ListenAddress)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	t.Setenv("COINGECKO_API_KEY", "")
	t.Setenv("COINGECKO_BASE_URL", "")
	path := writeConfig(t, `
api:
  base_url: http://localhost:9999/api/v3
  timeout: 3s
currencies: [eur, usd]
history:
  days: 30
poll:
  interval: 15s
formats:
  eur:
    symbol: "€"
    placement: prefix
metrics:
  listen_address: ":9109"
log:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:9999/api/v3", cfg.API.BaseURL)
	assert.Equal(t, 3*time.Second, cfg.API.Timeout)
	assert.Equal(t, []string{"eur", "usd"}, cfg.Currencies)
	assert.Equal(t, "eur", cfg.History.Currency)
	assert.Equal(t, 30, cfg.History.Days)
	assert.Equal(t, 15*time.Second, cfg.Poll.Interval)
	assert.Equal(t, Format{Symbol: "€", Placement: "prefix"}, cfg.Formats["eur"])
	assert.Equal(t, ":9109", cfg.Metrics.ListenAddress)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("COINGECKO_API_KEY", "secret")
	t.Setenv("COINGECKO_BASE_URL", "http://example.test")
	path := writeConfig(t, "api:\n  api_key: from-file\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "secret", cfg.API.APIKey)
	assert.Equal(t, "http://example.test", cfg.API.BaseURL)
}

func TestLoad_Errors(t *testing.T) {
	t.Setenv("COINGECKO_API_KEY", "")
	t.Setenv("COINGECKO_BASE_URL", "")

	_, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	require.ErrorContains(t, err, "read config")

	_, err = Load(writeConfig(t, "currencies: [usd"))
	require.ErrorContains(t, err, "parse yaml")

	_, err = Load(writeConfig(t, "history:\n  days: -1\n"))
	require.ErrorContains(t, err, "history.days")

	_, err = Load(writeConfig(t, "api:\n  type: kraken\n"))
	require.ErrorContains(t, err, "unknown api type")

	_, err = Load(writeConfig(t, "formats:\n  eur:\n    symbol: x\n    placement: middle\n"))
	require.ErrorContains(t, err, "placement")
}

func TestLocation(t *testing.T) {
	cfg := Default()
	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)

	cfg.Display.TimeZone = "UTC"
	loc, err = cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "UTC", loc.String())

	cfg.Display.TimeZone = "Nowhere/Special"
	_, err = cfg.Location()
	require.Error(t, err)
}
