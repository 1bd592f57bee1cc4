package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/loyalty-engine/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("")

	require.NoError(t, err)
	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, 15*time.Second, cfg.HTTP.ReadTimeout)
	assert.Equal(t, "loyalty.db", cfg.DB.Path)
	assert.Equal(t, "€", cfg.Loyalty.CurrencySymbol)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.False(t, cfg.IsProduction())
}

func TestLoad_FileThenEnv(t *testing.T) {
	// GIVEN: A config file and an environment override for the port
	path := filepath.Join(t.TempDir(), "loyalty.yaml")
	body := `
app:
  env: production
http:
  port: 9000
  write_timeout: 5s
db:
  path: /tmp/x.db
loyalty:
  timezone: Europe/Madrid
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	t.Setenv("LOYALTY_HTTP_PORT", "9100")

	// WHEN: Loading
	cfg, err := config.Load(path)

	// THEN: Environment wins over the file, the file over defaults
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.HTTP.Port)
	assert.Equal(t, 5*time.Second, cfg.HTTP.WriteTimeout)
	assert.Equal(t, "/tmp/x.db", cfg.DB.Path)
	assert.True(t, cfg.IsProduction())

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Madrid", loc.String())
}

func TestLoad_InvalidTimezone(t *testing.T) {
	t.Setenv("LOYALTY_LOYALTY_TIMEZONE", "Mars/Olympus")

	_, err := config.Load("")

	assert.ErrorContains(t, err, "loyalty.timezone")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
