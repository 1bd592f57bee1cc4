/*
Package config loads engine settings from defaults, an optional YAML file
and LOYALTY_* environment variables.

PRECEDENCE (highest first):
  1. Environment, e.g. LOYALTY_HTTP_PORT=3000, LOYALTY_DB_PATH=:memory:
  2. Config file passed with --config
  3. Defaults below

EXAMPLE FILE:
  app:
    env: production
  http:
    port: 8080
    cors_origins: ["http://localhost:5173"]
  db:
    path: ./data/loyalty.db
  loyalty:
    timezone: Europe/Madrid
    currency_symbol: "€"

SEE ALSO:
  - cmd/server/root.go: --config flag
  - logging/logger.go: Consumes App and Log
*/
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "LOYALTY"

type Config struct {
	App struct {
		Env  string `mapstructure:"env"`
		Name string `mapstructure:"name"`
	} `mapstructure:"app"`
	Log struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`
	HTTP struct {
		Port         int           `mapstructure:"port"`
		ReadTimeout  time.Duration `mapstructure:"read_timeout"`
		WriteTimeout time.Duration `mapstructure:"write_timeout"`
		IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
		CORSOrigins  []string      `mapstructure:"cors_origins"`
	} `mapstructure:"http"`
	DB struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"db"`
	Loyalty struct {
		Timezone       string `mapstructure:"timezone"`
		CurrencySymbol string `mapstructure:"currency_symbol"`
	} `mapstructure:"loyalty"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("app.name", "loyalty-engine")
	v.SetDefault("log.level", "info")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.read_timeout", 15*time.Second)
	v.SetDefault("http.write_timeout", 15*time.Second)
	v.SetDefault("http.idle_timeout", 60*time.Second)
	v.SetDefault("http.cors_origins", []string{"http://localhost:5173", "http://localhost:8080"})
	v.SetDefault("db.path", "loyalty.db")
	v.SetDefault("loyalty.timezone", "UTC")
	v.SetDefault("loyalty.currency_symbol", "€")
}

// Load reads configuration. path may be empty, in which case only defaults
// and environment apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port %d out of range", c.HTTP.Port)
	}
	if strings.TrimSpace(c.DB.Path) == "" {
		return fmt.Errorf("db.path is required")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves loyalty.timezone. Campaign days roll over at midnight
// in this zone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Loyalty.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid loyalty.timezone %q: %w", c.Loyalty.Timezone, err)
	}
	return loc, nil
}

func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTP.Port)
}
