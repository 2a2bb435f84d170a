package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// WindowConfig bounds the observation query window.
type WindowConfig struct {
	LookbackDays  int `yaml:"lookback_days"`
	LookaheadDays int `yaml:"lookahead_days"`
	MaxSpanDays   int `yaml:"max_span_days"`
}

// Config defines service configuration.
type Config struct {
	DatabaseURL     string        `yaml:"database_url"`
	HTTPAddr        string        `yaml:"http_addr"`
	JWTSecret       string        `yaml:"jwt_secret"`
	Window          WindowConfig  `yaml:"window"`
	SoftFlagCeiling int           `yaml:"soft_flag_ceiling"`
	DefaultLimit    int           `yaml:"default_limit"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Load loads config from env, with an optional yaml file named by
// BUOYCLOUD_CONFIG taking precedence over env values it sets.
func Load() (Config, error) {
	cfg := Config{
		DatabaseURL: getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		HTTPAddr:    getenvDefault("HTTP_ADDR", ":8080"),
		JWTSecret:   getenvDefault("AUTH_JWT_SECRET", getenvDefault("JWT_SECRET", "")),
		Window: WindowConfig{
			LookbackDays:  getenvIntDefault("WINDOW_LOOKBACK_DAYS", 3),
			LookaheadDays: getenvIntDefault("WINDOW_LOOKAHEAD_DAYS", 1),
			MaxSpanDays:   getenvIntDefault("WINDOW_MAX_SPAN_DAYS", 10),
		},
		SoftFlagCeiling: getenvIntDefault("SOFT_FLAG_CEILING", 50),
		DefaultLimit:    getenvIntDefault("DEFAULT_LIMIT", 0),
		ShutdownTimeout: getenvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}

	if path := os.Getenv("BUOYCLOUD_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}
	if cfg.Window.LookbackDays <= 0 {
		cfg.Window.LookbackDays = 3
	}
	if cfg.Window.LookaheadDays <= 0 {
		cfg.Window.LookaheadDays = 1
	}
	if cfg.Window.MaxSpanDays <= 0 {
		cfg.Window.MaxSpanDays = 10
	}
	if cfg.SoftFlagCeiling <= 0 {
		cfg.SoftFlagCeiling = 50
	}
	if cfg.DatabaseURL == "" {
		return cfg, errors.New("config: database url required")
	}
	return cfg, nil
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}
