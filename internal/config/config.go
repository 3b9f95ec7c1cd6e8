package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all engine configuration.
type Config struct {
	Engine  EngineConfig
	HTTP    HTTPConfig
	Logging LogConfig
	Server  ServerConfig
}

// EngineConfig holds script run settings.
type EngineConfig struct {
	Timeout          time.Duration `envconfig:"RELAY_SCRIPT_TIMEOUT" default:"30s"`
	DrainGraceRounds int           `envconfig:"RELAY_DRAIN_GRACE_ROUNDS" default:"5"`
	MaxCallStack     int           `envconfig:"RELAY_MAX_CALL_STACK" default:"1024"`
}

// HTTPConfig holds network executor settings.
type HTTPConfig struct {
	Timeout      time.Duration `envconfig:"RELAY_HTTP_TIMEOUT" default:"30s"`
	RetryMax     int           `envconfig:"RELAY_HTTP_RETRY_MAX" default:"0"`
	RetryWaitMin time.Duration `envconfig:"RELAY_HTTP_RETRY_WAIT_MIN" default:"1s"`
	RetryWaitMax time.Duration `envconfig:"RELAY_HTTP_RETRY_WAIT_MAX" default:"10s"`
	RateRPS      float64       `envconfig:"RELAY_HTTP_RATE_RPS" default:"0"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"RELAY_LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"RELAY_LOG_DEV" default:"false"`
}

// ServerConfig holds debug server configuration.
type ServerConfig struct {
	Port string `envconfig:"RELAY_PORT" default:"8700"`
	Host string `envconfig:"RELAY_HOST" default:"127.0.0.1"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			Timeout:          30 * time.Second,
			DrainGraceRounds: 5,
			MaxCallStack:     1024,
		},
		HTTP: HTTPConfig{
			Timeout:      30 * time.Second,
			RetryMax:     0,
			RetryWaitMin: 1 * time.Second,
			RetryWaitMax: 10 * time.Second,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		Server: ServerConfig{
			Port: "8700",
			Host: "127.0.0.1",
		},
	}
}
