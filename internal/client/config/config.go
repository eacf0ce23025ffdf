package config

import (
	"time"
)

// Config holds runtime settings for the plantcare CLI.
type Config struct {
	ServerURL           string
	Token               string
	OnlineCheckInterval time.Duration
	SyncInterval        time.Duration
	// DatabasePath is the SQLite file; empty means plantcare.db in the
	// user's data directory.
	DatabasePath string
	// RedisURL optionally backs the result cache with Redis.
	RedisURL  string
	LogLevel  string
	LogFormat string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.OnlineCheckInterval = 3 * time.Second
	c.SyncInterval = 60 * time.Second
	c.LogLevel = "warn"
	c.LogFormat = "text"
}

// LoadConfig applies defaults, then the environment, then the JSON file
// (if any), then command-line flags. Later sources win.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
