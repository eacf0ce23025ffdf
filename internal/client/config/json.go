package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/plantcare/internal/flagx"
	"github.com/dmitrijs2005/plantcare/internal/timex"
)

// JsonConfig mirrors Config for unmarshalling. Intervals accept "3s" style
// strings or integer nanoseconds. Absent keys leave the current value.
type JsonConfig struct {
	ServerURL           string          `json:"server_url"`
	Token               string          `json:"token"`
	OnlineCheckInterval *timex.Duration `json:"online_check_interval"`
	SyncInterval        *timex.Duration `json:"sync_interval"`
	DatabasePath        string          `json:"database_path"`
	RedisURL            string          `json:"redis_url"`
	LogLevel            string          `json:"log_level"`
	LogFormat           string          `json:"log_format"`
}

// parseJson overlays cfg with the file named by -c/-config. It panics on
// read or decode errors.
func parseJson(cfg *Config) {
	path := flagx.ConfigPath(os.Args[1:])
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}
	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	overlay(&cfg.ServerURL, jc.ServerURL)
	overlay(&cfg.Token, jc.Token)
	overlay(&cfg.DatabasePath, jc.DatabasePath)
	overlay(&cfg.RedisURL, jc.RedisURL)
	overlay(&cfg.LogLevel, jc.LogLevel)
	overlay(&cfg.LogFormat, jc.LogFormat)
	if jc.OnlineCheckInterval != nil {
		cfg.OnlineCheckInterval = jc.OnlineCheckInterval.Duration
	}
	if jc.SyncInterval != nil {
		cfg.SyncInterval = jc.SyncInterval.Duration
	}
}

func overlay(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
