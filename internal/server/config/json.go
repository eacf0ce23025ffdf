package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/plantcare/internal/flagx"
	"github.com/dmitrijs2005/plantcare/internal/timex"
)

// JsonConfig is the on-disk shape of the server configuration. Durations
// accept "1m" style strings or integer nanoseconds. Absent keys keep the
// value from earlier sources.
type JsonConfig struct {
	HTTPAddr              string          `json:"http_addr"`
	DatabaseDSN           string          `json:"database_dsn"`
	SecretKey             string          `json:"secret_key"`
	TokenValidityDuration *timex.Duration `json:"token_validity_duration"`
	RedisURL              string          `json:"redis_url"`
	PlantIDAPIKey         string          `json:"plant_id_api_key"`
	PlantIDBaseURL        string          `json:"plant_id_base_url"`
	RateLimitPerMinute    int             `json:"rate_limit_per_minute"`
	RateLimitBurst        int             `json:"rate_limit_burst"`
	GuideCacheTTL         *timex.Duration `json:"guide_cache_ttl"`
	IdentifyCacheTTL      *timex.Duration `json:"identify_cache_ttl"`
	CacheCleanupInterval  *timex.Duration `json:"cache_cleanup_interval"`
	ShutdownTimeout       *timex.Duration `json:"shutdown_timeout"`
	S3RootUser            string          `json:"s3_root_user"`
	S3RootPassword        string          `json:"s3_root_password"`
	S3Bucket              string          `json:"s3_bucket"`
	S3Region              string          `json:"s3_region"`
	S3BaseEndpoint        string          `json:"s3_base_endpoint"`
	LogLevel              string          `json:"log_level"`
	LogFormat             string          `json:"log_format"`
}

// parseJson overlays config with the file named by -c/-config, if any.
// Unreadable or invalid files panic.
func parseJson(config *Config) {
	path := flagx.ConfigPath(os.Args[1:])
	if path == "" {
		return
	}

	file, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}
	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	overlay(&config.HTTPAddr, c.HTTPAddr)
	overlay(&config.DatabaseDSN, c.DatabaseDSN)
	overlay(&config.SecretKey, c.SecretKey)
	overlay(&config.RedisURL, c.RedisURL)
	overlay(&config.PlantIDAPIKey, c.PlantIDAPIKey)
	overlay(&config.PlantIDBaseURL, c.PlantIDBaseURL)
	overlay(&config.S3RootUser, c.S3RootUser)
	overlay(&config.S3RootPassword, c.S3RootPassword)
	overlay(&config.S3Bucket, c.S3Bucket)
	overlay(&config.S3Region, c.S3Region)
	overlay(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	overlay(&config.LogLevel, c.LogLevel)
	overlay(&config.LogFormat, c.LogFormat)

	if c.RateLimitPerMinute > 0 {
		config.RateLimitPerMinute = c.RateLimitPerMinute
	}
	if c.RateLimitBurst > 0 {
		config.RateLimitBurst = c.RateLimitBurst
	}

	setDuration(&config.TokenValidityDuration, c.TokenValidityDuration)
	setDuration(&config.GuideCacheTTL, c.GuideCacheTTL)
	setDuration(&config.IdentifyCacheTTL, c.IdentifyCacheTTL)
	setDuration(&config.CacheCleanupInterval, c.CacheCleanupInterval)
	setDuration(&config.ShutdownTimeout, c.ShutdownTimeout)
}

func overlay(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v *timex.Duration) {
	if v != nil {
		*dst = v.Duration
	}
}
