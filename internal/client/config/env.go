package config

import (
	"os"

	"github.com/joho/godotenv"
)

const (
	EnvServer = "PLANTCARE_SERVER"
	EnvToken  = "PLANTCARE_TOKEN"
	EnvRedis  = "PLANTCARE_REDIS_URL"
	EnvDB     = "PLANTCARE_DB"
)

// parseEnv overlays cfg with PLANTCARE_* variables. A .env file in the
// working directory is loaded first; variables already set in the process
// environment take precedence over it.
func parseEnv(cfg *Config) {
	_ = godotenv.Load()

	set := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	set(&cfg.ServerURL, EnvServer)
	set(&cfg.Token, EnvToken)
	set(&cfg.RedisURL, EnvRedis)
	set(&cfg.DatabasePath, EnvDB)
}
