package config

import (
	"os"

	"github.com/joho/godotenv"
)

const (
	EnvDatabaseURL = "DATABASE_URL"
	EnvJWTSecret   = "JWT_SECRET"
	EnvRedisURL    = "REDIS_URL"
	EnvPlantIDKey  = "PLANT_ID_API_KEY"
	EnvHTTPAddr    = "HTTP_ADDR"
)

// parseEnv overlays cfg with process environment variables, after loading a
// .env file from the working directory if one exists. Empty values are
// ignored.
func parseEnv(cfg *Config) {
	_ = godotenv.Load()

	for key, dst := range map[string]*string{
		EnvDatabaseURL: &cfg.DatabaseDSN,
		EnvJWTSecret:   &cfg.SecretKey,
		EnvRedisURL:    &cfg.RedisURL,
		EnvPlantIDKey:  &cfg.PlantIDAPIKey,
		EnvHTTPAddr:    &cfg.HTTPAddr,
	} {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
}
