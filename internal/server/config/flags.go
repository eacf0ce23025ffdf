package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/plantcare/internal/flagx"
)

// Flags lists every flag parseFlags understands.
var Flags = []string{"-a", "-d", "-s", "-t", "-r", "-k", "-p", "-l", "-u", "-w", "-b", "-g", "-e", "-log-level", "-log-format"}

// parseFlags populates Config fields from command-line flags.
//
//	-a string   HTTP bind address (e.g. ":8080")
//	-d string   PostgreSQL DSN
//	-s string   JWT HMAC secret key
//	-t int      token validity, minutes
//	-r string   Redis URL for the result cache
//	-k string   Plant.id API key
//	-p string   Plant.id base URL
//	-l int      rate limit, requests per minute per IP
//	-u string   S3 root user
//	-w string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint
//
// Only the flags above are picked out of os.Args, so unknown arguments never
// make the server fail to start.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], Flags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	tokenValidity := fs.Int("t", int(config.TokenValidityDuration.Minutes()), "token validity (in minutes)")
	fs.StringVar(&config.RedisURL, "r", config.RedisURL, "redis URL (empty keeps the cache in memory)")
	fs.StringVar(&config.PlantIDAPIKey, "k", config.PlantIDAPIKey, "Plant.id API key")
	fs.StringVar(&config.PlantIDBaseURL, "p", config.PlantIDBaseURL, "Plant.id base URL")
	fs.IntVar(&config.RateLimitPerMinute, "l", config.RateLimitPerMinute, "rate limit per IP (requests per minute)")
	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "w", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.LogLevel, "log-level", config.LogLevel, "log level")
	fs.StringVar(&config.LogFormat, "log-format", config.LogFormat, "log format (json or text)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.TokenValidityDuration = time.Duration(*tokenValidity) * time.Minute
}
