package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/plantcare/internal/flagx"
)

// Flags lists every flag owned by the config loader. The CLI strips them
// from os.Args before handing the rest to its command parser.
var Flags = []string{"-a", "-i", "-t", "-db", "-y", "-r", "-log-level", "-log-format"}

// parseFlags populates Config fields from command-line flags.
//
//	-a string           server base URL
//	-i int              online check interval (seconds)
//	-t string           bearer token
//	-db string          SQLite database path
//	-y int              background sync interval (seconds)
//	-r string           Redis URL for the result cache
//	-log-level string   debug, info, warn or error
//	-log-format string  text or json
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], Flags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerURL, "a", cfg.ServerURL, "server base URL")
	onlineCheckInterval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")
	fs.StringVar(&cfg.Token, "t", cfg.Token, "bearer token")
	fs.StringVar(&cfg.DatabasePath, "db", cfg.DatabasePath, "path to the local database")
	syncInterval := fs.Int("y", int(cfg.SyncInterval.Seconds()), "sync interval (in seconds)")
	fs.StringVar(&cfg.RedisURL, "r", cfg.RedisURL, "redis URL for the result cache")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format (text or json)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second
	cfg.SyncInterval = time.Duration(*syncInterval) * time.Second
}
