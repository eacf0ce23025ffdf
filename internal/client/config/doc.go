// Package config loads runtime configuration for the plantcare CLI.
//
// Sources, lowest precedence first:
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Environment: PLANTCARE_SERVER, PLANTCARE_TOKEN, PLANTCARE_REDIS_URL,
//     PLANTCARE_DB, optionally read from a .env file.
//  3. A JSON file selected with -c or -config.
//  4. Command-line flags (see Flags).
//
// JSON example:
//
//	{
//	  "server_url": "https://plantcare.example.com",
//	  "online_check_interval": "3s",
//	  "sync_interval": "1m"
//	}
package config
