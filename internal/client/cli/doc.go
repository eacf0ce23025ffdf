// Package cli is the plantcare command-line client.
//
// Each command line builds a fresh cobra tree over one App, which owns the
// local SQLite store, the result cache and the services. Guides and
// identifications are served through the offline-aware orchestrator; the
// collection commands work against the local store and the sync command
// (or the daemon) reconciles it with the server. "shell" runs the same
// commands in a loop.
package cli
