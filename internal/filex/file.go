// Package filex holds filesystem helpers for the client's data directory.
package filex

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnsureSubDir creates base/name (and parents) if needed and returns its
// path. An empty base means the current working directory.
func EnsureSubDir(base, name string) (string, error) {
	if base == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getwd: %w", err)
		}
		base = cwd
	}

	dir := filepath.Join(base, name)

	if err := os.MkdirAll(dir, 0o770); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}

	return dir, nil
}

// DataDir returns the per-user directory for application state, falling back
// to the working directory when the OS does not report one.
func DataDir(app string) (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		base = ""
	}
	return EnsureSubDir(base, app)
}
