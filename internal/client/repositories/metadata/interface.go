// Package metadata stores small client-side key/value state such as the
// sync cursor.
package metadata

import (
	"context"
	"time"
)

// SyncCursorKey holds the server updated_at up to which changes were pulled.
const SyncCursorKey = "sync.cursor"

type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	// GetTime returns the zero time when key is absent.
	GetTime(ctx context.Context, key string) (time.Time, error)
	SetTime(ctx context.Context, key string, t time.Time) error
}
