// Package collections is the client's local store of plant collection
// records, including rows not yet acknowledged by the server.
package collections

import (
	"context"
	"time"

	"github.com/dmitrijs2005/plantcare/internal/api"
	"github.com/dmitrijs2005/plantcare/internal/client/models"
)

type Repository interface {
	Create(ctx context.Context, c *models.LocalCollection) error
	// GetByKey looks a row up by local id or server id. A missing row is
	// common.ErrorNotFound.
	GetByKey(ctx context.Context, key string) (*models.LocalCollection, error)
	List(ctx context.Context) ([]*models.LocalCollection, error)
	// Save overwrites every column of the row identified by LocalID.
	Save(ctx context.Context, c *models.LocalCollection) error
	GetPending(ctx context.Context) ([]*models.LocalCollection, error)
	// ReplaceWithServer records the server's copy of a pushed row. When the
	// row is unchanged since it was read for the push (its updated_at still
	// equals pushedAt) it is overwritten and marked synced; otherwise only
	// the server id is stored and the row stays pending. It reports whether
	// the row was overwritten.
	ReplaceWithServer(ctx context.Context, localID string, rec api.CollectionRecord, pushedAt time.Time) (bool, error)
	// UpsertRemote applies a pulled server record unless the local copy has
	// pending edits. It reports whether the record was applied.
	UpsertRemote(ctx context.Context, rec api.CollectionRecord) (bool, error)
}
