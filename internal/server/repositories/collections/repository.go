// Package collections stores users' plant collections in PostgreSQL.
package collections

import (
	"context"
	"time"

	"github.com/dmitrijs2005/plantcare/internal/api"
)

type Repository interface {
	Create(ctx context.Context, c *api.CollectionRecord) error
	// GetByID returns the row regardless of owner; callers check UserID.
	GetByID(ctx context.Context, id string) (*api.CollectionRecord, error)
	// GetForUpdate is GetByID with a row lock, for use inside a transaction.
	GetForUpdate(ctx context.Context, id string) (*api.CollectionRecord, error)
	// List returns one page of a user's collections ordered by the next care
	// date (undated last), newest first within a date, plus the total count.
	List(ctx context.Context, userID, healthStatus string, limit, offset int) ([]api.CollectionRecord, int, error)
	// Update overwrites the mutable columns of the row with c.ID.
	Update(ctx context.Context, c *api.CollectionRecord) error
	Delete(ctx context.Context, id string) error
	// ChangesSince returns a user's rows updated strictly after since, oldest
	// first.
	ChangesSince(ctx context.Context, userID string, since time.Time) ([]api.CollectionRecord, error)
}
