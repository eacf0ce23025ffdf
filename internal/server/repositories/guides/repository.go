// Package guides stores treatment and identification guides in PostgreSQL.
package guides

import (
	"context"

	"github.com/dmitrijs2005/plantcare/internal/api"
)

type Repository interface {
	GetByID(ctx context.Context, id string) (*api.Guide, error)
	// ListByPlant returns one page of guides for plantID, newest first, and
	// the total number of matches. A non-empty disease filters by a
	// case-insensitive substring of disease_name.
	ListByPlant(ctx context.Context, plantID, disease string, limit, offset int) ([]*api.Guide, int, error)
	Create(ctx context.Context, g *api.Guide) error
	Update(ctx context.Context, g *api.Guide) error
	Delete(ctx context.Context, id string) error
}
