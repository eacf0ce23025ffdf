// Package carehistory stores care events recorded against collections.
package carehistory

import (
	"context"

	"github.com/dmitrijs2005/plantcare/internal/api"
)

type Repository interface {
	Create(ctx context.Context, h *api.CareHistory) error
	// ListByCollection returns the most recent events first, at most limit.
	ListByCollection(ctx context.Context, collectionID string, limit int) ([]api.CareHistory, error)
}
