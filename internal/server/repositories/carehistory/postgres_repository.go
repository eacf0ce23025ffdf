package carehistory

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/plantcare/internal/api"
	"github.com/dmitrijs2005/plantcare/internal/dbx"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, h *api.CareHistory) error {
	query := `INSERT INTO care_history (id, collection_id, care_date, care_type, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.ExecContext(ctx, query, h.ID, h.CollectionID, h.CareDate, h.CareType, dbx.NullString(h.Notes), h.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert care history: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListByCollection(ctx context.Context, collectionID string, limit int) ([]api.CareHistory, error) {
	query := `SELECT id, collection_id, care_date, care_type, notes, created_at FROM care_history
		WHERE collection_id = $1 ORDER BY care_date DESC LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, collectionID, limit)
	if err != nil {
		return nil, fmt.Errorf("list care history: %w", err)
	}
	defer rows.Close()

	out := make([]api.CareHistory, 0)
	for rows.Next() {
		var (
			h     api.CareHistory
			notes sql.NullString
		)
		if err := rows.Scan(&h.ID, &h.CollectionID, &h.CareDate, &h.CareType, &notes, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan care history: %w", err)
		}
		h.Notes = dbx.StringPtr(notes)
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list care history: %w", err)
	}
	return out, nil
}
