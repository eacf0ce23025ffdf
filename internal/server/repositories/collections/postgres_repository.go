package collections

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/plantcare/internal/api"
	"github.com/dmitrijs2005/plantcare/internal/common"
	"github.com/dmitrijs2005/plantcare/internal/dbx"
)

const columns = `id, user_id, plant_id, common_name, scientific_name, image_url, identified_at,
	last_care_date, next_care_date, care_frequency_days, health_status, notes, is_synced,
	created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCollection(s scanner) (api.CollectionRecord, error) {
	var (
		c                              api.CollectionRecord
		sci, img, notes                sql.NullString
		identified, lastCare, nextCare sql.NullTime
	)
	err := s.Scan(&c.ID, &c.UserID, &c.PlantID, &c.CommonName, &sci, &img, &identified,
		&lastCare, &nextCare, &c.CareFrequencyDays, &c.HealthStatus, &notes, &c.IsSynced,
		&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return c, err
	}
	c.ScientificName = dbx.StringPtr(sci)
	c.ImageURL = dbx.StringPtr(img)
	c.Notes = dbx.StringPtr(notes)
	c.IdentifiedAt = dbx.TimePtr(identified)
	c.LastCareDate = dbx.TimePtr(lastCare)
	c.NextCareDate = dbx.TimePtr(nextCare)
	return c, nil
}

func (r *PostgresRepository) Create(ctx context.Context, c *api.CollectionRecord) error {
	query := `INSERT INTO plant_collections (` + columns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err := r.db.ExecContext(ctx, query,
		c.ID, c.UserID, c.PlantID, c.CommonName, dbx.NullString(c.ScientificName), dbx.NullString(c.ImageURL),
		dbx.NullTime(c.IdentifiedAt), dbx.NullTime(c.LastCareDate), dbx.NullTime(c.NextCareDate),
		c.CareFrequencyDays, c.HealthStatus, dbx.NullString(c.Notes), c.IsSynced, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert collection: %w", err)
	}
	return nil
}

func (r *PostgresRepository) get(ctx context.Context, query, id string) (*api.CollectionRecord, error) {
	c, err := scanCollection(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get collection %s: %w", id, err)
	}
	return &c, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*api.CollectionRecord, error) {
	return r.get(ctx, `SELECT `+columns+` FROM plant_collections WHERE id = $1`, id)
}

func (r *PostgresRepository) GetForUpdate(ctx context.Context, id string) (*api.CollectionRecord, error) {
	return r.get(ctx, `SELECT `+columns+` FROM plant_collections WHERE id = $1 FOR UPDATE`, id)
}

func (r *PostgresRepository) List(ctx context.Context, userID, healthStatus string, limit, offset int) ([]api.CollectionRecord, int, error) {
	where := `user_id = $1`
	args := []any{userID}
	if healthStatus != "" {
		where += ` AND health_status = $2`
		args = append(args, healthStatus)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM plant_collections WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count collections: %w", err)
	}

	n := len(args)
	query := fmt.Sprintf(`SELECT %s FROM plant_collections WHERE %s
		ORDER BY next_care_date ASC NULLS LAST, created_at DESC LIMIT $%d OFFSET $%d`, columns, where, n+1, n+2)

	out, err := r.query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list collections: %w", err)
	}
	return out, total, nil
}

func (r *PostgresRepository) ChangesSince(ctx context.Context, userID string, since time.Time) ([]api.CollectionRecord, error) {
	query := `SELECT ` + columns + ` FROM plant_collections
		WHERE user_id = $1 AND updated_at > $2 ORDER BY updated_at ASC`

	out, err := r.query(ctx, query, userID, since)
	if err != nil {
		return nil, fmt.Errorf("collection changes: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) query(ctx context.Context, query string, args ...any) ([]api.CollectionRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]api.CollectionRecord, 0)
	for rows.Next() {
		c, err := scanCollection(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) Update(ctx context.Context, c *api.CollectionRecord) error {
	query := `UPDATE plant_collections SET common_name = $2, scientific_name = $3, image_url = $4,
		last_care_date = $5, next_care_date = $6, care_frequency_days = $7, health_status = $8,
		notes = $9, is_synced = $10, updated_at = $11
		WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, c.ID, c.CommonName, dbx.NullString(c.ScientificName),
		dbx.NullString(c.ImageURL), dbx.NullTime(c.LastCareDate), dbx.NullTime(c.NextCareDate),
		c.CareFrequencyDays, c.HealthStatus, dbx.NullString(c.Notes), c.IsSynced, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update collection: %w", err)
	}
	return expectOne(res)
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM plant_collections WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete collection: %w", err)
	}
	return expectOne(res)
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
