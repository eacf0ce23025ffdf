package collections

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/plantcare/internal/api"
	"github.com/dmitrijs2005/plantcare/internal/client/models"
	"github.com/dmitrijs2005/plantcare/internal/common"
	"github.com/dmitrijs2005/plantcare/internal/dbx"
)

// Fixed-width UTC layout so TEXT columns sort chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const columns = `local_id, id, user_id, plant_id, common_name, scientific_name, image_url,
	identified_at, last_care_date, next_care_date, care_frequency_days, health_status,
	notes, is_synced, created_at, updated_at`

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatTimePtr(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

func parseTimePtr(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid {
		return nil, nil
	}
	t, err := parseTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRow(s scanner) (*models.LocalCollection, error) {
	var (
		c                              models.LocalCollection
		id, sci, img, notes            sql.NullString
		identified, lastCare, nextCare sql.NullString
		synced                         int
		createdAt, updatedAt           string
	)
	err := s.Scan(&c.LocalID, &id, &c.UserID, &c.PlantID, &c.CommonName, &sci, &img,
		&identified, &lastCare, &nextCare, &c.CareFrequencyDays, &c.HealthStatus,
		&notes, &synced, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	c.ID = id.String
	c.ScientificName = dbx.StringPtr(sci)
	c.ImageURL = dbx.StringPtr(img)
	c.Notes = dbx.StringPtr(notes)
	c.IsSynced = synced == 1

	if c.IdentifiedAt, err = parseTimePtr(identified); err != nil {
		return nil, err
	}
	if c.LastCareDate, err = parseTimePtr(lastCare); err != nil {
		return nil, err
	}
	if c.NextCareDate, err = parseTimePtr(nextCare); err != nil {
		return nil, err
	}
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if c.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *SQLiteRepository) query(ctx context.Context, where string, args ...any) ([]*models.LocalCollection, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+columns+` FROM collections `+where, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*models.LocalCollection
	for rows.Next() {
		c, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) Create(ctx context.Context, c *models.LocalCollection) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO collections (`+columns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.LocalID, dbx.NullString(nonEmpty(c.ID)), c.UserID, c.PlantID, c.CommonName,
		dbx.NullString(c.ScientificName), dbx.NullString(c.ImageURL),
		formatTimePtr(c.IdentifiedAt), formatTimePtr(c.LastCareDate), formatTimePtr(c.NextCareDate),
		c.CareFrequencyDays, c.HealthStatus, dbx.NullString(c.Notes), boolInt(c.IsSynced),
		formatTime(c.CreatedAt), formatTime(c.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert collection: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetByKey(ctx context.Context, key string) (*models.LocalCollection, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+columns+` FROM collections WHERE local_id = ? OR id = ?`, key, key)
	c, err := scanRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get collection %s: %w", key, err)
	}
	return c, nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]*models.LocalCollection, error) {
	list, err := r.query(ctx, `ORDER BY next_care_date IS NULL, next_care_date, created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	return list, nil
}

func (r *SQLiteRepository) GetPending(ctx context.Context) ([]*models.LocalCollection, error) {
	list, err := r.query(ctx, `WHERE is_synced = 0 ORDER BY updated_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to select pending collections: %w", err)
	}
	return list, nil
}

func (r *SQLiteRepository) Save(ctx context.Context, c *models.LocalCollection) error {
	res, err := r.db.ExecContext(ctx, `UPDATE collections SET
			id = ?, user_id = ?, plant_id = ?, common_name = ?, scientific_name = ?, image_url = ?,
			identified_at = ?, last_care_date = ?, next_care_date = ?, care_frequency_days = ?,
			health_status = ?, notes = ?, is_synced = ?, created_at = ?, updated_at = ?
		WHERE local_id = ?`,
		dbx.NullString(nonEmpty(c.ID)), c.UserID, c.PlantID, c.CommonName,
		dbx.NullString(c.ScientificName), dbx.NullString(c.ImageURL),
		formatTimePtr(c.IdentifiedAt), formatTimePtr(c.LastCareDate), formatTimePtr(c.NextCareDate),
		c.CareFrequencyDays, c.HealthStatus, dbx.NullString(c.Notes), boolInt(c.IsSynced),
		formatTime(c.CreatedAt), formatTime(c.UpdatedAt), c.LocalID)
	if err != nil {
		return fmt.Errorf("failed to update collection %s: %w", c.LocalID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *SQLiteRepository) ReplaceWithServer(ctx context.Context, localID string, rec api.CollectionRecord, pushedAt time.Time) (bool, error) {
	// A synced duplicate of the same server row (pulled before an ack was
	// lost) would violate the unique id.
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM collections WHERE id = ? AND local_id <> ? AND is_synced = 1`, rec.ID, localID); err != nil {
		return false, fmt.Errorf("failed to drop duplicate of %s: %w", rec.ID, err)
	}

	res, err := r.db.ExecContext(ctx, `UPDATE collections SET
			id = ?, user_id = ?, plant_id = ?, common_name = ?, scientific_name = ?, image_url = ?,
			identified_at = ?, last_care_date = ?, next_care_date = ?, care_frequency_days = ?,
			health_status = ?, notes = ?, is_synced = 1, created_at = ?, updated_at = ?
		WHERE local_id = ? AND updated_at = ?`,
		rec.ID, rec.UserID, rec.PlantID, rec.CommonName,
		dbx.NullString(rec.ScientificName), dbx.NullString(rec.ImageURL),
		formatTimePtr(rec.IdentifiedAt), formatTimePtr(rec.LastCareDate), formatTimePtr(rec.NextCareDate),
		rec.CareFrequencyDays, rec.HealthStatus, dbx.NullString(rec.Notes),
		formatTime(rec.CreatedAt), formatTime(rec.UpdatedAt), localID, formatTime(pushedAt))
	if err != nil {
		return false, fmt.Errorf("failed to replace collection %s: %w", localID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 1 {
		return true, nil
	}

	// Edited after the push was read: keep the edit pending, remember the id.
	if _, err := r.db.ExecContext(ctx, `UPDATE collections SET id = ? WHERE local_id = ?`, rec.ID, localID); err != nil {
		return false, fmt.Errorf("failed to remap collection %s: %w", localID, err)
	}
	return false, nil
}

func (r *SQLiteRepository) UpsertRemote(ctx context.Context, rec api.CollectionRecord) (bool, error) {
	var synced int
	err := r.db.QueryRowContext(ctx, `SELECT is_synced FROM collections WHERE id = ?`, rec.ID).Scan(&synced)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		rec.IsSynced = true
		if err := r.Create(ctx, &models.LocalCollection{LocalID: rec.ID, CollectionRecord: rec}); err != nil {
			return false, err
		}
		return true, nil
	case err != nil:
		return false, fmt.Errorf("failed to look up collection %s: %w", rec.ID, err)
	case synced == 0:
		return false, nil
	}

	_, err = r.db.ExecContext(ctx, `UPDATE collections SET
			user_id = ?, plant_id = ?, common_name = ?, scientific_name = ?, image_url = ?,
			identified_at = ?, last_care_date = ?, next_care_date = ?, care_frequency_days = ?,
			health_status = ?, notes = ?, is_synced = 1, created_at = ?, updated_at = ?
		WHERE id = ? AND is_synced = 1`,
		rec.UserID, rec.PlantID, rec.CommonName,
		dbx.NullString(rec.ScientificName), dbx.NullString(rec.ImageURL),
		formatTimePtr(rec.IdentifiedAt), formatTimePtr(rec.LastCareDate), formatTimePtr(rec.NextCareDate),
		rec.CareFrequencyDays, rec.HealthStatus, dbx.NullString(rec.Notes),
		formatTime(rec.CreatedAt), formatTime(rec.UpdatedAt), rec.ID)
	if err != nil {
		return false, fmt.Errorf("failed to apply remote collection %s: %w", rec.ID, err)
	}
	return true, nil
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
