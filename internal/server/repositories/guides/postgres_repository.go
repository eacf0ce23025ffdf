package guides

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/plantcare/internal/api"
	"github.com/dmitrijs2005/plantcare/internal/common"
	"github.com/dmitrijs2005/plantcare/internal/dbx"
)

const columns = `id, plant_id, disease_name, severity, guide_type, steps, materials,
	estimated_duration_minutes, estimated_duration, created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanGuide(s scanner) (*api.Guide, error) {
	var (
		g                api.Guide
		disease, dur     sql.NullString
		minutes          sql.NullInt64
		steps, materials []byte
	)
	if err := s.Scan(&g.ID, &g.PlantID, &disease, &g.Severity, &g.GuideType, &steps, &materials,
		&minutes, &dur, &g.CreatedAt, &g.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(steps, &g.Steps); err != nil {
		return nil, fmt.Errorf("decode steps of guide %s: %w", g.ID, err)
	}
	if err := json.Unmarshal(materials, &g.Materials); err != nil {
		return nil, fmt.Errorf("decode materials of guide %s: %w", g.ID, err)
	}
	g.DiseaseName = dbx.StringPtr(disease)
	g.EstimatedDuration = dbx.StringPtr(dur)
	g.EstimatedDurationMinutes = dbx.IntPtr(minutes)
	return &g, nil
}

func encodeJSONB(g *api.Guide) (steps, materials []byte, err error) {
	if g.Materials == nil {
		g.Materials = []string{}
	}
	for i := range g.Steps {
		if g.Steps[i].Materials == nil {
			g.Steps[i].Materials = []string{}
		}
	}
	if steps, err = json.Marshal(g.Steps); err != nil {
		return nil, nil, err
	}
	if materials, err = json.Marshal(g.Materials); err != nil {
		return nil, nil, err
	}
	return steps, materials, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*api.Guide, error) {
	query := `SELECT ` + columns + ` FROM treatment_guides WHERE id = $1`

	g, err := scanGuide(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get guide %s: %w", id, err)
	}
	return g, nil
}

func (r *PostgresRepository) ListByPlant(ctx context.Context, plantID, disease string, limit, offset int) ([]*api.Guide, int, error) {
	where := `plant_id = $1`
	args := []any{plantID}
	if d := strings.TrimSpace(disease); d != "" {
		where += ` AND disease_name ILIKE $2`
		args = append(args, "%"+escapeLike(d)+"%")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM treatment_guides WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count guides: %w", err)
	}

	n := len(args)
	query := fmt.Sprintf(`SELECT %s FROM treatment_guides WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		columns, where, n+1, n+2)
	rows, err := r.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list guides: %w", err)
	}
	defer rows.Close()

	out := make([]*api.Guide, 0)
	for rows.Next() {
		g, err := scanGuide(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan guide: %w", err)
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list guides: %w", err)
	}
	return out, total, nil
}

func (r *PostgresRepository) Create(ctx context.Context, g *api.Guide) error {
	steps, materials, err := encodeJSONB(g)
	if err != nil {
		return fmt.Errorf("encode guide: %w", err)
	}

	query := `INSERT INTO treatment_guides (` + columns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err = r.db.ExecContext(ctx, query, g.ID, g.PlantID, dbx.NullString(g.DiseaseName), g.Severity, g.GuideType,
		steps, materials, dbx.NullInt(g.EstimatedDurationMinutes), dbx.NullString(g.EstimatedDuration),
		g.CreatedAt, g.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert guide: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Update(ctx context.Context, g *api.Guide) error {
	steps, materials, err := encodeJSONB(g)
	if err != nil {
		return fmt.Errorf("encode guide: %w", err)
	}

	query := `UPDATE treatment_guides SET plant_id = $2, disease_name = $3, severity = $4, guide_type = $5,
		steps = $6, materials = $7, estimated_duration_minutes = $8, estimated_duration = $9, updated_at = $10
		WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, g.ID, g.PlantID, dbx.NullString(g.DiseaseName), g.Severity, g.GuideType,
		steps, materials, dbx.NullInt(g.EstimatedDurationMinutes), dbx.NullString(g.EstimatedDuration), g.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update guide: %w", err)
	}
	return expectOne(res)
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM treatment_guides WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete guide: %w", err)
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

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
