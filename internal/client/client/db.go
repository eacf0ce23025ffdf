package client

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/dmitrijs2005/plantcare/internal/client/migrations"
	"github.com/dmitrijs2005/plantcare/internal/client/repositories/cacheentries"
	"github.com/dmitrijs2005/plantcare/internal/client/repositories/collections"
	"github.com/dmitrijs2005/plantcare/internal/client/repositories/metadata"
)

// Repositories bundles the local store.
type Repositories struct {
	DB          *sql.DB
	Metadata    metadata.Repository
	Collections collections.Repository
	// Cache persists result cache entries between runs.
	Cache *cacheentries.SQLiteRepository
}

func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// InitDatabase opens (or creates) the SQLite file at dsn and migrates it.
func InitDatabase(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// One writer at a time; avoids SQLITE_BUSY between the daemon's sync
	// and interactive commands.
	db.SetMaxOpenConns(1)

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func NewRepositories(db *sql.DB) *Repositories {
	return &Repositories{
		DB:          db,
		Metadata:    metadata.NewSQLiteRepository(db),
		Collections: collections.NewSQLiteRepository(db),
		Cache:       cacheentries.NewSQLiteRepository(db),
	}
}
