package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/plantcare/internal/dbx"
	"github.com/dmitrijs2005/plantcare/internal/server/repositories/carehistory"
	"github.com/dmitrijs2005/plantcare/internal/server/repositories/collections"
	"github.com/dmitrijs2005/plantcare/internal/server/repositories/guides"
)

// RepositoryManager vends repositories bound to a DBTX, so services can
// run several of them inside one transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Guides(db dbx.DBTX) guides.Repository
	Collections(db dbx.DBTX) collections.Repository
	CareHistory(db dbx.DBTX) carehistory.Repository
}
