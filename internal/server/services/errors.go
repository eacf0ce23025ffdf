package services

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrijs2005/plantcare/internal/common"
)

// storageErr tags connectivity failures with common.ErrorUnavailable so the
// HTTP layer can answer 503. Other errors pass through.
func storageErr(err error) error {
	if err == nil || errors.Is(err, common.ErrorNotFound) || errors.Is(err, common.ErrorForbidden) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var (
		connectErr *pgconn.ConnectError
		netErr     net.Error
	)
	if errors.As(err, &connectErr) || errors.As(err, &netErr) ||
		errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) || pgconn.Timeout(err) {
		return fmt.Errorf("%w: %v", common.ErrorUnavailable, err)
	}
	return err
}

// validID reports whether id can be a primary key. Anything else cannot
// exist, so lookups answer not found without touching the database.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
