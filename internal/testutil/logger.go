package testutil

import (
	"io"
	"log/slog"

	"github.com/dmitrijs2005/plantcare/internal/logging"
)

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}
