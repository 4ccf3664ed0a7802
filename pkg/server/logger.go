package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"medrag/pkg/database"
)

// DBLogHandler is a slog.Handler that persists pipeline log records for a
// single query so they can be inspected after the response is gone.
type DBLogHandler struct {
	DB      *database.PostgresDB
	QueryID uuid.UUID

	console slog.Handler
}

func NewDBLogHandler(db *database.PostgresDB, queryID uuid.UUID) *DBLogHandler {
	return &DBLogHandler{
		DB:      db,
		QueryID: queryID,
		console: slog.NewTextHandler(os.Stderr, nil),
	}
}

func (h *DBLogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return true
}

func (h *DBLogHandler) Handle(ctx context.Context, r slog.Record) error {
	attrs := make(map[string]any)
	r.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value.Any()
		return true
	})

	metaJSON, err := json.Marshal(attrs)
	if err != nil {
		metaJSON = []byte("{}")
	}

	// Background context so the insert survives request cancellation.
	_, err = h.DB.Pool.Exec(context.Background(),
		`INSERT INTO rag_logs (query_id, timestamp, level, message, metadata)
		 VALUES ($1, $2, $3, $4, $5)`,
		h.QueryID, r.Time, r.Level.String(), r.Message, metaJSON)
	if err != nil {
		return h.console.Handle(ctx, r)
	}
	return nil
}

func (h *DBLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	// Attribute chaining is not needed for per-query logs.
	return h
}

func (h *DBLogHandler) WithGroup(name string) slog.Handler {
	return h
}
