package database

import "context"

// InitSchema creates the audit tables used by the API server. The chunk
// table itself is created per collection by CreateChunksTable.
func (db *PostgresDB) InitSchema(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS query_logs (
			id UUID PRIMARY KEY,
			query TEXT NOT NULL,
			translated_query TEXT,
			mode TEXT NOT NULL,
			answer TEXT,
			documents_found INT NOT NULL DEFAULT 0,
			search_time_ms DOUBLE PRECISION NOT NULL DEFAULT 0,
			generation_time_ms DOUBLE PRECISION NOT NULL DEFAULT 0,
			total_time_ms DOUBLE PRECISION NOT NULL DEFAULT 0,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS rag_logs (
			id SERIAL PRIMARY KEY,
			query_id UUID NOT NULL,
			timestamp TIMESTAMP WITH TIME ZONE NOT NULL,
			level TEXT NOT NULL,
			message TEXT NOT NULL,
			metadata JSONB
		)`,
		`CREATE INDEX IF NOT EXISTS rag_logs_query_id_idx ON rag_logs (query_id)`,
	}

	for _, q := range queries {
		if _, err := db.Pool.Exec(ctx, q); err != nil {
			return err
		}
	}
	return nil
}
