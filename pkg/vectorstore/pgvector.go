package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"medrag/pkg/textproc"
)

// StoredChunk is one similarity-search hit. Similarity is 1 - cosine
// distance, so higher means more relevant and values may go negative.
type StoredChunk struct {
	ChunkID    string         `json:"chunk_id"`
	Content    string         `json:"content"`
	Metadata   map[string]any `json:"metadata"`
	Similarity float64        `json:"similarity_score"`
}

// PGVectorStore handles pgvector operations for one chunk collection.
type PGVectorStore struct {
	pool      *pgxpool.Pool
	tableName string
}

// isValidTableName validates that a table name contains only safe characters
// to prevent SQL injection attacks
func isValidTableName(name string) bool {
	// Only allow alphanumeric characters and underscores
	// Table names must start with a letter or underscore and be between 1-63 chars (PostgreSQL limit)
	matched, _ := regexp.MatchString(`^[a-z_][a-zA-Z0-9_]{0,62}$`, name)
	return matched
}

// NewPGVectorStore creates a store bound to the named collection table.
func NewPGVectorStore(pool *pgxpool.Pool, tableName string) (*PGVectorStore, error) {
	if !isValidTableName(tableName) {
		return nil, fmt.Errorf("invalid table name: must contain only alphanumeric characters and underscores, start with a letter or underscore, and be 1-63 characters long")
	}
	return &PGVectorStore{
		pool:      pool,
		tableName: tableName,
	}, nil
}

// AddChunks upserts chunks with their embeddings. Chunk IDs are
// deterministic, so re-ingesting an article replaces its rows.
func (vs *PGVectorStore) AddChunks(ctx context.Context, chunks []textproc.TextChunk, embeddings [][]float32) error {
	if len(chunks) != len(embeddings) {
		return fmt.Errorf("chunk/embedding count mismatch: %d vs %d", len(chunks), len(embeddings))
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, content, metadata, embedding)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET content = EXCLUDED.content, metadata = EXCLUDED.metadata, embedding = EXCLUDED.embedding
	`, pgx.Identifier{vs.tableName}.Sanitize())

	batch := &pgx.Batch{}
	for i, chunk := range chunks {
		metadataJSON, err := json.Marshal(FlattenMetadata(chunk.Metadata))
		if err != nil {
			return fmt.Errorf("failed to marshal metadata for %s: %w", chunk.ID, err)
		}
		batch.Queue(query, chunk.ID, chunk.Content, metadataJSON, pgvector.NewVector(embeddings[i]))
	}

	br := vs.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range chunks {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("failed to insert chunk: %w", err)
		}
	}

	return nil
}

// Query runs a cosine similarity search. Results come back ordered by
// ascending distance, i.e. descending similarity.
func (vs *PGVectorStore) Query(ctx context.Context, queryEmbedding []float32, k int) ([]StoredChunk, error) {
	query := fmt.Sprintf(`
		SELECT id, content, metadata, 1 - (embedding <=> $1) as similarity
		FROM %s
		ORDER BY embedding <=> $1
		LIMIT $2
	`, pgx.Identifier{vs.tableName}.Sanitize())

	rows, err := vs.pool.Query(ctx, query, pgvector.NewVector(queryEmbedding), k)
	if err != nil {
		return nil, fmt.Errorf("failed to execute similarity search: %w", err)
	}
	defer rows.Close()

	var results []StoredChunk
	for rows.Next() {
		var chunk StoredChunk
		var metadataJSON []byte

		if err := rows.Scan(&chunk.ChunkID, &chunk.Content, &metadataJSON, &chunk.Similarity); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		var flat map[string]any
		if err := json.Unmarshal(metadataJSON, &flat); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
		chunk.Metadata = RestoreMetadata(flat)

		results = append(results, chunk)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return results, nil
}

// Count returns the number of chunks in the collection.
func (vs *PGVectorStore) Count(ctx context.Context) (int, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, pgx.Identifier{vs.tableName}.Sanitize())

	var count int
	if err := vs.pool.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return count, nil
}

// Reset wipes the collection for a corpus rebuild.
func (vs *PGVectorStore) Reset(ctx context.Context) error {
	query := fmt.Sprintf(`TRUNCATE %s`, pgx.Identifier{vs.tableName}.Sanitize())
	if _, err := vs.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to reset collection: %w", err)
	}
	return nil
}
