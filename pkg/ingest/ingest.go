package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"medrag/pkg/embeddings"
	"medrag/pkg/pubmed"
	"medrag/pkg/textproc"
)

const defaultBatchSize = 32

// ChunkWriter is the destination index for processed chunks.
type ChunkWriter interface {
	AddChunks(ctx context.Context, chunks []textproc.TextChunk, embeddings [][]float32) error
}

// Indexer turns collected articles into embedded chunks in the vector store.
type Indexer struct {
	Store     ChunkWriter
	Embedder  embeddings.Embedder
	Processor *textproc.Processor
	BatchSize int
	Logger    *slog.Logger
}

func NewIndexer(store ChunkWriter, embedder embeddings.Embedder, processor *textproc.Processor) *Indexer {
	return &Indexer{
		Store:     store,
		Embedder:  embedder,
		Processor: processor,
		BatchSize: defaultBatchSize,
		Logger:    slog.Default(),
	}
}

type IndexStats struct {
	Articles        int `json:"articles"`
	SkippedArticles int `json:"skipped_articles"`
	Chunks          int `json:"chunks"`
}

// IndexArticles processes, embeds, and stores the given articles. Embedding
// runs in batches so one failing batch does not discard prior work; the
// first failure aborts with the counts accumulated so far.
func (ix *Indexer) IndexArticles(ctx context.Context, articles []pubmed.Article) (IndexStats, error) {
	chunks, pstats := ix.Processor.ProcessArticles(articles)
	stats := IndexStats{Articles: pstats.Articles, SkippedArticles: pstats.Skipped}

	batchSize := ix.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	for start := 0; start < len(chunks); start += batchSize {
		end := start + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Content
		}

		embs, err := ix.Embedder.EmbedTexts(ctx, texts)
		if err != nil {
			return stats, fmt.Errorf("embedding batch at chunk %d: %w", start, err)
		}
		if err := ix.Store.AddChunks(ctx, batch, embs); err != nil {
			return stats, fmt.Errorf("storing batch at chunk %d: %w", start, err)
		}

		stats.Chunks += len(batch)
		ix.Logger.Info("indexed batch", "chunks", stats.Chunks, "total", len(chunks))
	}
	return stats, nil
}

// SaveCorpus writes a collected corpus to a JSON file.
func SaveCorpus(corpus *pubmed.Corpus, path string) error {
	data, err := json.MarshalIndent(corpus, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal corpus: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write corpus: %w", err)
	}
	return nil
}

// LoadCorpus reads a corpus previously written by SaveCorpus.
func LoadCorpus(path string) (*pubmed.Corpus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read corpus: %w", err)
	}
	var corpus pubmed.Corpus
	if err := json.Unmarshal(data, &corpus); err != nil {
		return nil, fmt.Errorf("parse corpus: %w", err)
	}
	return &corpus, nil
}
