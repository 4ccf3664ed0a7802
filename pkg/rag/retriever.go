package rag

import (
	"context"
	"time"
)

// Retrieve translates the query, embeds it, and returns up to topK chunks
// with similarity at or above threshold, ordered by descending similarity,
// along with the elapsed milliseconds and the query actually searched.
// The store is queried with 2*topK candidates so threshold filtering does
// not starve the result set. Errors degrade to an empty result set; the
// caller turns that into the fixed no-results answer.
func (e *Engine) Retrieve(ctx context.Context, query string, topK int, threshold float64) ([]SearchResult, float64, string) {
	start := time.Now()
	translated := e.Translate(ctx, query)

	embedding, err := e.Embedder.EmbedText(ctx, translated)
	if err != nil {
		e.Logger.Error("query embedding failed", "error", err)
		return nil, msSince(start), translated
	}

	candidates, err := e.Store.Query(ctx, embedding, 2*topK)
	if err != nil {
		e.Logger.Error("vector search failed", "error", err)
		return nil, msSince(start), translated
	}

	// Candidates arrive sorted by the index; keep that order.
	results := make([]SearchResult, 0, topK)
	for _, c := range candidates {
		if c.Similarity < threshold {
			continue
		}
		results = append(results, SearchResult{
			ChunkID:         c.ChunkID,
			Content:         c.Content,
			Metadata:        c.Metadata,
			SimilarityScore: c.Similarity,
		})
		if len(results) == topK {
			break
		}
	}
	return results, msSince(start), translated
}
