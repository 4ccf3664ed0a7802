package rag

import (
	"context"

	"medrag/pkg/vectorstore"
)

// SearchResult is one retrieved chunk with its provenance metadata
// restored to structured form.
type SearchResult struct {
	ChunkID         string         `json:"chunk_id"`
	Content         string         `json:"content"`
	Metadata        map[string]any `json:"metadata"`
	SimilarityScore float64        `json:"similarity_score"`
}

// RAGResponse is the grounded answer to a single query. Immutable after
// construction; source documents are ordered by descending similarity.
type RAGResponse struct {
	Query            string         `json:"query"`
	Answer           string         `json:"answer"`
	SourceDocuments  []SearchResult `json:"source_documents"`
	SearchTimeMs     float64        `json:"search_time_ms"`
	GenerationTimeMs float64        `json:"generation_time_ms"`
	TotalTimeMs      float64        `json:"total_time_ms"`
	Metadata         map[string]any `json:"metadata"`
}

// DirectAnswer is the ungrounded variant: no retrieval, no sources.
type DirectAnswer struct {
	Query            string         `json:"query"`
	Answer           string         `json:"answer"`
	GenerationTimeMs float64        `json:"generation_time_ms"`
	TotalTimeMs      float64        `json:"total_time_ms"`
	Metadata         map[string]any `json:"metadata"`
}

// Comparison carries both answer variants for the same query.
type Comparison struct {
	Grounded *RAGResponse  `json:"grounded"`
	Direct   *DirectAnswer `json:"direct"`
}

// Timing is the per-stage latency breakdown. A zero GenerationMs together
// with one of the fixed fallback answers signals a failed generation, not
// an instant one.
type Timing struct {
	SearchMs     float64 `json:"search_ms"`
	GenerationMs float64 `json:"generation_ms"`
	TotalMs      float64 `json:"total_ms"`
}

// Answerable is the shared capability of both answer variants, so callers
// never probe for the presence of retrieval-specific fields.
type Answerable interface {
	AnswerText() string
	SourceCount() int
	Timing() Timing
}

func (r *RAGResponse) AnswerText() string { return r.Answer }
func (r *RAGResponse) SourceCount() int   { return len(r.SourceDocuments) }
func (r *RAGResponse) Timing() Timing {
	return Timing{SearchMs: r.SearchTimeMs, GenerationMs: r.GenerationTimeMs, TotalMs: r.TotalTimeMs}
}

func (d *DirectAnswer) AnswerText() string { return d.Answer }
func (d *DirectAnswer) SourceCount() int   { return 0 }
func (d *DirectAnswer) Timing() Timing {
	return Timing{GenerationMs: d.GenerationTimeMs, TotalMs: d.TotalTimeMs}
}

// ChunkStore is the external vector index consumed by the retriever.
// Implementations must return results ordered by descending similarity.
type ChunkStore interface {
	Query(ctx context.Context, embedding []float32, k int) ([]vectorstore.StoredChunk, error)
	Count(ctx context.Context) (int, error)
}
