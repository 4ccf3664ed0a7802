package rag

import (
	"context"
	"log/slog"
	"time"

	"github.com/tmc/langchaingo/llms"

	"medrag/pkg/clients"
	"medrag/pkg/config"
	"medrag/pkg/embeddings"
)

// Engine wires retrieval and generation together. It is safe for concurrent
// use; all per-query state lives on the stack.
type Engine struct {
	Cfg      *config.Config
	Store    ChunkStore
	Embedder embeddings.Embedder
	LLM      llms.Model
	Logger   *slog.Logger
}

func NewEngine(cfg *config.Config, store ChunkStore, embedder embeddings.Embedder, llm llms.Model) *Engine {
	return &Engine{
		Cfg:      cfg,
		Store:    store,
		Embedder: embedder,
		LLM:      llm,
		Logger:   slog.Default(),
	}
}

// QueryOptions overrides the configured retrieval parameters. Zero values
// fall back to the configured defaults.
type QueryOptions struct {
	TopK      int
	Threshold float64
}

// Query answers a question grounded in the indexed literature. It never
// returns an error: every failure mode is expressed through the answer text
// and the timing breakdown.
func (e *Engine) Query(ctx context.Context, query string, opts QueryOptions) *RAGResponse {
	start := time.Now()

	topK := opts.TopK
	if topK <= 0 {
		topK = e.Cfg.SearchTopK
	}
	threshold := opts.Threshold
	if threshold == 0 {
		threshold = e.Cfg.SimilarityThreshold
	}

	results, searchMs, translated := e.Retrieve(ctx, query, topK, threshold)

	meta := map[string]any{
		"translated_query":     translated,
		"similarity_threshold": threshold,
		"requested_top_k":      topK,
		"found_documents":      len(results),
		"model":                e.Cfg.OllamaModel,
	}

	if len(results) == 0 {
		e.Logger.Info("no documents above threshold", "query", query, "threshold", threshold)
		return &RAGResponse{
			Query:           query,
			Answer:          NoResultsAnswer,
			SourceDocuments: []SearchResult{},
			SearchTimeMs:    searchMs,
			TotalTimeMs:     msSince(start),
			Metadata:        meta,
		}
	}

	answer, genMs := e.Generate(ctx, query, BuildContext(results), true)
	return &RAGResponse{
		Query:            query,
		Answer:           answer,
		SourceDocuments:  results,
		SearchTimeMs:     searchMs,
		GenerationTimeMs: genMs,
		TotalTimeMs:      msSince(start),
		Metadata:         meta,
	}
}

// Direct answers a question from the model alone, skipping retrieval.
func (e *Engine) Direct(ctx context.Context, query string) *DirectAnswer {
	start := time.Now()
	answer, genMs := e.Generate(ctx, query, "", false)
	return &DirectAnswer{
		Query:            query,
		Answer:           answer,
		GenerationTimeMs: genMs,
		TotalTimeMs:      msSince(start),
		Metadata: map[string]any{
			"model": e.Cfg.OllamaModel,
			"mode":  "direct",
		},
	}
}

// Compare runs both variants for the same question so callers can contrast
// grounded and ungrounded output.
func (e *Engine) Compare(ctx context.Context, query string, opts QueryOptions) *Comparison {
	return &Comparison{
		Grounded: e.Query(ctx, query, opts),
		Direct:   e.Direct(ctx, query),
	}
}

// SystemStatus reports the health of the engine's two external dependencies
// and the size of the index.
type SystemStatus struct {
	VectorStoreReady bool     `json:"vector_store_ready"`
	GeneratorReady   bool     `json:"generator_ready"`
	TotalChunks      int      `json:"total_chunks"`
	AvailableModels  []string `json:"available_models"`
}

func (e *Engine) Status(ctx context.Context) SystemStatus {
	var status SystemStatus
	if count, err := e.Store.Count(ctx); err == nil {
		status.VectorStoreReady = true
		status.TotalChunks = count
	} else {
		e.Logger.Warn("vector store unavailable", "error", err)
	}
	if models, err := clients.ListModels(ctx, e.Cfg.OllamaBaseURL); err == nil {
		status.GeneratorReady = true
		status.AvailableModels = models
	} else {
		e.Logger.Warn("generation backend unavailable", "error", err)
	}
	return status
}

func msSince(start time.Time) float64 {
	return time.Since(start).Seconds() * 1000
}
