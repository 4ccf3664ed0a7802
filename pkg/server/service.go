package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"medrag/pkg/database"
	"medrag/pkg/rag"
)

// Service runs queries through the engine and records an audit trail in
// query_logs, with per-query pipeline logs in rag_logs.
type Service struct {
	DB      *database.PostgresDB
	Engine  *rag.Engine
	History *rag.SessionState
}

func NewService(db *database.PostgresDB, engine *rag.Engine) *Service {
	return &Service{
		DB:      db,
		Engine:  engine,
		History: rag.NewSessionState(engine.Cfg.HistorySize),
	}
}

type QueryRequest struct {
	Query     string  `json:"query" binding:"required"`
	TopK      int     `json:"top_k"`
	Threshold float64 `json:"similarity_threshold"`
}

// queryEngine returns a copy of the engine that logs into rag_logs under
// the given query id.
func (s *Service) queryEngine(queryID uuid.UUID) *rag.Engine {
	eng := *s.Engine
	eng.Logger = slog.New(NewDBLogHandler(s.DB, queryID))
	return &eng
}

func (s *Service) Ask(ctx context.Context, req QueryRequest) (uuid.UUID, *rag.RAGResponse) {
	queryID := uuid.New()
	resp := s.queryEngine(queryID).Query(ctx, req.Query, rag.QueryOptions{
		TopK:      req.TopK,
		Threshold: req.Threshold,
	})
	s.History.Add(rag.QueryRecord{Query: req.Query, Mode: "rag", Timestamp: time.Now()})
	s.record(queryID, req.Query, "rag", resp)
	return queryID, resp
}

func (s *Service) AskDirect(ctx context.Context, query string) (uuid.UUID, *rag.DirectAnswer) {
	queryID := uuid.New()
	resp := s.queryEngine(queryID).Direct(ctx, query)
	s.History.Add(rag.QueryRecord{Query: query, Mode: "direct", Timestamp: time.Now()})
	s.recordDirect(queryID, query, resp)
	return queryID, resp
}

func (s *Service) CompareModes(ctx context.Context, req QueryRequest) (uuid.UUID, *rag.Comparison) {
	queryID := uuid.New()
	cmp := s.queryEngine(queryID).Compare(ctx, req.Query, rag.QueryOptions{
		TopK:      req.TopK,
		Threshold: req.Threshold,
	})
	s.History.Add(rag.QueryRecord{Query: req.Query, Mode: "compare", Timestamp: time.Now()})
	s.record(queryID, req.Query, "compare", cmp.Grounded)
	return queryID, cmp
}

func (s *Service) record(queryID uuid.UUID, query, mode string, resp *rag.RAGResponse) {
	translated, _ := resp.Metadata["translated_query"].(string)
	_, err := s.DB.Pool.Exec(context.Background(),
		`INSERT INTO query_logs (id, query, translated_query, mode, answer, documents_found,
		                         search_time_ms, generation_time_ms, total_time_ms)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		queryID, query, translated, mode, resp.Answer, len(resp.SourceDocuments),
		resp.SearchTimeMs, resp.GenerationTimeMs, resp.TotalTimeMs)
	if err != nil {
		slog.Error("failed to record query", "query_id", queryID, "error", err)
	}
}

func (s *Service) recordDirect(queryID uuid.UUID, query string, resp *rag.DirectAnswer) {
	_, err := s.DB.Pool.Exec(context.Background(),
		`INSERT INTO query_logs (id, query, translated_query, mode, answer, documents_found,
		                         search_time_ms, generation_time_ms, total_time_ms)
		 VALUES ($1, $2, '', 'direct', $3, 0, 0, $4, $5)`,
		queryID, query, resp.Answer, resp.GenerationTimeMs, resp.TotalTimeMs)
	if err != nil {
		slog.Error("failed to record query", "query_id", queryID, "error", err)
	}
}

type QuerySummary struct {
	ID             uuid.UUID `json:"id"`
	Query          string    `json:"query"`
	Mode           string    `json:"mode"`
	DocumentsFound int       `json:"documents_found"`
	TotalTimeMs    float64   `json:"total_time_ms"`
	CreatedAt      time.Time `json:"created_at"`
}

func (s *Service) ListQueries(ctx context.Context, limit int) ([]QuerySummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.DB.Pool.Query(ctx,
		`SELECT id, query, mode, documents_found, total_time_ms, created_at
		 FROM query_logs
		 ORDER BY created_at DESC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list queries: %w", err)
	}
	defer rows.Close()

	var out []QuerySummary
	for rows.Next() {
		var q QuerySummary
		if err := rows.Scan(&q.ID, &q.Query, &q.Mode, &q.DocumentsFound, &q.TotalTimeMs, &q.CreatedAt); err != nil {
			continue
		}
		out = append(out, q)
	}
	return out, nil
}

type LogEntry struct {
	ID        int             `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Level     string          `json:"level"`
	Message   string          `json:"message"`
	Metadata  json.RawMessage `json:"metadata"`
}

func (s *Service) GetQueryLogs(ctx context.Context, queryID uuid.UUID) ([]LogEntry, error) {
	rows, err := s.DB.Pool.Query(ctx,
		`SELECT id, timestamp, level, message, metadata
		 FROM rag_logs
		 WHERE query_id = $1
		 ORDER BY id ASC`, queryID)
	if err != nil {
		return nil, fmt.Errorf("failed to get logs: %w", err)
	}
	defer rows.Close()

	var logs []LogEntry
	for rows.Next() {
		var l LogEntry
		if err := rows.Scan(&l.ID, &l.Timestamp, &l.Level, &l.Message, &l.Metadata); err != nil {
			continue
		}
		logs = append(logs, l)
	}
	return logs, nil
}
