package rag

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"medrag/pkg/config"
	"medrag/pkg/vectorstore"
)

type fakeLLM struct {
	respond func(prompt string) (string, error)
}

func (f *fakeLLM) GenerateContent(ctx context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	var prompt string
	if len(messages) > 0 && len(messages[0].Parts) > 0 {
		if tc, ok := messages[0].Parts[0].(llms.TextContent); ok {
			prompt = tc.Text
		}
	}
	out, err := f.respond(prompt)
	if err != nil {
		return nil, err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: out}}}, nil
}

func (f *fakeLLM) Call(ctx context.Context, prompt string, _ ...llms.CallOption) (string, error) {
	return f.respond(prompt)
}

type fakeEmbedder struct {
	err error
}

func (f *fakeEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

func (f *fakeEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		v, err := f.EmbedText(ctx, texts[i])
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

type fakeStore struct {
	chunks     []vectorstore.StoredChunk
	queryErr   error
	requestedK int
	queried    bool
}

func (f *fakeStore) Query(ctx context.Context, embedding []float32, k int) ([]vectorstore.StoredChunk, error) {
	f.queried = true
	f.requestedK = k
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	if k > len(f.chunks) {
		k = len(f.chunks)
	}
	return f.chunks[:k], nil
}

func (f *fakeStore) Count(ctx context.Context) (int, error) {
	return len(f.chunks), nil
}

func isTranslationPrompt(prompt string) bool {
	return strings.Contains(prompt, "Translate the following medical question")
}

func echoTranslator(answer string) func(string) (string, error) {
	return func(prompt string) (string, error) {
		if isTranslationPrompt(prompt) {
			q := prompt[strings.Index(prompt, "Question: ")+len("Question: "):]
			return strings.TrimSpace(strings.TrimSuffix(q, "English:")), nil
		}
		return answer, nil
	}
}

func testConfig() *config.Config {
	return &config.Config{
		SearchTopK:          5,
		SimilarityThreshold: 0.3,
		GenerationTimeout:   2 * time.Second,
		TranslationTimeout:  time.Second,
		OllamaModel:         "llama3.1:8b-instruct-q4_0",
	}
}

func chunksWithScores(scores ...float64) []vectorstore.StoredChunk {
	out := make([]vectorstore.StoredChunk, len(scores))
	for i, s := range scores {
		out[i] = vectorstore.StoredChunk{
			ChunkID:    fmt.Sprintf("1234%d_0", i),
			Content:    fmt.Sprintf("chunk %d", i),
			Metadata:   map[string]any{"pmid": fmt.Sprintf("1234%d", i), "title": "Test article"},
			Similarity: s,
		}
	}
	return out
}

func TestQueryAppliesThresholdAndTopK(t *testing.T) {
	store := &fakeStore{chunks: chunksWithScores(0.9, 0.8, 0.7, 0.6, 0.5, 0.4, 0.3, 0.2, 0.1, 0.05)}
	eng := NewEngine(testConfig(), store, &fakeEmbedder{}, &fakeLLM{respond: echoTranslator("Cited answer. PMID: 12340")})

	resp := eng.Query(context.Background(), "heart attack symptoms", QueryOptions{TopK: 5, Threshold: 0.5})

	require.Len(t, resp.SourceDocuments, 5)
	assert.Equal(t, 10, store.requestedK, "retriever should over-fetch 2x top_k")
	want := []float64{0.9, 0.8, 0.7, 0.6, 0.5}
	for i, doc := range resp.SourceDocuments {
		assert.Equal(t, want[i], doc.SimilarityScore)
	}
	assert.Equal(t, "Cited answer. PMID: 12340", resp.Answer)
	assert.Greater(t, resp.GenerationTimeMs, 0.0)
	assert.Equal(t, 5, resp.Metadata["found_documents"])
}

func TestQueryTopKBoundsResults(t *testing.T) {
	store := &fakeStore{chunks: chunksWithScores(0.9, 0.9, 0.9, 0.9, 0.9, 0.9)}
	eng := NewEngine(testConfig(), store, &fakeEmbedder{}, &fakeLLM{respond: echoTranslator("answer")})

	resp := eng.Query(context.Background(), "hypertension", QueryOptions{TopK: 3, Threshold: 0.5})
	assert.Len(t, resp.SourceDocuments, 3)
}

func TestQueryHigherThresholdNeverAddsResults(t *testing.T) {
	store := &fakeStore{chunks: chunksWithScores(0.9, 0.7, 0.5, 0.4, 0.2)}
	eng := NewEngine(testConfig(), store, &fakeEmbedder{}, &fakeLLM{respond: echoTranslator("answer")})

	loose := eng.Query(context.Background(), "diabetes", QueryOptions{TopK: 5, Threshold: 0.3})
	strict := eng.Query(context.Background(), "diabetes", QueryOptions{TopK: 5, Threshold: 0.6})

	assert.GreaterOrEqual(t, len(loose.SourceDocuments), len(strict.SourceDocuments))
	for _, doc := range strict.SourceDocuments {
		assert.GreaterOrEqual(t, doc.SimilarityScore, 0.6)
	}
}

func TestQueryNoResultsReturnsFixedAnswer(t *testing.T) {
	store := &fakeStore{chunks: chunksWithScores(0.2, 0.1)}
	llmCalled := false
	llm := &fakeLLM{respond: func(prompt string) (string, error) {
		if !isTranslationPrompt(prompt) {
			llmCalled = true
		}
		return "x", nil
	}}
	eng := NewEngine(testConfig(), store, &fakeEmbedder{}, llm)

	resp := eng.Query(context.Background(), "rare condition", QueryOptions{Threshold: 0.5})

	assert.Equal(t, NoResultsAnswer, resp.Answer)
	assert.Empty(t, resp.SourceDocuments)
	assert.NotNil(t, resp.SourceDocuments, "sources must be empty, not null")
	assert.Zero(t, resp.GenerationTimeMs)
	assert.Greater(t, resp.TotalTimeMs, 0.0)
	assert.False(t, llmCalled, "generation must be skipped when nothing is retrieved")
	assert.Equal(t, 0, resp.Metadata["found_documents"])
	assert.Equal(t, 0.5, resp.Metadata["similarity_threshold"])
}

func TestQueryEmbeddingFailureDegradesToNoResults(t *testing.T) {
	store := &fakeStore{chunks: chunksWithScores(0.9)}
	eng := NewEngine(testConfig(), store, &fakeEmbedder{err: errors.New("model not loaded")}, &fakeLLM{respond: echoTranslator("x")})

	resp := eng.Query(context.Background(), "stroke", QueryOptions{})
	assert.Equal(t, NoResultsAnswer, resp.Answer)
	assert.Zero(t, resp.GenerationTimeMs)
}

func TestGenerateTimeoutFallback(t *testing.T) {
	store := &fakeStore{chunks: chunksWithScores(0.9)}
	llm := &fakeLLM{respond: func(prompt string) (string, error) {
		if isTranslationPrompt(prompt) {
			return "stroke", nil
		}
		return "", context.DeadlineExceeded
	}}
	eng := NewEngine(testConfig(), store, &fakeEmbedder{}, llm)

	resp := eng.Query(context.Background(), "stroke", QueryOptions{})
	assert.Equal(t, TimeoutAnswer, resp.Answer)
	assert.Zero(t, resp.GenerationTimeMs)
	assert.Len(t, resp.SourceDocuments, 1, "retrieved sources are kept on generation failure")
}

func TestGenerateConnectionFallback(t *testing.T) {
	store := &fakeStore{chunks: chunksWithScores(0.9)}
	llm := &fakeLLM{respond: func(prompt string) (string, error) {
		if isTranslationPrompt(prompt) {
			return "stroke", nil
		}
		return "", &url.Error{Op: "Post", URL: "http://localhost:11434/api/generate", Err: syscall.ECONNREFUSED}
	}}
	eng := NewEngine(testConfig(), store, &fakeEmbedder{}, llm)

	resp := eng.Query(context.Background(), "stroke", QueryOptions{})
	assert.Equal(t, ConnectionAnswer, resp.Answer)
	assert.Zero(t, resp.GenerationTimeMs)
}

func TestDirectSkipsRetrieval(t *testing.T) {
	store := &fakeStore{chunks: chunksWithScores(0.9)}
	eng := NewEngine(testConfig(), store, &fakeEmbedder{}, &fakeLLM{respond: func(string) (string, error) {
		return "general answer", nil
	}})

	resp := eng.Direct(context.Background(), "what is hypertension")
	assert.Equal(t, "general answer", resp.Answer)
	assert.False(t, store.queried, "direct mode must not touch the vector store")
	assert.Equal(t, "direct", resp.Metadata["mode"])
}

func TestCompareRunsBothModes(t *testing.T) {
	store := &fakeStore{chunks: chunksWithScores(0.9)}
	eng := NewEngine(testConfig(), store, &fakeEmbedder{}, &fakeLLM{respond: echoTranslator("answer")})

	cmp := eng.Compare(context.Background(), "heart failure", QueryOptions{})
	require.NotNil(t, cmp.Grounded)
	require.NotNil(t, cmp.Direct)
	assert.Equal(t, "heart failure", cmp.Grounded.Query)
	assert.Equal(t, "heart failure", cmp.Direct.Query)
}

func TestTranslateFallsBackOnError(t *testing.T) {
	llm := &fakeLLM{respond: func(prompt string) (string, error) {
		if isTranslationPrompt(prompt) {
			return "", errors.New("backend down")
		}
		return "answer", nil
	}}
	eng := NewEngine(testConfig(), &fakeStore{}, &fakeEmbedder{}, llm)

	got := eng.Translate(context.Background(), "Was sind die Symptome eines Herzinfarkts?")
	assert.Equal(t, "Was sind die Symptome eines Herzinfarkts?", got)
}

func TestCleanTranslation(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"What are the symptoms of myocardial infarction?", "What are the symptoms of myocardial infarction?"},
		{"\"Myocardial infarction symptoms\"\n", "Myocardial infarction symptoms"},
		{"Myocardial infarction symptoms. Note: this is a translation.", "Myocardial infarction symptoms"},
		{"Myocardial infarction symptoms.\n", "Myocardial infarction symptoms"},
		{"", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, cleanTranslation(tc.in), "input %q", tc.in)
	}
}

func TestAnswerableTimings(t *testing.T) {
	var a Answerable = &RAGResponse{Answer: "x", SearchTimeMs: 12.5, GenerationTimeMs: 40, TotalTimeMs: 55, SourceDocuments: make([]SearchResult, 3)}
	assert.Equal(t, 3, a.SourceCount())
	assert.Equal(t, Timing{SearchMs: 12.5, GenerationMs: 40, TotalMs: 55}, a.Timing())

	a = &DirectAnswer{Answer: "y", GenerationTimeMs: 40, TotalTimeMs: 41}
	assert.Equal(t, 0, a.SourceCount())
	assert.Equal(t, "y", a.AnswerText())
	assert.Zero(t, a.Timing().SearchMs)
}

func TestStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"models":[{"name":"llama3.1:8b-instruct-q4_0"}]}`))
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.OllamaBaseURL = srv.URL
	store := &fakeStore{chunks: chunksWithScores(0.9, 0.8)}
	eng := NewEngine(cfg, store, &fakeEmbedder{}, &fakeLLM{respond: echoTranslator("x")})

	status := eng.Status(context.Background())
	assert.True(t, status.VectorStoreReady)
	assert.True(t, status.GeneratorReady)
	assert.Equal(t, 2, status.TotalChunks)
	assert.Equal(t, []string{"llama3.1:8b-instruct-q4_0"}, status.AvailableModels)
}
