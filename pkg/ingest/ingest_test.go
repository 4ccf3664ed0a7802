package ingest

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medrag/pkg/pubmed"
	"medrag/pkg/textproc"
)

type memWriter struct {
	chunks     []textproc.TextChunk
	embeddings [][]float32
	failAfter  int
	calls      int
}

func (m *memWriter) AddChunks(ctx context.Context, chunks []textproc.TextChunk, embeddings [][]float32) error {
	m.calls++
	if m.failAfter > 0 && m.calls > m.failAfter {
		return errors.New("store unavailable")
	}
	m.chunks = append(m.chunks, chunks...)
	m.embeddings = append(m.embeddings, embeddings...)
	return nil
}

type constEmbedder struct{}

func (constEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

func (c constEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func testArticles() []pubmed.Article {
	return []pubmed.Article{
		{
			PMID:     "100",
			Title:    "Hypertension management in older adults",
			Abstract: "Blood pressure control reduces stroke risk. Treatment targets remain debated among specialists. Lifestyle changes complement medication in most patients.",
		},
		{Title: "no pmid"},
	}
}

func TestIndexArticles(t *testing.T) {
	store := &memWriter{}
	ix := NewIndexer(store, constEmbedder{}, textproc.NewProcessor(300, 50))

	stats, err := ix.IndexArticles(context.Background(), testArticles())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Articles)
	assert.Equal(t, 1, stats.SkippedArticles)
	assert.Equal(t, stats.Chunks, len(store.chunks))
	assert.Equal(t, len(store.chunks), len(store.embeddings))
	require.NotEmpty(t, store.chunks)
	assert.Equal(t, "100_0", store.chunks[0].ID)
}

func TestIndexArticlesBatching(t *testing.T) {
	store := &memWriter{}
	ix := NewIndexer(store, constEmbedder{}, textproc.NewProcessor(80, 20))
	ix.BatchSize = 1

	stats, err := ix.IndexArticles(context.Background(), testArticles())
	require.NoError(t, err)
	assert.Greater(t, store.calls, 1, "small batch size must split the work")
	assert.Equal(t, stats.Chunks, len(store.chunks))
}

func TestIndexArticlesStoreFailure(t *testing.T) {
	store := &memWriter{failAfter: 1}
	ix := NewIndexer(store, constEmbedder{}, textproc.NewProcessor(80, 20))
	ix.BatchSize = 1

	stats, err := ix.IndexArticles(context.Background(), testArticles())
	require.Error(t, err)
	assert.Equal(t, 1, stats.Chunks, "counts reflect what was stored before the failure")
}

func TestCorpusRoundTrip(t *testing.T) {
	corpus := &pubmed.Corpus{
		Metadata: pubmed.CollectionStats{TotalArticles: 1, SearchTerms: []string{"aspirin"}},
		Articles: testArticles()[:1],
	}

	path := filepath.Join(t.TempDir(), "corpus.json")
	require.NoError(t, SaveCorpus(corpus, path))

	loaded, err := LoadCorpus(path)
	require.NoError(t, err)
	assert.Equal(t, corpus.Metadata.TotalArticles, loaded.Metadata.TotalArticles)
	require.Len(t, loaded.Articles, 1)
	assert.Equal(t, "100", loaded.Articles[0].PMID)
}

func TestLoadCorpusMissingFile(t *testing.T) {
	_, err := LoadCorpus(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}
