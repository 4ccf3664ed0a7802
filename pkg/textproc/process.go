package textproc

import (
	"log/slog"
	"strings"

	"medrag/pkg/pubmed"
)

// Processor turns raw articles into normalized, chunked text ready for
// embedding and indexing.
type Processor struct {
	ChunkSize    int
	ChunkOverlap int
}

func NewProcessor(chunkSize, chunkOverlap int) *Processor {
	return &Processor{ChunkSize: chunkSize, ChunkOverlap: chunkOverlap}
}

// ProcessStats counts the outcome of a corpus processing run.
type ProcessStats struct {
	Articles int
	Chunks   int
	Skipped  int
}

// SearchableContent joins the retrieval-relevant fields of an article into
// one text block, titled sections in priority order.
func SearchableContent(article pubmed.Article) string {
	var parts []string

	if article.Title != "" {
		parts = append(parts, "Title: "+article.Title)
	}
	if article.Abstract != "" {
		parts = append(parts, "Abstract: "+article.Abstract)
	}
	if len(article.MeSHTerms) > 0 {
		parts = append(parts, "MeSH Terms: "+strings.Join(article.MeSHTerms, ", "))
	}
	if len(article.Keywords) > 0 {
		parts = append(parts, "Keywords: "+strings.Join(article.Keywords, ", "))
	}

	return strings.Join(parts, "\n\n")
}

// ArticleMetadata flattens an article into the chunk metadata map. List
// fields stay as ordered slices here; the vector store serializes them at
// its own boundary.
func ArticleMetadata(article pubmed.Article) map[string]any {
	meta := map[string]any{
		"pmid":              article.PMID,
		"title":             article.Title,
		"authors":           article.Authors,
		"journal":           article.Journal,
		"publication_date":  article.PublicationDate,
		"mesh_terms":        article.MeSHTerms,
		"keywords":          article.Keywords,
		"publication_types": article.PublicationTypes,
	}
	if article.DOI != "" {
		meta["doi"] = article.DOI
	}
	return meta
}

// ProcessArticle cleans, normalizes and segments a single article.
func (p *Processor) ProcessArticle(article pubmed.Article) []TextChunk {
	content := NormalizeMedicalTerms(CleanText(SearchableContent(article)))
	return Segment(content, ArticleMetadata(article), p.ChunkSize, p.ChunkOverlap)
}

// ProcessArticles processes a whole corpus. Articles without a PMID or with
// no usable text are skipped and counted; processing always continues.
func (p *Processor) ProcessArticles(articles []pubmed.Article) ([]TextChunk, ProcessStats) {
	var all []TextChunk
	stats := ProcessStats{}

	for _, article := range articles {
		if article.PMID == "" || (article.Title == "" && article.Abstract == "") {
			stats.Skipped++
			slog.Warn("Skipping article with missing required fields", "pmid", article.PMID)
			continue
		}

		chunks := p.ProcessArticle(article)
		if len(chunks) == 0 {
			stats.Skipped++
			continue
		}

		all = append(all, chunks...)
		stats.Articles++
	}

	stats.Chunks = len(all)
	slog.Info("Processed corpus", "articles", stats.Articles, "chunks", stats.Chunks, "skipped", stats.Skipped)
	return all, stats
}
