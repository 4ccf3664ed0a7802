package rag

import (
	"fmt"
	"strings"
)

const maxContextAuthors = 2

var sourceSeparator = "\n" + strings.Repeat("=", 80) + "\n"

// BuildContext renders retrieved chunks as a single prompt block. Each
// source keeps its provenance line so the model can cite PMIDs, and the
// chunk text is passed through verbatim.
func BuildContext(results []SearchResult) string {
	if len(results) == 0 {
		return noLiteratureContext
	}

	blocks := make([]string, 0, len(results))
	for i, doc := range results {
		var b strings.Builder
		fmt.Fprintf(&b, "[Source %d]", i+1)
		if title := metadataString(doc.Metadata, "title"); title != "" {
			b.WriteString(" " + title)
		}
		if authors := metadataList(doc.Metadata, "authors"); len(authors) > 0 {
			if len(authors) > maxContextAuthors {
				authors = append(authors[:maxContextAuthors:maxContextAuthors], "et al.")
			}
			fmt.Fprintf(&b, " (Authors: %s)", strings.Join(authors, ", "))
		}
		if journal := metadataString(doc.Metadata, "journal"); journal != "" {
			fmt.Fprintf(&b, " - %s", journal)
		}
		if date := metadataString(doc.Metadata, "publication_date"); date != "" {
			fmt.Fprintf(&b, " (%s)", date)
		}
		if pmid := metadataString(doc.Metadata, "pmid"); pmid != "" {
			fmt.Fprintf(&b, " [PMID: %s]", pmid)
		}
		fmt.Fprintf(&b, "\nSimilarity: %.3f\n%s", doc.SimilarityScore, doc.Content)
		blocks = append(blocks, b.String())
	}
	return strings.Join(blocks, sourceSeparator)
}

func metadataString(md map[string]any, key string) string {
	if md == nil {
		return ""
	}
	s, _ := md[key].(string)
	return s
}

// metadataList tolerates both the restored []string form and the []any
// shape produced by generic JSON decoding.
func metadataList(md map[string]any, key string) []string {
	if md == nil {
		return nil
	}
	switch v := md[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
