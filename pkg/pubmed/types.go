package pubmed

// Article is a single bibliographic record fetched from PubMed.
// Immutable once parsed; list fields keep the order of the source XML.
type Article struct {
	PMID             string   `json:"pmid"`
	Title            string   `json:"title"`
	Abstract         string   `json:"abstract"`
	Authors          []string `json:"authors"`
	Journal          string   `json:"journal"`
	PublicationDate  string   `json:"publication_date"`
	DOI              string   `json:"doi,omitempty"`
	Keywords         []string `json:"keywords"`
	MeSHTerms        []string `json:"mesh_terms"`
	PublicationTypes []string `json:"publication_types"`
}

// CollectionStats summarizes a collection run across search terms.
type CollectionStats struct {
	StartTime          string         `json:"start_time"`
	EndTime            string         `json:"end_time"`
	SearchTerms        []string       `json:"search_terms"`
	TotalArticles      int            `json:"total_articles"`
	SuccessfulSearches int            `json:"successful_searches"`
	FailedSearches     int            `json:"failed_searches"`
	SkippedRecords     int            `json:"skipped_records"`
	ArticlesPerTerm    map[string]int `json:"articles_per_term"`
}

// Corpus is the on-disk shape produced by the collect command and
// consumed by the index command.
type Corpus struct {
	Metadata CollectionStats `json:"metadata"`
	Articles []Article       `json:"articles"`
}
