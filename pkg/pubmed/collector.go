package pubmed

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const eutilsBase = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

// fetchBatchSize is the maximum number of PMIDs efetch accepts per call.
const fetchBatchSize = 200

// Collector fetches article records through the NCBI E-utilities API.
// The limiter keeps us under the unauthenticated quota of 3 requests/second.
type Collector struct {
	email    string
	toolName string
	client   *http.Client
	limiter  *rate.Limiter
}

func NewCollector(email, toolName string) *Collector {
	if toolName == "" {
		toolName = "medrag"
	}
	return &Collector{
		email:    email,
		toolName: toolName,
		client:   &http.Client{Timeout: 30 * time.Second},
		limiter:  rate.NewLimiter(rate.Limit(3), 1),
	}
}

// esearch response

type searchResult struct {
	XMLName xml.Name `xml:"eSearchResult"`
	IDs     []string `xml:"IdList>Id"`
}

// efetch response

type articleSet struct {
	XMLName  xml.Name     `xml:"PubmedArticleSet"`
	Articles []xmlArticle `xml:"PubmedArticle"`
}

type xmlArticle struct {
	PMID    string `xml:"MedlineCitation>PMID"`
	Article struct {
		Title    string `xml:"ArticleTitle"`
		Abstract struct {
			Sections []struct {
				Label string `xml:"Label,attr"`
				Text  string `xml:",chardata"`
			} `xml:"AbstractText"`
		} `xml:"Abstract"`
		Authors []struct {
			LastName string `xml:"LastName"`
			ForeName string `xml:"ForeName"`
		} `xml:"AuthorList>Author"`
		JournalTitle     string   `xml:"Journal>Title"`
		PubYear          string   `xml:"Journal>JournalIssue>PubDate>Year"`
		PubMonth         string   `xml:"Journal>JournalIssue>PubDate>Month"`
		PubDay           string   `xml:"Journal>JournalIssue>PubDate>Day"`
		PublicationTypes []string `xml:"PublicationTypeList>PublicationType"`
	} `xml:"MedlineCitation>Article"`
	MeSHTerms  []string `xml:"MedlineCitation>MeshHeadingList>MeshHeading>DescriptorName"`
	Keywords   []string `xml:"MedlineCitation>KeywordList>Keyword"`
	ArticleIDs []struct {
		IDType string `xml:"IdType,attr"`
		Value  string `xml:",chardata"`
	} `xml:"PubmedData>ArticleIdList>ArticleId"`
}

func (c *Collector) get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	if c.email != "" {
		params.Set("email", c.email)
	}
	params.Set("tool", c.toolName)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, eutilsBase+"/"+endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("eutils request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("eutils returned status %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}

// Search runs an esearch query and returns matching PMIDs, relevance-sorted.
// dateRange is an optional [from, to] pair in "YYYY/MM/DD" form.
func (c *Collector) Search(ctx context.Context, query string, maxResults int, dateRange [2]string) ([]string, error) {
	params := url.Values{}
	params.Set("db", "pubmed")
	params.Set("term", query)
	params.Set("retmax", strconv.Itoa(maxResults))
	params.Set("retmode", "xml")
	params.Set("sort", "relevance")
	if dateRange[0] != "" && dateRange[1] != "" {
		params.Set("datetype", "pdat")
		params.Set("mindate", dateRange[0])
		params.Set("maxdate", dateRange[1])
	}

	body, err := c.get(ctx, "esearch.fcgi", params)
	if err != nil {
		return nil, err
	}

	var result searchResult
	if err := xml.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode esearch response: %w", err)
	}
	return result.IDs, nil
}

// FetchDetails retrieves full article records for the given PMIDs in batches.
// Records that fail validation are skipped and counted, not fatal.
func (c *Collector) FetchDetails(ctx context.Context, pmids []string) ([]Article, int, error) {
	var articles []Article
	skipped := 0

	for i := 0; i < len(pmids); i += fetchBatchSize {
		end := min(i+fetchBatchSize, len(pmids))

		params := url.Values{}
		params.Set("db", "pubmed")
		params.Set("id", strings.Join(pmids[i:end], ","))
		params.Set("retmode", "xml")
		params.Set("rettype", "abstract")

		body, err := c.get(ctx, "efetch.fcgi", params)
		if err != nil {
			return articles, skipped, err
		}

		var set articleSet
		if err := xml.Unmarshal(body, &set); err != nil {
			return articles, skipped, fmt.Errorf("failed to decode efetch response: %w", err)
		}

		for _, raw := range set.Articles {
			article, ok := convertArticle(raw)
			if !ok {
				skipped++
				slog.Warn("Skipping malformed article record", "pmid", raw.PMID)
				continue
			}
			articles = append(articles, article)
		}
	}

	return articles, skipped, nil
}

func convertArticle(raw xmlArticle) (Article, bool) {
	pmid := strings.TrimSpace(raw.PMID)
	title := strings.TrimSpace(raw.Article.Title)
	if pmid == "" || title == "" {
		return Article{}, false
	}

	var abstractParts []string
	for _, section := range raw.Article.Abstract.Sections {
		text := strings.TrimSpace(section.Text)
		if text == "" {
			continue
		}
		if section.Label != "" {
			abstractParts = append(abstractParts, section.Label+": "+text)
		} else {
			abstractParts = append(abstractParts, text)
		}
	}

	var authors []string
	for _, a := range raw.Article.Authors {
		if a.LastName == "" {
			continue
		}
		name := a.LastName
		if a.ForeName != "" {
			name = a.ForeName + " " + a.LastName
		}
		authors = append(authors, name)
	}

	doi := ""
	for _, id := range raw.ArticleIDs {
		if id.IDType == "doi" {
			doi = strings.TrimSpace(id.Value)
			break
		}
	}

	return Article{
		PMID:             pmid,
		Title:            title,
		Abstract:         strings.Join(abstractParts, " "),
		Authors:          authors,
		Journal:          strings.TrimSpace(raw.Article.JournalTitle),
		PublicationDate:  formatPubDate(raw.Article.PubYear, raw.Article.PubMonth, raw.Article.PubDay),
		DOI:              doi,
		Keywords:         trimAll(raw.Keywords),
		MeSHTerms:        trimAll(raw.MeSHTerms),
		PublicationTypes: trimAll(raw.Article.PublicationTypes),
	}, true
}

var monthNumbers = map[string]string{
	"Jan": "01", "Feb": "02", "Mar": "03", "Apr": "04",
	"May": "05", "Jun": "06", "Jul": "07", "Aug": "08",
	"Sep": "09", "Oct": "10", "Nov": "11", "Dec": "12",
}

// formatPubDate builds an ISO-8601 date from the loose PubDate fields.
// Missing month/day default to 01; a missing year yields an empty string.
func formatPubDate(year, month, day string) string {
	if year == "" {
		return ""
	}
	if m, ok := monthNumbers[month]; ok {
		month = m
	}
	if month == "" {
		month = "01"
	}
	if day == "" {
		day = "01"
	}
	if len(month) == 1 {
		month = "0" + month
	}
	if len(day) == 1 {
		day = "0" + day
	}
	return fmt.Sprintf("%s-%s-%s", year, month, day)
}

func trimAll(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Collect runs search + fetch for each term, dedupes by PMID and returns
// the corpus with collection statistics.
func (c *Collector) Collect(ctx context.Context, searchTerms []string, maxResultsPerTerm int, dateRange [2]string) (*Corpus, error) {
	stats := CollectionStats{
		StartTime:       time.Now().Format(time.RFC3339),
		SearchTerms:     searchTerms,
		ArticlesPerTerm: make(map[string]int),
	}

	seen := make(map[string]bool)
	var all []Article

	for _, term := range searchTerms {
		slog.Info("Collecting articles", "term", term)

		pmids, err := c.Search(ctx, term, maxResultsPerTerm, dateRange)
		if err != nil {
			slog.Error("Search failed", "term", term, "error", err)
			stats.FailedSearches++
			stats.ArticlesPerTerm[term] = 0
			continue
		}

		articles, skipped, err := c.FetchDetails(ctx, pmids)
		stats.SkippedRecords += skipped
		if err != nil {
			slog.Error("Fetch failed", "term", term, "error", err)
			stats.FailedSearches++
			stats.ArticlesPerTerm[term] = len(articles)
		} else {
			stats.SuccessfulSearches++
			stats.ArticlesPerTerm[term] = len(articles)
		}

		for _, a := range articles {
			if !seen[a.PMID] {
				seen[a.PMID] = true
				all = append(all, a)
			}
		}
	}

	stats.TotalArticles = len(all)
	stats.EndTime = time.Now().Format(time.RFC3339)

	return &Corpus{Metadata: stats, Articles: all}, nil
}
