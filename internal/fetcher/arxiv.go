package fetcher

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// userAgent is sent on every arXiv request. The arXiv API returns HTTP 406
// for clients that do not identify themselves, notably on CI runners.
const userAgent = "arxiv-digest/1.0 (+https://github.com/joeypan/arxiv-digest)"

// arXiv Atom feed XML structures

type arxivFeed struct {
	XMLName xml.Name     `xml:"feed"`
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID              string          `xml:"id"`
	Title           string          `xml:"title"`
	Summary         string          `xml:"summary"`
	Authors         []arxivAuthor   `xml:"author"`
	Published       string          `xml:"published"`
	Categories      []arxivCategory `xml:"category"`
	PrimaryCategory arxivCategory   `xml:"primary_category"`
}

type arxivAuthor struct {
	Name string `xml:"name"`
}

type arxivCategory struct {
	Term string `xml:"term,attr"`
}

// ArxivFetcher fetches papers from the arXiv API, paging through results
// newest-first until the feed is exhausted or the query cap is reached.
type ArxivFetcher struct {
	client  *http.Client
	baseURL string
}

// DefaultBaseURL is the public arXiv API endpoint.
const DefaultBaseURL = "http://export.arxiv.org/api/query"

func NewArxivFetcher(baseURL string) *ArxivFetcher {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &ArxivFetcher{
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: baseURL,
	}
}

func (f *ArxivFetcher) Fetch(ctx context.Context, q Query) ([]Paper, error) {
	if len(q.Categories) == 0 {
		return nil, fmt.Errorf("arxiv: no categories configured")
	}
	pageSize := q.PageSize
	if pageSize <= 0 || pageSize > q.MaxResults {
		pageSize = q.MaxResults
	}

	var papers []Paper
	for start := 0; start < q.MaxResults; start += pageSize {
		remaining := q.MaxResults - start
		if remaining < pageSize {
			pageSize = remaining
		}

		entries, err := f.fetchPage(ctx, q.Categories, start, pageSize)
		if err != nil {
			return nil, err
		}

		papers = append(papers, convertEntries(entries)...)

		// A short page means the feed is exhausted.
		if len(entries) < pageSize {
			break
		}
	}

	return papers, nil
}

func (f *ArxivFetcher) fetchPage(ctx context.Context, categories []string, start, count int) ([]arxivEntry, error) {
	terms := make([]string, len(categories))
	for i, cat := range categories {
		terms[i] = "cat:" + cat
	}

	query := url.Values{}
	query.Set("search_query", fmt.Sprintf("(%s)", strings.Join(terms, " OR ")))
	query.Set("start", fmt.Sprintf("%d", start))
	query.Set("max_results", fmt.Sprintf("%d", count))
	query.Set("sortBy", "submittedDate")
	query.Set("sortOrder", "descending")

	reqURL := fmt.Sprintf("%s?%s", f.baseURL, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("arxiv: failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/atom+xml,application/xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("arxiv: request failed: %w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arxiv: unexpected status %d: %w", resp.StatusCode, ErrNetwork)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("arxiv: failed to read response: %w: %v", ErrNetwork, err)
	}

	var feed arxivFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("arxiv: failed to parse feed XML: %w", err)
	}

	return feed.Entries, nil
}

// convertEntries turns raw feed entries into Papers, quarantining entries
// that lack an id, a title, or a parseable publication date.
func convertEntries(entries []arxivEntry) []Paper {
	papers := make([]Paper, 0, len(entries))
	for _, entry := range entries {
		p, err := convertEntry(entry)
		if err != nil {
			log.Printf("arxiv: skipping malformed entry %q: %v", entry.ID, err)
			continue
		}
		papers = append(papers, p)
	}
	return papers
}

func convertEntry(entry arxivEntry) (Paper, error) {
	id := ExtractArxivID(entry.ID)
	if id == "" {
		return Paper{}, fmt.Errorf("missing id")
	}

	title := cleanText(entry.Title)
	if title == "" {
		return Paper{}, fmt.Errorf("missing title")
	}

	published, err := time.Parse(time.RFC3339, entry.Published)
	if err != nil {
		return Paper{}, fmt.Errorf("bad published date %q: %w", entry.Published, err)
	}

	authors := make([]string, 0, len(entry.Authors))
	for _, a := range entry.Authors {
		if name := strings.TrimSpace(a.Name); name != "" {
			authors = append(authors, name)
		}
	}

	category := entry.PrimaryCategory.Term
	if category == "" && len(entry.Categories) > 0 {
		category = entry.Categories[0].Term
	}

	return Paper{
		ID:        id,
		Title:     title,
		Authors:   authors,
		Abstract:  cleanText(entry.Summary),
		Category:  category,
		Published: published,
		URL:       "https://arxiv.org/abs/" + id,
		PDFURL:    "https://arxiv.org/pdf/" + id + ".pdf",
	}, nil
}

var arxivIDRegex = regexp.MustCompile(`(\d{4}\.\d{4,5})(v\d+)?$`)

// ExtractArxivID pulls the bare arXiv identifier (e.g. "2401.12345") out of
// an abs URL, dropping any version suffix. Pre-2007 identifiers fall back to
// the last path segment.
func ExtractArxivID(absURL string) string {
	if m := arxivIDRegex.FindStringSubmatch(absURL); m != nil {
		return m[1]
	}
	if idx := strings.LastIndex(absURL, "/"); idx >= 0 {
		return absURL[idx+1:]
	}
	return absURL
}

var whitespaceRegex = regexp.MustCompile(`\s+`)

// cleanText collapses runs of whitespace; arXiv titles and abstracts carry
// hard line breaks from the feed.
func cleanText(s string) string {
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(s, " "))
}
