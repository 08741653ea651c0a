package fetcher

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Paper represents a research paper with its metadata. A Paper is immutable
// once fetched.
type Paper struct {
	ID        string
	Title     string
	Authors   []string
	Abstract  string
	Category  string
	Published time.Time
	URL       string
	PDFURL    string
}

// Query describes a single fetch: which categories to search and how many
// results to page through at most.
type Query struct {
	Categories []string
	MaxResults int
	PageSize   int
}

// Fetcher is an interface for fetching research papers from various sources.
type Fetcher interface {
	Fetch(ctx context.Context, q Query) ([]Paper, error)
}

// ErrNetwork wraps transport-level failures. A fetch that fails this way
// aborts the whole run.
var ErrNetwork = errors.New("network error")

// MatchKeywords reports whether the paper's title or abstract contains at
// least one of the keywords, case-insensitively. An empty keyword list
// matches everything.
func MatchKeywords(p Paper, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}
	title := strings.ToLower(p.Title)
	abstract := strings.ToLower(p.Abstract)
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if strings.Contains(title, kw) || strings.Contains(abstract, kw) {
			return true
		}
	}
	return false
}

// FilterKeywords returns the papers matching at least one keyword, preserving
// order.
func FilterKeywords(papers []Paper, keywords []string) []Paper {
	if len(keywords) == 0 {
		return papers
	}
	out := make([]Paper, 0, len(papers))
	for _, p := range papers {
		if MatchKeywords(p, keywords) {
			out = append(out, p)
		}
	}
	return out
}

// FilterWindow drops papers published before the cutoff. Papers without a
// parseable publication date were already quarantined at fetch time.
func FilterWindow(papers []Paper, now time.Time, windowDays int) []Paper {
	if windowDays <= 0 {
		return papers
	}
	cutoff := now.AddDate(0, 0, -windowDays)
	out := make([]Paper, 0, len(papers))
	for _, p := range papers {
		if p.Published.Before(cutoff) {
			continue
		}
		out = append(out, p)
	}
	return out
}
