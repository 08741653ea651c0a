package summarizer

import (
	"context"
	"errors"

	"github.com/joeypan/arxiv-digest/internal/fetcher"
)

// Summary is the AI-generated Chinese summary of a single paper. It is never
// mutated after creation.
type Summary struct {
	TitleZH      string `json:"title_zh"`
	Contribution string `json:"contribution"`
	Method       string `json:"method"`
	Finding      string `json:"finding"`
}

// Summarizer produces a Summary for a single paper. Calls are independent of
// one another, so implementations may be driven concurrently.
type Summarizer interface {
	Summarize(ctx context.Context, p fetcher.Paper) (*Summary, error)
}

// Scorer rates how relevant a paper is to the reader's interests on a
// 0-100 scale. Scores are deterministic enough to cache per paper ID.
type Scorer interface {
	Score(ctx context.Context, p fetcher.Paper) (int, error)
}

// ErrRateLimited is returned when the provider signals throttling. Callers
// retry once after a fixed backoff before giving up on the paper.
var ErrRateLimited = errors.New("summarizer: rate limited")
