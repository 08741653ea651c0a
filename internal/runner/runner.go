package runner

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/joeypan/arxiv-digest/internal/archive"
	"github.com/joeypan/arxiv-digest/internal/config"
	"github.com/joeypan/arxiv-digest/internal/fetcher"
	"github.com/joeypan/arxiv-digest/internal/notifier"
	"github.com/joeypan/arxiv-digest/internal/site"
	"github.com/joeypan/arxiv-digest/internal/summarizer"
)

// Runner orchestrates the fetch -> summarize -> archive -> render pipeline.
// One call to Run produces at most one digest; re-running for the same date
// is a no-op on the archive.
type Runner struct {
	categories   []string
	keywords     []string
	maxResults   int
	pageSize     int
	windowDays   int
	maxPerDay    int
	retryBackoff time.Duration

	// RequestPause is the delay between consecutive LLM calls. Zero means
	// no pause.
	RequestPause time.Duration

	// DryRun performs fetch and summarize but skips every write.
	DryRun bool

	// Scorer rates candidate papers for relevance ranking. When nil and a
	// daily cap is set, papers keep the fetcher's ordering.
	Scorer summarizer.Scorer

	fetcher    fetcher.Fetcher
	summarizer summarizer.Summarizer
	store      *archive.Store
	site       *site.Generator
	notifier   notifier.Notifier
}

func New(cfg *config.Config, f fetcher.Fetcher, s summarizer.Summarizer, store *archive.Store, gen *site.Generator, n notifier.Notifier) *Runner {
	return &Runner{
		categories:   cfg.Categories,
		keywords:     cfg.Keywords,
		maxResults:   cfg.MaxResults,
		pageSize:     cfg.PageSize,
		windowDays:   cfg.WindowDays,
		maxPerDay:    cfg.MaxPapersPerDay,
		retryBackoff: cfg.LLM.RetryBackoff(),
		fetcher:      f,
		summarizer:   s,
		store:        store,
		site:         gen,
		notifier:     n,
	}
}

// Run executes the full pipeline once for the given digest date.
func (r *Runner) Run(ctx context.Context, date time.Time) error {
	dateStr := date.Format(archive.DateFormat)
	log.Printf("Starting pipeline for %s (categories=%v, max_results=%d)", dateStr, r.categories, r.maxResults)

	// Step 1: Fetch. Any failure here aborts the run before any write.
	log.Println("Fetching papers...")
	papers, err := r.fetcher.Fetch(ctx, fetcher.Query{
		Categories: r.categories,
		MaxResults: r.maxResults,
		PageSize:   r.pageSize,
	})
	if err != nil {
		return fmt.Errorf("runner: fetch failed: %w", err)
	}
	log.Printf("Fetched %d papers", len(papers))

	papers = fetcher.FilterWindow(papers, date, r.windowDays)
	papers = fetcher.FilterKeywords(papers, r.keywords)
	log.Printf("%d papers remain after keyword and recency filters", len(papers))

	papers, err = r.dropSeen(papers)
	if err != nil {
		return fmt.Errorf("runner: dedup failed: %w", err)
	}
	log.Printf("%d new papers after dedup against previous runs", len(papers))

	papers, err = r.rank(ctx, papers)
	if err != nil {
		return fmt.Errorf("runner: ranking failed: %w", err)
	}

	// Step 2: Summarize. Per-paper failures degrade the digest, they do
	// not abort it.
	records := make([]archive.Record, 0, len(papers))
	failed := 0
	for i, p := range papers {
		if i > 0 && r.RequestPause > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(r.RequestPause):
			}
		}
		log.Printf("[%d/%d] Summarizing %s: %.60s", i+1, len(papers), p.ID, p.Title)
		sum, err := r.summarize(ctx, p)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Printf("WARNING: summary failed for %s: %v", p.ID, err)
			failed++
		}
		records = append(records, archive.NewRecord(p, sum))
	}
	if failed > 0 {
		log.Printf("Summarized %d papers, %d failed", len(records)-failed, failed)
	}

	if r.DryRun {
		log.Printf("Dry run: would publish digest for %s with %d papers", dateStr, len(records))
		return nil
	}

	// Step 3: Archive. Nothing new for today means nothing to write, but
	// the site is still regenerated so it reflects the archive.
	if len(records) > 0 {
		digest := archive.Digest{Date: dateStr, Papers: records}
		if err := r.store.Write(digest); err != nil {
			return fmt.Errorf("runner: archive write failed: %w", err)
		}
		ids := make([]string, len(records))
		for i, rec := range records {
			ids[i] = rec.ID
		}
		if err := r.store.AddSeenIDs(ids); err != nil {
			return fmt.Errorf("runner: failed to record seen ids: %w", err)
		}
	} else {
		log.Println("No new papers today, skipping digest write")
	}

	// Step 4: Render the full site from the archive.
	digests, err := r.store.ReadAll()
	if err != nil {
		return fmt.Errorf("runner: failed to read archive: %w", err)
	}
	if err := r.site.Generate(digests); err != nil {
		return fmt.Errorf("runner: site generation failed: %w", err)
	}
	log.Printf("Rendered site with %d archived days", len(digests))

	// Step 5: Notify. Best effort.
	if r.notifier != nil {
		if err := r.notifier.Notify(ctx, dateStr, len(records)); err != nil {
			log.Printf("WARNING: notification failed: %v", err)
		}
	}

	log.Println("Pipeline completed")
	return nil
}

// summarize calls the summarizer, retrying exactly once after a fixed backoff
// when the provider signals throttling. Other failures are not retried.
func (r *Runner) summarize(ctx context.Context, p fetcher.Paper) (*summarizer.Summary, error) {
	sum, err := r.summarizer.Summarize(ctx, p)
	if err == nil || !errors.Is(err, summarizer.ErrRateLimited) {
		return sum, err
	}

	log.Printf("Rate limited on %s, retrying in %s", p.ID, r.retryBackoff)
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(r.retryBackoff):
	}
	return r.summarizer.Summarize(ctx, p)
}

// rank orders candidates by relevance score, highest first, and trims the
// batch to the daily cap. Scores come from the persisted cache when a paper
// was scored on a previous run; new scores are cached for the next run.
// With no cap configured ranking is skipped entirely.
func (r *Runner) rank(ctx context.Context, papers []fetcher.Paper) ([]fetcher.Paper, error) {
	if r.maxPerDay <= 0 || len(papers) == 0 {
		return papers, nil
	}

	if r.Scorer != nil {
		scores, err := r.store.Scores()
		if err != nil {
			return nil, err
		}

		fresh := make(map[string]int)
		for _, p := range papers {
			if _, ok := scores[p.ID]; ok {
				continue
			}
			score, err := r.Scorer.Score(ctx, p)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				// Unscored papers rank last; the score is not
				// cached so a later run can retry.
				log.Printf("WARNING: relevance scoring failed for %s: %v", p.ID, err)
				continue
			}
			scores[p.ID] = score
			fresh[p.ID] = score
		}

		if len(fresh) > 0 && !r.DryRun {
			if err := r.store.AddScores(fresh); err != nil {
				return nil, err
			}
		}

		// Stable sort keeps the fetcher's newest-first ordering for
		// ties.
		sort.SliceStable(papers, func(i, j int) bool {
			return scores[papers[i].ID] > scores[papers[j].ID]
		})
	}

	if len(papers) > r.maxPerDay {
		log.Printf("Keeping top %d of %d papers by relevance", r.maxPerDay, len(papers))
		papers = papers[:r.maxPerDay]
	}
	return papers, nil
}

// dropSeen removes papers already published in the previous digest or
// recorded in the persisted seen-id set, and collapses duplicate IDs within
// the fetched batch itself.
func (r *Runner) dropSeen(papers []fetcher.Paper) ([]fetcher.Paper, error) {
	seen, err := r.store.SeenIDs()
	if err != nil {
		return nil, err
	}
	if prev, ok, err := r.store.Latest(); err != nil {
		return nil, err
	} else if ok {
		for _, rec := range prev.Papers {
			seen[rec.ID] = true
		}
	}

	out := make([]fetcher.Paper, 0, len(papers))
	for _, p := range papers {
		if seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		out = append(out, p)
	}
	return out, nil
}
