// Package archive persists daily digests as dated JSON files under a data
// directory, one file per day, plus a seen_ids.json set used to avoid
// re-summarizing papers across runs and a scores.json cache of relevance
// scores.
package archive

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/joeypan/arxiv-digest/internal/fetcher"
	"github.com/joeypan/arxiv-digest/internal/summarizer"
)

// DateFormat is the ISO date used for digest file names and Digest.Date.
const DateFormat = "2006-01-02"

// Record is one paper in a digest, with its summary when summarization
// succeeded. A nil Summary means the LLM call failed for this paper.
type Record struct {
	ID       string              `json:"id"`
	Title    string              `json:"title"`
	Authors  []string            `json:"authors"`
	Abstract string              `json:"abstract"`
	Category string              `json:"category"`
	Date     string              `json:"date"`
	URL      string              `json:"url"`
	PDFURL   string              `json:"pdf_url"`
	Summary  *summarizer.Summary `json:"summary,omitempty"`
}

// Digest is one day's paper set. Created once per run, never mutated
// retroactively.
type Digest struct {
	Date   string   `json:"date"`
	Papers []Record `json:"papers"`
}

// NewRecord builds a Record from a fetched paper and its (possibly nil)
// summary.
func NewRecord(p fetcher.Paper, sum *summarizer.Summary) Record {
	return Record{
		ID:       p.ID,
		Title:    p.Title,
		Authors:  p.Authors,
		Abstract: p.Abstract,
		Category: p.Category,
		Date:     p.Published.Format(DateFormat),
		URL:      p.URL,
		PDFURL:   p.PDFURL,
		Summary:  sum,
	}
}

// Store reads and writes digests under a single data directory.
type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) digestPath(date string) string {
	return filepath.Join(s.dir, date+".json")
}

func (s *Store) seenPath() string {
	return filepath.Join(s.dir, "seen_ids.json")
}

// Write persists the digest as <date>.json. If a file for that date already
// exists the write is a no-op, so re-running the same day never duplicates a
// record.
func (s *Store) Write(d Digest) error {
	if _, err := time.Parse(DateFormat, d.Date); err != nil {
		return fmt.Errorf("archive: invalid digest date %q: %w", d.Date, err)
	}

	path := s.digestPath(d.Date)
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("archive: failed to stat %s: %w", path, err)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("archive: failed to create data dir: %w", err)
	}

	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("archive: failed to marshal digest: %w", err)
	}

	if err := WriteFileAtomic(path, data); err != nil {
		return fmt.Errorf("archive: %w", err)
	}
	return nil
}

// Read returns the digest for the given ISO date.
func (s *Store) Read(date string) (Digest, error) {
	data, err := os.ReadFile(s.digestPath(date))
	if err != nil {
		return Digest{}, fmt.Errorf("archive: failed to read digest for %s: %w", date, err)
	}
	var d Digest
	if err := json.Unmarshal(data, &d); err != nil {
		return Digest{}, fmt.Errorf("archive: corrupt digest file for %s: %w", date, err)
	}
	return d, nil
}

// Dates returns the ISO dates of all persisted digests, oldest first.
func (s *Store) Dates() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("archive: failed to list data dir: %w", err)
	}

	var dates []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		date := strings.TrimSuffix(name, ".json")
		if _, err := time.Parse(DateFormat, date); err != nil {
			continue // seen_ids.json and strays
		}
		dates = append(dates, date)
	}
	sort.Strings(dates)
	return dates, nil
}

// ReadAll returns every persisted digest in chronological order.
func (s *Store) ReadAll() ([]Digest, error) {
	dates, err := s.Dates()
	if err != nil {
		return nil, err
	}
	digests := make([]Digest, 0, len(dates))
	for _, date := range dates {
		d, err := s.Read(date)
		if err != nil {
			return nil, err
		}
		digests = append(digests, d)
	}
	return digests, nil
}

// Latest returns the most recent digest, if any.
func (s *Store) Latest() (Digest, bool, error) {
	dates, err := s.Dates()
	if err != nil || len(dates) == 0 {
		return Digest{}, false, err
	}
	d, err := s.Read(dates[len(dates)-1])
	if err != nil {
		return Digest{}, false, err
	}
	return d, true, nil
}

// SeenIDs returns the set of paper IDs published in any previous run.
func (s *Store) SeenIDs() (map[string]bool, error) {
	data, err := os.ReadFile(s.seenPath())
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]bool{}, nil
		}
		return nil, fmt.Errorf("archive: failed to read seen ids: %w", err)
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("archive: corrupt seen_ids.json: %w", err)
	}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		seen[id] = true
	}
	return seen, nil
}

// AddSeenIDs merges the given IDs into the persisted seen set.
func (s *Store) AddSeenIDs(ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	seen, err := s.SeenIDs()
	if err != nil {
		return err
	}
	for _, id := range ids {
		seen[id] = true
	}

	merged := make([]string, 0, len(seen))
	for id := range seen {
		merged = append(merged, id)
	}
	sort.Strings(merged)

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("archive: failed to create data dir: %w", err)
	}
	data, err := json.MarshalIndent(merged, "", "  ")
	if err != nil {
		return fmt.Errorf("archive: failed to marshal seen ids: %w", err)
	}
	if err := WriteFileAtomic(s.seenPath(), data); err != nil {
		return fmt.Errorf("archive: %w", err)
	}
	return nil
}

func (s *Store) scoresPath() string {
	return filepath.Join(s.dir, "scores.json")
}

// Scores returns the cached relevance scores keyed by paper ID.
func (s *Store) Scores() (map[string]int, error) {
	data, err := os.ReadFile(s.scoresPath())
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]int{}, nil
		}
		return nil, fmt.Errorf("archive: failed to read scores: %w", err)
	}
	var scores map[string]int
	if err := json.Unmarshal(data, &scores); err != nil {
		return nil, fmt.Errorf("archive: corrupt scores.json: %w", err)
	}
	if scores == nil {
		scores = map[string]int{}
	}
	return scores, nil
}

// AddScores merges the given scores into the persisted cache so each paper
// is scored by the LLM at most once across runs.
func (s *Store) AddScores(scores map[string]int) error {
	if len(scores) == 0 {
		return nil
	}
	merged, err := s.Scores()
	if err != nil {
		return err
	}
	for id, score := range scores {
		merged[id] = score
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("archive: failed to create data dir: %w", err)
	}
	data, err := json.MarshalIndent(merged, "", "  ")
	if err != nil {
		return fmt.Errorf("archive: failed to marshal scores: %w", err)
	}
	if err := WriteFileAtomic(s.scoresPath(), data); err != nil {
		return fmt.Errorf("archive: %w", err)
	}
	return nil
}

// WriteFileAtomic writes via a temp file and rename so a crashed run never
// leaves a half-written file behind. Readers see either the previous
// content or the new content, never a partial write.
func WriteFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename into %s: %w", path, err)
	}
	return nil
}
