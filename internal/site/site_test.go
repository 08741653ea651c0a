package site

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/joeypan/arxiv-digest/internal/archive"
	"github.com/joeypan/arxiv-digest/internal/summarizer"
)

func sampleDigests() []archive.Digest {
	return []archive.Digest{
		{
			Date: "2025-06-14",
			Papers: []archive.Record{
				{
					ID:       "2401.00001",
					Title:    "Older Paper",
					Authors:  []string{"Dave"},
					Abstract: "An older abstract.",
					Category: "cs.LG",
					Date:     "2025-06-14",
					URL:      "https://arxiv.org/abs/2401.00001",
					PDFURL:   "https://arxiv.org/pdf/2401.00001.pdf",
				},
			},
		},
		{
			Date: "2025-06-15",
			Papers: []archive.Record{
				{
					ID:       "2401.12345",
					Title:    "Latent Diffusion Models",
					Authors:  []string{"Alice", "Bob"},
					Abstract: "We study diffusion models.",
					Category: "cs.CV",
					Date:     "2025-06-15",
					URL:      "https://arxiv.org/abs/2401.12345",
					PDFURL:   "https://arxiv.org/pdf/2401.12345.pdf",
					Summary: &summarizer.Summary{
						TitleZH:      "潜在扩散模型",
						Contribution: "提出了潜在扩散模型",
						Method:       "在潜在空间进行扩散",
						Finding:      "生成质量显著提升",
					},
				},
				{
					ID:       "2401.54321",
					Title:    "Failed Summary Paper",
					Authors:  []string{"Eve"},
					Abstract: "The LLM never saw this one.",
					Category: "cs.CV",
					Date:     "2025-06-15",
					URL:      "https://arxiv.org/abs/2401.54321",
					PDFURL:   "https://arxiv.org/pdf/2401.54321.pdf",
				},
			},
		},
	}
}

func readPage(t *testing.T, dir, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("Failed to read %s: %v", name, err)
	}
	return string(data)
}

func TestGenerateIndexNewestFirst(t *testing.T) {
	dir := t.TempDir()
	g := NewGenerator(dir, "Test Digest", "desc")

	if err := g.Generate(sampleDigests()); err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}

	index := readPage(t, dir, "index.html")
	newer := strings.Index(index, "2025-06-15.html")
	older := strings.Index(index, "2025-06-14.html")
	if newer < 0 || older < 0 {
		t.Fatalf("Index missing day links:\n%s", index)
	}
	if newer > older {
		t.Error("Expected newest digest listed first in index")
	}
	if !strings.Contains(index, "Test Digest") {
		t.Error("Expected site title in index")
	}
	if !strings.Contains(index, "2 篇论文") {
		t.Error("Expected per-day paper count in index")
	}
}

func TestGenerateDayPages(t *testing.T) {
	dir := t.TempDir()
	g := NewGenerator(dir, "Test Digest", "desc")

	if err := g.Generate(sampleDigests()); err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}

	page := readPage(t, dir, "2025-06-15.html")

	for _, want := range []string{
		"Latent Diffusion Models",
		"潜在扩散模型",
		"提出了潜在扩散模型",
		"在潜在空间进行扩散",
		"生成质量显著提升",
		"https://arxiv.org/abs/2401.12345",
		"https://arxiv.org/pdf/2401.12345.pdf",
		"计算机视觉", // cs.CV display name
		"Alice, Bob",
	} {
		if !strings.Contains(page, want) {
			t.Errorf("Day page missing %q", want)
		}
	}

	// The unsummarized paper is still published, marked as failed.
	if !strings.Contains(page, "Failed Summary Paper") {
		t.Error("Expected unsummarized paper on the page")
	}
	if !strings.Contains(page, "摘要生成失败") {
		t.Error("Expected failure marker for missing summary")
	}
}

func TestGenerateDeterministic(t *testing.T) {
	digests := sampleDigests()

	dirA := t.TempDir()
	if err := NewGenerator(dirA, "T", "d").Generate(digests); err != nil {
		t.Fatalf("First generate returned error: %v", err)
	}
	dirB := t.TempDir()
	if err := NewGenerator(dirB, "T", "d").Generate(digests); err != nil {
		t.Fatalf("Second generate returned error: %v", err)
	}

	for _, name := range []string{"index.html", "2025-06-14.html", "2025-06-15.html"} {
		if readPage(t, dirA, name) != readPage(t, dirB, name) {
			t.Errorf("Page %s differs between identical runs", name)
		}
	}
}

func TestGenerateEmptyArchive(t *testing.T) {
	dir := t.TempDir()
	g := NewGenerator(dir, "T", "d")

	if err := g.Generate(nil); err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}

	index := readPage(t, dir, "index.html")
	if !strings.Contains(index, "暂无归档") {
		t.Error("Expected empty-archive message in index")
	}
}

func TestGenerateEscapesHTML(t *testing.T) {
	dir := t.TempDir()
	g := NewGenerator(dir, "T", "d")

	digests := []archive.Digest{{
		Date: "2025-06-15",
		Papers: []archive.Record{{
			ID:       "2401.11111",
			Title:    "Bounds on <script>alert(1)</script>",
			Abstract: "a < b & c > d",
			Category: "cs.CR",
			Date:     "2025-06-15",
		}},
	}}

	if err := g.Generate(digests); err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}

	page := readPage(t, dir, "2025-06-15.html")
	if strings.Contains(page, "<script>alert(1)</script>") {
		t.Error("Paper title was not HTML-escaped")
	}
}

func TestGenerateLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	g := NewGenerator(dir, "Test Digest", "desc")
	if err := g.Generate(sampleDigests()); err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir returned error: %v", err)
	}
	for _, e := range entries {
		if !strings.HasSuffix(e.Name(), ".html") {
			t.Errorf("Unexpected file left behind: %s", e.Name())
		}
	}
}

func TestGenerateReplacesExistingPages(t *testing.T) {
	dir := t.TempDir()
	stale := filepath.Join(dir, "index.html")
	if err := os.WriteFile(stale, []byte("stale"), 0o644); err != nil {
		t.Fatalf("Failed to seed stale page: %v", err)
	}

	g := NewGenerator(dir, "Test Digest", "desc")
	if err := g.Generate(sampleDigests()); err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}

	index := readPage(t, dir, "index.html")
	if index == "stale" || !strings.Contains(index, "Test Digest") {
		t.Errorf("Expected stale page replaced, got %q", index)
	}
}

func TestAuthorLine(t *testing.T) {
	if got := authorLine([]string{"A", "B"}); got != "A, B" {
		t.Errorf("authorLine short list = %q", got)
	}
	got := authorLine([]string{"A", "B", "C", "D", "E", "F", "G"})
	if !strings.HasPrefix(got, "A, B, C, D, E") || !strings.Contains(got, "7 位作者") {
		t.Errorf("authorLine long list = %q", got)
	}
}

func TestCategoryName(t *testing.T) {
	if got := categoryName("cs.CV"); got != "计算机视觉" {
		t.Errorf("categoryName(cs.CV) = %q", got)
	}
	if got := categoryName("math.CO"); got != "math.CO" {
		t.Errorf("Expected unknown category to pass through, got %q", got)
	}
}
