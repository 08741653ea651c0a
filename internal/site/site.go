// Package site renders the static browsable website: an index page listing
// every archived day newest-first, and one page per day with that day's
// papers and their Chinese summaries. Rendering is deterministic: identical
// archive input produces byte-identical pages.
package site

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"path/filepath"

	"github.com/joeypan/arxiv-digest/internal/archive"
)

// Generator renders the archive into a directory of static pages.
type Generator struct {
	outputDir   string
	title       string
	description string
}

func NewGenerator(outputDir, title, description string) *Generator {
	return &Generator{
		outputDir:   outputDir,
		title:       title,
		description: description,
	}
}

// categoryNames maps arXiv category codes to Chinese display names.
// Unlisted categories fall back to the raw code.
var categoryNames = map[string]string{
	"cs.CV":   "计算机视觉",
	"cs.CL":   "自然语言处理",
	"cs.LG":   "机器学习",
	"cs.AI":   "人工智能",
	"cs.GR":   "图形学",
	"cs.HC":   "人机交互",
	"cs.MM":   "多媒体",
	"cs.RO":   "机器人",
	"cs.NE":   "神经与进化计算",
	"stat.ML": "统计机器学习",
}

func categoryName(code string) string {
	if name, ok := categoryNames[code]; ok {
		return name
	}
	return code
}

type indexData struct {
	Title       string
	Description string
	Days        []indexDay
}

type indexDay struct {
	Date  string
	Count int
}

type dayData struct {
	Title       string
	Description string
	Date        string
	Papers      []paperData
}

type paperData struct {
	archive.Record
	CategoryName string
	AuthorLine   string
}

// Generate writes the index page and one page per digest. Digests are given
// in chronological order; the index lists them newest-first.
func (g *Generator) Generate(digests []archive.Digest) error {
	if err := os.MkdirAll(g.outputDir, 0o755); err != nil {
		return fmt.Errorf("site: failed to create output dir: %w", err)
	}

	idx := indexData{Title: g.title, Description: g.description}
	for i := len(digests) - 1; i >= 0; i-- {
		idx.Days = append(idx.Days, indexDay{
			Date:  digests[i].Date,
			Count: len(digests[i].Papers),
		})
	}
	if err := g.render("index.html", indexTemplate, idx); err != nil {
		return err
	}

	for _, d := range digests {
		data := dayData{
			Title:       g.title,
			Description: g.description,
			Date:        d.Date,
		}
		for _, r := range d.Papers {
			data.Papers = append(data.Papers, paperData{
				Record:       r,
				CategoryName: categoryName(r.Category),
				AuthorLine:   authorLine(r.Authors),
			})
		}
		if err := g.render(d.Date+".html", dayTemplate, data); err != nil {
			return err
		}
	}

	return nil
}

func (g *Generator) render(name string, tmpl *template.Template, data any) error {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("site: failed to render %s: %w", name, err)
	}
	// Atomic replace keeps the previously published page intact if this
	// run dies mid-write.
	path := filepath.Join(g.outputDir, name)
	if err := archive.WriteFileAtomic(path, buf.Bytes()); err != nil {
		return fmt.Errorf("site: %w", err)
	}
	return nil
}

// authorLine joins the first five authors, appending a count when truncated.
func authorLine(authors []string) string {
	const max = 5
	if len(authors) <= max {
		return join(authors)
	}
	return fmt.Sprintf("%s 等 (%d 位作者)", join(authors[:max]), len(authors))
}

func join(authors []string) string {
	var buf bytes.Buffer
	for i, a := range authors {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(a)
	}
	return buf.String()
}
