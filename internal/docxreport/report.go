// Package docxreport renders a readable Word report of a scrape run.
package docxreport

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gingfrederik/docx"

	"github.com/jonathan/job-scraper/internal/types"
)

const (
	separator = "--------------------------------------------------"
	// descriptionLimit keeps each posting to roughly half a page.
	descriptionLimit = 1200
)

// Report describes one run for the document header.
type Report struct {
	SearchTerm string
	Location   string
	Generated  time.Time
	Listings   []types.JobListing
}

// Path returns the .docx sibling of a CSV export path.
func Path(csvPath string) string {
	return strings.TrimSuffix(csvPath, filepath.Ext(csvPath)) + ".docx"
}

// Write saves the report to path.
func Write(path string, r Report) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating report dir: %w", err)
	}

	f := docx.NewFile()

	run := f.AddParagraph().AddText(fmt.Sprintf("Job Search: %s", r.SearchTerm))
	run.Size(20)

	run = f.AddParagraph().AddText(fmt.Sprintf("Location: %s | Generated: %s | Listings: %d",
		r.Location, r.Generated.Format("2006-01-02 15:04"), len(r.Listings)))
	run.Size(10)
	run.Color("808080")
	f.AddParagraph()

	for _, l := range r.Listings {
		run = f.AddParagraph().AddText(l.Title)
		run.Size(16)

		run = f.AddParagraph().AddText(Metadata(l))
		run.Size(10)
		run.Color("808080")

		if l.URL != "" {
			run = f.AddParagraph().AddText(l.URL)
			run.Size(10)
			run.Color("0000FF")
		}

		if l.Match != nil {
			run = f.AddParagraph().AddText(fmt.Sprintf("Match: %d/100 - %s", l.Match.Score, l.Match.Summary))
			run.Color(scoreColor(l.Match.Score))
		}

		for _, para := range Paragraphs(l.Description, descriptionLimit) {
			f.AddParagraph().AddText(para)
		}
		f.AddParagraph().AddText(separator)
	}

	if err := f.Save(path); err != nil {
		return fmt.Errorf("saving report %s: %w", path, err)
	}
	return nil
}

// Metadata renders the company, location, date and salary line for a listing.
func Metadata(l types.JobListing) string {
	parts := []string{}
	for _, v := range []string{l.Company, l.Location} {
		if v != "" {
			parts = append(parts, v)
		}
	}
	if l.IsRemote {
		parts = append(parts, "Remote")
	}
	if !l.DatePosted.IsZero() {
		parts = append(parts, "Posted "+l.DatePosted.Format("2006-01-02"))
	}
	if l.Salary != "" {
		parts = append(parts, l.Salary)
	}
	if l.Site != "" {
		parts = append(parts, "via "+l.Site)
	}
	return strings.Join(parts, " | ")
}

// Paragraphs splits text on blank lines and truncates it to roughly limit characters.
func Paragraphs(text string, limit int) []string {
	var out []string
	total := 0
	for _, p := range strings.Split(text, "\n\n") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if total+len(p) > limit {
			remaining := limit - total
			if remaining > 0 {
				out = append(out, truncateRunes(p, remaining)+"...")
			}
			break
		}
		out = append(out, p)
		total += len(p)
	}
	return out
}

func truncateRunes(s string, n int) string {
	if n >= len(s) {
		return s
	}
	// back off to a rune boundary
	for n > 0 && !isRuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

func scoreColor(score int) string {
	switch {
	case score >= 75:
		return "008000"
	case score >= 50:
		return "B8860B"
	default:
		return "B22222"
	}
}
