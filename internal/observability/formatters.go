// Package observability provides formatted output utilities for the CLI.
package observability

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/jonathan/job-scraper/internal/analytics"
	"github.com/jonathan/job-scraper/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles boxed summary output
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// Output is one artifact the run tried to produce.
type Output struct {
	Name     string
	Location string
	Err      error
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, shorten(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintRunSummary outputs the fetch counters and how the run ended.
func (p *Printer) PrintRunSummary(site string, res *types.BatchResult) {
	if res == nil {
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Run:        %s\n", res.RunID)
	fmt.Fprintf(&sb, "Site:       %s\n", site)
	fmt.Fprintf(&sb, "Listings:   %d\n", len(res.Listings))
	fmt.Fprintf(&sb, "Calls:      %d (%d succeeded)\n", res.Calls, res.Batches)
	fmt.Fprintf(&sb, "Duplicates: %d\n", res.Duplicates)

	switch {
	case res.Err != nil:
		fmt.Fprintf(&sb, "Stopped:    %s", firstLine(res.Err.Error()))
	case res.Exhausted:
		sb.WriteString("Stopped:    no more results")
	default:
		sb.WriteString("Stopped:    target reached")
	}

	p.printBox("SCRAPE SUMMARY", sb.String())
}

// PrintTopCompanies outputs the most frequent companies and locations.
func (p *Printer) PrintTopCompanies(summary analytics.Summary) {
	if summary.Total == 0 {
		return
	}

	var sb strings.Builder
	writeCounts(&sb, "Top companies:", summary.TopCompanies)
	if len(summary.TopLocations) > 0 {
		sb.WriteString("\n")
		writeCounts(&sb, "Top locations:", summary.TopLocations)
	}

	p.printBox("WHO IS HIRING", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintTopMatches outputs the best scored listings, highest first.
func (p *Printer) PrintTopMatches(listings []types.JobListing) {
	var scored []types.JobListing
	for _, l := range listings {
		if l.Match != nil {
			scored = append(scored, l)
		}
	}
	if len(scored) == 0 {
		return
	}
	slices.SortStableFunc(scored, func(a, b types.JobListing) int {
		return b.Match.Score - a.Match.Score
	})

	var sb strings.Builder
	fmt.Fprintf(&sb, "Scored %d of %d listings\n\n", len(scored), len(listings))
	count := min(len(scored), maxItemsToShow)
	for i := 0; i < count; i++ {
		l := scored[i]
		fmt.Fprintf(&sb, "%3d  %s\n", l.Match.Score, l.Title)
		fmt.Fprintf(&sb, "     %s\n", l.Company)
	}
	if len(scored) > maxItemsToShow {
		fmt.Fprintf(&sb, "\n... and %d more", len(scored)-maxItemsToShow)
	}

	p.printBox("BEST MATCHES", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintOutputs lists every artifact with its location or failure.
func (p *Printer) PrintOutputs(outputs []Output) {
	if len(outputs) == 0 {
		return
	}

	var sb strings.Builder
	for _, o := range outputs {
		if o.Err != nil {
			fmt.Fprintf(&sb, "✗ %-6s %s\n", o.Name, firstLine(o.Err.Error()))
			continue
		}
		fmt.Fprintf(&sb, "✓ %-6s %s\n", o.Name, o.Location)
	}

	p.printBox("OUTPUTS", strings.TrimSuffix(sb.String(), "\n"))
}

// Failed reports whether any output failed, joining their errors.
func Failed(outputs []Output) error {
	var errs []error
	for _, o := range outputs {
		if o.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", o.Name, o.Err))
		}
	}
	return errors.Join(errs...)
}

func writeCounts(sb *strings.Builder, heading string, counts []analytics.Count) {
	sb.WriteString(heading + "\n")
	for i, c := range counts {
		if i == maxItemsToShow {
			fmt.Fprintf(sb, "  ... and %d more\n", len(counts)-maxItemsToShow)
			break
		}
		fmt.Fprintf(sb, "  • %s (%d)\n", c.Label, c.Count)
	}
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

// shorten truncates s to width runes, marking the cut with "...".
func shorten(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-3]) + "..."
}
