// Package analytics aggregates scraped listings into the counts shown on the
// spreadsheet's Analytics tab and in the run summary.
package analytics

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jonathan/job-scraper/internal/types"
)

// SheetTitle is the name of the tab the chart tables are written to.
const SheetTitle = "Analytics"

// Count is one labelled tally.
type Count struct {
	Label string
	Count int
}

// Summary holds the aggregate view of a run.
type Summary struct {
	Total        int
	TopCompanies []Count
	TopLocations []Count
	TopTitles    []Count
	PostsByDay   []Count // oldest first, labelled YYYY-MM-DD
	Applied      int
	NotApplied   int
}

// Summarize tallies listings. Empty labels are not counted.
func Summarize(listings []types.JobListing) Summary {
	s := Summary{
		Total:        len(listings),
		TopCompanies: top(listings, func(l types.JobListing) string { return l.Company }, 10),
		TopLocations: top(listings, func(l types.JobListing) string { return l.Location }, 5),
		TopTitles:    top(listings, func(l types.JobListing) string { return l.Title }, 10),
		PostsByDay:   postsByDay(listings),
	}
	for _, l := range listings {
		if l.Applied {
			s.Applied++
		} else {
			s.NotApplied++
		}
	}
	return s
}

// ChartType names a Sheets basic or pie chart.
type ChartType string

// Chart types used on the Analytics tab.
const (
	ChartColumn ChartType = "COLUMN"
	ChartLine   ChartType = "LINE"
	ChartPie    ChartType = "PIE"
)

// Table is one titled two-column block on the Analytics tab with the chart drawn from it.
type Table struct {
	Title  string
	Type   ChartType
	Column int // zero-based index of the label column
	Rows   []Count
}

// Tables returns the chart tables for listings, laid out left to right three columns apart.
func Tables(listings []types.JobListing) []Table {
	s := Summarize(listings)
	status := []Count{}
	if s.NotApplied > 0 {
		status = append(status, Count{Label: "FALSE", Count: s.NotApplied})
	}
	if s.Applied > 0 {
		status = append(status, Count{Label: "TRUE", Count: s.Applied})
	}

	return []Table{
		{Title: "Top 10 Companies Hiring", Type: ChartColumn, Column: 0, Rows: s.TopCompanies},
		{Title: "Top 10 Locations", Type: ChartPie, Column: 3, Rows: top(listings, func(l types.JobListing) string { return l.Location }, 10)},
		{Title: "Application Status", Type: ChartPie, Column: 6, Rows: status},
		{Title: "Jobs Posted Over Time", Type: ChartLine, Column: 9, Rows: s.PostsByDay},
	}
}

// Range returns the A1 range the table occupies, title row included.
func (t Table) Range() string {
	return fmt.Sprintf("%s!%s1:%s%d", SheetTitle, ColumnLetter(t.Column), ColumnLetter(t.Column+1), len(t.Rows)+1)
}

// Values returns the title row followed by one label/count row per entry.
func (t Table) Values() [][]any {
	values := make([][]any, 0, len(t.Rows)+1)
	values = append(values, []any{t.Title})
	for _, r := range t.Rows {
		values = append(values, []any{r.Label, r.Count})
	}
	return values
}

// ColumnLetter converts a zero-based column index to its A1 letters.
func ColumnLetter(index int) string {
	var sb []byte
	for n := index + 1; n > 0; n = (n - 1) / 26 {
		sb = append([]byte{byte('A' + (n-1)%26)}, sb...)
	}
	return string(sb)
}

// Prepare merges a fresh run with a previous export: every new listing is
// kept, plus previously exported listings marked as applied. Listings are
// matched on company, title and location and the first occurrence wins.
func Prepare(fresh, previous []types.JobListing) []types.JobListing {
	out := make([]types.JobListing, 0, len(fresh))
	seen := make(map[string]struct{}, len(fresh))
	add := func(l types.JobListing) {
		key := types.FallbackKey(l.Company, l.Title, l.Location)
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		out = append(out, l)
	}

	for _, l := range fresh {
		add(l)
	}
	for _, l := range previous {
		if l.Applied {
			add(l)
		}
	}
	return out
}

func top(listings []types.JobListing, label func(types.JobListing) string, n int) []Count {
	counts := make(map[string]int)
	for _, l := range listings {
		if v := strings.TrimSpace(label(l)); v != "" {
			counts[v]++
		}
	}
	out := sorted(counts, func(a, b Count) bool {
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Label < b.Label
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func postsByDay(listings []types.JobListing) []Count {
	counts := make(map[string]int)
	for _, l := range listings {
		if !l.DatePosted.IsZero() {
			counts[l.DatePosted.Format("2006-01-02")]++
		}
	}
	return sorted(counts, func(a, b Count) bool { return a.Label < b.Label })
}

func sorted(counts map[string]int, less func(a, b Count) bool) []Count {
	out := make([]Count, 0, len(counts))
	for label, c := range counts {
		out = append(out, Count{Label: label, Count: c})
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}
