package observability

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonathan/job-scraper/internal/analytics"
	"github.com/jonathan/job-scraper/internal/types"
)

func TestPrintRunSummary(t *testing.T) {
	tests := []struct {
		name string
		res  *types.BatchResult
		want string
	}{
		{"target reached", &types.BatchResult{RunID: "run-1", Listings: make([]types.JobListing, 10), Calls: 2, Batches: 2}, "target reached"},
		{"exhausted", &types.BatchResult{Exhausted: true}, "no more results"},
		{"error", &types.BatchResult{Err: errors.New("max retries reached\nsecond line")}, "max retries reached"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			NewPrinter(&buf).PrintRunSummary("linkedin", tt.res)
			output := buf.String()

			assert.Contains(t, output, "SCRAPE SUMMARY")
			assert.Contains(t, output, "linkedin")
			assert.Contains(t, output, tt.want)
			assert.NotContains(t, output, "second line")
		})
	}
}

func TestPrintRunSummary_Counts(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintRunSummary("rss", &types.BatchResult{RunID: "abc", Listings: make([]types.JobListing, 7), Calls: 4, Batches: 3, Duplicates: 2})

	output := buf.String()
	assert.Contains(t, output, "Listings:   7")
	assert.Contains(t, output, "Calls:      4 (3 succeeded)")
	assert.Contains(t, output, "Duplicates: 2")
}

func TestPrintRunSummary_Nil(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintRunSummary("linkedin", nil)
	assert.Empty(t, buf.String())
}

func TestPrintTopCompanies(t *testing.T) {
	var buf bytes.Buffer
	summary := analytics.Summary{
		Total: 9,
		TopCompanies: []analytics.Count{
			{Label: "Acme", Count: 3}, {Label: "Globex", Count: 2}, {Label: "C", Count: 1},
			{Label: "D", Count: 1}, {Label: "E", Count: 1}, {Label: "F", Count: 1},
		},
		TopLocations: []analytics.Count{{Label: "London", Count: 5}},
	}

	NewPrinter(&buf).PrintTopCompanies(summary)
	output := buf.String()

	assert.Contains(t, output, "Acme (3)")
	assert.Contains(t, output, "... and 1 more")
	assert.NotContains(t, output, "F (1)")
	assert.Contains(t, output, "London (5)")
}

func TestPrintTopCompanies_Empty(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintTopCompanies(analytics.Summary{})
	assert.Empty(t, buf.String())
}

func TestPrintTopMatches(t *testing.T) {
	var buf bytes.Buffer
	listings := []types.JobListing{
		{Title: "Low", Company: "A", Match: &types.MatchResult{Score: 10}},
		{Title: "Unscored", Company: "B"},
		{Title: "High", Company: "C", Match: &types.MatchResult{Score: 90}},
	}

	NewPrinter(&buf).PrintTopMatches(listings)
	output := buf.String()

	assert.Contains(t, output, "Scored 2 of 3 listings")
	assert.Less(t, strings.Index(output, "High"), strings.Index(output, "Low"))
	assert.NotContains(t, output, "Unscored")
}

func TestPrintTopMatches_NoneScored(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintTopMatches([]types.JobListing{{Title: "x"}})
	assert.Empty(t, buf.String())
}

func TestPrintOutputs(t *testing.T) {
	var buf bytes.Buffer
	outputs := []Output{
		{Name: "csv", Location: "data/jobs.csv"},
		{Name: "sheets", Err: errors.New("permission denied")},
	}

	NewPrinter(&buf).PrintOutputs(outputs)
	output := buf.String()

	assert.Contains(t, output, "✓ csv    data/jobs.csv")
	assert.Contains(t, output, "✗ sheets permission denied")

	err := Failed(outputs)
	assert.ErrorContains(t, err, "sheets: permission denied")
	assert.NoError(t, Failed(outputs[:1]))
}

func TestPrintBox_TruncatesLongLines(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.printBox("TEST", strings.Repeat("é", 100))

	for _, line := range strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n") {
		assert.Equal(t, boxWidth, len([]rune(line)), line)
	}
	assert.Contains(t, buf.String(), "...")
}
