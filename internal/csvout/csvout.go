// Package csvout writes and reads the job listing CSV export.
package csvout

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jonathan/job-scraper/internal/types"
)

// Header is the fixed column order of every export.
var Header = []string{
	"id", "site", "title", "company", "location", "job_type", "date_posted",
	"is_remote", "salary", "url", "applied", "match_score", "match_summary", "description",
	"resume_hash",
}

const dateLayout = "2006-01-02"

// ErrMissingColumns is returned by Read when a file lacks both url and title columns.
var ErrMissingColumns = errors.New("csv has neither a url nor a title column")

// Error wraps a failure writing or reading an export file.
type Error struct {
	Path  string
	Op    string
	Cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("csv %s %s: %v", e.Op, e.Path, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// DefaultPath returns <dir>/jobs_<slug>_<YYYYmmdd_HHMMSS>.csv.
func DefaultPath(dir, searchTerm string, now time.Time) string {
	slug := strings.Trim(slugPattern.ReplaceAllString(strings.ToLower(searchTerm), "_"), "_")
	if slug == "" {
		slug = "search"
	}
	return filepath.Join(dir, fmt.Sprintf("jobs_%s_%s.csv", slug, now.Format("20060102_150405")))
}

// Write writes listings to path, creating parent directories. The file is
// written to a temporary sibling and renamed so a failed run never leaves a
// truncated export behind.
func Write(path string, listings []types.JobListing) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return &Error{Path: path, Op: "write", Cause: err}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".jobs-*.csv.tmp")
	if err != nil {
		return &Error{Path: path, Op: "write", Cause: err}
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := Encode(tmp, listings); err != nil {
		_ = tmp.Close()
		return &Error{Path: path, Op: "write", Cause: err}
	}
	if err := tmp.Close(); err != nil {
		return &Error{Path: path, Op: "write", Cause: err}
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return &Error{Path: path, Op: "write", Cause: err}
	}
	return nil
}

// Encode writes the header and one row per listing to w.
func Encode(w io.Writer, listings []types.JobListing) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, l := range listings {
		if err := cw.Write(Row(l)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Row renders a listing in Header order.
func Row(l types.JobListing) []string {
	posted := ""
	if !l.DatePosted.IsZero() {
		posted = l.DatePosted.Format(dateLayout)
	}
	score, summary, hash := "", "", ""
	if l.Match != nil {
		score = strconv.Itoa(l.Match.Score)
		summary = l.Match.Summary
		hash = l.Match.ResumeHash
	}
	return []string{
		l.ID,
		l.Site,
		l.Title,
		l.Company,
		l.Location,
		l.JobType,
		posted,
		strconv.FormatBool(l.IsRemote),
		l.Salary,
		l.URL,
		strings.ToUpper(strconv.FormatBool(l.Applied)),
		score,
		summary,
		l.Description,
		hash,
	}
}

// Read parses an export back into listings. Columns are matched by header
// name, so files with extra or reordered columns are accepted.
func Read(path string) ([]types.JobListing, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &Error{Path: path, Op: "read", Cause: err}
	}
	defer func() { _ = f.Close() }()

	listings, err := Decode(f)
	if err != nil {
		return nil, &Error{Path: path, Op: "read", Cause: err}
	}
	return listings, nil
}

// Decode reads listings from r.
func Decode(r io.Reader) ([]types.JobListing, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	_, hasURL := cols["url"]
	_, hasTitle := cols["title"]
	if !hasURL && !hasTitle {
		return nil, ErrMissingColumns
	}

	var listings []types.JobListing
	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		get := func(name string) string {
			if i, ok := cols[name]; ok && i < len(record) {
				return record[i]
			}
			return ""
		}

		l := types.JobListing{
			ID:          get("id"),
			Site:        get("site"),
			Title:       get("title"),
			Company:     get("company"),
			Location:    get("location"),
			JobType:     get("job_type"),
			Salary:      get("salary"),
			URL:         get("url"),
			Description: get("description"),
			IsRemote:    parseBool(get("is_remote")),
			Applied:     parseBool(get("applied")),
		}
		if v := get("date_posted"); v != "" {
			posted, err := time.Parse(dateLayout, v)
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid date_posted %q: %w", line, v, err)
			}
			l.DatePosted = posted
		}
		if v := get("match_score"); v != "" {
			score, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid match_score %q: %w", line, v, err)
			}
			l.Match = &types.MatchResult{Score: score, Summary: get("match_summary"), ResumeHash: get("resume_hash")}
		}
		listings = append(listings, l)
	}
	return listings, nil
}

func parseBool(s string) bool {
	b, _ := strconv.ParseBool(strings.TrimSpace(s))
	return b
}
