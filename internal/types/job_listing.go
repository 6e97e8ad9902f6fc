// Package types provides type definitions for structured data used throughout the job scraper.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"net/url"
	"strings"
	"time"
)

// JobListing is a single posting returned by a job-search provider.
// Listings are treated as immutable once fetched; enrichment steps return copies.
type JobListing struct {
	ID          string       `json:"id"`
	Site        string       `json:"site"`
	Title       string       `json:"title"`
	Company     string       `json:"company"`
	Location    string       `json:"location"`
	JobType     string       `json:"job_type,omitempty"`
	Description string       `json:"description,omitempty"`
	URL         string       `json:"url"`
	DatePosted  time.Time    `json:"date_posted,omitempty"`
	Salary      string       `json:"salary,omitempty"`
	IsRemote    bool         `json:"is_remote,omitempty"`
	Applied     bool         `json:"applied"`
	Match       *MatchResult `json:"match,omitempty"`
}

// MatchResult is the résumé-fit assessment attached to a listing.
type MatchResult struct {
	Score          int      `json:"match_score"` // 0-100
	Summary        string   `json:"summary"`
	MatchedSkills  []string `json:"relevant_skills,omitempty"`
	MissingSkills  []string `json:"missing_skills,omitempty"`
	Recommendation string   `json:"recommendation,omitempty"`
	Model          string   `json:"model,omitempty"`
	ResumeHash     string   `json:"resume_hash,omitempty"` // SHA256 of the résumé text scored against
}

// Key returns the natural deduplication key for the listing.
// The normalized URL is preferred; listings without a URL fall back to
// company, title and location.
func (l JobListing) Key() string {
	if k := NormalizeURL(l.URL); k != "" {
		return k
	}
	return FallbackKey(l.Company, l.Title, l.Location)
}

// WithMatch returns a copy of the listing carrying the given match result.
func (l JobListing) WithMatch(m *MatchResult) JobListing {
	l.Match = m
	return l
}

// NormalizeURL reduces a URL to host and path: the scheme, "www." prefix,
// query, fragment and trailing slash are dropped and the host is lower-cased.
// Returns an empty string for anything that does not parse as an absolute URL.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	path := strings.TrimSuffix(u.EscapedPath(), "/")
	return host + path
}

// FallbackKey builds the company_title_location identifier.
func FallbackKey(company, title, location string) string {
	key := strings.ToLower(company + "_" + title + "_" + location)
	return strings.ReplaceAll(key, " ", "_")
}
