package provider

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mmcdole/gofeed"

	"github.com/jonathan/job-scraper/internal/fetch"
	"github.com/jonathan/job-scraper/internal/types"
)

// ErrNoFeeds is returned when the rss provider is selected without any feed URLs.
var ErrNoFeeds = errors.New("rss provider requires at least one feed URL (rss_feeds in config)")

// RSS reads job feeds and filters items locally by the search term.
// Feeds are not queryable, so the filtered item list is loaded on the first
// batch and then paged with offset and limit.
type RSS struct {
	feeds   []string
	http    *fetch.Options
	parser  *gofeed.Parser
	verbose bool
	now     func() time.Time

	loaded bool
	items  []types.JobListing
}

// NewRSS creates the rss provider.
func NewRSS(opts Options) (*RSS, error) {
	if len(opts.RSSFeeds) == 0 {
		return nil, ErrNoFeeds
	}

	client := opts.HTTPClient
	if client == nil {
		var err error
		client, err = fetch.NewClient(opts.Timeout, opts.Proxies)
		if err != nil {
			return nil, err
		}
	}

	return &RSS{
		feeds:   opts.RSSFeeds,
		http:    &fetch.Options{Client: client, UserAgent: opts.UserAgent},
		parser:  gofeed.NewParser(),
		verbose: opts.Verbose,
		now:     opts.now,
	}, nil
}

// Name returns the provider name.
func (r *RSS) Name() string { return types.SiteRSS }

// FetchBatch returns the filtered feed items in [q.Offset, q.Offset+q.Limit).
func (r *RSS) FetchBatch(ctx context.Context, q Query) ([]types.JobListing, error) {
	if !r.loaded {
		items, err := r.load(ctx, q.Request)
		if err != nil {
			return nil, err
		}
		r.items = items
		r.loaded = true
	}

	if q.Offset >= len(r.items) {
		return nil, nil
	}
	end := min(q.Offset+q.Limit, len(r.items))
	out := make([]types.JobListing, end-q.Offset)
	copy(out, r.items[q.Offset:end])
	return out, nil
}

func (r *RSS) load(ctx context.Context, req types.SearchRequest) ([]types.JobListing, error) {
	keywords := strings.Fields(strings.ToLower(req.SearchTerm))
	var cutoff time.Time
	if req.HoursOld > 0 {
		cutoff = r.now().Add(-time.Duration(req.HoursOld) * time.Hour)
	}

	var out []types.JobListing
	var failures []error
	for _, feedURL := range r.feeds {
		result, err := fetch.URL(ctx, feedURL, r.http)
		if err != nil {
			failures = append(failures, err)
			continue
		}
		feed, err := r.parser.ParseString(result.HTML)
		if err != nil {
			failures = append(failures, fmt.Errorf("failed to parse feed %s: %w", feedURL, err))
			continue
		}
		if r.verbose {
			log.Printf("[VERBOSE] Feed %s: %d items", feedURL, len(feed.Items))
		}

		for _, item := range feed.Items {
			listing, ok := feedItemListing(feed, item, keywords, cutoff)
			if ok {
				out = append(out, listing)
			}
		}
	}

	// Every feed failing is a provider error; partial failures are tolerated.
	if len(failures) == len(r.feeds) {
		return nil, errors.Join(failures...)
	}
	return out, nil
}

func feedItemListing(feed *gofeed.Feed, item *gofeed.Item, keywords []string, cutoff time.Time) (types.JobListing, bool) {
	title := strings.TrimSpace(item.Title)
	haystack := strings.ToLower(title + " " + item.Description)
	if !matchesAllKeywords(haystack, keywords) {
		return types.JobListing{}, false
	}

	var posted time.Time
	switch {
	case item.PublishedParsed != nil:
		posted = *item.PublishedParsed
	case item.UpdatedParsed != nil:
		posted = *item.UpdatedParsed
	}
	if !cutoff.IsZero() && !posted.IsZero() && posted.Before(cutoff) {
		return types.JobListing{}, false
	}

	company := ""
	if len(item.Authors) > 0 && item.Authors[0] != nil {
		company = item.Authors[0].Name
	}
	// Many boards title items "Company: Role".
	if company == "" {
		if i := strings.Index(title, ": "); i > 0 {
			company, title = title[:i], title[i+2:]
		}
	}
	if company == "" {
		company = strings.TrimSpace(feed.Title)
	}

	description := item.Description
	if text, err := fetch.ExtractMainText("<html><body>"+item.Description+"</body></html>", nil); err == nil {
		description = text
	}

	listing := types.JobListing{
		Site:        types.SiteRSS,
		Title:       title,
		Company:     company,
		Location:    feedItemLocation(item),
		URL:         strings.TrimSpace(item.Link),
		Description: description,
		DatePosted:  posted,
	}
	listing.IsRemote = strings.Contains(strings.ToLower(listing.Location+" "+title), "remote")
	listing.ID = item.GUID
	if listing.ID == "" {
		listing.ID = uuid.NewSHA1(uuid.NameSpaceURL, []byte(listing.Key())).String()
	}
	return listing, true
}

func feedItemLocation(item *gofeed.Item) string {
	for _, key := range []string{"region", "location"} {
		if v, ok := item.Custom[key]; ok && v != "" {
			return v
		}
	}
	return ""
}

// matchesAllKeywords ignores keywords shorter than three characters.
func matchesAllKeywords(text string, keywords []string) bool {
	for _, k := range keywords {
		if len(k) < 3 {
			continue
		}
		if !strings.Contains(text, k) {
			return false
		}
	}
	return true
}
