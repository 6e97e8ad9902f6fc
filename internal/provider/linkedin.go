package provider

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"github.com/jonathan/job-scraper/internal/fetch"
	"github.com/jonathan/job-scraper/internal/types"
)

// DefaultLinkedInURL is the public guest job search endpoint.
const DefaultLinkedInURL = "https://www.linkedin.com/jobs-guest/jobs/api/seeMoreJobPostings/search"

// linkedInPageSize is the number of cards the guest endpoint returns per page.
const linkedInPageSize = 10

var linkedInJobTypes = map[string]string{
	"fulltime":   "F",
	"parttime":   "P",
	"contract":   "C",
	"internship": "I",
}

// LinkedIn searches LinkedIn's guest job listing pages.
type LinkedIn struct {
	baseURL    string
	http       *fetch.Options
	limiter    *HostLimiter
	useBrowser bool
	verbose    bool
	clientErr  error
}

// NewLinkedIn creates the linkedin provider.
func NewLinkedIn(opts Options) *LinkedIn {
	baseURL := opts.LinkedInURL
	if baseURL == "" {
		baseURL = DefaultLinkedInURL
	}

	client := opts.HTTPClient
	var clientErr error
	if client == nil {
		client, clientErr = fetch.NewClient(opts.Timeout, opts.Proxies)
	}

	return &LinkedIn{
		baseURL: baseURL,
		http: &fetch.Options{
			Client:    client,
			UserAgent: opts.UserAgent,
			Headers:   map[string]string{"Accept-Language": "en-GB,en;q=0.9"},
		},
		limiter:    NewHostLimiter(opts.requestsPerSecond(), 1),
		useBrowser: opts.UseBrowser,
		verbose:    opts.Verbose,
		clientErr:  clientErr,
	}
}

// Name returns the provider name.
func (l *LinkedIn) Name() string { return types.SiteLinkedIn }

// FetchBatch pages through the guest endpoint until q.Limit cards are collected
// or a short page signals the end of the results.
func (l *LinkedIn) FetchBatch(ctx context.Context, q Query) ([]types.JobListing, error) {
	if l.clientErr != nil {
		return nil, Permanent(l.clientErr)
	}

	var out []types.JobListing
	start := q.Offset
	for len(out) < q.Limit {
		page, err := l.fetchPage(ctx, q.Request, start)
		if err != nil {
			return nil, err
		}
		out = append(out, page...)
		start += len(page)
		if len(page) < linkedInPageSize {
			break
		}
	}
	if len(out) > q.Limit {
		out = out[:q.Limit]
	}

	if q.Request.FetchDescription {
		for i := range out {
			out[i].Description = l.description(ctx, out[i].URL)
		}
	}
	return out, nil
}

func (l *LinkedIn) fetchPage(ctx context.Context, req types.SearchRequest, start int) ([]types.JobListing, error) {
	pageURL := l.searchURL(req, start)
	if err := l.limiter.WaitURL(ctx, pageURL); err != nil {
		return nil, err
	}
	if l.verbose {
		log.Printf("[VERBOSE] GET %s", pageURL)
	}

	result, err := fetch.URL(ctx, pageURL, l.http)
	if err != nil {
		// The guest endpoint answers 400 once start runs past the last result.
		if result != nil && result.StatusCode == http.StatusBadRequest && start > 0 {
			return nil, nil
		}
		return nil, err
	}
	return ParseLinkedInCards(result.HTML)
}

func (l *LinkedIn) searchURL(req types.SearchRequest, start int) string {
	params := url.Values{}
	params.Set("keywords", req.SearchTerm)
	params.Set("location", req.Location)
	if req.Distance > 0 {
		params.Set("distance", strconv.Itoa(req.Distance))
	}
	if code, ok := linkedInJobTypes[req.JobType]; ok {
		params.Set("f_JT", code)
	}
	if req.HoursOld > 0 {
		params.Set("f_TPR", fmt.Sprintf("r%d", req.HoursOld*3600))
	}
	params.Set("start", strconv.Itoa(start))
	return l.baseURL + "?" + params.Encode()
}

func (l *LinkedIn) description(ctx context.Context, jobURL string) string {
	if jobURL == "" {
		return ""
	}
	if err := l.limiter.WaitURL(ctx, jobURL); err != nil {
		return ""
	}
	text, err := fetch.FetchDescription(ctx, jobURL, fetch.DescriptionOptions{
		HTTP:       l.http,
		UseBrowser: l.useBrowser,
		Verbose:    l.verbose,
	})
	if err != nil {
		if l.verbose {
			log.Printf("[VERBOSE] Description unavailable for %s: %v", jobURL, err)
		}
		return ""
	}
	return text
}

// ParseLinkedInCards extracts listings from a guest search results fragment.
func ParseLinkedInCards(html string) ([]types.JobListing, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse LinkedIn results: %w", err)
	}

	var listings []types.JobListing
	doc.Find(".base-card, .job-search-card").Each(func(_ int, card *goquery.Selection) {
		if card.ParentsFiltered(".base-card, .job-search-card").Length() > 0 {
			return
		}

		link, _ := card.Find("a.base-card__full-link").Attr("href")
		if link == "" {
			link, _ = card.Find("a").First().Attr("href")
		}
		title := text(card.Find(".base-search-card__title"))
		if title == "" && link == "" {
			return
		}

		listing := types.JobListing{
			Site:     types.SiteLinkedIn,
			Title:    title,
			Company:  text(card.Find(".base-search-card__subtitle")),
			Location: text(card.Find(".job-search-card__location")),
			Salary:   text(card.Find(".job-search-card__salary-info")),
			URL:      strings.TrimSpace(link),
		}
		listing.IsRemote = strings.Contains(strings.ToLower(listing.Location), "remote")

		if dt, ok := card.Find("time").Attr("datetime"); ok {
			if posted, err := time.Parse("2006-01-02", dt); err == nil {
				listing.DatePosted = posted
			}
		}

		listing.ID = linkedInID(card, listing)
		listings = append(listings, listing)
	})

	return listings, nil
}

func linkedInID(card *goquery.Selection, listing types.JobListing) string {
	if urn, ok := card.Attr("data-entity-urn"); ok {
		if i := strings.LastIndex(urn, ":"); i >= 0 && i < len(urn)-1 {
			return "li-" + urn[i+1:]
		}
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(listing.Key())).String()
}

func text(s *goquery.Selection) string {
	return strings.Join(strings.Fields(s.First().Text()), " ")
}
