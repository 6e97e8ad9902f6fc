package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/jonathan/job-scraper/internal/fetch"
	"github.com/jonathan/job-scraper/internal/types"
)

// Programmable Search serves at most 10 results per request and 100 per query.
const (
	searchPageSize   = 10
	searchMaxResults = 100
)

// DefaultSearchBoards are the job boards a web search is restricted to.
var DefaultSearchBoards = []string{"linkedin.com/jobs", "indeed.com", "glassdoor.com"}

// ErrMissingSearchCredentials is returned when the websearch provider has no API key or engine ID.
var ErrMissingSearchCredentials = errors.New("websearch requires GOOGLE_SEARCH_API_KEY and GOOGLE_SEARCH_CX")

// WebSearch finds postings through Google Programmable Search restricted to job boards.
type WebSearch struct {
	svc    *customsearch.Service
	cx     string
	boards []string
}

// NewWebSearch creates the websearch provider.
func NewWebSearch(opts Options) (*WebSearch, error) {
	if opts.SearchAPIKey == "" || opts.SearchCX == "" {
		return nil, ErrMissingSearchCredentials
	}

	clientOpts := []option.ClientOption{option.WithAPIKey(opts.SearchAPIKey)}
	if opts.SearchEndpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(opts.SearchEndpoint))
	}
	if opts.HTTPClient != nil {
		clientOpts = append(clientOpts, option.WithHTTPClient(opts.HTTPClient))
	}

	svc, err := customsearch.NewService(context.Background(), clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create customsearch service: %w", err)
	}

	boards := opts.SearchBoards
	if len(boards) == 0 {
		boards = DefaultSearchBoards
	}
	return &WebSearch{svc: svc, cx: opts.SearchCX, boards: boards}, nil
}

// Name returns the provider name.
func (w *WebSearch) Name() string { return types.SiteWebSearch }

// FetchBatch pages through search results starting at q.Offset.
func (w *WebSearch) FetchBatch(ctx context.Context, q Query) ([]types.JobListing, error) {
	query := BuildSearchQuery(q.Request, w.boards)

	var out []types.JobListing
	offset := q.Offset
	for len(out) < q.Limit && offset < searchMaxResults {
		num := min(searchPageSize, q.Limit-len(out), searchMaxResults-offset)
		call := w.svc.Cse.List().Cx(w.cx).Q(query).Start(int64(offset + 1)).Num(int64(num))
		if gl := CountryCode(q.Request.Country); gl != "" {
			call = call.Gl(gl)
		}
		if q.Request.HoursOld > 0 {
			call = call.DateRestrict(fmt.Sprintf("d%d", max(1, (q.Request.HoursOld+23)/24)))
		}
		resp, err := call.Context(ctx).Do()
		if err != nil {
			return nil, classifyGoogleError(err)
		}
		for _, item := range resp.Items {
			out = append(out, searchItemListing(item))
		}
		offset += len(resp.Items)
		if len(resp.Items) < num {
			break
		}
	}
	return out, nil
}

var countryCodes = map[string]string{
	"uk":             "uk",
	"gb":             "uk",
	"united kingdom": "uk",
	"england":        "uk",
	"usa":            "us",
	"united states":  "us",
	"canada":         "ca",
	"australia":      "au",
	"ireland":        "ie",
	"germany":        "de",
	"france":         "fr",
	"netherlands":    "nl",
	"india":          "in",
	"singapore":      "sg",
}

// CountryCode maps a country name or code to the two-letter geolocation code
// search results are boosted for. Unknown names return "".
func CountryCode(country string) string {
	c := strings.ToLower(strings.TrimSpace(country))
	if code, ok := countryCodes[c]; ok {
		return code
	}
	if len(c) == 2 {
		return c
	}
	return ""
}

// BuildSearchQuery restricts the search term and location to the given boards.
func BuildSearchQuery(req types.SearchRequest, boards []string) string {
	sites := make([]string, 0, len(boards))
	for _, b := range boards {
		sites = append(sites, "site:"+b)
	}

	var sb strings.Builder
	if len(sites) == 1 {
		sb.WriteString(sites[0])
	} else if len(sites) > 1 {
		sb.WriteString("(" + strings.Join(sites, " OR ") + ")")
	}
	fmt.Fprintf(&sb, " %q", req.SearchTerm)
	if req.Location != "" {
		sb.WriteString(" " + req.Location)
	}
	return strings.TrimSpace(sb.String())
}

func searchItemListing(item *customsearch.Result) types.JobListing {
	title, company, location := SplitResultTitle(item.Title)
	listing := types.JobListing{
		Site:        string(fetch.DetectPlatform(item.Link)),
		Title:       title,
		Company:     company,
		Location:    location,
		URL:         item.Link,
		Description: strings.TrimSpace(item.Snippet),
	}
	if listing.Site == string(fetch.PlatformUnknown) {
		listing.Site = types.SiteWebSearch
	}
	listing.ID = uuid.NewSHA1(uuid.NameSpaceURL, []byte(listing.Key())).String()
	return listing
}

// SplitResultTitle pulls title, company and location out of a search result title.
// It understands "Acme hiring Go Engineer in London | LinkedIn" and
// "Go Engineer - Acme - London" shapes; anything else is returned as the title.
func SplitResultTitle(raw string) (title, company, location string) {
	raw = strings.TrimSpace(raw)
	if i := strings.LastIndex(raw, " | "); i > 0 {
		raw = raw[:i]
	}

	if i := strings.Index(raw, " hiring "); i > 0 {
		company = raw[:i]
		rest := raw[i+len(" hiring "):]
		if j := strings.LastIndex(rest, " in "); j > 0 {
			return strings.TrimSpace(rest[:j]), company, strings.TrimSpace(rest[j+len(" in "):])
		}
		return strings.TrimSpace(rest), company, ""
	}

	parts := strings.Split(raw, " - ")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	switch len(parts) {
	case 1:
		return parts[0], "", ""
	case 2:
		return parts[0], parts[1], ""
	default:
		return parts[0], parts[1], parts[2]
	}
}

func classifyGoogleError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		if gerr.Code == http.StatusTooManyRequests || gerr.Code >= 500 {
			return err
		}
		return Permanent(err)
	}
	return err
}
