package provider

import (
	"net/http"
	"time"
)

// Options is shared by every provider factory.
type Options struct {
	// HTTPClient is used for page requests; nil builds one from Timeout and Proxies.
	HTTPClient *http.Client
	Timeout    time.Duration
	Proxies    []string
	UserAgent  string

	// RequestsPerSecond throttles requests per host inside a batch. Zero uses
	// DefaultRequestsPerSecond; a negative value disables throttling.
	RequestsPerSecond float64

	// UseBrowser enables the headless description fallback.
	UseBrowser bool
	Verbose    bool

	// LinkedInURL overrides the guest search endpoint.
	LinkedInURL string

	// Programmable Search credentials and the job boards to restrict results to.
	SearchAPIKey   string
	SearchCX       string
	SearchEndpoint string
	SearchBoards   []string

	// RSSFeeds are the job feed URLs read by the rss provider.
	RSSFeeds []string

	Now func() time.Time
}

// DefaultRequestsPerSecond keeps page and description requests to one per second per host.
const DefaultRequestsPerSecond = 1.0

func (o Options) requestsPerSecond() float64 {
	switch {
	case o.RequestsPerSecond == 0:
		return DefaultRequestsPerSecond
	case o.RequestsPerSecond < 0:
		return 0
	}
	return o.RequestsPerSecond
}

func (o Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}
