// Package provider defines the job-search capability used by the fetch loop
// and the concrete providers behind it.
package provider

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/jonathan/job-scraper/internal/fetch"
	"github.com/jonathan/job-scraper/internal/types"
)

// Provider fetches one bounded batch of listings.
type Provider interface {
	// Name returns a short identifier used in logs and the site column.
	Name() string
	// FetchBatch returns at most q.Limit listings starting at q.Offset.
	// An empty slice with a nil error means the provider has nothing more.
	FetchBatch(ctx context.Context, q Query) ([]types.JobListing, error)
}

// Query is one page request against a provider.
type Query struct {
	Request types.SearchRequest
	Offset  int
	Limit   int
}

// ErrUnknownSite is returned when a site name has no registered provider.
var ErrUnknownSite = errors.New("unknown site")

// permanentError marks an error that must not be retried.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so that IsRetryable reports false for it.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsRetryable reports whether a provider error is transient.
// Context cancellation, Permanent errors and fetch errors flagged as
// non-retryable are terminal; anything else is assumed transient.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var perm *permanentError
	if errors.As(err, &perm) {
		return false
	}
	var fetchErr *fetch.Error
	if errors.As(err, &fetchErr) {
		return fetchErr.Retryable
	}
	return true
}

// Factory builds a provider from shared options.
type Factory func(opts Options) (Provider, error)

var registry = map[string]Factory{
	types.SiteLinkedIn:  func(opts Options) (Provider, error) { return NewLinkedIn(opts), nil },
	types.SiteWebSearch: func(opts Options) (Provider, error) { return NewWebSearch(opts) },
	types.SiteRSS:       func(opts Options) (Provider, error) { return NewRSS(opts) },
}

// Sites returns the registered site names in sorted order.
func Sites() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New returns the provider for the given sites. A single site yields that
// provider directly; several are combined into a Multi that queries them in order.
func New(sites []string, opts Options) (Provider, error) {
	if len(sites) == 0 {
		sites = []string{types.DefaultSite}
	}

	providers := make([]Provider, 0, len(sites))
	for _, site := range sites {
		factory, ok := registry[site]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownSite, site)
		}
		p, err := factory(opts)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s provider: %w", site, err)
		}
		providers = append(providers, p)
	}

	if len(providers) == 1 {
		return providers[0], nil
	}
	return NewMulti(providers...), nil
}
