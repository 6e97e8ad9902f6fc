package provider

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/jonathan/job-scraper/internal/types"
)

// Multi queries several providers in order for every batch, each at its own
// cursor, and concatenates what they return. A provider that comes back empty
// is not asked again. Multi is stateful and not safe for concurrent use.
type Multi struct {
	providers []Provider
	offsets   []int
	done      []bool
}

// NewMulti combines providers.
func NewMulti(providers ...Provider) *Multi {
	return &Multi{
		providers: providers,
		offsets:   make([]int, len(providers)),
		done:      make([]bool, len(providers)),
	}
}

// Name joins the child provider names.
func (m *Multi) Name() string {
	names := make([]string, len(m.providers))
	for i, p := range m.providers {
		names[i] = p.Name()
	}
	return strings.Join(names, "+")
}

// FetchBatch asks every live provider for q.Limit listings. The combined
// batch may exceed q.Limit; the caller truncates. An error is returned only
// when no provider produced anything.
func (m *Multi) FetchBatch(ctx context.Context, q Query) ([]types.JobListing, error) {
	if q.Offset == 0 {
		for i := range m.offsets {
			m.offsets[i] = 0
			m.done[i] = false
		}
	}

	var out []types.JobListing
	var errs []error
	for i, p := range m.providers {
		if m.done[i] {
			continue
		}
		sub := q
		sub.Offset = m.offsets[i]
		batch, err := p.FetchBatch(ctx, sub)
		if err != nil {
			log.Printf("[WARN] %s batch failed: %v", p.Name(), err)
			errs = append(errs, err)
			continue
		}
		if len(batch) == 0 {
			m.done[i] = true
			continue
		}
		m.offsets[i] += len(batch)
		out = append(out, batch...)
	}

	if len(out) == 0 && len(errs) > 0 {
		return nil, joinProviderErrors(errs)
	}
	return out, nil
}

// joinProviderErrors keeps the result retryable only if every cause is.
func joinProviderErrors(errs []error) error {
	joined := errors.Join(errs...)
	for _, err := range errs {
		if !IsRetryable(err) {
			return Permanent(joined)
		}
	}
	return joined
}
