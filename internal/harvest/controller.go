// Package harvest runs the batched fetch loop: it pages through a provider,
// throttles between batches, retries transient failures and keeps whatever
// it accumulated when a run ends early.
package harvest

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/job-scraper/internal/provider"
	"github.com/jonathan/job-scraper/internal/types"
)

// DefaultJitterFraction bounds jitter to this share of the sleep time.
const DefaultJitterFraction = 0.2

// Options configures a Controller. The zero value is usable.
type Options struct {
	// MaxCalls caps provider calls per run, retries included. Zero uses DefaultMaxCalls.
	MaxCalls int
	// JitterFraction bounds the random delay added to every sleep. Zero uses DefaultJitterFraction.
	JitterFraction float64
	// Jitter returns a random duration in [0, limit]. Nil uses RandomJitter.
	Jitter func(limit time.Duration) time.Duration
	// Sleeper waits between calls. Nil uses SleepContext.
	Sleeper Sleeper
	// Out receives progress lines. Nil discards them.
	Out     io.Writer
	Verbose bool
	RunID   string
}

// Controller drives one provider through a search.
type Controller struct {
	provider provider.Provider
	opts     Options
}

// New creates a Controller for p.
func New(p provider.Provider, opts Options) *Controller {
	if opts.JitterFraction <= 0 {
		opts.JitterFraction = DefaultJitterFraction
	}
	if opts.Jitter == nil {
		opts.Jitter = RandomJitter
	}
	if opts.Sleeper == nil {
		opts.Sleeper = SleepContext
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	return &Controller{provider: p, opts: opts}
}

// DefaultMaxCalls allows every batch one duplicate-heavy repeat plus a full retry budget.
func DefaultMaxCalls(req types.SearchRequest) int {
	batches := (req.ResultsWanted + req.BatchSize - 1) / req.BatchSize
	return 2*batches + req.MaxRetries + 1
}

// Run fetches until req.ResultsWanted unique listings are collected, the
// provider returns an empty batch, or a terminal error occurs. A batch made
// only of duplicates does not end the run; MaxCalls bounds a provider that
// keeps repeating itself. It always returns a result;
// the terminal error, if any, is in BatchResult.Err alongside the listings
// gathered before it.
func (c *Controller) Run(ctx context.Context, req types.SearchRequest) *types.BatchResult {
	runID := c.opts.RunID
	if runID == "" {
		runID = uuid.New().String()
	}
	res := &types.BatchResult{RunID: runID}
	if req.BatchSize < 1 || req.ResultsWanted < 1 {
		res.Err = fmt.Errorf("batch size and results wanted must be positive, got %d and %d", req.BatchSize, req.ResultsWanted)
		return res
	}

	maxCalls := c.opts.MaxCalls
	if maxCalls <= 0 {
		maxCalls = DefaultMaxCalls(req)
	}

	seen := make(map[string]struct{}, req.ResultsWanted)
	offset, retry := 0, 0

	for len(res.Listings) < req.ResultsWanted {
		if res.Calls >= maxCalls {
			res.Err = &BatchError{Offset: offset, Attempts: retry, Kind: ErrCallCeiling, Cause: fmt.Errorf("%d calls made", res.Calls)}
			break
		}

		limit := min(req.BatchSize, req.ResultsWanted-len(res.Listings))
		c.printf("Fetching jobs %d to %d\n", offset, offset+limit)

		res.Calls++
		batch, err := c.provider.FetchBatch(ctx, provider.Query{Request: req, Offset: offset, Limit: limit})
		if err != nil {
			c.printf("Error: %v\n", err)
			if ctx.Err() != nil || !provider.IsRetryable(err) {
				res.Err = &BatchError{Offset: offset, Attempts: retry + 1, Cause: err}
				break
			}
			retry++
			if retry > req.MaxRetries {
				c.printf("Max retries reached. Exiting.\n")
				res.Err = &BatchError{Offset: offset, Attempts: retry, Kind: ErrRetriesExhausted, Cause: err}
				break
			}
			delay := req.SleepTime*time.Duration(retry+1) + c.jitter(req.SleepTime)
			c.printf("Sleeping for %s before retry\n", formatDelay(delay))
			if err := c.opts.Sleeper(ctx, delay); err != nil {
				res.Err = &BatchError{Offset: offset, Attempts: retry, Cause: err}
				break
			}
			continue
		}

		retry = 0
		res.Batches++
		if len(batch) == 0 {
			res.Exhausted = true
			break
		}
		offset += len(batch)
		added := c.merge(res, seen, batch, req.ResultsWanted)
		if c.opts.Verbose {
			log.Printf("[VERBOSE] %s batch %d: %d returned, %d new, %d duplicates so far", c.provider.Name(), res.Batches, len(batch), added, res.Duplicates)
		}
		if len(res.Listings) >= req.ResultsWanted {
			break
		}

		c.printf("Scraped %d jobs\n", len(res.Listings))
		delay := req.SleepTime + c.jitter(req.SleepTime)
		c.printf("Sleeping for %s\n", formatDelay(delay))
		if err := c.opts.Sleeper(ctx, delay); err != nil {
			res.Err = &BatchError{Offset: offset, Cause: err}
			break
		}
	}

	return res
}

// merge appends listings not seen before, up to want in total, and returns how many were added.
func (c *Controller) merge(res *types.BatchResult, seen map[string]struct{}, batch []types.JobListing, want int) int {
	added := 0
	for _, listing := range batch {
		if len(res.Listings) >= want {
			break
		}
		key := listing.Key()
		if _, dup := seen[key]; dup {
			res.Duplicates++
			continue
		}
		seen[key] = struct{}{}
		res.Listings = append(res.Listings, listing)
		added++
	}
	return added
}

func (c *Controller) jitter(sleep time.Duration) time.Duration {
	limit := time.Duration(float64(sleep) * c.opts.JitterFraction)
	j := c.opts.Jitter(limit)
	if j < 0 {
		return 0
	}
	return j
}

//nolint:errcheck // progress output; nothing useful to do on failure
func (c *Controller) printf(format string, args ...any) {
	fmt.Fprintf(c.opts.Out, format, args...)
}

func formatDelay(d time.Duration) string {
	if d >= time.Second {
		return d.Round(time.Second).String()
	}
	return d.String()
}
