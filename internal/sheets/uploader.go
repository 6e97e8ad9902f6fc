package sheets

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"slices"
	"time"

	"github.com/googleapis/gax-go/v2"
	"google.golang.org/api/googleapi"
	gsheets "google.golang.org/api/sheets/v4"

	"github.com/jonathan/job-scraper/internal/analytics"
	"github.com/jonathan/job-scraper/internal/csvout"
	"github.com/jonathan/job-scraper/internal/types"
)

// ErrSheetNotFound is returned when a tab with the requested title does not exist.
var ErrSheetNotFound = errors.New("sheet not found")

// Defaults for Options.
const (
	DefaultAttempts = 3
	DefaultPause    = 2 * time.Second
)

// DefaultBackoff waits 4s, then up to 10s, between attempts.
func DefaultBackoff() gax.Backoff {
	return gax.Backoff{Initial: 4 * time.Second, Max: 10 * time.Second, Multiplier: 2}
}

// Error reports which upload stage failed.
type Error struct {
	Stage         string
	SpreadsheetID string
	Cause         error
}

func (e *Error) Error() string {
	if e.SpreadsheetID != "" {
		return fmt.Sprintf("sheets %s failed for %s: %v", e.Stage, e.SpreadsheetID, e.Cause)
	}
	return fmt.Sprintf("sheets %s failed: %v", e.Stage, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Options configures an Uploader.
type Options struct {
	// ShareEmail, when set, is granted writer access to every new spreadsheet.
	ShareEmail string
	// Attempts bounds create and update calls. Zero uses DefaultAttempts.
	Attempts int
	// Backoff spaces retried calls. The zero value uses DefaultBackoff.
	Backoff gax.Backoff
	// Pause is slept after the listing rows are written. Negative disables it.
	Pause   time.Duration
	Verbose bool
	Now     func() time.Time
}

// Uploader writes listings and analytics into a fresh spreadsheet.
type Uploader struct {
	svc  SheetService
	opts Options
}

// Result identifies the spreadsheet an upload created.
type Result struct {
	SpreadsheetID string
	URL           string
	Rows          int
}

// NewUploader creates an Uploader over svc.
func NewUploader(svc SheetService, opts Options) *Uploader {
	if opts.Attempts <= 0 {
		opts.Attempts = DefaultAttempts
	}
	if opts.Backoff == (gax.Backoff{}) {
		opts.Backoff = DefaultBackoff()
	}
	if opts.Pause == 0 {
		opts.Pause = DefaultPause
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Uploader{svc: svc, opts: opts}
}

// Title returns the spreadsheet title for a search.
func Title(searchTerm string, now time.Time) string {
	return fmt.Sprintf("Job Search - %s - %s", searchTerm, now.Format("2006-01-02 15:04"))
}

// Upload creates the spreadsheet, writes the listings and builds the analytics tab.
// Once the spreadsheet exists, the result is returned along with any later error
// so callers can still point at it; Rows is set only after the listings are written.
func (u *Uploader) Upload(ctx context.Context, searchTerm string, listings []types.JobListing) (*Result, error) {
	title := Title(searchTerm, u.opts.Now())

	var id, url string
	err := u.retry(ctx, "create", func(ctx context.Context) error {
		var err error
		if id == "" {
			id, url, err = u.svc.Create(ctx, title)
			if err != nil {
				return err
			}
		}
		if u.opts.ShareEmail != "" {
			return u.svc.Share(ctx, id, u.opts.ShareEmail)
		}
		return nil
	})
	if err != nil {
		if id == "" {
			return nil, &Error{Stage: "create", Cause: err}
		}
		return &Result{SpreadsheetID: id, URL: url}, &Error{Stage: "create", SpreadsheetID: id, Cause: err}
	}
	if u.opts.Verbose {
		log.Printf("[VERBOSE] Created spreadsheet %q (%s)", title, id)
	}
	res := &Result{SpreadsheetID: id, URL: url}

	appliedColumn := slices.Index(csvout.Header, "applied")
	if err := u.svc.BatchUpdate(ctx, id, FormatRequests(appliedColumn)); err != nil {
		return res, &Error{Stage: "format", SpreadsheetID: id, Cause: err}
	}

	values := Values(listings)
	err = u.retry(ctx, "update", func(ctx context.Context) error {
		return u.svc.UpdateValues(ctx, id, "A1", values)
	})
	if err != nil {
		return res, &Error{Stage: "update", SpreadsheetID: id, Cause: err}
	}
	res.Rows = len(listings)
	if u.opts.Pause > 0 {
		if err := gax.Sleep(ctx, u.opts.Pause); err != nil {
			return res, err
		}
	}

	if err := u.writeAnalytics(ctx, id, listings); err != nil {
		return res, &Error{Stage: "analytics", SpreadsheetID: id, Cause: err}
	}
	return res, nil
}

func (u *Uploader) writeAnalytics(ctx context.Context, id string, listings []types.JobListing) error {
	sheetID, err := u.svc.SheetID(ctx, id, analytics.SheetTitle)
	if err != nil {
		return err
	}

	slot := 0
	for _, table := range analytics.Tables(listings) {
		if err := u.svc.UpdateValues(ctx, id, table.Range(), table.Values()); err != nil {
			return fmt.Errorf("writing %q: %w", table.Title, err)
		}
		if len(table.Rows) == 0 {
			continue
		}
		if err := u.svc.BatchUpdate(ctx, id, []*gsheets.Request{ChartRequest(sheetID, table, slot)}); err != nil {
			return fmt.Errorf("charting %q: %w", table.Title, err)
		}
		slot++
	}
	return nil
}

// Values renders the header and one string row per listing.
func Values(listings []types.JobListing) [][]any {
	values := make([][]any, 0, len(listings)+1)
	values = append(values, toAny(csvout.Header))
	for _, l := range listings {
		values = append(values, toAny(csvout.Row(l)))
	}
	return values
}

func toAny(row []string) []any {
	out := make([]any, len(row))
	for i, v := range row {
		out[i] = v
	}
	return out
}

// retry runs call up to Attempts times, backing off between transient failures.
func (u *Uploader) retry(ctx context.Context, stage string, call func(ctx context.Context) error) error {
	attempt := 0
	retryer := func() gax.Retryer {
		return gax.OnErrorFunc(u.opts.Backoff, func(err error) bool {
			attempt++
			if attempt >= u.opts.Attempts || !Retryable(err) {
				return false
			}
			if u.opts.Verbose {
				log.Printf("[VERBOSE] sheets %s attempt %d failed, retrying: %v", stage, attempt, err)
			}
			return true
		})
	}
	return gax.Invoke(ctx, func(ctx context.Context, _ gax.CallSettings) error {
		return call(ctx)
	}, gax.WithRetry(retryer))
}

// Retryable reports whether a Sheets or Drive error is worth another attempt.
// Non-API errors, such as network failures, are retried.
func Retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == http.StatusTooManyRequests || gerr.Code >= 500
	}
	return true
}
