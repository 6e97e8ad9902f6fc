// Package pipeline provides the high-level orchestration of a scrape run:
// fetch, optional matching, then each output stage in turn.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/job-scraper/internal/analytics"
	"github.com/jonathan/job-scraper/internal/csvout"
	"github.com/jonathan/job-scraper/internal/docxreport"
	"github.com/jonathan/job-scraper/internal/harvest"
	"github.com/jonathan/job-scraper/internal/llm"
	"github.com/jonathan/job-scraper/internal/matching"
	"github.com/jonathan/job-scraper/internal/observability"
	"github.com/jonathan/job-scraper/internal/provider"
	"github.com/jonathan/job-scraper/internal/resume"
	"github.com/jonathan/job-scraper/internal/sheets"
	"github.com/jonathan/job-scraper/internal/types"
)

// Step names reported through OnProgress.
const (
	StepFetch  = "fetch"
	StepMatch  = "match"
	StepCSV    = "csv"
	StepDocx   = "docx"
	StepSheets = "sheets"
)

// Progress categories.
const (
	CategoryStart   = "start"
	CategoryDone    = "done"
	CategoryFailed  = "failed"
	CategorySkipped = "skipped"
)

// ErrNoListings is returned when the fetch ended in error before collecting anything.
var ErrNoListings = errors.New("no listings fetched")

// ProgressEvent represents a progress update during pipeline execution
type ProgressEvent struct {
	Step     string `json:"step"`
	Category string `json:"category"`
	Message  string `json:"message"`
	RunID    string `json:"run_id,omitempty"`
}

// ProgressCallback is called when pipeline progress occurs
type ProgressCallback func(event ProgressEvent)

// RunOptions holds everything one scrape run needs. Nil LLM or Sheets
// disables that stage.
type RunOptions struct {
	Request  types.SearchRequest
	Provider provider.Provider
	Harvest  harvest.Options

	// LLM scores listings when the request has a résumé path.
	LLM      llm.Client
	Matching matching.Options

	// Previous listings, typically read from an earlier CSV; the applied ones are kept.
	Previous []types.JobListing

	Docx bool

	Sheets        sheets.SheetService
	SheetsOptions sheets.Options

	// Out receives progress lines and the summary boxes. Nil discards them.
	Out    io.Writer
	// ErrOut receives stage failures. Nil uses Out.
	ErrOut io.Writer

	Verbose    bool
	Now        func() time.Time
	OnProgress ProgressCallback
}

// Report is what a run produced.
type Report struct {
	Fetch      *types.BatchResult
	Listings   []types.JobListing
	CSVPath    string
	Sheet      *sheets.Result
	MatchStats *matching.Stats
	Outputs    []observability.Output
}

// runner carries the per-run state shared by the stages.
type runner struct {
	opts    RunOptions
	out     io.Writer
	errOut  io.Writer
	printer *observability.Printer
	runID   string
}

// RunPipeline runs one scrape. The returned error is non-nil only when the
// run could not start or fetched nothing; output stage failures are recorded
// in Report.Outputs and never stop the other stages.
func RunPipeline(ctx context.Context, opts RunOptions) (*Report, error) {
	if opts.Provider == nil {
		return nil, errors.New("pipeline: provider is required")
	}
	if err := opts.Request.Validate(); err != nil {
		return nil, err
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	out := opts.Out
	if out == nil {
		out = io.Discard
	}
	if opts.Harvest.Out == nil {
		opts.Harvest.Out = out
	}
	opts.Harvest.Verbose = opts.Harvest.Verbose || opts.Verbose
	if opts.Harvest.RunID == "" {
		opts.Harvest.RunID = uuid.New().String()
	}

	lock, err := csvout.LockDir(opts.Request.OutputDir)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			log.Printf("Warning: failed to release output lock: %v", err)
		}
	}()

	errOut := opts.ErrOut
	if errOut == nil {
		errOut = out
	}

	r := &runner{opts: opts, out: out, errOut: errOut, printer: observability.NewPrinter(out), runID: opts.Harvest.RunID}
	return r.run(ctx)
}

func (r *runner) run(ctx context.Context) (*Report, error) {
	req := r.opts.Request
	report := &Report{}

	r.emit(StepFetch, CategoryStart, fmt.Sprintf("Searching %s for %q in %s", r.opts.Provider.Name(), req.SearchTerm, req.Location))
	res := harvest.New(r.opts.Provider, r.opts.Harvest).Run(ctx, req)
	report.Fetch = res
	r.printer.PrintRunSummary(r.opts.Provider.Name(), res)

	if len(res.Listings) == 0 {
		if res.Err != nil {
			r.emit(StepFetch, CategoryFailed, res.Err.Error())
			return report, fmt.Errorf("%w: %w", ErrNoListings, res.Err)
		}
		r.emit(StepFetch, CategoryDone, "No listings found")
		r.printf("No jobs found for %q in %s\n", req.SearchTerm, req.Location)
		return report, nil
	}
	if res.Err != nil {
		r.emit(StepFetch, CategoryFailed, fmt.Sprintf("Stopped early with %d listings: %v", len(res.Listings), res.Err))
	} else {
		r.emit(StepFetch, CategoryDone, fmt.Sprintf("Fetched %d listings", len(res.Listings)))
	}

	listings := res.Listings
	if req.MatchingEnabled() && r.opts.LLM != nil {
		listings = r.match(ctx, report, listings)
	} else {
		r.emit(StepMatch, CategorySkipped, "No resume or API key")
	}

	if len(r.opts.Previous) > 0 {
		merged := analytics.Prepare(listings, r.opts.Previous)
		if r.opts.Verbose {
			log.Printf("[VERBOSE] kept %d applied listings from the previous export", len(merged)-len(listings))
		}
		listings = merged
	}
	report.Listings = listings

	report.CSVPath = csvout.DefaultPath(req.OutputDir, req.SearchTerm, r.opts.Now())
	r.stage(report, StepCSV, report.CSVPath, func() error {
		return csvout.Write(report.CSVPath, listings)
	})

	if r.opts.Docx {
		path := docxreport.Path(report.CSVPath)
		r.stage(report, StepDocx, path, func() error {
			return docxreport.Write(path, docxreport.Report{
				SearchTerm: req.SearchTerm,
				Location:   req.Location,
				Generated:  r.opts.Now(),
				Listings:   listings,
			})
		})
	}

	if r.opts.Sheets != nil {
		r.upload(ctx, report, listings)
	}

	r.printer.PrintTopCompanies(analytics.Summarize(listings))
	r.printer.PrintTopMatches(listings)
	r.printer.PrintOutputs(report.Outputs)
	return report, nil
}

func (r *runner) match(ctx context.Context, report *Report, listings []types.JobListing) []types.JobListing {
	req := r.opts.Request
	r.emit(StepMatch, CategoryStart, fmt.Sprintf("Matching %d listings against %s", len(listings), req.ResumePath))

	cv, err := resume.Load(req.ResumePath)
	if err != nil {
		r.fail(report, StepMatch, err)
		return listings
	}

	mopts := r.opts.Matching
	if mopts.Out == nil {
		mopts.Out = r.out
	}
	mopts.Verbose = mopts.Verbose || r.opts.Verbose
	mopts.ResumeHash = cv.Hash
	matched, stats := matching.New(r.opts.LLM, mopts).MatchAll(ctx, cv.Text, listings)
	report.MatchStats = &stats

	msg := fmt.Sprintf("Scored %d of %d listings", stats.Matched, len(listings))
	if stats.Matched == 0 && stats.Failed > 0 {
		r.fail(report, StepMatch, fmt.Errorf("every match request failed (%d)", stats.Failed))
		return matched
	}
	report.Outputs = append(report.Outputs, observability.Output{Name: StepMatch, Location: msg})
	r.emit(StepMatch, CategoryDone, msg)
	return matched
}

func (r *runner) upload(ctx context.Context, report *Report, listings []types.JobListing) {
	r.emit(StepSheets, CategoryStart, "Uploading to Google Sheets")
	sopts := r.opts.SheetsOptions
	sopts.Verbose = sopts.Verbose || r.opts.Verbose
	if sopts.Now == nil {
		sopts.Now = r.opts.Now
	}

	result, err := sheets.NewUploader(r.opts.Sheets, sopts).Upload(ctx, r.opts.Request.SearchTerm, listings)
	report.Sheet = result
	if err != nil {
		location := ""
		if result != nil {
			location = result.URL
		}
		report.Outputs = append(report.Outputs, observability.Output{Name: StepSheets, Location: location, Err: err})
		r.emit(StepSheets, CategoryFailed, err.Error())
		r.errorf("Error uploading to Google Sheets: %v\n", err)
		return
	}
	report.Outputs = append(report.Outputs, observability.Output{Name: StepSheets, Location: result.URL})
	r.emit(StepSheets, CategoryDone, result.URL)
}

// stage runs one independent output step and records its outcome.
func (r *runner) stage(report *Report, step, location string, fn func() error) {
	r.emit(step, CategoryStart, location)
	if err := fn(); err != nil {
		r.fail(report, step, err)
		return
	}
	report.Outputs = append(report.Outputs, observability.Output{Name: step, Location: location})
	r.emit(step, CategoryDone, location)
	r.printf("Saved %s to %s\n", step, location)
}

func (r *runner) fail(report *Report, step string, err error) {
	report.Outputs = append(report.Outputs, observability.Output{Name: step, Err: err})
	r.emit(step, CategoryFailed, err.Error())
	r.errorf("Error in %s step: %v\n", step, err)
}

// emit logs a progress event and passes it to the callback if configured
func (r *runner) emit(step, category, message string) {
	if r.opts.Verbose {
		log.Printf("[VERBOSE] %s/%s: %s", step, category, message)
	}
	if r.opts.OnProgress != nil {
		r.opts.OnProgress(ProgressEvent{
			Step:     step,
			Category: category,
			Message:  message,
			RunID:    r.runID,
		})
	}
}

//nolint:errcheck // progress output
func (r *runner) printf(format string, args ...any) {
	fmt.Fprintf(r.out, format, args...)
}

//nolint:errcheck // progress output
func (r *runner) errorf(format string, args ...any) {
	fmt.Fprintf(r.errOut, format, args...)
}
