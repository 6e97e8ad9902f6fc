package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/job-scraper/internal/config"
	"github.com/jonathan/job-scraper/internal/csvout"
	"github.com/jonathan/job-scraper/internal/harvest"
	"github.com/jonathan/job-scraper/internal/llm"
	"github.com/jonathan/job-scraper/internal/matching"
	"github.com/jonathan/job-scraper/internal/pipeline"
	"github.com/jonathan/job-scraper/internal/provider"
	"github.com/jonathan/job-scraper/internal/sheets"
	"github.com/jonathan/job-scraper/internal/types"
)

// scrapeFlags holds the scrape command's flag values.
type scrapeFlags struct {
	configPath string

	searchTerm       string
	location         string
	sites            []string
	resultsWanted    int
	distance         int
	jobType          string
	country          string
	fetchDescription bool
	hoursOld         int

	batchSize  int
	sleepTime  float64
	maxRetries int
	proxies    []string

	rssFeeds     []string
	searchBoards []string
	useBrowser   bool
	reqPerSec    float64

	outputDir         string
	previousCSV       string
	docx              bool
	sheets            bool
	sheetsCredentials string
	shareEmail        string

	resumePath   string
	llmProvider  string
	openAIAPIKey string
	matchDelay   float64

	verbose bool
}

// scrapeSettings is the merged result of flags, config file, environment and keyring.
type scrapeSettings struct {
	req      types.SearchRequest
	provider provider.Options

	previousCSV       string
	docx              bool
	sheets            bool
	sheetsCredentials string
	shareEmail        string
	matchDelay        time.Duration
	verbose           bool
}

func init() {
	rootCmd.AddCommand(newScrapeCmd(&scrapeFlags{}))
}

func newScrapeCmd(f *scrapeFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Fetch job listings in throttled batches and write them out",
		Long: "Fetch up to --results-wanted listings in batches of --batch-size, sleeping between batches and retrying " +
			"transient failures. Listings gathered before a failure are always written.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := f.settings(cmd)
			if err != nil {
				return err
			}
			return runScrape(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), settings)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.configPath, "config", "", "Path to JSON or YAML config file (flags override its values)")

	fl.StringVar(&f.searchTerm, "search-term", "", "Job title or keywords to search for (required)")
	fl.StringVar(&f.location, "location", "", "Location to search in (required)")
	fl.StringSliceVar(&f.sites, "site", []string{types.DefaultSite}, "Site to search: "+strings.Join(provider.Sites(), ", ")+" (repeatable)")
	fl.IntVar(&f.resultsWanted, "results-wanted", types.DefaultResultsWanted, "Total number of unique listings to collect")
	fl.IntVar(&f.distance, "distance", types.DefaultDistance, "Search radius in miles")
	fl.StringVar(&f.jobType, "job-type", types.DefaultJobType, "Job type: fulltime, parttime, contract or internship")
	fl.StringVar(&f.country, "country", types.DefaultCountry, "Country to search in (websearch boosts results from it)")
	fl.BoolVar(&f.fetchDescription, "fetch-description", true, "Fetch the full description of every listing")
	fl.IntVar(&f.hoursOld, "hours-old", types.DefaultHoursOld, "Only listings posted within this many hours (0 = no limit)")

	fl.IntVar(&f.batchSize, "batch-size", types.DefaultBatchSize, "Listings requested per provider call")
	fl.Float64Var(&f.sleepTime, "sleep-time", types.DefaultSleepTime.Seconds(), "Base sleep between batches in seconds")
	fl.IntVar(&f.maxRetries, "max-retries", types.DefaultMaxRetries, "Retries after a failed batch before giving up")
	fl.StringSliceVar(&f.proxies, "proxies", nil, "Proxy URL to rotate through (repeatable)")

	fl.StringSliceVar(&f.rssFeeds, "rss-feed", nil, "Job RSS feed URL for the rss site (repeatable)")
	fl.StringSliceVar(&f.searchBoards, "search-board", nil, "Job board to restrict websearch results to (repeatable)")
	fl.Float64Var(&f.reqPerSec, "requests-per-second", provider.DefaultRequestsPerSecond, "Per-host request rate inside a batch (0 disables throttling)")
	fl.BoolVar(&f.useBrowser, "use-browser", false, "Render description pages in headless Chrome when plain HTTP returns too little")

	fl.StringVar(&f.outputDir, "output-dir", types.DefaultOutputDir, "Directory for output files")
	fl.StringVar(&f.previousCSV, "previous-csv", "", "Earlier export whose applied listings are carried into this one")
	fl.BoolVar(&f.docx, "docx", false, "Also write a Word report next to the CSV")
	fl.BoolVar(&f.sheets, "sheets", false, "Also upload the listings to a new Google Sheets spreadsheet")
	fl.StringVar(&f.sheetsCredentials, "sheets-credentials", "", "Service account JSON (defaults to "+config.EnvSheetsCredentials+")")
	fl.StringVar(&f.shareEmail, "sheets-share-email", "", "Email to share the spreadsheet with (defaults to "+config.EnvSheetsShareEmail+")")

	fl.StringVar(&f.resumePath, "resume-path", "", "Résumé (.txt, .md or .html) to score listings against")
	fl.StringVar(&f.llmProvider, "llm-provider", types.DefaultLLMProvider, "LLM provider for matching: openai or gemini")
	fl.StringVar(&f.openAIAPIKey, "openai-api-key", "", "OpenAI API key (defaults to "+config.EnvOpenAIAPIKey+" or the keyring)")
	fl.Float64Var(&f.matchDelay, "match-delay", matching.DefaultDelay.Seconds(), "Seconds to wait between LLM calls")

	fl.BoolVarP(&f.verbose, "verbose", "v", false, "Print detailed debug information")

	return cmd
}

// settings merges the config file, flags, environment and keyring.
// Explicitly set flags win over the file, which wins over defaults.
func (f *scrapeFlags) settings(cmd *cobra.Command) (*scrapeSettings, error) {
	var cfg config.Config
	if f.configPath != "" {
		loaded, err := config.LoadConfig(f.configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		if err := loaded.Validate(); err != nil {
			return nil, err
		}
		cfg = *loaded
	}

	req := types.NewSearchRequest("", "")
	cfg.ApplyTo(&req)

	changed := cmd.Flags().Changed
	if changed("search-term") {
		req.SearchTerm = f.searchTerm
	}
	if changed("location") {
		req.Location = f.location
	}
	if changed("site") {
		req.Sites = slices.Clone(f.sites)
	}
	if changed("results-wanted") {
		req.ResultsWanted = f.resultsWanted
	}
	if changed("distance") {
		req.Distance = f.distance
	}
	if changed("job-type") {
		req.JobType = f.jobType
	}
	if changed("country") {
		req.Country = f.country
	}
	if changed("fetch-description") {
		req.FetchDescription = f.fetchDescription
	}
	if changed("hours-old") {
		req.HoursOld = f.hoursOld
	}
	if changed("batch-size") {
		req.BatchSize = f.batchSize
	}
	if changed("sleep-time") {
		if f.sleepTime < 0 {
			return nil, fmt.Errorf("--sleep-time must be non-negative, got %v", f.sleepTime)
		}
		req.SleepTime = config.Seconds(f.sleepTime)
	}
	if changed("max-retries") {
		req.MaxRetries = f.maxRetries
	}
	if changed("proxies") {
		req.Proxies = slices.Clone(f.proxies)
	}
	if changed("output-dir") {
		req.OutputDir = f.outputDir
	}
	if changed("resume-path") {
		req.ResumePath = f.resumePath
	}
	if changed("llm-provider") {
		req.LLMProvider = f.llmProvider
	}

	if req.SearchTerm == "" || req.Location == "" {
		return nil, fmt.Errorf("--search-term and --location are required (via flag or config)")
	}

	s := &scrapeSettings{
		req:         req,
		previousCSV: f.previousCSV,
		docx:        f.docx || (!changed("docx") && cfg.Docx),
		sheets:      f.sheets || (!changed("sheets") && cfg.Sheets),
		verbose:     f.verbose || (!changed("verbose") && cfg.Verbose),
		matchDelay:  config.Seconds(f.matchDelay),
	}
	if !changed("match-delay") && cfg.MatchDelay > 0 {
		s.matchDelay = config.Seconds(cfg.MatchDelay)
	}

	if req.ResumePath != "" {
		secret := config.SecretOpenAI
		flagKey := f.openAIAPIKey
		if req.LLMProvider == string(llm.ProviderGemini) {
			secret, flagKey = config.SecretGemini, ""
		}
		key, source := config.ResolveSecret(secret, flagKey, cfg.APIKeyFor(req.LLMProvider))
		s.req.APIKey = key
		if s.verbose && source != config.SourceNone {
			log.Printf("[VERBOSE] Using %s API key from %s", req.LLMProvider, source)
		}
	}

	if err := s.req.Validate(); err != nil {
		return nil, err
	}

	searchKey, _ := config.ResolveSecret(config.SecretGoogleSearch, "", cfg.GoogleSearchAPIKey)
	rps := f.reqPerSec
	if rps <= 0 {
		rps = -1
	}
	s.provider = provider.Options{
		RequestsPerSecond: rps,
		Proxies:           req.Proxies,
		UseBrowser:        f.useBrowser || (!changed("use-browser") && cfg.UseBrowser),
		Verbose:           s.verbose,
		SearchAPIKey:      searchKey,
		SearchCX:          config.ResolveSetting("", cfg.GoogleSearchCX, config.EnvGoogleSearchCX),
		SearchBoards:      pick(f.searchBoards, cfg.SearchBoards),
		RSSFeeds:          pick(f.rssFeeds, cfg.RSSFeeds),
	}

	s.sheetsCredentials = config.ResolveSetting(f.sheetsCredentials, cfg.SheetsCredentials, config.EnvSheetsCredentials)
	s.shareEmail = config.ResolveSetting(f.shareEmail, cfg.SheetsShareEmail, config.EnvSheetsShareEmail)
	if s.sheets && s.sheetsCredentials == "" {
		return nil, fmt.Errorf("--sheets needs service account credentials via --sheets-credentials or %s", config.EnvSheetsCredentials)
	}

	return s, nil
}

// runScrape wires the providers and optional stages, then runs the pipeline.
func runScrape(ctx context.Context, out, errOut io.Writer, s *scrapeSettings) error {
	if ctx == nil {
		ctx = context.Background()
	}

	p, err := provider.New(s.req.Sites, s.provider)
	if err != nil {
		return err
	}

	var previous []types.JobListing
	if s.previousCSV != "" {
		if previous, err = csvout.Read(s.previousCSV); err != nil {
			return fmt.Errorf("failed to read previous export: %w", err)
		}
	}

	opts := pipeline.RunOptions{
		Request:  s.req,
		Provider: p,
		Harvest:  harvest.Options{Verbose: s.verbose},
		Matching: matching.Options{Delay: s.matchDelay, Verbose: s.verbose},
		Previous: previous,
		Docx:     s.docx,
		Out:      out,
		ErrOut:   errOut,
		Verbose:  s.verbose,
	}

	if s.req.ResumePath != "" {
		if s.req.APIKey == "" {
			fmt.Fprintf(errOut, "Warning: no %s API key found; skipping résumé matching\n", s.req.LLMProvider)
		} else if client, err := newLLMClient(ctx, s.req.LLMProvider, s.req.APIKey); err != nil {
			fmt.Fprintf(errOut, "Warning: %v; skipping résumé matching\n", err)
		} else {
			defer func() { _ = client.Close() }()
			opts.LLM = client
		}
	}

	if s.sheets {
		svc, err := sheets.NewGoogleService(ctx, s.sheetsCredentials)
		if err != nil {
			fmt.Fprintf(errOut, "Warning: %v; skipping Google Sheets upload\n", err)
		} else {
			opts.Sheets = svc
			opts.SheetsOptions = sheets.Options{ShareEmail: s.shareEmail, Verbose: s.verbose}
		}
	}

	report, err := pipeline.RunPipeline(ctx, opts)
	if err != nil {
		return err
	}
	if report.Fetch != nil && report.Fetch.Err != nil {
		fmt.Fprintf(errOut, "Warning: fetch stopped early after %d listings: %v\n", len(report.Listings), report.Fetch.Err)
	}
	return nil
}

func newLLMClient(ctx context.Context, providerName, apiKey string) (llm.Client, error) {
	cfg, err := llm.ConfigFor(providerName)
	if err != nil {
		return nil, err
	}
	return llm.NewClient(ctx, cfg, apiKey)
}

// pick returns the flag values when given, else the file values.
func pick(flagValues, fileValues []string) []string {
	if len(flagValues) > 0 {
		return slices.Clone(flagValues)
	}
	return slices.Clone(fileValues)
}
