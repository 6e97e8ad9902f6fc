package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/job-scraper/internal/config"
	"github.com/jonathan/job-scraper/internal/csvout"
	"github.com/jonathan/job-scraper/internal/llm"
	"github.com/jonathan/job-scraper/internal/matching"
	"github.com/jonathan/job-scraper/internal/observability"
	"github.com/jonathan/job-scraper/internal/resume"
	"github.com/jonathan/job-scraper/internal/types"
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Score the listings of an existing CSV export against a résumé",
	Long:  "Read a CSV written by scrape, score every listing against the résumé with an LLM and write <name>.matched.csv next to it.",
	RunE:  runMatch,
}

var (
	matchCSV         string
	matchResumePath  string
	matchOutput      string
	matchLLMProvider string
	matchAPIKey      string
	matchDelay       float64
	matchRescore     bool
	matchVerbose     bool
)

func init() {
	matchCmd.Flags().StringVar(&matchCSV, "csv", "", "CSV export to score (required)")
	matchCmd.Flags().StringVar(&matchResumePath, "resume-path", "", "Résumé (.txt, .md or .html) to score against (required)")
	matchCmd.Flags().StringVarP(&matchOutput, "out", "o", "", "Output CSV (defaults to <name>.matched.csv)")
	matchCmd.Flags().StringVar(&matchLLMProvider, "llm-provider", string(llm.ProviderOpenAI), "LLM provider: openai or gemini")
	matchCmd.Flags().StringVar(&matchAPIKey, "openai-api-key", "", "OpenAI API key (defaults to "+config.EnvOpenAIAPIKey+" or the keyring)")
	matchCmd.Flags().Float64Var(&matchDelay, "match-delay", matching.DefaultDelay.Seconds(), "Seconds to wait between LLM calls")
	matchCmd.Flags().BoolVar(&matchRescore, "rescore", false, "Also score listings that already have a match score")
	matchCmd.Flags().BoolVarP(&matchVerbose, "verbose", "v", false, "Print detailed debug information")

	_ = matchCmd.MarkFlagRequired("csv")
	_ = matchCmd.MarkFlagRequired("resume-path")

	rootCmd.AddCommand(matchCmd)
}

// matchedPath returns the output path used when --out is not given.
func matchedPath(csvPath string) string {
	return strings.TrimSuffix(csvPath, filepath.Ext(csvPath)) + ".matched.csv"
}

func runMatch(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()

	listings, err := csvout.Read(matchCSV)
	if err != nil {
		return fmt.Errorf("failed to read listings: %w", err)
	}
	cv, err := resume.Load(matchResumePath)
	if err != nil {
		return err
	}

	secret, flagKey := config.SecretOpenAI, matchAPIKey
	if matchLLMProvider == string(llm.ProviderGemini) {
		secret, flagKey = config.SecretGemini, ""
	}
	apiKey, _ := config.ResolveSecret(secret, flagKey, "")
	if apiKey == "" {
		return fmt.Errorf("no %s API key: pass --openai-api-key, set the environment variable or run 'job_scraper secrets set %s'", matchLLMProvider, secret)
	}

	client, err := newLLMClient(cmd.Context(), matchLLMProvider, apiKey)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	target := matchOutput
	if target == "" {
		target = matchedPath(matchCSV)
	}
	lock, err := csvout.LockDir(filepath.Dir(target))
	if err != nil {
		return err
	}
	defer func() { _ = lock.Unlock() }()

	matcher := matching.New(client, matching.Options{
		Delay:      config.Seconds(matchDelay),
		ResumeHash: cv.Hash,
		Out:        out,
		Verbose:    matchVerbose,
	})
	scored, stats := matchPending(cmd.Context(), matcher, cv, listings, matchRescore)

	if err := csvout.Write(target, scored); err != nil {
		return err
	}

	p := observability.NewPrinter(out)
	p.PrintTopMatches(scored)
	p.PrintOutputs([]observability.Output{{Name: "csv", Location: target}})
	_, _ = fmt.Fprintf(out, "Scored %d listings, %d failed, %d skipped\n", stats.Matched, stats.Failed, stats.Skipped)
	return nil
}

// matchPending scores listings without a score or scored against a different
// résumé, or all of them when rescore is set, and returns every listing in its
// original order.
func matchPending(ctx context.Context, matcher *matching.Matcher, cv *resume.Resume, listings []types.JobListing, rescore bool) ([]types.JobListing, matching.Stats) {
	var pending []int
	for i, l := range listings {
		if rescore || l.Match == nil || (l.Match.ResumeHash != "" && l.Match.ResumeHash != cv.Hash) {
			pending = append(pending, i)
		}
	}

	subset := make([]types.JobListing, len(pending))
	for j, i := range pending {
		subset[j] = listings[i]
	}
	scored, stats := matcher.MatchAll(ctx, cv.Text, subset)

	out := make([]types.JobListing, len(listings))
	copy(out, listings)
	for j, i := range pending {
		if scored[j].Match != nil {
			out[i] = scored[j]
		}
	}
	return out, stats
}
