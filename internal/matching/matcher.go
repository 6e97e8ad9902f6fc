// Package matching scores job listings against a résumé with an LLM.
package matching

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/jonathan/job-scraper/internal/harvest"
	"github.com/jonathan/job-scraper/internal/llm"
	"github.com/jonathan/job-scraper/internal/prompts"
	"github.com/jonathan/job-scraper/internal/schemas"
	"github.com/jonathan/job-scraper/internal/types"
)

// Defaults for Options.
const (
	DefaultDelay               = 2 * time.Second
	DefaultRateLimitDelay      = 30 * time.Second
	DefaultMaxResumeChars      = 12000
	DefaultMaxDescriptionChars = 8000
)

// ErrInvalidResponse is returned when the model answer fails schema validation twice.
var ErrInvalidResponse = errors.New("invalid match response")

// StructuredGenerator is implemented by clients that can enforce a response schema.
type StructuredGenerator interface {
	GenerateStructured(ctx context.Context, prompt string, tier llm.ModelTier, name string, schema *jsonschema.Definition) (string, error)
}

// Options configures a Matcher. The zero value is usable.
type Options struct {
	Tier  llm.ModelTier
	Delay time.Duration // between LLM calls; negative disables
	// RateLimitDelay is waited once before retrying a rate-limited listing. Negative disables the retry.
	RateLimitDelay time.Duration
	// ResumeHash is recorded on every result.
	ResumeHash          string
	MaxResumeChars      int
	MaxDescriptionChars int
	Sleeper             harvest.Sleeper
	Out                 io.Writer
	Verbose             bool
}

// Stats counts the outcome of MatchAll.
type Stats struct {
	Matched int
	Failed  int
	Skipped int
}

// Matcher submits listings one at a time to an LLM.
type Matcher struct {
	client llm.Client
	opts   Options
}

// response mirrors the JSON the resume-fit prompt asks for.
type response struct {
	Score          float64  `json:"match_score" description:"Fit from 0 to 100"`
	Summary        string   `json:"summary" description:"One or two sentences on strengths and gaps"`
	RelevantSkills []string `json:"relevant_skills" description:"Resume skills the listing asks for"`
	MissingSkills  []string `json:"missing_skills" description:"Listing requirements the resume lacks"`
	Recommendation string   `json:"recommendation" description:"Whether to apply"`
}

// Recommendations the resume-fit prompt allows.
var Recommendations = []string{"apply", "consider", "skip"}

// New creates a Matcher.
func New(client llm.Client, opts Options) *Matcher {
	if opts.Tier == "" {
		opts.Tier = llm.TierLite
	}
	if opts.Delay == 0 {
		opts.Delay = DefaultDelay
	}
	if opts.RateLimitDelay == 0 {
		opts.RateLimitDelay = DefaultRateLimitDelay
	}
	if opts.MaxResumeChars <= 0 {
		opts.MaxResumeChars = DefaultMaxResumeChars
	}
	if opts.MaxDescriptionChars <= 0 {
		opts.MaxDescriptionChars = DefaultMaxDescriptionChars
	}
	if opts.Sleeper == nil {
		opts.Sleeper = harvest.SleepContext
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	return &Matcher{client: client, opts: opts}
}

// MatchAll returns a copy of listings with Match set wherever scoring
// succeeded. A failed listing is left unscored and never fails the batch.
// Cancellation stops scoring; the remaining listings are returned unscored.
func (m *Matcher) MatchAll(ctx context.Context, resume string, listings []types.JobListing) ([]types.JobListing, Stats) {
	out := make([]types.JobListing, len(listings))
	copy(out, listings)

	var stats Stats
	for i := range out {
		if ctx.Err() != nil {
			stats.Skipped = len(out) - i
			break
		}
		if i > 0 && m.opts.Delay > 0 {
			if err := m.opts.Sleeper(ctx, m.opts.Delay); err != nil {
				stats.Skipped = len(out) - i
				break
			}
		}

		m.printf("Matching job %d of %d: %s\n", i+1, len(out), out[i].Title)
		result, err := m.Match(ctx, resume, out[i])
		if err != nil && llm.IsRateLimited(err) && m.opts.RateLimitDelay > 0 {
			m.printf("Rate limited; waiting %s before retrying\n", m.opts.RateLimitDelay)
			if serr := m.opts.Sleeper(ctx, m.opts.RateLimitDelay); serr != nil {
				stats.Skipped = len(out) - i
				break
			}
			result, err = m.Match(ctx, resume, out[i])
		}
		if err != nil {
			stats.Failed++
			m.printf("Warning: could not match %q at %s: %v\n", out[i].Title, out[i].Company, err)
			continue
		}
		out[i].Match = result
		stats.Matched++
	}
	return out, stats
}

// Match scores a single listing.
func (m *Matcher) Match(ctx context.Context, resume string, listing types.JobListing) (*types.MatchResult, error) {
	prompt, err := prompts.Render(prompts.MatchingFile, "resume-fit", map[string]string{
		"Title":       listing.Title,
		"Company":     listing.Company,
		"Location":    listing.Location,
		"Description": truncate(listing.Description, m.opts.MaxDescriptionChars),
		"Resume":      truncate(resume, m.opts.MaxResumeChars),
	})
	if err != nil {
		return nil, err
	}

	raw, err := m.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	if verr := schemas.ValidateJSONString(schemas.MatchResult, raw); verr != nil {
		if m.opts.Verbose {
			log.Printf("[VERBOSE] match response for %q rejected, retrying: %v", listing.Title, verr)
		}
		retry, err := prompts.Render(prompts.MatchingFile, "resume-fit-retry", map[string]string{
			"Problem": strings.TrimSpace(verr.Error()),
			"Prompt":  prompt,
		})
		if err != nil {
			return nil, err
		}
		if raw, err = m.generate(ctx, retry); err != nil {
			return nil, err
		}
		if verr := schemas.ValidateJSONString(schemas.MatchResult, raw); verr != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, verr)
		}
	}

	var resp response
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	return &types.MatchResult{
		Score:          ClampScore(resp.Score),
		Summary:        strings.TrimSpace(resp.Summary),
		MatchedSkills:  resp.RelevantSkills,
		MissingSkills:  resp.MissingSkills,
		Recommendation: resp.Recommendation,
		Model:          m.client.GetModel(m.opts.Tier),
		ResumeHash:     m.opts.ResumeHash,
	}, nil
}

func (m *Matcher) generate(ctx context.Context, prompt string) (string, error) {
	if sg, ok := m.client.(StructuredGenerator); ok {
		return sg.GenerateStructured(ctx, prompt, m.opts.Tier, schemas.MatchResult, responseSchema())
	}
	return m.client.GenerateJSON(ctx, prompt, m.opts.Tier)
}

// ClampScore rounds a model score and clamps it to 0..100.
func ClampScore(score float64) int {
	if math.IsNaN(score) {
		return 0
	}
	return int(math.Round(math.Max(0, math.Min(100, score))))
}

func responseSchema() *jsonschema.Definition {
	schema, err := jsonschema.GenerateSchemaForType(response{})
	if err != nil {
		panic(fmt.Sprintf("match response schema: %v", err))
	}
	// Struct tags cannot express an enum.
	rec := schema.Properties["recommendation"]
	rec.Enum = Recommendations
	schema.Properties["recommendation"] = rec
	return schema
}

// truncate cuts s to at most limit runes.
func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}

//nolint:errcheck // progress output
func (m *Matcher) printf(format string, args ...any) {
	fmt.Fprintf(m.opts.Out, format, args...)
}
