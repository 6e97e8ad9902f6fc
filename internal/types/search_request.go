package types

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Supported site names.
const (
	SiteLinkedIn  = "linkedin"
	SiteWebSearch = "websearch"
	SiteRSS       = "rss"
)

// Defaults for SearchRequest fields, matching the CLI flag defaults.
const (
	DefaultSite          = SiteLinkedIn
	DefaultResultsWanted = 100
	DefaultDistance      = 25
	DefaultJobType       = "fulltime"
	DefaultCountry       = "UK"
	DefaultHoursOld      = 72
	DefaultBatchSize     = 30
	DefaultSleepTime     = 100 * time.Second
	DefaultMaxRetries    = 3
	DefaultOutputDir     = "data"
	DefaultLLMProvider   = "openai"
)

// SearchRequest is the configuration for one scrape run.
// It is built once from CLI input and config, and treated as read-only afterwards.
type SearchRequest struct {
	SearchTerm       string        `json:"search_term" validate:"required"`
	Location         string        `json:"location" validate:"required"`
	Sites            []string      `json:"sites" validate:"min=1,dive,oneof=linkedin websearch rss"`
	ResultsWanted    int           `json:"results_wanted" validate:"min=1"`
	Distance         int           `json:"distance" validate:"min=0"`
	JobType          string        `json:"job_type" validate:"omitempty,oneof=fulltime parttime contract internship"`
	Country          string        `json:"country"`
	FetchDescription bool          `json:"fetch_description"`
	HoursOld         int           `json:"hours_old" validate:"min=0"`
	BatchSize        int           `json:"batch_size" validate:"min=1"`
	SleepTime        time.Duration `json:"sleep_time"`
	MaxRetries       int           `json:"max_retries" validate:"min=0"`
	OutputDir        string        `json:"output_dir" validate:"required"`
	ResumePath       string        `json:"resume_path,omitempty"`
	LLMProvider      string        `json:"llm_provider,omitempty" validate:"omitempty,oneof=openai gemini"`
	APIKey           string        `json:"-"` // key for LLMProvider, from --openai-api-key or env
	Proxies          []string      `json:"proxies,omitempty"`
}

// NewSearchRequest returns a request with every optional field at its default.
func NewSearchRequest(searchTerm, location string) SearchRequest {
	return SearchRequest{
		SearchTerm:       searchTerm,
		Location:         location,
		Sites:            []string{DefaultSite},
		ResultsWanted:    DefaultResultsWanted,
		Distance:         DefaultDistance,
		JobType:          DefaultJobType,
		Country:          DefaultCountry,
		FetchDescription: true,
		HoursOld:         DefaultHoursOld,
		BatchSize:        DefaultBatchSize,
		SleepTime:        DefaultSleepTime,
		MaxRetries:       DefaultMaxRetries,
		OutputDir:        DefaultOutputDir,
		LLMProvider:      DefaultLLMProvider,
	}
}

// Validate validates the SearchRequest using the validator.
func (r *SearchRequest) Validate() error {
	validate := validator.New()
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("invalid search request: %w", err)
	}
	if r.SleepTime < 0 {
		return fmt.Errorf("invalid search request: sleep time must be non-negative, got %s", r.SleepTime)
	}
	return nil
}

// MatchingEnabled reports whether the résumé matching step should run.
func (r *SearchRequest) MatchingEnabled() bool {
	return strings.TrimSpace(r.ResumePath) != "" && strings.TrimSpace(r.APIKey) != ""
}
