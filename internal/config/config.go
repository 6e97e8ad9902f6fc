// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jonathan/job-scraper/internal/schemas"
	"github.com/jonathan/job-scraper/internal/types"
)

// Config represents the CLI configuration that can be loaded from a JSON or YAML file.
// All fields are optional; missing values use defaults or must be provided via CLI flags.
type Config struct {
	// Search
	SearchTerm       string   `json:"search_term,omitempty" yaml:"search_term,omitempty"`
	Location         string   `json:"location,omitempty" yaml:"location,omitempty"`
	Sites            []string `json:"sites,omitempty" yaml:"sites,omitempty"`
	ResultsWanted    int      `json:"results_wanted,omitempty" yaml:"results_wanted,omitempty"`
	Distance         int      `json:"distance,omitempty" yaml:"distance,omitempty"`
	JobType          string   `json:"job_type,omitempty" yaml:"job_type,omitempty"`
	Country          string   `json:"country,omitempty" yaml:"country,omitempty"`
	FetchDescription *bool    `json:"fetch_description,omitempty" yaml:"fetch_description,omitempty"`
	HoursOld         int      `json:"hours_old,omitempty" yaml:"hours_old,omitempty"`

	// Fetch loop
	BatchSize  int      `json:"batch_size,omitempty" yaml:"batch_size,omitempty"`
	SleepTime  float64  `json:"sleep_time,omitempty" yaml:"sleep_time,omitempty"` // seconds
	MaxRetries *int     `json:"max_retries,omitempty" yaml:"max_retries,omitempty"`
	Proxies    []string `json:"proxies,omitempty" yaml:"proxies,omitempty"`

	// Providers
	RSSFeeds     []string `json:"rss_feeds,omitempty" yaml:"rss_feeds,omitempty"`
	SearchBoards []string `json:"search_boards,omitempty" yaml:"search_boards,omitempty"`
	UseBrowser   bool     `json:"use_browser,omitempty" yaml:"use_browser,omitempty"`

	// Outputs
	OutputDir         string `json:"output_dir,omitempty" yaml:"output_dir,omitempty"`
	Docx              bool   `json:"docx,omitempty" yaml:"docx,omitempty"`
	Sheets            bool   `json:"sheets,omitempty" yaml:"sheets,omitempty"`
	SheetsCredentials string `json:"sheets_credentials,omitempty" yaml:"sheets_credentials,omitempty"`
	SheetsShareEmail  string `json:"sheets_share_email,omitempty" yaml:"sheets_share_email,omitempty"`

	// Matching
	ResumePath  string  `json:"resume_path,omitempty" yaml:"resume_path,omitempty"`
	LLMProvider string  `json:"llm_provider,omitempty" yaml:"llm_provider,omitempty"`
	MatchDelay  float64 `json:"match_delay,omitempty" yaml:"match_delay,omitempty"` // seconds

	// Credentials. Prefer env or the keyring over committing these.
	OpenAIAPIKey       string `json:"openai_api_key,omitempty" yaml:"openai_api_key,omitempty"`
	GeminiAPIKey       string `json:"gemini_api_key,omitempty" yaml:"gemini_api_key,omitempty"`
	GoogleSearchAPIKey string `json:"google_search_api_key,omitempty" yaml:"google_search_api_key,omitempty"`
	GoogleSearchCX     string `json:"google_search_cx,omitempty" yaml:"google_search_cx,omitempty"`

	Verbose bool `json:"verbose,omitempty" yaml:"verbose,omitempty"`
}

// LoadConfig loads configuration from a JSON or YAML file, chosen by extension
// (.yaml and .yml are YAML, anything else JSON). The document is checked
// against the embedded config schema before it is decoded.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	unmarshal, format := json.Unmarshal, "JSON"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		unmarshal, format = yaml.Unmarshal, "YAML"
	}

	var doc map[string]any
	if err := unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", format, err)
	}
	if doc == nil {
		doc = map[string]any{}
	}
	if err := schemas.ValidateDocument(schemas.ConfigFile, doc); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}

	var cfg Config
	if err := unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", format, err)
	}

	return &cfg, nil
}

// Validate checks that the configuration has valid values.
// Required fields are checked after flags are merged, not here.
func (c *Config) Validate() error {
	if c.ResultsWanted < 0 {
		return fmt.Errorf("config error: 'results_wanted' must be non-negative")
	}
	if c.BatchSize < 0 {
		return fmt.Errorf("config error: 'batch_size' must be non-negative")
	}
	if c.MaxRetries != nil && *c.MaxRetries < 0 {
		return fmt.Errorf("config error: 'max_retries' must be non-negative")
	}
	if c.SleepTime < 0 || c.MatchDelay < 0 {
		return fmt.Errorf("config error: 'sleep_time' and 'match_delay' must be non-negative")
	}

	if slices.Contains(c.Sites, types.SiteRSS) && len(c.RSSFeeds) == 0 {
		return fmt.Errorf("config error: site 'rss' needs at least one entry in 'rss_feeds'")
	}

	if c.ResumePath != "" {
		if _, err := os.Stat(c.ResumePath); os.IsNotExist(err) {
			return fmt.Errorf("config error: resume file not found: %s", c.ResumePath)
		}
	}
	if c.SheetsCredentials != "" {
		if _, err := os.Stat(c.SheetsCredentials); os.IsNotExist(err) {
			return fmt.Errorf("config error: sheets credentials file not found: %s", c.SheetsCredentials)
		}
	}

	return nil
}

// ApplyTo copies every value set in the file onto req. Callers apply
// explicitly set flags afterwards so that flags win.
func (c *Config) ApplyTo(req *types.SearchRequest) {
	setString(&req.SearchTerm, c.SearchTerm)
	setString(&req.Location, c.Location)
	if len(c.Sites) > 0 {
		req.Sites = slices.Clone(c.Sites)
	}
	setInt(&req.ResultsWanted, c.ResultsWanted)
	setInt(&req.Distance, c.Distance)
	setString(&req.JobType, c.JobType)
	setString(&req.Country, c.Country)
	if c.FetchDescription != nil {
		req.FetchDescription = *c.FetchDescription
	}
	setInt(&req.HoursOld, c.HoursOld)
	setInt(&req.BatchSize, c.BatchSize)
	if c.SleepTime > 0 {
		req.SleepTime = Seconds(c.SleepTime)
	}
	if c.MaxRetries != nil {
		req.MaxRetries = *c.MaxRetries
	}
	if len(c.Proxies) > 0 {
		req.Proxies = slices.Clone(c.Proxies)
	}
	setString(&req.OutputDir, c.OutputDir)
	setString(&req.ResumePath, c.ResumePath)
	setString(&req.LLMProvider, c.LLMProvider)
}

// APIKeyFor returns the file's key for an LLM provider.
func (c *Config) APIKeyFor(provider string) string {
	switch provider {
	case "gemini":
		return c.GeminiAPIKey
	default:
		return c.OpenAIAPIKey
	}
}

// Seconds converts a whole or fractional number of seconds to a Duration.
func Seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}
