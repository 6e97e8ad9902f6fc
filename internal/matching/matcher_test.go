package matching

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/job-scraper/internal/llm"
	"github.com/jonathan/job-scraper/internal/types"
)

// MockLLMClient implements llm.Client for testing
type MockLLMClient struct {
	GenerateContentFunc func(ctx context.Context, prompt string, tier llm.ModelTier) (string, error)
	GenerateJSONFunc    func(ctx context.Context, prompt string, tier llm.ModelTier) (string, error)
	GetModelFunc        func(tier llm.ModelTier) string
	CloseFunc           func() error
}

func (m *MockLLMClient) GenerateContent(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	if m.GenerateContentFunc != nil {
		return m.GenerateContentFunc(ctx, prompt, tier)
	}
	return "", nil
}

func (m *MockLLMClient) GenerateJSON(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	if m.GenerateJSONFunc != nil {
		return m.GenerateJSONFunc(ctx, prompt, tier)
	}
	return `{"match_score": 75, "summary": "Mock summary"}`, nil
}

func (m *MockLLMClient) GetModel(tier llm.ModelTier) string {
	if m.GetModelFunc != nil {
		return m.GetModelFunc(tier)
	}
	return "mock-model"
}

func (m *MockLLMClient) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// mockStructuredClient also implements StructuredGenerator
type mockStructuredClient struct {
	MockLLMClient
	schemaName string
	schema     *jsonschema.Definition
}

func (m *mockStructuredClient) GenerateStructured(_ context.Context, _ string, _ llm.ModelTier, name string, schema *jsonschema.Definition) (string, error) {
	m.schemaName = name
	m.schema = schema
	return `{"match_score": 88, "summary": "Structured", "relevant_skills": [], "missing_skills": [], "recommendation": "apply"}`, nil
}

type sleepRecorder struct {
	delays []time.Duration
}

func (r *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return nil
}

func testListings() []types.JobListing {
	return []types.JobListing{
		{Title: "Go Engineer", Company: "Acme", Location: "London", Description: "Go and Postgres", URL: "https://example.com/1"},
		{Title: "Rust Engineer", Company: "Globex", Location: "Leeds", Description: "Rust", URL: "https://example.com/2"},
		{Title: "Data Analyst", Company: "Initech", Location: "Remote", Description: "SQL", URL: "https://example.com/3"},
	}
}

func TestMatch_Success(t *testing.T) {
	var gotPrompt string
	var gotTier llm.ModelTier
	client := &MockLLMClient{
		GenerateJSONFunc: func(_ context.Context, prompt string, tier llm.ModelTier) (string, error) {
			gotPrompt, gotTier = prompt, tier
			return `{"match_score": 81.6, "summary": " Strong Go fit ", "relevant_skills": ["Go"], "missing_skills": ["Kafka"], "recommendation": "apply"}`, nil
		},
	}
	m := New(client, Options{})

	result, err := m.Match(context.Background(), "Ten years of Go", testListings()[0])
	require.NoError(t, err)

	assert.Equal(t, 82, result.Score)
	assert.Equal(t, "Strong Go fit", result.Summary)
	assert.Equal(t, []string{"Go"}, result.MatchedSkills)
	assert.Equal(t, []string{"Kafka"}, result.MissingSkills)
	assert.Equal(t, "apply", result.Recommendation)
	assert.Equal(t, "mock-model", result.Model)

	assert.Equal(t, llm.TierLite, gotTier)
	assert.Contains(t, gotPrompt, "Title: Go Engineer")
	assert.Contains(t, gotPrompt, "Company: Acme")
	assert.Contains(t, gotPrompt, "Ten years of Go")
	assert.NotContains(t, gotPrompt, "{{.")
}

func TestMatch_RetriesInvalidResponseOnce(t *testing.T) {
	var prompts []string
	client := &MockLLMClient{
		GenerateJSONFunc: func(_ context.Context, prompt string, _ llm.ModelTier) (string, error) {
			prompts = append(prompts, prompt)
			if len(prompts) == 1 {
				return `{"score": 50}`, nil
			}
			return `{"match_score": 50, "summary": "ok"}`, nil
		},
	}
	m := New(client, Options{})

	result, err := m.Match(context.Background(), "cv", testListings()[0])
	require.NoError(t, err)
	assert.Equal(t, 50, result.Score)
	require.Len(t, prompts, 2)
	assert.Contains(t, prompts[1], "could not be used")
	assert.Contains(t, prompts[1], "Title: Go Engineer")
}

func TestMatch_InvalidTwice(t *testing.T) {
	calls := 0
	client := &MockLLMClient{
		GenerateJSONFunc: func(_ context.Context, _ string, _ llm.ModelTier) (string, error) {
			calls++
			return `{"match_score": "high"}`, nil
		},
	}
	m := New(client, Options{})

	_, err := m.Match(context.Background(), "cv", testListings()[0])
	assert.ErrorIs(t, err, ErrInvalidResponse)
	assert.Equal(t, 2, calls)
}

func TestMatch_ClientError(t *testing.T) {
	boom := errors.New("quota exceeded")
	client := &MockLLMClient{
		GenerateJSONFunc: func(_ context.Context, _ string, _ llm.ModelTier) (string, error) {
			return "", boom
		},
	}

	_, err := New(client, Options{}).Match(context.Background(), "cv", testListings()[0])
	assert.ErrorIs(t, err, boom)
}

func TestMatch_UsesStructuredGeneration(t *testing.T) {
	client := &mockStructuredClient{}
	client.GenerateJSONFunc = func(_ context.Context, _ string, _ llm.ModelTier) (string, error) {
		t.Fatal("GenerateJSON must not be used when structured output is available")
		return "", nil
	}

	result, err := New(client, Options{}).Match(context.Background(), "cv", testListings()[0])
	require.NoError(t, err)
	assert.Equal(t, 88, result.Score)
	assert.Equal(t, "match_result", client.schemaName)
	require.NotNil(t, client.schema)
	assert.Contains(t, client.schema.Properties, "match_score")
	assert.Contains(t, client.schema.Required, "summary")
	assert.Equal(t, Recommendations, client.schema.Properties["recommendation"].Enum)
	assert.Equal(t, "Fit from 0 to 100", client.schema.Properties["match_score"].Description)
}

func TestMatch_TruncatesInputs(t *testing.T) {
	var gotPrompt string
	client := &MockLLMClient{
		GenerateJSONFunc: func(_ context.Context, prompt string, _ llm.ModelTier) (string, error) {
			gotPrompt = prompt
			return `{"match_score": 1, "summary": "x"}`, nil
		},
	}
	m := New(client, Options{MaxResumeChars: 5, MaxDescriptionChars: 4})
	listing := testListings()[0]
	listing.Description = "ABCDEFGHIJ"

	_, err := m.Match(context.Background(), "résumé text", listing)
	require.NoError(t, err)
	assert.Contains(t, gotPrompt, "ABCD\n")
	assert.NotContains(t, gotPrompt, "ABCDE")
	assert.Contains(t, gotPrompt, "résum")
	assert.NotContains(t, gotPrompt, "résumé")
}

func TestMatchAll_PartialFailure(t *testing.T) {
	client := &MockLLMClient{
		GenerateJSONFunc: func(_ context.Context, prompt string, _ llm.ModelTier) (string, error) {
			if strings.Contains(prompt, "Rust Engineer") {
				return "", errors.New("timeout")
			}
			return `{"match_score": 140, "summary": "great"}`, nil
		},
	}
	var out bytes.Buffer
	rec := &sleepRecorder{}
	m := New(client, Options{Delay: 3 * time.Second, Sleeper: rec.sleep, Out: &out})

	input := testListings()
	got, stats := m.MatchAll(context.Background(), "cv", input)

	require.Len(t, got, 3)
	assert.Equal(t, Stats{Matched: 2, Failed: 1}, stats)
	require.NotNil(t, got[0].Match)
	assert.Equal(t, 100, got[0].Match.Score)
	assert.Nil(t, got[1].Match)
	require.NotNil(t, got[2].Match)
	assert.Equal(t, []time.Duration{3 * time.Second, 3 * time.Second}, rec.delays)
	assert.Contains(t, out.String(), "could not match \"Rust Engineer\"")

	for _, l := range input {
		assert.Nil(t, l.Match, "input listings must not be modified")
	}
}

func TestMatchAll_NoDelay(t *testing.T) {
	rec := &sleepRecorder{}
	m := New(&MockLLMClient{}, Options{Delay: -1, Sleeper: rec.sleep})

	_, stats := m.MatchAll(context.Background(), "cv", testListings())
	assert.Equal(t, 3, stats.Matched)
	assert.Empty(t, rec.delays)
}

func TestMatchAll_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	client := &MockLLMClient{
		GenerateJSONFunc: func(_ context.Context, _ string, _ llm.ModelTier) (string, error) {
			calls++
			cancel()
			return `{"match_score": 60, "summary": "fine"}`, nil
		},
	}
	rec := &sleepRecorder{}

	got, stats := New(client, Options{Sleeper: rec.sleep}).MatchAll(ctx, "cv", testListings())
	assert.Equal(t, 1, calls)
	assert.Equal(t, Stats{Matched: 1, Skipped: 2}, stats)
	require.Len(t, got, 3)
	assert.NotNil(t, got[0].Match)
	assert.Nil(t, got[2].Match)
}

func TestMatchAll_RateLimitedListingRetriedOnce(t *testing.T) {
	calls := 0
	client := &MockLLMClient{
		GenerateJSONFunc: func(_ context.Context, _ string, _ llm.ModelTier) (string, error) {
			calls++
			if calls == 1 {
				return "", &openai.APIError{HTTPStatusCode: http.StatusTooManyRequests, Message: "slow down"}
			}
			return `{"match_score": 70, "summary": "ok"}`, nil
		},
	}
	var out bytes.Buffer
	rec := &sleepRecorder{}
	m := New(client, Options{Delay: -1, RateLimitDelay: 45 * time.Second, Sleeper: rec.sleep, Out: &out})

	got, stats := m.MatchAll(context.Background(), "cv", testListings()[:1])

	assert.Equal(t, 2, calls)
	assert.Equal(t, Stats{Matched: 1}, stats)
	require.NotNil(t, got[0].Match)
	assert.Equal(t, []time.Duration{45 * time.Second}, rec.delays)
	assert.Contains(t, out.String(), "Rate limited")
}

func TestMatchAll_RateLimitRetryDisabled(t *testing.T) {
	calls := 0
	client := &MockLLMClient{
		GenerateJSONFunc: func(_ context.Context, _ string, _ llm.ModelTier) (string, error) {
			calls++
			return "", &openai.APIError{HTTPStatusCode: http.StatusTooManyRequests}
		},
	}
	rec := &sleepRecorder{}
	m := New(client, Options{Delay: -1, RateLimitDelay: -1, Sleeper: rec.sleep})

	_, stats := m.MatchAll(context.Background(), "cv", testListings()[:1])

	assert.Equal(t, 1, calls)
	assert.Equal(t, Stats{Failed: 1}, stats)
	assert.Empty(t, rec.delays)
}

func TestMatch_RecordsResumeHash(t *testing.T) {
	m := New(&MockLLMClient{}, Options{ResumeHash: "deadbeef"})

	result, err := m.Match(context.Background(), "cv", testListings()[0])
	require.NoError(t, err)
	assert.Equal(t, "deadbeef", result.ResumeHash)
}

func TestMatchAll_Empty(t *testing.T) {
	got, stats := New(&MockLLMClient{}, Options{}).MatchAll(context.Background(), "cv", nil)
	assert.Empty(t, got)
	assert.Equal(t, Stats{}, stats)
}

func TestClampScore(t *testing.T) {
	tests := []struct {
		in   float64
		want int
	}{
		{-5, 0},
		{0, 0},
		{49.5, 50},
		{100, 100},
		{250, 100},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClampScore(tt.in))
	}
}
