package schemas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet(t *testing.T) {
	content, err := Get(MatchResult)
	require.NoError(t, err)
	assert.Contains(t, content, "match_score")

	_, err = Get("missing")
	var loadErr *SchemaLoadError
	assert.ErrorAs(t, err, &loadErr)
}

func TestValidateJSONString_MatchResult(t *testing.T) {
	tests := []struct {
		name    string
		json    string
		wantErr bool
	}{
		{"minimal", `{"match_score": 72, "summary": "Good fit"}`, false},
		{"full", `{"match_score": 40, "summary": "Partial", "relevant_skills": ["Go"], "missing_skills": ["Kubernetes"], "recommendation": "consider"}`, false},
		{"missing summary", `{"match_score": 72}`, true},
		{"score as string", `{"match_score": "high", "summary": "x"}`, true},
		{"unknown recommendation", `{"match_score": 50, "summary": "x", "recommendation": "maybe"}`, true},
		{"skills not strings", `{"match_score": 1, "summary": "x", "relevant_skills": [1, 2]}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateJSONString(MatchResult, tt.json)
			if tt.wantErr {
				var validationErr *ValidationError
				require.ErrorAs(t, err, &validationErr)
				assert.NotEmpty(t, validationErr.Errors)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestValidateJSONString_Malformed(t *testing.T) {
	err := ValidateJSONString(MatchResult, "{ not json")
	var loadErr *SchemaLoadError
	assert.ErrorAs(t, err, &loadErr)
}

func TestValidateDocument_Config(t *testing.T) {
	valid := map[string]any{
		"search_term":    "golang",
		"results_wanted": 50,
		"sites":          []any{"linkedin", "rss"},
		"sleep_time":     2.5,
	}
	assert.NoError(t, ValidateDocument(ConfigFile, valid))

	invalid := map[string]any{
		"results_wanted": 0,
		"sites":          []any{"monster"},
		"unknown_key":    true,
	}
	err := ValidateDocument(ConfigFile, invalid)
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.GreaterOrEqual(t, len(validationErr.Errors), 3)
}

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{Errors: []FieldError{
		{Field: "match_score", Message: "is required"},
		{Field: "(root)", Message: "bad"},
	}}

	msg := err.Error()
	assert.Contains(t, msg, "1. match_score: is required")
	assert.Contains(t, msg, "2. (root): bad")
}
