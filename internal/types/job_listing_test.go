//nolint:revive // types is a standard Go package name pattern
package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"strips query and fragment", "https://uk.linkedin.com/jobs/view/123?refId=abc#top", "uk.linkedin.com/jobs/view/123"},
		{"lower-cases host", "https://WWW.Example.COM/Jobs/1", "example.com/Jobs/1"},
		{"trailing slash", "https://example.com/jobs/1/", "example.com/jobs/1"},
		{"scheme ignored", "http://example.com/jobs/1", "example.com/jobs/1"},
		{"empty", "", ""},
		{"relative", "/jobs/1", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeURL(tt.in))
		})
	}
}

func TestJobListing_Key(t *testing.T) {
	a := JobListing{URL: "https://example.com/jobs/1?utm=x"}
	b := JobListing{URL: "https://example.com/jobs/1"}
	assert.Equal(t, a.Key(), b.Key())

	noURL := JobListing{Company: "Acme Corp", Title: "Go Engineer", Location: "London"}
	assert.Equal(t, "acme_corp_go_engineer_london", noURL.Key())
}

func TestJobListing_WithMatchReturnsCopy(t *testing.T) {
	orig := JobListing{Title: "Engineer"}
	matched := orig.WithMatch(&MatchResult{Score: 80})

	assert.Nil(t, orig.Match)
	assert.Equal(t, 80, matched.Match.Score)
}

func TestBatchResult_Partial(t *testing.T) {
	r := &BatchResult{}
	assert.False(t, r.Partial())

	r.Listings = []JobListing{{Title: "x"}}
	assert.False(t, r.Partial())

	r.Err = assert.AnError
	assert.True(t, r.Partial())
	assert.Equal(t, 1, r.Len())
}
