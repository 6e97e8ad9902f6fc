package fetch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectPlatform(t *testing.T) {
	tests := []struct {
		url      string
		expected Platform
	}{
		{"https://www.linkedin.com/jobs/view/3812345678", PlatformLinkedIn},
		{"https://uk.linkedin.com/jobs/view/go-engineer-at-acme-3812345678", PlatformLinkedIn},
		{"https://uk.indeed.com/viewjob?jk=abc123", PlatformIndeed},
		{"https://www.glassdoor.co.uk/job-listing/x", PlatformGlassdoor},
		{"https://example.com/careers/1", PlatformUnknown},
		{"::not a url", PlatformUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.expected, DetectPlatform(tt.url))
		})
	}
}

func TestPlatformContentSelectors(t *testing.T) {
	assert.Contains(t, PlatformContentSelectors(PlatformLinkedIn), ".show-more-less-html__markup")
	assert.Contains(t, PlatformContentSelectors(PlatformIndeed), "#jobDescriptionText")
	assert.Equal(t, JobPostingSelectors(), PlatformContentSelectors(PlatformUnknown))
}

func TestPlatformNoiseSelectors(t *testing.T) {
	common := PlatformNoiseSelectors(PlatformUnknown)
	assert.Contains(t, common, "form")

	linkedIn := PlatformNoiseSelectors(PlatformLinkedIn)
	assert.Greater(t, len(linkedIn), len(common))
	assert.Contains(t, linkedIn, ".description__job-criteria-list")
}
