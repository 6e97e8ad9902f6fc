// Package fetch - platform.go detects job boards and their description selectors.
package fetch

import (
	"net/url"
	"strings"
)

// Platform represents a known job board.
type Platform string

const (
	// PlatformLinkedIn is linkedin.com and its country subdomains
	PlatformLinkedIn Platform = "linkedin"
	// PlatformIndeed is indeed.com and its country domains
	PlatformIndeed Platform = "indeed"
	// PlatformGlassdoor is glassdoor.com and its country domains
	PlatformGlassdoor Platform = "glassdoor"
	// PlatformUnknown is an unrecognized platform
	PlatformUnknown Platform = "unknown"
)

// DetectPlatform identifies the job board from a URL.
func DetectPlatform(urlStr string) Platform {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return PlatformUnknown
	}

	host := strings.ToLower(parsed.Host)
	switch {
	case strings.Contains(host, "linkedin."):
		return PlatformLinkedIn
	case strings.Contains(host, "indeed."):
		return PlatformIndeed
	case strings.Contains(host, "glassdoor."):
		return PlatformGlassdoor
	default:
		return PlatformUnknown
	}
}

// PlatformContentSelectors returns description selectors for a platform.
func PlatformContentSelectors(platform Platform) []string {
	switch platform {
	case PlatformLinkedIn:
		return []string{
			".show-more-less-html__markup",
			".description__text",
			".decorated-job-posting__details",
		}
	case PlatformIndeed:
		return []string{
			"#jobDescriptionText",
			".jobsearch-jobDescriptionText",
		}
	case PlatformGlassdoor:
		return []string{
			"[class*='JobDetails_jobDescription']",
			".jobDescriptionContent",
			"#JobDescriptionContainer",
		}
	default:
		return JobPostingSelectors()
	}
}

// PlatformNoiseSelectors returns elements to strip before extracting a description.
func PlatformNoiseSelectors(platform Platform) []string {
	common := []string{
		"form",
		".social-share",
		".share-buttons",
		"button",
	}

	switch platform {
	case PlatformLinkedIn:
		return append(common,
			".show-more-less-html__button",
			".description__job-criteria-list",
			".top-card-layout__cta-container",
			".sign-up-modal",
		)
	case PlatformIndeed:
		return append(common, "#applyButtonLinkContainer", ".jobsearch-IndeedApplyButton")
	default:
		return common
	}
}
