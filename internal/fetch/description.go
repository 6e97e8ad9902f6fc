package fetch

import (
	"context"
	"fmt"
	"log"
)

// DescriptionOptions configures FetchDescription.
type DescriptionOptions struct {
	HTTP       *Options
	UseBrowser bool
	Verbose    bool
}

// FetchDescription downloads a posting page and extracts its description text
// using platform-specific selectors. When UseBrowser is set and the HTTP
// content is too short, the page is rendered headlessly and re-extracted.
func FetchDescription(ctx context.Context, urlStr string, opts DescriptionOptions) (string, error) {
	platform := DetectPlatform(urlStr)
	contentSelectors := PlatformContentSelectors(platform)
	noiseSelectors := PlatformNoiseSelectors(platform)

	result, err := URL(ctx, urlStr, opts.HTTP)
	if err != nil {
		return "", err
	}

	text, err := ExtractMainText(result.HTML, contentSelectors, noiseSelectors...)
	if err != nil {
		return "", fmt.Errorf("failed to extract description: %w", err)
	}
	if opts.Verbose {
		log.Printf("[VERBOSE] Description %s (%s): %d chars", urlStr, platform, len(text))
	}

	if !opts.UseBrowser || !ShouldUseBrowser(text) {
		return text, nil
	}

	html, err := RenderPage(ctx, urlStr, DefaultBrowserTimeout, opts.Verbose)
	if err != nil {
		if opts.Verbose {
			log.Printf("[VERBOSE] Browser fallback failed for %s: %v", urlStr, err)
		}
		return text, nil
	}

	rendered, err := ExtractMainText(html, contentSelectors, noiseSelectors...)
	if err != nil || len(rendered) <= len(text) {
		return text, nil
	}
	return rendered, nil
}
