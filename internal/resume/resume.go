// Package resume loads the candidate résumé used for listing matching.
package resume

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonathan/job-scraper/internal/fetch"
)

var (
	// ErrUnsupportedFormat is returned for résumé files that are not text, Markdown or HTML.
	ErrUnsupportedFormat = errors.New("unsupported resume format")
	// ErrEmptyResume is returned when a résumé has no text after cleaning.
	ErrEmptyResume = errors.New("resume is empty")
)

// Resume is the cleaned résumé text plus where it came from.
type Resume struct {
	Path string
	Text string
	// Hash is the SHA256 of Text, recorded with match results.
	Hash string
}

// Load reads and cleans the résumé at path. The format is picked by extension:
// .txt and .md are read as text, .html and .htm have their visible text extracted.
func Load(path string) (*Resume, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".txt", ".md", ".markdown", ".html", ".htm":
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read resume: %w", err)
	}

	text := string(data)
	if ext == ".html" || ext == ".htm" {
		text, err = fetch.ExtractMainText(text, fetch.DefaultTextSelectors())
		if err != nil {
			return nil, fmt.Errorf("failed to extract resume text: %w", err)
		}
	}

	text = CleanText(text)
	if text == "" {
		return nil, fmt.Errorf("%w: %s", ErrEmptyResume, path)
	}

	sum := sha256.Sum256([]byte(text))
	return &Resume{Path: path, Text: text, Hash: hex.EncodeToString(sum[:])}, nil
}
