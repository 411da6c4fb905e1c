// Package scrape fetches company websites and reduces them to plain text
// suitable for a generation prompt.
package scrape

import (
	"context"
)

// Result holds one scraped page.
type Result struct {
	URL        string
	Title      string
	Text       string
	StatusCode int
	Source     string // e.g. "local_http", "jina"
}

// Scraper fetches a single URL and returns its visible text.
type Scraper interface {
	Scrape(ctx context.Context, url string) (*Result, error)
	Name() string
}
