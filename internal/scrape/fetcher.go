package scrape

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// DefaultMaxChars bounds the page text handed to the prompt.
const DefaultMaxChars = 3500

// Fetcher makes exactly one scrape attempt per call and truncates the text.
// Any failure is returned as an error; callers treat it as "unfetchable".
type Fetcher struct {
	scraper  Scraper
	maxChars int
}

// NewFetcher wraps a scraper. maxChars <= 0 selects DefaultMaxChars.
func NewFetcher(s Scraper, maxChars int) *Fetcher {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	return &Fetcher{scraper: s, maxChars: maxChars}
}

// FetchText returns the visible text of url, at most maxChars characters.
func (f *Fetcher) FetchText(ctx context.Context, url string) (string, error) {
	res, err := f.scraper.Scrape(ctx, url)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(res.Text)
	if text == "" {
		return "", eris.Errorf("%s: no visible text", f.scraper.Name())
	}

	zap.L().Debug("scrape: fetched website",
		zap.String("scraper", f.scraper.Name()),
		zap.String("url", url),
		zap.Int("chars", len([]rune(text))),
	)
	return Truncate(text, f.maxChars), nil
}

// Truncate cuts s to at most n characters (runes).
func Truncate(s string, n int) string {
	if n <= 0 {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
