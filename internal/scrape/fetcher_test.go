package scrape

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubScraper struct {
	res   *Result
	err   error
	calls int
}

func (s *stubScraper) Name() string { return "stub" }

func (s *stubScraper) Scrape(_ context.Context, _ string) (*Result, error) {
	s.calls++
	return s.res, s.err
}

func TestFetcher_Truncates(t *testing.T) {
	s := &stubScraper{res: &Result{Text: strings.Repeat("é", 50)}}
	text, err := NewFetcher(s, 10).FetchText(context.Background(), "https://x.com")
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("é", 10), text)
	assert.Equal(t, 1, s.calls)
}

func TestFetcher_DefaultLimit(t *testing.T) {
	s := &stubScraper{res: &Result{Text: strings.Repeat("a", DefaultMaxChars+100)}}
	text, err := NewFetcher(s, 0).FetchText(context.Background(), "https://x.com")
	require.NoError(t, err)
	assert.Len(t, text, DefaultMaxChars)
}

func TestFetcher_SingleAttemptOnError(t *testing.T) {
	s := &stubScraper{err: errors.New("dial tcp: refused")}
	_, err := NewFetcher(s, 100).FetchText(context.Background(), "https://x.com")
	require.Error(t, err)
	assert.Equal(t, 1, s.calls)
}

func TestFetcher_EmptyTextIsError(t *testing.T) {
	s := &stubScraper{res: &Result{Text: "   \n "}}
	_, err := NewFetcher(s, 100).FetchText(context.Background(), "https://x.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no visible text")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 5))
	assert.Equal(t, "ab", Truncate("abc", 2))
	assert.Equal(t, "abc", Truncate("abc", 0))
	assert.Equal(t, "", Truncate("", 3))
}
