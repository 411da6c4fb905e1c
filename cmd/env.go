package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/outreach-cli/internal/config"
	"github.com/sells-group/outreach-cli/internal/scrape"
	"github.com/sells-group/outreach-cli/internal/store"
	"github.com/sells-group/outreach-cli/pkg/jina"
)

// newScraper builds the scraper selected by fetch.provider.
func newScraper(c *config.Config) (scrape.Scraper, error) {
	timeout := time.Duration(c.Fetch.TimeoutSecs) * time.Second
	switch c.Fetch.Provider {
	case "local", "":
		return scrape.NewLocalScraper(scrape.LocalOptions{
			UserAgent:          c.Fetch.UserAgent,
			Timeout:            timeout,
			InsecureSkipVerify: c.Fetch.InsecureSkipVerify,
		}), nil
	case "jina":
		opts := []jina.Option{jina.WithTimeout(timeout)}
		if c.Jina.BaseURL != "" {
			opts = append(opts, jina.WithBaseURL(c.Jina.BaseURL))
		}
		return scrape.NewJinaAdapter(jina.NewClient(c.Jina.Key, opts...)), nil
	default:
		return nil, eris.Errorf("unsupported fetch provider: %s", c.Fetch.Provider)
	}
}

// newFetcher wraps the configured scraper with truncation.
func newFetcher(c *config.Config) (*scrape.Fetcher, error) {
	s, err := newScraper(c)
	if err != nil {
		return nil, err
	}
	return scrape.NewFetcher(s, c.Fetch.MaxChars), nil
}

// initStore opens the run store. It returns nil when disabled.
func initStore(ctx context.Context, disabled bool) (store.Store, error) {
	if disabled {
		return nil, nil
	}
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	return st, nil
}

// requireStore opens the run store for commands that cannot work without it.
func requireStore(ctx context.Context) (store.Store, error) {
	st, err := initStore(ctx, false)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, eris.New("run store is disabled (store.driver: none)")
	}
	return st, nil
}

// resolveCredential merges configured credentials with session --add-key
// pairs and selects one by label.
func resolveCredential(durable map[string]string, addKeys []string, label string) (string, string, error) {
	session := make(map[string]string, len(addKeys))
	for _, pair := range addKeys {
		l, v, err := config.ParseCredential(pair)
		if err != nil {
			return "", "", err
		}
		session[l] = v
	}
	return config.MergeCredentials(durable, session).Resolve(label)
}
