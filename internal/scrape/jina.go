package scrape

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/outreach-cli/pkg/jina"
)

// JinaAdapter reads pages through the hosted Jina reader instead of fetching
// them directly. Useful for sites that need a rendered DOM.
type JinaAdapter struct {
	client jina.Client
}

// NewJinaAdapter creates a JinaAdapter from a Jina client.
func NewJinaAdapter(client jina.Client) *JinaAdapter {
	return &JinaAdapter{client: client}
}

func (j *JinaAdapter) Name() string { return "jina" }

// Scrape fetches a URL via the Jina reader in one attempt.
func (j *JinaAdapter) Scrape(ctx context.Context, targetURL string) (*Result, error) {
	resp, err := j.client.Read(ctx, targetURL)
	if err != nil {
		return nil, err
	}
	if resp.Code != 0 && resp.Code != 200 {
		return nil, eris.Errorf("jina: upstream status %d", resp.Code)
	}

	text := strings.Join(strings.Fields(resp.Data.Content), " ")
	if text == "" {
		return nil, eris.New("jina: empty content")
	}

	return &Result{
		URL:        targetURL,
		Title:      resp.Data.Title,
		Text:       text,
		StatusCode: 200,
		Source:     "jina",
	}, nil
}
