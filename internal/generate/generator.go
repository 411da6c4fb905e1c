// Package generate turns an assembled prompt into generated text through a
// configured language model provider.
package generate

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/sells-group/outreach-cli/internal/config"
	"github.com/sells-group/outreach-cli/pkg/anthropic"
	"github.com/sells-group/outreach-cli/pkg/gemini"
)

// Generator produces text for a prompt in a single attempt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Provider() string
	Model() string
}

// GenerationError is returned for every failed Generate call.
type GenerationError struct {
	Provider  string
	Err       error
	Transient bool
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s generation failed: %v", e.Provider, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// UsageRecorder receives token counts for every successful call.
type UsageRecorder interface {
	Record(model string, input, output int64)
}

// Option configures a generator built by New.
type Option func(*options)

type options struct {
	usage UsageRecorder
}

// WithUsageRecorder reports token usage to r.
func WithUsageRecorder(r UsageRecorder) Option {
	return func(o *options) { o.usage = r }
}

// ErrEmptyResponse is wrapped when the model returns no text.
var ErrEmptyResponse = eris.New("empty response")

// New builds the generator selected by cfg.Provider using apiKey.
func New(ctx context.Context, cfg config.GenerationConfig, apiKey string, opts ...Option) (Generator, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	switch cfg.Provider {
	case config.ProviderAnthropic:
		a := NewAnthropic(anthropic.NewClient(apiKey), cfg.AnthropicModel, cfg.MaxTokens)
		a.usage = o.usage
		return a, nil
	case config.ProviderGemini, "":
		client, err := gemini.NewClient(ctx, apiKey)
		if err != nil {
			return nil, err
		}
		g := NewGemini(client, cfg.GeminiModel, cfg.MaxTokens)
		g.usage = o.usage
		return g, nil
	default:
		return nil, eris.Errorf("generate: unsupported provider %q", cfg.Provider)
	}
}
