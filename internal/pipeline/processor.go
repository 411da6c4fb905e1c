package pipeline

import (
	"context"
	"strings"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/prompt"
)

// TextFetcher returns the visible text of a website. An error or empty text
// means the site could not be fetched.
type TextFetcher interface {
	FetchText(ctx context.Context, url string) (string, error)
}

// PromptBuilder assembles the generation prompt for one company.
type PromptBuilder interface {
	Build(in prompt.Input) (string, error)
}

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// RowProcessor processes a single row in place.
type RowProcessor interface {
	ProcessRow(ctx context.Context, row *model.Row, cache *Cache) RowResult
}

// RowResult describes what happened to one row.
type RowResult struct {
	Outcome   model.Outcome
	Attempted bool // generation step was reached
	Err       error
}

// Processor runs the per-row state machine: skip, cache, URL check, fetch,
// then generate.
type Processor struct {
	fetcher   TextFetcher
	prompts   PromptBuilder
	generator Generator
	knowledge *model.Knowledge
	pacer     *Pacer
}

// NewProcessor creates a Processor. A nil pacer never waits.
func NewProcessor(f TextFetcher, p PromptBuilder, g Generator, k *model.Knowledge, pacer *Pacer) *Processor {
	if pacer == nil {
		pacer = NewPacer(0)
	}
	if k == nil {
		k = &model.Knowledge{}
	}
	return &Processor{fetcher: f, prompts: p, generator: g, knowledge: k, pacer: pacer}
}

// ProcessRow mutates row.EmailBody and cache. Every failure is recorded in
// the row; nothing is returned to abort the batch.
func (p *Processor) ProcessRow(ctx context.Context, row *model.Row, cache *Cache) RowResult {
	if model.IsProcessedBody(row.EmailBody) {
		return RowResult{Outcome: model.OutcomeSkipped}
	}

	if body, ok := cache.Get(row.Company); ok {
		row.EmailBody = body
		return RowResult{Outcome: model.OutcomeCacheHit}
	}

	if !ValidWebsite(row.Website) {
		row.EmailBody = model.BodyInvalidURL
		return RowResult{Outcome: model.OutcomeInvalidURL}
	}

	text, err := p.fetcher.FetchText(ctx, strings.TrimSpace(row.Website))
	if err != nil || strings.TrimSpace(text) == "" {
		row.EmailBody = model.BodyFetchError
		return RowResult{Outcome: model.OutcomeFetchError, Err: err}
	}

	body, err := p.generate(ctx, row, text)
	if err != nil {
		row.EmailBody = model.ErrorBody(err.Error())
		return RowResult{Outcome: model.OutcomeGenerationError, Attempted: true, Err: err}
	}

	row.EmailBody = body
	cache.Put(row.Company, body)
	return RowResult{Outcome: model.OutcomeGenerated, Attempted: true}
}

func (p *Processor) generate(ctx context.Context, row *model.Row, websiteText string) (string, error) {
	text, err := p.prompts.Build(prompt.Input{
		Profile:     p.knowledge.Profile,
		WebsiteText: websiteText,
		Examples:    p.knowledge.Examples,
		Company:     row.Company,
		Industry:    row.Industry,
	})
	if err != nil {
		return "", err
	}

	if err := p.pacer.Wait(ctx); err != nil {
		return "", err
	}

	body, err := p.generator.Generate(ctx, text)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(body), nil
}

// ValidWebsite reports whether a website value has an http or https scheme.
func ValidWebsite(website string) bool {
	w := strings.ToLower(strings.TrimSpace(website))
	return strings.HasPrefix(w, "http://") || strings.HasPrefix(w, "https://")
}
