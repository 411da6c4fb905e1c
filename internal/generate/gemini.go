package generate

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/resilience"
	"github.com/sells-group/outreach-cli/pkg/gemini"
)

// Gemini generates text with the Google Gemini API.
type Gemini struct {
	client    gemini.Client
	model     string
	maxTokens int32
	usage     UsageRecorder
}

// NewGemini wraps a Gemini client.
func NewGemini(client gemini.Client, model string, maxTokens int64) *Gemini {
	return &Gemini{client: client, model: model, maxTokens: int32(maxTokens)} //nolint:gosec // bounded by config
}

func (g *Gemini) Provider() string { return "gemini" }
func (g *Gemini) Model() string    { return g.model }

// Generate sends the prompt as a single text part.
func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.GenerateText(ctx, gemini.TextRequest{
		Model:           g.model,
		Prompt:          prompt,
		MaxOutputTokens: g.maxTokens,
	})
	if err != nil {
		return "", &GenerationError{Provider: g.Provider(), Err: err, Transient: geminiTransient(err)}
	}

	zap.L().Debug("gemini: usage",
		zap.String("model", g.model),
		zap.Int32("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int32("candidate_tokens", resp.Usage.CandidateTokens),
		zap.String("finish_reason", resp.FinishReason),
	)
	if g.usage != nil {
		g.usage.Record(g.model, int64(resp.Usage.PromptTokens), int64(resp.Usage.CandidateTokens))
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", &GenerationError{Provider: g.Provider(), Err: ErrEmptyResponse}
	}
	return text, nil
}

// genaiStatus matches the "Error 429, Message: ..." form of genai API errors.
var genaiStatus = regexp.MustCompile(`(?i)\berror (\d{3})\b`)

func geminiTransient(err error) bool {
	if m := genaiStatus.FindStringSubmatch(err.Error()); m != nil {
		code, _ := strconv.Atoi(m[1])
		return resilience.IsTransientHTTPStatus(code)
	}
	return resilience.IsTransient(err)
}
