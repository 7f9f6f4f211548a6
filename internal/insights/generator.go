package insights

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/viability-cli/pkg/anthropic"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "claude-haiku-4-5-20251001"

// DefaultMaxTokens bounds the model answer.
const DefaultMaxTokens = 1024

// Generator returns the raw model text for a set of metrics.
type Generator interface {
	Generate(ctx context.Context, p Params) (string, error)
}

// ClaudeGenerator asks a Claude model for the insight JSON.
type ClaudeGenerator struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewClaudeGenerator wires a Generator over an Anthropic client.
func NewClaudeGenerator(client anthropic.Client, model string, maxTokens int64) *ClaudeGenerator {
	if model == "" {
		model = DefaultModel
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &ClaudeGenerator{client: client, model: model, maxTokens: maxTokens}
}

// Generate sends the metrics prompt and returns the response text.
func (g *ClaudeGenerator) Generate(ctx context.Context, p Params) (string, error) {
	temp := Temperature
	resp, err := g.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       g.model,
		MaxTokens:   g.maxTokens,
		System:      []anthropic.SystemBlock{{Text: SystemPrompt}},
		Messages:    []anthropic.Message{{Role: "user", Content: BuildPrompt(p)}},
		Temperature: &temp,
	})
	if err != nil {
		return "", eris.Wrap(err, "insights: claude request")
	}
	resp.Usage.LogCost(g.model, "insights")

	text := resp.Text()
	if text == "" {
		return "", eris.New("insights: empty claude response")
	}
	return text, nil
}
