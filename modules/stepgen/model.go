package stepgen

import (
	"context"
	"fmt"
	"os"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const systemPrompt = "You are an assistant that returns exactly three short, " +
	"actionable, non-overlapping steps for a top-level task. " +
	"Return each step on its own line as a numbered list."

// AnthropicCompleter is the model-backed ModelCompleter.
type AnthropicCompleter struct {
	client anthropic.Client
	model  anthropic.Model
}

// NewAnthropicCompleterFromEnv builds a completer from ANTHROPIC_API_KEY
// and STEPGEN_MODEL. It returns nil when no API key is configured, in
// which case the generator runs fallback-only.
func NewAnthropicCompleterFromEnv() *AnthropicCompleter {
	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		return nil
	}

	model := anthropic.Model(os.Getenv("STEPGEN_MODEL"))
	if model == "" {
		model = anthropic.ModelClaude3_5Haiku20241022
	}

	return &AnthropicCompleter{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

// Complete asks the model for three steps and returns its raw text.
func (c *AnthropicCompleter) Complete(ctx context.Context, task string) (string, error) {
	resp, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: 1024,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(
				fmt.Sprintf("Task: %s\nReturn exactly 3 steps.", task),
			)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("messages request failed: %w", err)
	}

	var text string
	for _, block := range resp.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			text += variant.Text
		}
	}
	return text, nil
}
