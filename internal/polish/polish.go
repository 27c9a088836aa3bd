// Package polish runs an optional cleanup pass over raw transcripts
// before delivery: filler words removed, punctuation fixed, nothing
// rephrased.
package polish

import (
	"context"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// systemPrompt keeps the model on a tight leash: dictation output must
// stay the user's words, not the model's.
const systemPrompt = `You clean up voice dictation transcripts. Given a raw transcript, you will:
- Remove verbal tics like "um", "uh", and repeated filler words
- Fix obvious punctuation and capitalization mistakes
- Keep every word choice and the sentence order exactly as dictated
- Never add, summarize, or rephrase content
- Return only the cleaned text, with no commentary`

const maxTokens = 1024

// Polisher sends transcripts through the Anthropic API for cleanup.
type Polisher struct {
	client anthropic.Client
	model  anthropic.Model
}

// NewPolisher creates a polisher. An empty model selects the default.
func NewPolisher(apiKey, model string) *Polisher {
	m := anthropic.ModelClaudeSonnet4_5_20250929
	if model != "" {
		m = anthropic.Model(model)
	}
	return &Polisher{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  m,
	}
}

// Polish returns the cleaned transcript. Callers should fall back to the
// raw transcript on error; a failed cleanup must never lose a dictation.
func (p *Polisher) Polish(ctx context.Context, transcript string) (string, error) {
	resp, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     p.model,
		MaxTokens: maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(transcript)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("polish transcript: %w", err)
	}

	if len(resp.Content) == 0 {
		return "", errors.New("empty response from Anthropic API")
	}
	textBlock, ok := resp.Content[0].AsAny().(anthropic.TextBlock)
	if !ok {
		return "", errors.New("unexpected response type from Anthropic API")
	}
	return textBlock.Text, nil
}
