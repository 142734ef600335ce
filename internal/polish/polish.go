// Package polish optionally cleans up a finalized transcript with an LLM
// before it is delivered. Failures fall back to the raw transcript.
package polish

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/sashabaranov/go-openai"
)

// Config holds polish settings resolved from the application config.
type Config struct {
	Enabled  bool
	APIKey   string
	Model    string
	Keywords []string
}

// Polisher rewrites a transcript via chat completions.
type Polisher interface {
	Polish(ctx context.Context, text string) (string, error)
}

// OpenAIPolisher implements Polisher on the OpenAI chat completions API.
type OpenAIPolisher struct {
	client *openai.Client
	config Config
}

func NewOpenAIPolisher(cfg Config) (*OpenAIPolisher, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key required")
	}
	return &OpenAIPolisher{
		client: openai.NewClient(cfg.APIKey),
		config: cfg,
	}, nil
}

func (p *OpenAIPolisher) Polish(ctx context.Context, text string) (string, error) {
	if text == "" {
		return "", nil
	}

	model := p.config.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	req := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: buildSystemPrompt(p.config.Keywords)},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		Temperature: 0.3, // Low temperature for consistent cleanup
	}

	start := time.Now()
	resp, err := p.client.CreateChatCompletion(ctx, req)
	duration := time.Since(start)

	if err != nil {
		log.Printf("polish: API call failed after %v: %v", duration, err)
		return "", fmt.Errorf("openai chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai chat completion: no response choices")
	}

	result := resp.Choices[0].Message.Content
	log.Printf("polish: processed in %v: %q -> %q", duration, text, result)
	return result, nil
}

// Apply runs the polisher when configured, falling back to the raw
// transcript on any failure.
func Apply(ctx context.Context, p Polisher, text string) string {
	if p == nil || text == "" {
		return text
	}
	polished, err := p.Polish(ctx, text)
	if err != nil {
		log.Printf("polish: falling back to raw transcript: %v", err)
		return text
	}
	return polished
}
