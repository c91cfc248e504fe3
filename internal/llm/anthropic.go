package llm

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicClient is backed by Anthropic Claude or a compatible proxy.
type AnthropicClient struct {
	client *anthropic.Client
	model  string
}

func NewAnthropicClient(apiKey, baseURL, model string) *AnthropicClient {
	if model == "" {
		model = "claude-sonnet-4-6"
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &AnthropicClient{client: anthropic.NewClient(opts...), model: model}
}

func (c *AnthropicClient) params(req Request) anthropic.MessageNewParams {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	params := anthropic.MessageNewParams{
		Model:       anthropic.F(anthropic.Model(c.model)),
		MaxTokens:   anthropic.F(int64(maxTokens)),
		Temperature: anthropic.F(float64(req.Temperature)),
		Messages: anthropic.F([]anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.User)),
		}),
	}
	if req.System != "" {
		params.System = anthropic.F([]anthropic.TextBlockParam{
			anthropic.NewTextBlock(req.System),
		})
	}
	return params
}

func (c *AnthropicClient) Complete(ctx context.Context, req Request) (string, error) {
	resp, err := c.client.Messages.New(ctx, c.params(req))
	if err != nil {
		return "", fmt.Errorf("anthropic completion: %w", err)
	}

	var text string
	for _, block := range resp.Content {
		if b, ok := block.AsUnion().(anthropic.TextBlock); ok {
			text += b.Text
		}
	}
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}

func (c *AnthropicClient) Stream(ctx context.Context, req Request, onDelta func(string) error) error {
	stream := c.client.Messages.NewStreaming(ctx, c.params(req))
	defer stream.Close()

	for stream.Next() {
		ev, ok := stream.Current().AsUnion().(anthropic.ContentBlockDeltaEvent)
		if !ok || ev.Delta.Text == "" {
			continue
		}
		if err := onDelta(ev.Delta.Text); err != nil {
			return err
		}
	}
	if err := stream.Err(); err != nil {
		return fmt.Errorf("anthropic stream: %w", err)
	}
	return nil
}
