package llmvalidate

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicClient issues one non-streaming Messages.New call per
// Validate and parses the compliance verdict out of the response text.
type AnthropicClient struct {
	client  *anthropic.Client
	apiKey  string
	baseURL string
}

// NewAnthropicClient builds a client reading its key from apiKey; pass the
// empty string to force LLMAuth-style failures (mirrors the source
// system's "API key not configured" short-circuit).
func NewAnthropicClient(apiKey string) *AnthropicClient {
	c := &AnthropicClient{apiKey: apiKey}
	c.rebuild()
	return c
}

// SetBaseURL overrides the Anthropic API endpoint (used to point at a
// proxy or test double) and rebuilds the underlying SDK client.
func (c *AnthropicClient) SetBaseURL(baseURL string) {
	c.baseURL = baseURL
	c.rebuild()
}

func (c *AnthropicClient) rebuild() {
	if c.apiKey == "" {
		c.client = nil
		return
	}
	opts := []option.RequestOption{option.WithAPIKey(c.apiKey)}
	if c.baseURL != "" {
		opts = append(opts, option.WithBaseURL(c.baseURL))
	}
	client := anthropic.NewClient(opts...)
	c.client = &client
}

// Validate issues the compliance-validator prompt and parses the verdict.
func (c *AnthropicClient) Validate(ctx context.Context, req Request) Result {
	if c.client == nil {
		return Result{Passed: false, Response: "Anthropic API key not configured", Error: true}
	}

	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: 1000,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt())),
		},
	})
	if err != nil {
		return Result{Passed: false, Response: fmt.Sprintf("LLM validation error: %v", err), Error: true}
	}
	if len(msg.Content) == 0 {
		return Result{Passed: false, Response: "LLM validation error: empty response", Error: true}
	}

	passed, reason := parseVerdict(msg.Content[0].Text)
	inputTokens := int(msg.Usage.InputTokens)
	outputTokens := int(msg.Usage.OutputTokens)
	cost := CalculateCost(req.Model, inputTokens, outputTokens)
	return Result{
		Passed:   passed,
		Response: reason,
		Error:    false,
		Usage: &Usage{
			Provider:     "anthropic",
			Model:        req.Model,
			InputTokens:  inputTokens,
			OutputTokens: outputTokens,
			TotalTokens:  inputTokens + outputTokens,
			CostUSD:      cost,
		},
	}
}
