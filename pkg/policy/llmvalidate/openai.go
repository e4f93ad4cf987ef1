package llmvalidate

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIClient issues one non-streaming chat completion per Validate and
// parses the compliance verdict out of the response text, mirroring
// AnthropicClient's narrow scope.
type OpenAIClient struct {
	client  *openai.Client
	apiKey  string
	baseURL string
}

// NewOpenAIClient builds a client reading its key from apiKey; pass the
// empty string to force LLMAuth-style failures.
func NewOpenAIClient(apiKey string) *OpenAIClient {
	c := &OpenAIClient{apiKey: apiKey}
	c.rebuild()
	return c
}

// SetBaseURL overrides the OpenAI API endpoint (used to point at a proxy
// or test double) and rebuilds the underlying SDK client.
func (c *OpenAIClient) SetBaseURL(baseURL string) {
	c.baseURL = baseURL
	c.rebuild()
}

func (c *OpenAIClient) rebuild() {
	if c.apiKey == "" {
		c.client = nil
		return
	}
	cfg := openai.DefaultConfig(c.apiKey)
	if c.baseURL != "" {
		cfg.BaseURL = c.baseURL
	}
	c.client = openai.NewClientWithConfig(cfg)
}

// Validate issues the compliance-validator prompt and parses the verdict.
func (c *OpenAIClient) Validate(ctx context.Context, req Request) Result {
	if c.client == nil {
		return Result{Passed: false, Response: "OpenAI API key not configured", Error: true}
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: req.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt()},
		},
	})
	if err != nil {
		return Result{Passed: false, Response: fmt.Sprintf("LLM validation error: %v", err), Error: true}
	}
	if len(resp.Choices) == 0 {
		return Result{Passed: false, Response: "LLM validation error: empty response", Error: true}
	}

	passed, reason := parseVerdict(resp.Choices[0].Message.Content)
	cost := CalculateCost(req.Model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	return Result{
		Passed:   passed,
		Response: reason,
		Error:    false,
		Usage: &Usage{
			Provider:     "openai",
			Model:        req.Model,
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
			TotalTokens:  resp.Usage.PromptTokens + resp.Usage.CompletionTokens,
			CostUSD:      cost,
		},
	}
}
