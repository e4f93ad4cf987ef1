package checks

import (
	"context"
	"testing"

	"github.com/codeready-toolchain/tarsy/pkg/policy"
	"github.com/codeready-toolchain/tarsy/pkg/policy/llmvalidate"
	"github.com/stretchr/testify/assert"
)

func TestLLMToolResponsePassesWhenAllValidationsPass(t *testing.T) {
	validator := &fakeValidator{fallback: llmvalidate.Result{Passed: true, Response: "reasonable"}}
	c := &llmToolResponseCheck{
		spec: policy.Check{Type: policy.CheckLLMToolResponse, Params: map[string]any{
			"tool_name": "search", "parameter": "summary", "validation_prompt": "is it reasonable",
		}},
		validator: validator,
	}
	messages := toolCallAndResult("search", "t0", `{"summary":"found three outage reports"}`, false)

	result := c.Evaluate(context.Background(), messages, policy.SessionMetadata{})
	assert.True(t, result.Passed)
}

// passed > 0 and failed == 0 is the compound pass condition; a single
// failing validation among several calls must fail the whole check.
func TestLLMToolResponseFailsWhenAnyValidationFails(t *testing.T) {
	validator := &fakeValidator{byValue: map[string]llmvalidate.Result{
		"good summary": {Passed: true, Response: "reasonable"},
		"bad summary":  {Passed: false, Response: "nonsensical"},
	}}
	c := &llmToolResponseCheck{
		spec: policy.Check{Type: policy.CheckLLMToolResponse, Params: map[string]any{
			"tool_name": "search", "parameter": "summary", "validation_prompt": "is it reasonable",
		}},
		validator: validator,
	}
	messages := append(
		toolCallAndResult("search", "t0", `{"summary":"good summary"}`, false),
		toolCallAndResult("search", "t1", `{"summary":"bad summary"}`, false)...,
	)

	result := c.Evaluate(context.Background(), messages, policy.SessionMetadata{})
	assert.False(t, result.Passed)
	assert.Contains(t, result.Message, "failed")
}

func TestLLMToolResponseFailsWhenToolNeverCalled(t *testing.T) {
	validator := &fakeValidator{fallback: llmvalidate.Result{Passed: true, Response: "reasonable"}}
	c := &llmToolResponseCheck{
		spec: policy.Check{Type: policy.CheckLLMToolResponse, Params: map[string]any{
			"tool_name": "search", "parameter": "summary", "validation_prompt": "is it reasonable",
		}},
		validator: validator,
	}

	result := c.Evaluate(context.Background(), nil, policy.SessionMetadata{})
	assert.False(t, result.Passed)
}

func TestLLMToolResponseAggregatesUsage(t *testing.T) {
	validator := &fakeValidator{fallback: llmvalidate.Result{
		Passed: true, Response: "reasonable",
		Usage: &llmvalidate.Usage{Provider: "openai", Model: "gpt-4o-mini", InputTokens: 8, OutputTokens: 4, TotalTokens: 12, CostUSD: 0.005},
	}}
	c := &llmToolResponseCheck{
		spec: policy.Check{Type: policy.CheckLLMToolResponse, Params: map[string]any{
			"tool_name": "search", "parameter": "summary", "validation_prompt": "is it reasonable",
			"llm_provider": "openai", "model": "gpt-4o-mini",
		}},
		validator: validator,
	}
	messages := toolCallAndResult("search", "t0", `{"summary":"found three outage reports"}`, false)

	result := c.Evaluate(context.Background(), messages, policy.SessionMetadata{})
	if assert.NotNil(t, result.LLMUsage) {
		assert.Equal(t, 1, result.LLMUsage.APICalls)
		assert.Equal(t, "openai", result.LLMUsage.Provider)
	}
}
