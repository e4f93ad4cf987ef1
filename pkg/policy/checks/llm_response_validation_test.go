package checks

import (
	"context"
	"testing"

	"github.com/codeready-toolchain/tarsy/pkg/policy"
	"github.com/codeready-toolchain/tarsy/pkg/policy/llmvalidate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLLMResponseValidationPassesOnFinalMessage(t *testing.T) {
	validator := &fakeValidator{fallback: llmvalidate.Result{Passed: true, Response: "compliant"}}
	c := &llmResponseValidationCheck{
		spec:      policy.Check{Type: policy.CheckLLMResponseValidation, Params: map[string]any{"scope": "final_message", "validation_prompt": "is it polite"}},
		validator: validator,
	}
	messages := []policy.Message{assistantText("Thank you for reporting this.")}

	result := c.Evaluate(context.Background(), messages, policy.SessionMetadata{})
	assert.True(t, result.Passed)
}

func TestLLMResponseValidationFailsOnFinalMessage(t *testing.T) {
	validator := &fakeValidator{fallback: llmvalidate.Result{Passed: false, Response: "rude"}}
	c := &llmResponseValidationCheck{
		spec:      policy.Check{Type: policy.CheckLLMResponseValidation, Params: map[string]any{"scope": "final_message", "validation_prompt": "is it polite"}},
		validator: validator,
	}
	messages := []policy.Message{assistantText("Figure it out yourself.")}

	result := c.Evaluate(context.Background(), messages, policy.SessionMetadata{})
	assert.False(t, result.Passed)
	assert.Contains(t, result.Message, "rude")
}

// any_message must pass iff at least one targeted message passes
// validation, not require every message to pass.
func TestLLMResponseValidationAnyMessagePassesWhenOnePasses(t *testing.T) {
	validator := &fakeValidator{byValue: map[string]llmvalidate.Result{
		"first draft, not compliant":  {Passed: false, Response: "non-compliant"},
		"revised and fully compliant": {Passed: true, Response: "compliant"},
	}}
	c := &llmResponseValidationCheck{
		spec:      policy.Check{Type: policy.CheckLLMResponseValidation, Params: map[string]any{"scope": "any_message", "validation_prompt": "is it compliant"}},
		validator: validator,
	}
	messages := []policy.Message{
		assistantText("first draft, not compliant"),
		assistantText("revised and fully compliant"),
	}

	result := c.Evaluate(context.Background(), messages, policy.SessionMetadata{})
	assert.True(t, result.Passed)
}

func TestLLMResponseValidationAggregatesUsageAcrossCalls(t *testing.T) {
	validator := &fakeValidator{byValue: map[string]llmvalidate.Result{
		"a": {Passed: true, Response: "ok", Usage: &llmvalidate.Usage{Provider: "anthropic", Model: "claude-sonnet-4-5-20250929", InputTokens: 10, OutputTokens: 5, TotalTokens: 15, CostUSD: 0.01}},
		"b": {Passed: true, Response: "ok", Usage: &llmvalidate.Usage{Provider: "anthropic", Model: "claude-sonnet-4-5-20250929", InputTokens: 20, OutputTokens: 10, TotalTokens: 30, CostUSD: 0.02}},
	}}
	c := &llmResponseValidationCheck{
		spec:      policy.Check{Type: policy.CheckLLMResponseValidation, Params: map[string]any{"scope": "all_messages", "validation_prompt": "is it compliant"}},
		validator: validator,
	}
	messages := []policy.Message{assistantText("a"), assistantText("b")}

	result := c.Evaluate(context.Background(), messages, policy.SessionMetadata{})
	require.NotNil(t, result.LLMUsage)
	assert.Equal(t, 2, result.LLMUsage.APICalls)
	assert.Equal(t, 30, result.LLMUsage.InputTokens)
	assert.Equal(t, 15, result.LLMUsage.OutputTokens)
	assert.InDelta(t, 0.03, result.LLMUsage.CostUSD, 0.0001)
}
