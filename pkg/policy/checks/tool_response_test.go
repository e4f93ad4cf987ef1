package checks

import (
	"context"
	"testing"

	"github.com/codeready-toolchain/tarsy/pkg/policy"
	"github.com/stretchr/testify/assert"
)

func toolCallAndResult(toolName, toolID string, resultContent string, isError bool) []policy.Message {
	return []policy.Message{
		{
			Role: policy.RoleAssistant,
			Blocks: []policy.ContentBlock{
				{Type: policy.BlockToolUse, ToolName: toolName, ToolUseID: toolID, Input: map[string]any{}},
			},
		},
		{
			Role: policy.RoleUser,
			Blocks: []policy.ContentBlock{
				{Type: policy.BlockToolResult, ToolUseResultID: toolID, Content: resultContent, IsError: isError},
			},
		},
	}
}

func TestToolResponsePassesOnSuccess(t *testing.T) {
	c := &toolResponseCheck{policy.Check{
		Type:   policy.CheckToolResponse,
		Params: map[string]any{"tool_name": "search", "expect_success": true},
	}}
	messages := toolCallAndResult("search", "t0", `{"status":"ok"}`, false)

	result := c.Evaluate(context.Background(), messages, policy.SessionMetadata{})
	assert.True(t, result.Passed)
}

func TestToolResponseFailsOnError(t *testing.T) {
	c := &toolResponseCheck{policy.Check{
		Type:   policy.CheckToolResponse,
		Params: map[string]any{"tool_name": "search", "expect_success": true},
	}}
	messages := toolCallAndResult("search", "t0", `{"status":"failed"}`, true)

	result := c.Evaluate(context.Background(), messages, policy.SessionMetadata{})
	assert.False(t, result.Passed)
}

func TestToolResponseMatchesResponseParams(t *testing.T) {
	c := &toolResponseCheck{policy.Check{
		Type: policy.CheckToolResponse,
		Params: map[string]any{
			"tool_name":       "search",
			"response_params": map[string]any{"status": "ok"},
		},
	}}
	messages := toolCallAndResult("search", "t0", `{"status":"ok"}`, false)

	result := c.Evaluate(context.Background(), messages, policy.SessionMetadata{})
	assert.True(t, result.Passed)
}
