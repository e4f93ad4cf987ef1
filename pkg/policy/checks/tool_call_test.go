package checks

import (
	"context"
	"testing"

	"github.com/codeready-toolchain/tarsy/pkg/policy"
	"github.com/stretchr/testify/assert"
)

func toolCallWithInput(name string, input map[string]any) policy.Message {
	return policy.Message{
		Role: policy.RoleAssistant,
		Blocks: []policy.ContentBlock{
			{Type: policy.BlockToolUse, ToolName: name, ToolUseID: "t0", Input: input},
		},
	}
}

func TestToolCallPassesOnMatchingParams(t *testing.T) {
	c := &toolCallCheck{policy.Check{
		Type: policy.CheckToolCall,
		Params: map[string]any{
			"tool_name": "search",
			"params":    map[string]any{"query": "outage"},
		},
	}}
	messages := []policy.Message{toolCallWithInput("search", map[string]any{"query": "outage"})}

	result := c.Evaluate(context.Background(), messages, policy.SessionMetadata{})
	assert.True(t, result.Passed)
}

func TestToolCallFailsWhenParamsDontMatch(t *testing.T) {
	c := &toolCallCheck{policy.Check{
		Type: policy.CheckToolCall,
		Params: map[string]any{
			"tool_name": "search",
			"params":    map[string]any{"query": "outage"},
		},
	}}
	messages := []policy.Message{toolCallWithInput("search", map[string]any{"query": "weather"})}

	result := c.Evaluate(context.Background(), messages, policy.SessionMetadata{})
	assert.False(t, result.Passed)
	assert.Contains(t, result.Message, "search")
}

func TestToolCallFailsWhenNeverCalled(t *testing.T) {
	c := &toolCallCheck{policy.Check{
		Type:   policy.CheckToolCall,
		Params: map[string]any{"tool_name": "search"},
	}}

	result := c.Evaluate(context.Background(), nil, policy.SessionMetadata{})
	assert.False(t, result.Passed)
}
