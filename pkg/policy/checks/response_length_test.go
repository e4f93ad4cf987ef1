package checks

import (
	"context"
	"strings"
	"testing"

	"github.com/codeready-toolchain/tarsy/pkg/policy"
	"github.com/stretchr/testify/assert"
)

func assistantText(text string) policy.Message {
	return policy.Message{Role: policy.RoleAssistant, Text: text}
}

func TestResponseLengthFinalMessageWithinRange(t *testing.T) {
	c := &responseLengthCheck{policy.Check{
		Type:   policy.CheckResponseLength,
		Params: map[string]any{"min_tokens": 1, "max_tokens": 100, "scope": "final_message"},
	}}
	messages := []policy.Message{assistantText(strings.Repeat("a", 40))}

	result := c.Evaluate(context.Background(), messages, policy.SessionMetadata{})
	assert.True(t, result.Passed)
}

func TestResponseLengthFinalMessageBelowMinimum(t *testing.T) {
	c := &responseLengthCheck{policy.Check{
		Type:   policy.CheckResponseLength,
		Params: map[string]any{"min_tokens": 50, "scope": "final_message"},
	}}
	messages := []policy.Message{assistantText("short")}

	result := c.Evaluate(context.Background(), messages, policy.SessionMetadata{})
	assert.False(t, result.Passed)
	assert.Contains(t, result.Message, "below minimum")
}

// any_message must pass iff at least one targeted message passes, not
// require every message to pass.
func TestResponseLengthAnyMessagePassesWhenOneSatisfies(t *testing.T) {
	c := &responseLengthCheck{policy.Check{
		Type:   policy.CheckResponseLength,
		Params: map[string]any{"min_tokens": 20, "scope": "any_message"},
	}}
	messages := []policy.Message{
		assistantText("short"),
		assistantText(strings.Repeat("b", 100)),
	}

	result := c.Evaluate(context.Background(), messages, policy.SessionMetadata{})
	assert.True(t, result.Passed)
}

func TestResponseLengthAnyMessageFailsWhenNoneSatisfy(t *testing.T) {
	c := &responseLengthCheck{policy.Check{
		Type:   policy.CheckResponseLength,
		Params: map[string]any{"min_tokens": 20, "scope": "any_message"},
	}}
	messages := []policy.Message{
		assistantText("short"),
		assistantText("also short"),
	}

	result := c.Evaluate(context.Background(), messages, policy.SessionMetadata{})
	assert.False(t, result.Passed)
}

func TestResponseLengthAllMessagesAggregatesCombinedText(t *testing.T) {
	c := &responseLengthCheck{policy.Check{
		Type:   policy.CheckResponseLength,
		Params: map[string]any{"max_tokens": 5, "scope": "all_messages"},
	}}
	messages := []policy.Message{
		assistantText(strings.Repeat("c", 40)),
		assistantText(strings.Repeat("d", 40)),
	}

	result := c.Evaluate(context.Background(), messages, policy.SessionMetadata{})
	assert.False(t, result.Passed)
}
