package checks

import (
	"context"
	"testing"

	"github.com/codeready-toolchain/tarsy/pkg/policy"
	"github.com/stretchr/testify/assert"
)

func TestResponseContainsAllModeRequiresEveryKeyword(t *testing.T) {
	c := &responseContainsCheck{policy.Check{
		Type:   policy.CheckResponseContains,
		Params: map[string]any{"keywords": []string{"escalate", "confirmed"}, "mode": "all", "scope": "final_message"},
	}}
	messages := []policy.Message{assistantText("Issue confirmed, will escalate now.")}

	result := c.Evaluate(context.Background(), messages, policy.SessionMetadata{})
	assert.True(t, result.Passed)
}

func TestResponseContainsAllModeFailsOnMissingKeyword(t *testing.T) {
	c := &responseContainsCheck{policy.Check{
		Type:   policy.CheckResponseContains,
		Params: map[string]any{"keywords": []string{"escalate", "confirmed"}, "mode": "all", "scope": "final_message"},
	}}
	messages := []policy.Message{assistantText("Issue confirmed.")}

	result := c.Evaluate(context.Background(), messages, policy.SessionMetadata{})
	assert.False(t, result.Passed)
	assert.Contains(t, result.Message, "escalate")
}

func TestResponseContainsNoneModeFailsWhenForbiddenPresent(t *testing.T) {
	c := &responseContainsCheck{policy.Check{
		Type:   policy.CheckResponseContains,
		Params: map[string]any{"keywords": []string{"password", "secret"}, "mode": "none", "scope": "final_message"},
	}}
	messages := []policy.Message{assistantText("Here is the secret key.")}

	result := c.Evaluate(context.Background(), messages, policy.SessionMetadata{})
	assert.False(t, result.Passed)
	assert.Contains(t, result.Message, "secret")
}

// any_message + mode=any must pass iff at least one targeted message
// contains at least one keyword.
func TestResponseContainsAnyMessageScopePassesOnOneMatch(t *testing.T) {
	c := &responseContainsCheck{policy.Check{
		Type:   policy.CheckResponseContains,
		Params: map[string]any{"keywords": []string{"escalate"}, "mode": "any", "scope": "any_message"},
	}}
	messages := []policy.Message{
		assistantText("investigating the issue"),
		assistantText("decided to escalate to on-call"),
	}

	result := c.Evaluate(context.Background(), messages, policy.SessionMetadata{})
	assert.True(t, result.Passed)
}

func TestResponseContainsAnyMessageScopeFailsWhenNoneMatch(t *testing.T) {
	c := &responseContainsCheck{policy.Check{
		Type:   policy.CheckResponseContains,
		Params: map[string]any{"keywords": []string{"escalate"}, "mode": "any", "scope": "any_message"},
	}}
	messages := []policy.Message{
		assistantText("investigating the issue"),
		assistantText("closing the ticket"),
	}

	result := c.Evaluate(context.Background(), messages, policy.SessionMetadata{})
	assert.False(t, result.Passed)
}
