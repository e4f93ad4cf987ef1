package llmvalidate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnthropicClientFailsClosedWithoutAPIKey(t *testing.T) {
	client := NewAnthropicClient("")

	result := client.Validate(context.Background(), Request{Model: "claude-sonnet-4-5-20250929"})
	assert.False(t, result.Passed)
	assert.True(t, result.Error)
	assert.Contains(t, result.Response, "not configured")
}

func TestAnthropicClientSetBaseURLRebuildsClient(t *testing.T) {
	client := NewAnthropicClient("sk-ant-test-key")
	a := assert.New(t)
	a.NotNil(client.client)

	client.SetBaseURL("https://proxy.internal/v1")
	a.NotNil(client.client)
	a.Equal("https://proxy.internal/v1", client.baseURL)
}

func TestAnthropicClientClearingKeyDisablesClient(t *testing.T) {
	client := NewAnthropicClient("sk-ant-test-key")
	assert.NotNil(t, client.client)

	client.apiKey = ""
	client.rebuild()
	assert.Nil(t, client.client)
}
