package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/tarsy/pkg/policy/llmvalidate"
)

func TestLLMProviderConfigBuildAnthropic(t *testing.T) {
	t.Setenv("TEST_ANTHROPIC_KEY", "sk-test-123")
	cfg := &LLMProviderConfig{Type: LLMProviderTypeAnthropic, Model: "claude-sonnet-4-5-20250929", APIKeyEnv: "TEST_ANTHROPIC_KEY"}

	validator, err := cfg.Build()
	require.NoError(t, err)

	_, ok := validator.(*llmvalidate.AnthropicClient)
	require.True(t, ok)
}

func TestLLMProviderConfigBuildOpenAICustomBaseURL(t *testing.T) {
	t.Setenv("TEST_OPENAI_KEY", "sk-test-456")
	cfg := &LLMProviderConfig{
		Type: LLMProviderTypeOpenAI, Model: "gpt-4o", APIKeyEnv: "TEST_OPENAI_KEY",
		BaseURL: "https://my-proxy.internal/v1/chat/completions",
	}

	validator, err := cfg.Build()
	require.NoError(t, err)

	_, ok := validator.(*llmvalidate.OpenAIClient)
	require.True(t, ok)
}

func TestLLMProviderConfigBuildInvalidType(t *testing.T) {
	cfg := &LLMProviderConfig{Type: LLMProviderType("bedrock"), Model: "m"}

	_, err := cfg.Build()
	assert.Error(t, err)
}

func TestLLMProviderRegistryBuildMultiProvider(t *testing.T) {
	t.Setenv("TEST_ANTHROPIC_KEY", "k1")
	t.Setenv("TEST_OPENAI_KEY", "k2")

	registry := NewLLMProviderRegistry(map[string]*LLMProviderConfig{
		"anthropic": {Type: LLMProviderTypeAnthropic, Model: "claude-sonnet-4-5-20250929", APIKeyEnv: "TEST_ANTHROPIC_KEY"},
		"openai":    {Type: LLMProviderTypeOpenAI, Model: "gpt-4o", APIKeyEnv: "TEST_OPENAI_KEY"},
	})

	multi, err := registry.BuildMultiProvider()
	require.NoError(t, err)
	require.NotNil(t, multi)
}

func TestLLMProviderRegistryGetNotFound(t *testing.T) {
	registry := NewLLMProviderRegistry(map[string]*LLMProviderConfig{})

	_, err := registry.Get("nonexistent")
	assert.ErrorIs(t, err, ErrLLMProviderNotFound)
}

func TestLLMProviderRegistryGetAllCopiesTheMap(t *testing.T) {
	registry := NewLLMProviderRegistry(map[string]*LLMProviderConfig{
		"anthropic": {Type: LLMProviderTypeAnthropic, Model: "claude-sonnet-4-5-20250929"},
	})

	all := registry.GetAll()
	delete(all, "anthropic")

	assert.True(t, registry.Has("anthropic"), "deleting from a GetAll result must not affect the registry's own map")
}

func TestGetBuiltinLLMProviders(t *testing.T) {
	builtins := GetBuiltinLLMProviders()

	anthropic, ok := builtins["anthropic"]
	require.True(t, ok)
	assert.Equal(t, LLMProviderTypeAnthropic, anthropic.Type)

	openai, ok := builtins["openai"]
	require.True(t, ok)
	assert.Equal(t, LLMProviderTypeOpenAI, openai.Type)
}

func TestMergeLLMProvidersUserOverridesBuiltin(t *testing.T) {
	builtins := map[string]LLMProviderConfig{
		"anthropic": {Type: LLMProviderTypeAnthropic, Model: "claude-sonnet-4-5-20250929"},
	}
	user := map[string]LLMProviderConfig{
		"anthropic": {Type: LLMProviderTypeAnthropic, Model: "claude-opus-4-1"},
		"custom":    {Type: LLMProviderTypeOpenAI, Model: "gpt-4o-mini"},
	}

	merged := mergeLLMProviders(builtins, user)

	require.Contains(t, merged, "anthropic")
	assert.Equal(t, "claude-opus-4-1", merged["anthropic"].Model)
	require.Contains(t, merged, "custom")
	assert.Equal(t, "gpt-4o-mini", merged["custom"].Model)
}
