package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigStats(t *testing.T) {
	cfg := &Config{
		configDir: "/tmp/cfg",
		LLMProviderRegistry: NewLLMProviderRegistry(map[string]*LLMProviderConfig{
			"anthropic": {Type: LLMProviderTypeAnthropic, Model: "claude-sonnet-4-5-20250929"},
			"openai":    {Type: LLMProviderTypeOpenAI, Model: "gpt-4o"},
		}),
	}

	assert.Equal(t, 2, cfg.Stats().LLMProviders)
	assert.Equal(t, "/tmp/cfg", cfg.ConfigDir())
}

func TestConfigGetLLMProvider(t *testing.T) {
	cfg := &Config{
		LLMProviderRegistry: NewLLMProviderRegistry(map[string]*LLMProviderConfig{
			"anthropic": {Type: LLMProviderTypeAnthropic, Model: "claude-sonnet-4-5-20250929"},
		}),
	}

	provider, err := cfg.GetLLMProvider("anthropic")
	require.NoError(t, err)
	assert.Equal(t, "claude-sonnet-4-5-20250929", provider.Model)

	_, err = cfg.GetLLMProvider("missing")
	assert.ErrorIs(t, err, ErrLLMProviderNotFound)
}
