package config

// GetBuiltinLLMProviders returns the catalog of LLM providers shipped by
// default, keyed by the name a Check's llm_provider param references.
// llm-providers.yaml entries with the same name override these; any
// other entry is added alongside them.
func GetBuiltinLLMProviders() map[string]LLMProviderConfig {
	return map[string]LLMProviderConfig{
		"anthropic": {
			Type:      LLMProviderTypeAnthropic,
			Model:     "claude-sonnet-4-5-20250929",
			APIKeyEnv: "ANTHROPIC_API_KEY",
		},
		"openai": {
			Type:      LLMProviderTypeOpenAI,
			Model:     "gpt-4o",
			APIKeyEnv: "OPENAI_API_KEY",
		},
	}
}
