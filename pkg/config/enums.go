package config

// LLMProviderType identifies which LLMValidator implementation a
// provider entry is dispatched to.
type LLMProviderType string

const (
	// LLMProviderTypeAnthropic routes to llmvalidate.AnthropicClient.
	LLMProviderTypeAnthropic LLMProviderType = "anthropic"
	// LLMProviderTypeOpenAI routes to llmvalidate.OpenAIClient (also
	// covers OpenAI-compatible endpoints reachable via BaseURL).
	LLMProviderTypeOpenAI LLMProviderType = "openai"
)

// IsValid reports whether t names a provider type this system can
// actually dispatch to.
func (t LLMProviderType) IsValid() bool {
	return t == LLMProviderTypeAnthropic || t == LLMProviderTypeOpenAI
}
