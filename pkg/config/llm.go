package config

import (
	"fmt"
	"os"
	"sync"

	"github.com/codeready-toolchain/tarsy/pkg/policy/llmvalidate"
)

// LLMProviderConfig names one named entry of llm-providers.yaml: which
// LLMValidator implementation to dispatch to, which env var holds its
// API key, and the default model to request when a Check doesn't name
// one of its own.
type LLMProviderConfig struct {
	Type      LLMProviderType `yaml:"type" validate:"required"`
	Model     string          `yaml:"model" validate:"required"`
	APIKeyEnv string          `yaml:"api_key_env,omitempty"`
	BaseURL   string          `yaml:"base_url,omitempty"`
}

// Build constructs the llmvalidate.Validator this entry describes,
// reading its API key from APIKeyEnv (or "" if unset — the validator
// itself turns a missing key into a clean LLMAuth-style failure rather
// than a panic).
func (c *LLMProviderConfig) Build() (llmvalidate.Validator, error) {
	apiKey := ""
	if c.APIKeyEnv != "" {
		apiKey = os.Getenv(c.APIKeyEnv)
	}

	switch c.Type {
	case LLMProviderTypeAnthropic:
		client := llmvalidate.NewAnthropicClient(apiKey)
		if c.BaseURL != "" {
			client.SetBaseURL(c.BaseURL)
		}
		return client, nil
	case LLMProviderTypeOpenAI:
		client := llmvalidate.NewOpenAIClient(apiKey)
		if c.BaseURL != "" {
			client.SetBaseURL(c.BaseURL)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("%w: unknown LLM provider type %q", ErrInvalidValue, c.Type)
	}
}

// LLMProviderRegistry stores LLM provider configurations in memory with
// thread-safe access.
type LLMProviderRegistry struct {
	providers map[string]*LLMProviderConfig
	mu        sync.RWMutex
}

// NewLLMProviderRegistry creates a new LLM provider registry.
func NewLLMProviderRegistry(providers map[string]*LLMProviderConfig) *LLMProviderRegistry {
	copied := make(map[string]*LLMProviderConfig, len(providers))
	for k, v := range providers {
		copied[k] = v
	}
	return &LLMProviderRegistry{providers: copied}
}

// Get retrieves an LLM provider configuration by name (thread-safe).
func (r *LLMProviderRegistry) Get(name string) (*LLMProviderConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	provider, exists := r.providers[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrLLMProviderNotFound, name)
	}
	return provider, nil
}

// GetAll returns all LLM provider configurations (thread-safe, returns copy).
func (r *LLMProviderRegistry) GetAll() map[string]*LLMProviderConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]*LLMProviderConfig, len(r.providers))
	for k, v := range r.providers {
		result[k] = v
	}
	return result
}

// BuildMultiProvider builds an llmvalidate.MultiProvider wired with every
// registered provider, keyed by registry name — the value a Check's
// llm_provider field names.
func (r *LLMProviderRegistry) BuildMultiProvider() (*llmvalidate.MultiProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	validators := make(map[string]llmvalidate.Validator, len(r.providers))
	for name, provider := range r.providers {
		v, err := provider.Build()
		if err != nil {
			return nil, fmt.Errorf("building provider %q: %w", name, err)
		}
		validators[name] = v
	}
	return llmvalidate.NewMultiProvider(validators), nil
}

// Has checks if an LLM provider exists in the registry (thread-safe).
func (r *LLMProviderRegistry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.providers[name]
	return exists
}

// Len returns the number of LLM providers in the registry (thread-safe).
func (r *LLMProviderRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.providers)
}
