package llmvalidate

import (
	"context"
	"fmt"
)

// MultiProvider is the process-wide LLMValidator factory keyed by
// provider name. It is read-only once constructed and safe to share
// across concurrent workers.
type MultiProvider struct {
	providers map[string]Validator
}

// NewMultiProvider builds a dispatcher from a provider-name -> Validator
// map, typically {"anthropic": anthropicClient, "openai": openAIClient}.
func NewMultiProvider(providers map[string]Validator) *MultiProvider {
	return &MultiProvider{providers: providers}
}

// Validate routes req to the Validator registered under req.Provider. An
// unknown provider fails closed with an error result, exactly like the
// source system's "Unknown LLM provider" branch.
func (m *MultiProvider) Validate(ctx context.Context, req Request) Result {
	v, ok := m.providers[req.Provider]
	if !ok {
		return Result{Passed: false, Response: fmt.Sprintf("Unknown LLM provider: %s", req.Provider), Error: true}
	}
	return v.Validate(ctx, req)
}
