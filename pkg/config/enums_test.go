package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLLMProviderTypeIsValid(t *testing.T) {
	tests := []struct {
		name  string
		typ   LLMProviderType
		valid bool
	}{
		{"anthropic", LLMProviderTypeAnthropic, true},
		{"openai", LLMProviderTypeOpenAI, true},
		{"invalid", LLMProviderType("bedrock"), false},
		{"empty", LLMProviderType(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.typ.IsValid())
		})
	}
}
