package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Database: DefaultDatabaseConfig(),
		Queue:    DefaultQueueConfig(),
		LLMProviderRegistry: NewLLMProviderRegistry(map[string]*LLMProviderConfig{
			"anthropic": {Type: LLMProviderTypeAnthropic, Model: "claude-sonnet-4-5-20250929"},
		}),
	}
}

func TestValidatorValidateAllPasses(t *testing.T) {
	require.NoError(t, NewValidator(validConfig()).ValidateAll())
}

func TestValidatorRejectsMissingDatabaseName(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Database = ""

	err := NewValidator(cfg).ValidateAll()
	assert.Error(t, err)
}

func TestValidatorRejectsInvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Port = 70000

	err := NewValidator(cfg).ValidateAll()
	assert.Error(t, err)
}

func TestValidatorRejectsMinConnsAboveMaxConns(t *testing.T) {
	cfg := validConfig()
	cfg.Database.MaxConns = 5
	cfg.Database.MinConns = 10

	err := NewValidator(cfg).ValidateAll()
	assert.Error(t, err)
}

func TestValidatorRejectsZeroGracefulShutdownTimeout(t *testing.T) {
	cfg := validConfig()
	cfg.Queue.GracefulShutdownTimeout = 0

	err := NewValidator(cfg).ValidateAll()
	assert.Error(t, err)
}

func TestValidatorRejectsNoLLMProviders(t *testing.T) {
	cfg := validConfig()
	cfg.LLMProviderRegistry = NewLLMProviderRegistry(map[string]*LLMProviderConfig{})

	err := NewValidator(cfg).ValidateAll()
	assert.Error(t, err)
}

func TestValidatorRejectsInvalidProviderType(t *testing.T) {
	cfg := validConfig()
	cfg.LLMProviderRegistry = NewLLMProviderRegistry(map[string]*LLMProviderConfig{
		"broken": {Type: LLMProviderType("bedrock"), Model: "m"},
	})

	err := NewValidator(cfg).ValidateAll()
	assert.Error(t, err)
}

func TestValidatorRejectsMissingAPIKeyEnv(t *testing.T) {
	cfg := validConfig()
	cfg.LLMProviderRegistry = NewLLMProviderRegistry(map[string]*LLMProviderConfig{
		"anthropic": {Type: LLMProviderTypeAnthropic, Model: "claude-sonnet-4-5-20250929", APIKeyEnv: "DOES_NOT_EXIST_ENV_VAR"},
	})

	err := NewValidator(cfg).ValidateAll()
	assert.Error(t, err)
}

func TestValidatorAcceptsSetAPIKeyEnv(t *testing.T) {
	t.Setenv("TEST_VALIDATOR_KEY", "present")
	cfg := validConfig()
	cfg.LLMProviderRegistry = NewLLMProviderRegistry(map[string]*LLMProviderConfig{
		"anthropic": {Type: LLMProviderTypeAnthropic, Model: "claude-sonnet-4-5-20250929", APIKeyEnv: "TEST_VALIDATOR_KEY"},
	})

	assert.NoError(t, NewValidator(cfg).ValidateAll())
}
