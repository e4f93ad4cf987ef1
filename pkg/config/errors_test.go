package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationErrorFormatting(t *testing.T) {
	withField := NewValidationError("database", "primary", "port", ErrInvalidValue)
	assert.Equal(t, `database 'primary': field 'port': invalid field value`, withField.Error())

	withoutField := NewValidationError("llm_provider", "", "", ErrMissingRequiredField)
	assert.Equal(t, `llm_provider '': missing required field`, withoutField.Error())

	assert.ErrorIs(t, withField, ErrInvalidValue)
}

func TestLoadErrorFormatting(t *testing.T) {
	loadErr := NewLoadError("policyaudit.yaml", ErrConfigNotFound)
	assert.Equal(t, "failed to load policyaudit.yaml: configuration file not found", loadErr.Error())
	assert.ErrorIs(t, loadErr, ErrConfigNotFound)
}

func TestSentinelErrorsAreDistinct(t *testing.T) {
	assert.False(t, errors.Is(ErrConfigNotFound, ErrInvalidYAML))
}
