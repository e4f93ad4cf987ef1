package config

import (
	"fmt"
	"os"
)

// Validator validates configuration comprehensively with clear error messages.
type Validator struct {
	cfg *Config
}

// NewValidator creates a validator for the given configuration.
func NewValidator(cfg *Config) *Validator {
	return &Validator{cfg: cfg}
}

// ValidateAll performs comprehensive validation (fail-fast — stops at the
// first error). Database settings are validated before queue settings,
// and LLM providers last, mirroring startup dependency order: a broken
// store config should surface before a broken LLM provider config.
func (v *Validator) ValidateAll() error {
	if err := v.validateDatabase(); err != nil {
		return fmt.Errorf("database validation failed: %w", err)
	}
	if err := v.validateQueue(); err != nil {
		return fmt.Errorf("queue validation failed: %w", err)
	}
	if err := v.validateLLMProviders(); err != nil {
		return fmt.Errorf("LLM provider validation failed: %w", err)
	}
	return nil
}

func (v *Validator) validateDatabase() error {
	db := v.cfg.Database
	if db == nil {
		return fmt.Errorf("database configuration is nil")
	}
	if db.Database == "" {
		return NewValidationError("database", "", "database", ErrMissingRequiredField)
	}
	if db.Port <= 0 || db.Port > 65535 {
		return NewValidationError("database", "", "port", fmt.Errorf("must be between 1 and 65535, got %d", db.Port))
	}
	if db.MaxConns < 0 {
		return NewValidationError("database", "", "max_conns", fmt.Errorf("must be non-negative"))
	}
	if db.MinConns < 0 {
		return NewValidationError("database", "", "min_conns", fmt.Errorf("must be non-negative"))
	}
	if db.MaxConns > 0 && db.MinConns > db.MaxConns {
		return NewValidationError("database", "", "min_conns", fmt.Errorf("must not exceed max_conns (%d), got %d", db.MaxConns, db.MinConns))
	}
	return nil
}

func (v *Validator) validateQueue() error {
	q := v.cfg.Queue
	if q == nil {
		return fmt.Errorf("queue configuration is nil")
	}
	if q.MaxConcurrentJobs < 0 {
		return NewValidationError("queue", "", "max_concurrent_jobs", fmt.Errorf("must be non-negative (0 means unbounded)"))
	}
	if q.JobTimeout < 0 {
		return NewValidationError("queue", "", "job_timeout", fmt.Errorf("must be non-negative (0 means no deadline)"))
	}
	if q.GracefulShutdownTimeout <= 0 {
		return NewValidationError("queue", "", "graceful_shutdown_timeout", fmt.Errorf("must be positive"))
	}
	return nil
}

func (v *Validator) validateLLMProviders() error {
	providers := v.cfg.LLMProviderRegistry.GetAll()
	if len(providers) == 0 {
		return NewValidationError("llm_provider", "", "", fmt.Errorf("at least one LLM provider must be configured"))
	}

	for name, provider := range providers {
		if !provider.Type.IsValid() {
			return NewValidationError("llm_provider", name, "type", fmt.Errorf("invalid provider type: %s", provider.Type))
		}
		if provider.Model == "" {
			return NewValidationError("llm_provider", name, "model", ErrMissingRequiredField)
		}
		if provider.APIKeyEnv != "" {
			if value := os.Getenv(provider.APIKeyEnv); value == "" {
				return NewValidationError("llm_provider", name, "api_key_env", fmt.Errorf("environment variable %s is not set", provider.APIKeyEnv))
			}
		}
	}

	return nil
}
