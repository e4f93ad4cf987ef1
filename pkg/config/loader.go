package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// PolicyAuditYAMLConfig represents the complete policyaudit.yaml file
// structure: the system-level database and queue settings.
type PolicyAuditYAMLConfig struct {
	Database *DatabaseConfig `yaml:"database"`
	Queue    *QueueConfig    `yaml:"queue"`
}

// LLMProvidersYAMLConfig represents the complete llm-providers.yaml file
// structure.
type LLMProvidersYAMLConfig struct {
	LLMProviders map[string]LLMProviderConfig `yaml:"llm_providers"`
}

// Initialize loads, validates, and returns ready-to-use configuration.
// This is the primary entry point for configuration loading.
//
// Steps performed:
//  1. Load YAML files from configDir
//  2. Expand environment variables
//  3. Parse YAML into structs
//  4. Merge built-in + user-defined LLM providers
//  5. Apply defaults for any unset database/queue fields
//  6. Build the LLM provider registry
//  7. Validate all configuration
//  8. Return Config ready for use
func Initialize(_ context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("Initializing configuration")

	cfg, err := load(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	stats := cfg.Stats()
	log.Info("Configuration initialized successfully", "llm_providers", stats.LLMProviders)

	return cfg, nil
}

// load is the internal loader (not exported).
func load(configDir string) (*Config, error) {
	loader := &configLoader{configDir: configDir}

	sysConfig, err := loader.loadPolicyAuditYAML()
	if errors.Is(err, ErrConfigNotFound) {
		sysConfig, err = &PolicyAuditYAMLConfig{}, nil
	}
	if err != nil {
		return nil, NewLoadError("policyaudit.yaml", err)
	}

	llmProviders, err := loader.loadLLMProvidersYAML()
	if errors.Is(err, ErrConfigNotFound) {
		llmProviders, err = map[string]LLMProviderConfig{}, nil
	}
	if err != nil {
		return nil, NewLoadError("llm-providers.yaml", err)
	}

	llmProvidersMerged := mergeLLMProviders(GetBuiltinLLMProviders(), llmProviders)
	llmProviderRegistry := NewLLMProviderRegistry(llmProvidersMerged)

	database := sysConfig.Database
	if database == nil {
		database = DefaultDatabaseConfig()
	} else {
		applyDatabaseDefaults(database, DefaultDatabaseConfig())
	}

	queue := sysConfig.Queue
	if queue == nil {
		queue = DefaultQueueConfig()
	} else {
		applyQueueDefaults(queue, DefaultQueueConfig())
	}

	return &Config{
		configDir:           configDir,
		Database:            database,
		Queue:               queue,
		LLMProviderRegistry: llmProviderRegistry,
	}, nil
}

// applyDatabaseDefaults fills any zero-valued field of cfg with the
// matching value from defaults, leaving explicit user settings alone.
func applyDatabaseDefaults(cfg, defaults *DatabaseConfig) {
	if cfg.Host == "" {
		cfg.Host = defaults.Host
	}
	if cfg.Port == 0 {
		cfg.Port = defaults.Port
	}
	if cfg.User == "" {
		cfg.User = defaults.User
	}
	if cfg.SSLMode == "" {
		cfg.SSLMode = defaults.SSLMode
	}
	if cfg.MaxConns == 0 {
		cfg.MaxConns = defaults.MaxConns
	}
	if cfg.MinConns == 0 {
		cfg.MinConns = defaults.MinConns
	}
	if cfg.MaxConnLifetime == 0 {
		cfg.MaxConnLifetime = defaults.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime == 0 {
		cfg.MaxConnIdleTime = defaults.MaxConnIdleTime
	}
}

// applyQueueDefaults fills any zero-valued field of cfg with the
// matching value from defaults, leaving explicit user settings alone.
func applyQueueDefaults(cfg, defaults *QueueConfig) {
	if cfg.MaxConcurrentJobs == 0 {
		cfg.MaxConcurrentJobs = defaults.MaxConcurrentJobs
	}
	if cfg.JobTimeout == 0 {
		cfg.JobTimeout = defaults.JobTimeout
	}
	if cfg.GracefulShutdownTimeout == 0 {
		cfg.GracefulShutdownTimeout = defaults.GracefulShutdownTimeout
	}
}

// validate performs comprehensive validation on loaded configuration.
func validate(cfg *Config) error {
	validator := NewValidator(cfg)
	return validator.ValidateAll()
}

type configLoader struct {
	configDir string
}

func (l *configLoader) loadYAML(filename string, target any) error {
	path := filepath.Join(l.configDir, filename)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return err
	}

	// Expand ${ENV_VAR}/$ENV_VAR references before parsing. Missing
	// variables expand to empty string; validation catches the fields
	// that matters to.
	data = ExpandEnv(data)

	if err := yaml.Unmarshal(data, target); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	return nil
}

func (l *configLoader) loadPolicyAuditYAML() (*PolicyAuditYAMLConfig, error) {
	var config PolicyAuditYAMLConfig
	if err := l.loadYAML("policyaudit.yaml", &config); err != nil {
		return nil, err
	}
	return &config, nil
}

func (l *configLoader) loadLLMProvidersYAML() (map[string]LLMProviderConfig, error) {
	var config LLMProvidersYAMLConfig
	config.LLMProviders = make(map[string]LLMProviderConfig)

	if err := l.loadYAML("llm-providers.yaml", &config); err != nil {
		return nil, err
	}
	return config.LLMProviders, nil
}
