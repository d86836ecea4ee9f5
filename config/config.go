package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Load reads and validates a kaizen configuration file, filling in the
// same style of zero-value defaults as wilson/config.Load (max_retries,
// base_branch, pr_strategy).
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		return nil, fmt.Errorf("config path is required")
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	absConfigPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path: %w", err)
	}
	cfg.configDir = filepath.Dir(absConfigPath)

	if err := applyDefaults(&cfg); err != nil {
		return nil, err
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes cfg back to configPath as YAML, for commands (augment) that
// extend an already-loaded configuration and persist the result.
func Save(cfg *Config, configPath string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func applyDefaults(cfg *Config) error {
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 1
	}
	if cfg.BaseBranch == "" {
		cfg.BaseBranch = "main"
	}
	if cfg.PRStrategy == "" {
		cfg.PRStrategy = PRStrategyAllPassing
	}
	if cfg.Agent.FallbackToFunction == nil {
		defaultTrue := true
		cfg.Agent.FallbackToFunction = &defaultTrue
	}
	return nil
}

// Validate checks that the required configuration keys are present and
// internally consistent.
func Validate(cfg *Config) error {
	if cfg.Name == "" {
		return fmt.Errorf("config: 'name' is required")
	}
	if cfg.FilePath == "" {
		return fmt.Errorf("config: 'file_path' is required")
	}
	if cfg.Agent.Module == "" {
		return fmt.Errorf("config: 'agent.module' is required")
	}
	if cfg.Agent.Class == "" && cfg.Agent.Method == "" {
		return fmt.Errorf("config: 'agent' must specify at least one of class or method")
	}
	if len(cfg.Steps) == 0 {
		return fmt.Errorf("config: 'steps' must contain at least one test case")
	}
	switch cfg.PRStrategy {
	case PRStrategyAllPassing, PRStrategyAnyImprovement, PRStrategyNone:
	default:
		return fmt.Errorf("config: invalid pr_strategy %q", cfg.PRStrategy)
	}
	if cfg.MaxRetries < 0 {
		return fmt.Errorf("config: max_retries must be >= 0")
	}
	return nil
}

// ResolvedFilePath returns FilePath resolved against the directory that
// contained the configuration file.
func (c *Config) ResolvedFilePath() string {
	if filepath.IsAbs(c.FilePath) {
		return c.FilePath
	}
	return filepath.Join(c.configDir, c.FilePath)
}

// ResolvePath resolves an arbitrary config-relative path (referenced_files,
// files_to_fix entries) the same way.
func (c *Config) ResolvePath(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.configDir, p)
}

// ConfigDir exposes the directory the configuration file was loaded from.
func (c *Config) ConfigDir() string {
	return c.configDir
}
