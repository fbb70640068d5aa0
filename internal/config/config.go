// Package config loads the engine configuration from .bde/config.json.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config represents the complete BDE configuration (v1 schema)
type Config struct {
	Version int    `json:"version" mapstructure:"version"`
	Root    string `json:"root" mapstructure:"root"`

	Analyzer    AnalyzerConfig    `json:"analyzer" mapstructure:"analyzer"`
	Diagnostics DiagnosticsConfig `json:"diagnostics" mapstructure:"diagnostics"`
	Registry    RegistryConfig    `json:"registry" mapstructure:"registry"`
	Build       BuildConfig       `json:"build" mapstructure:"build"`
	Storage     StorageConfig     `json:"storage" mapstructure:"storage"`
	Logging     LoggingConfig     `json:"logging" mapstructure:"logging"`
}

// AnalyzerConfig contains dependency analysis configuration
type AnalyzerConfig struct {
	// MinConfidence is the detection threshold below which a build system
	// candidate is not parsed
	MinConfidence float64 `json:"minConfidence" mapstructure:"minConfidence"`
	// Systems restricts analysis to the named build systems; empty means all
	Systems []string `json:"systems" mapstructure:"systems"`
}

// DiagnosticsConfig contains the repair loop configuration
type DiagnosticsConfig struct {
	MinConfidence float64 `json:"minConfidence" mapstructure:"minConfidence"`
	AutoApply     bool    `json:"autoApply" mapstructure:"autoApply"`
	MaxAttempts   int     `json:"maxAttempts" mapstructure:"maxAttempts"`
}

// RegistryConfig contains issue registry configuration
type RegistryConfig struct {
	// Path points at the YAML or TOML registry document
	Path string `json:"path" mapstructure:"path"`
}

// BuildConfig contains build invocation configuration
type BuildConfig struct {
	// TimeoutSeconds bounds one build invocation; zero means no timeout
	TimeoutSeconds int `json:"timeoutSeconds" mapstructure:"timeoutSeconds"`
	// CaptureLimitBytes bounds stdout/stderr capture per stream
	CaptureLimitBytes int `json:"captureLimitBytes" mapstructure:"captureLimitBytes"`
}

// StorageConfig contains snapshot storage configuration
type StorageConfig struct {
	Enabled bool `json:"enabled" mapstructure:"enabled"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format"`
	Level  string `json:"level" mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Root:    ".",
		Analyzer: AnalyzerConfig{
			MinConfidence: 0.2,
			Systems:       []string{},
		},
		Diagnostics: DiagnosticsConfig{
			MinConfidence: 0.5,
			AutoApply:     false,
			MaxAttempts:   3,
		},
		Registry: RegistryConfig{
			Path: ".bde/registry.yaml",
		},
		Build: BuildConfig{
			TimeoutSeconds:    600,
			CaptureLimitBytes: 256 * 1024,
		},
		Storage: StorageConfig{
			Enabled: true,
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "info",
		},
	}
}

// LoadConfig loads configuration from .bde/config.json, falling back to
// defaults when no config file exists.
func LoadConfig(root string) (*Config, error) {
	v := viper.New()

	v.SetDefault("version", 1)
	v.SetDefault("root", ".")

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(root, ".bde"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the configuration to .bde/config.json
func (c *Config) Save(root string) error {
	dir := filepath.Join(root, ".bde")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0644)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != 1 {
		return &ConfigError{Field: "version", Message: "unsupported config version"}
	}
	if c.Analyzer.MinConfidence < 0 || c.Analyzer.MinConfidence > 1 {
		return &ConfigError{Field: "analyzer.minConfidence", Message: "must be between 0 and 1"}
	}
	if c.Diagnostics.MinConfidence < 0 || c.Diagnostics.MinConfidence > 1 {
		return &ConfigError{Field: "diagnostics.minConfidence", Message: "must be between 0 and 1"}
	}
	if c.Diagnostics.MaxAttempts < 0 {
		return &ConfigError{Field: "diagnostics.maxAttempts", Message: "must not be negative"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
