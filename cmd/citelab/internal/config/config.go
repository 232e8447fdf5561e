package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	// ConfigFileName is the name of the config file
	ConfigFileName = "config.yaml"

	// DefaultConfigDir is the default directory for citelab configuration
	// This will be ~/.config/citelab/ on Unix systems
	DefaultConfigDir = ".config/citelab"
)

// Config represents the citelab configuration
type Config struct {
	// Addr is the listen address for the serve command
	Addr string `yaml:"addr,omitempty" validate:"required"`

	// InitialText seeds new editing sessions
	InitialText string `yaml:"initial_text,omitempty"`

	// MaxSessions bounds concurrently open sessions on the server
	MaxSessions int `yaml:"max_sessions,omitempty" validate:"gte=1"`

	// SessionTTLMinutes expires idle sessions
	SessionTTLMinutes int `yaml:"session_ttl_minutes,omitempty" validate:"gte=1"`

	// MaxMemoryKB budgets session state across the server
	MaxMemoryKB int `yaml:"max_memory_kb,omitempty" validate:"gte=1"`

	// MetricsEnabled controls the counter collector
	MetricsEnabled bool `yaml:"metrics_enabled"`

	// Version tracks the config file version for future migrations
	Version string `yaml:"version,omitempty"`
}

// DefaultConfig returns a new Config with default values
func DefaultConfig() *Config {
	return &Config{
		Addr:              ":8080",
		MaxSessions:       256,
		SessionTTLMinutes: 24 * 60,
		MaxMemoryKB:       4096,
		MetricsEnabled:    true,
		Version:           "1.0",
	}
}

// Validate checks the configuration against its constraints
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// GetConfigPath returns the path to the config file
func GetConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	return filepath.Join(homeDir, DefaultConfigDir, ConfigFileName), nil
}

// EnsureConfigDir creates the config directory if it doesn't exist
func EnsureConfigDir() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	configDir := filepath.Join(homeDir, DefaultConfigDir)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return nil
}

// LoadConfig loads the configuration from the config file
// If the file doesn't exist, returns a default config
func LoadConfig() (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	return LoadConfigFile(configPath)
}

// LoadConfigFile loads the configuration from an explicit path
func LoadConfigFile(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// SaveConfig saves the configuration to the config file
func SaveConfig(config *Config) error {
	if err := EnsureConfigDir(); err != nil {
		return err
	}

	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
