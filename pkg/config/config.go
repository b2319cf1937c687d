/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the prbuf tool configuration
type Config struct {
	Region    Region    `yaml:"region"`
	Collector Collector `yaml:"collector"`
	Server    Server    `yaml:"server"`
	Archive   Archive   `yaml:"archive"`
	Kafka     Kafka     `yaml:"kafka"`
	Logging   Logging   `yaml:"logging"`
}

// Region describes where the ring buffer lives
type Region struct {
	Path string `yaml:"path"`
	Size int    `yaml:"size"`
	// Mmap maps Path shared; otherwise the region is an in-memory slice and
	// is lost with the process.
	Mmap bool `yaml:"mmap"`
}

// Collector tunes the writer side
type Collector struct {
	MaxBodyBytes   int  `yaml:"max_body_bytes"`
	ResetOnCorrupt bool `yaml:"reset_on_corrupt"`
}

// Server contains HTTP service configuration
type Server struct {
	Bind   string `yaml:"bind"`
	Port   int    `yaml:"port"`
	APIKey string `yaml:"api_key"`
}

// Archive is the pebble store recovered entries are copied into
type Archive struct {
	Dir string `yaml:"dir"`
}

// Kafka is where recovered entries are forwarded
type Kafka struct {
	Brokers []string `yaml:"brokers,omitempty"`
	Topic   string   `yaml:"topic"`
}

// Logging contains logging configuration
type Logging struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Region: Region{
			Path: "./prbuf.region",
			Size: 1 << 20,
			Mmap: true,
		},
		Collector: Collector{
			MaxBodyBytes: 16 << 10,
		},
		Server: Server{
			Bind:   "127.0.0.1",
			Port:   8080,
			APIKey: "auto",
		},
		Archive: Archive{
			Dir: "./archive",
		},
		Kafka: Kafka{
			Topic: "prbuf-entries",
		},
		Logging: Logging{
			Level: "info",
		},
	}
}

// Validate reports the first problem that would stop the tools from starting
func (c *Config) Validate() error {
	var errs []error
	if c.Region.Size <= 16 {
		errs = append(errs, fmt.Errorf("region.size must be larger than 16, got %d", c.Region.Size))
	}
	if c.Region.Size > 1<<31-1 {
		errs = append(errs, fmt.Errorf("region.size %d exceeds 2GiB", c.Region.Size))
	}
	if c.Region.Mmap && c.Region.Path == "" {
		errs = append(errs, errors.New("region.path is required when region.mmap is set"))
	}
	if c.Collector.MaxBodyBytes < 0 {
		errs = append(errs, fmt.Errorf("collector.max_body_bytes must not be negative, got %d", c.Collector.MaxBodyBytes))
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level %q unknown", c.Logging.Level))
	}
	return errors.Join(errs...)
}

// LoadConfig loads configuration from the specified path
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	// Validate path to prevent directory traversal
	if !filepath.IsAbs(configPath) {
		absPath, err := filepath.Abs(configPath)
		if err != nil {
			return nil, fmt.Errorf("invalid config path: %w", err)
		}
		configPath = absPath
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Start from defaults so a partial file only overrides what it names.
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveConfig saves the configuration to the specified path with secure permissions
func SaveConfig(config *Config, configPath string) error {
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write with secure permissions (0600)
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GenerateSecureKey generates a cryptographically secure random key
func GenerateSecureKey(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate secure key: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// BootstrapConfig writes a default configuration with a generated API key.
// regionPath overrides the default region path when not empty.
func BootstrapConfig(configPath string, regionPath string) (*Config, error) {
	config := DefaultConfig()
	if regionPath != "" {
		config.Region.Path = regionPath
	}

	apiKey, err := GenerateSecureKey(32) // 256 bits
	if err != nil {
		return nil, fmt.Errorf("failed to generate API key: %w", err)
	}
	config.Server.APIKey = apiKey

	if err := SaveConfig(config, configPath); err != nil {
		return nil, fmt.Errorf("failed to save bootstrap config: %w", err)
	}

	return config, nil
}

// GetDefaultConfigPath returns the default configuration path for the current platform
func GetDefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./prbuf.yaml"
	}

	// For Linux/macOS, use ~/.config/prbuf/config.yaml
	return filepath.Join(homeDir, ".config", "prbuf", "config.yaml")
}

// ConfigExists checks if a configuration file exists
func ConfigExists(configPath string) bool {
	_, err := os.Stat(configPath)
	return !os.IsNotExist(err)
}
