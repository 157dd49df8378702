// Package config provides environment-variable-first configuration loading
// with optional YAML file fallback for the mail sink.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	BackendDisk   = "disk"
	BackendStdout = "stdout"
	BackendSES    = "ses"
)

// Config holds the complete application configuration.
type Config struct {
	SMTP    SMTPConfig    `yaml:"smtp"`
	Store   StoreConfig   `yaml:"store"`
	SES     SESConfig     `yaml:"ses"`
	Logging LoggingConfig `yaml:"logging"`
}

// SMTPConfig holds SMTP server configuration.
type SMTPConfig struct {
	Listen string `yaml:"listen"`
	Banner string `yaml:"banner"`
}

// StoreConfig selects where accepted messages go.
type StoreConfig struct {
	Backend string `yaml:"backend"`
	Root    string `yaml:"root"`
}

// SESConfig holds AWS SES configuration for the ses backend.
type SESConfig struct {
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	Sender          string `yaml:"sender"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load loads configuration from environment variables with sensible defaults.
// Environment variables always take precedence.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()
	cfg.applyEnvVars()
	return cfg, nil
}

// LoadFromFile loads configuration from a YAML file as the base layer,
// then overrides with environment variables. Returns an error if the
// specified file path does not exist.
func LoadFromFile(path string) (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Environment variables always override YAML values
	cfg.applyEnvVars()

	cfg.Store.Backend = strings.ToLower(cfg.Store.Backend)

	return cfg, nil
}

// SESConfigured returns true if the region and sender required by the SES
// backend are set. Static credentials are optional.
func (c *Config) SESConfigured() bool {
	return c.SES.Region != "" && c.SES.Sender != ""
}

// applyDefaults sets sensible default values for all configuration fields.
func (c *Config) applyDefaults() {
	c.SMTP.Listen = "127.0.0.1:2525"
	c.SMTP.Banner = "SampleSMTP"
	c.Store.Backend = BackendDisk
	c.Store.Root = "mail"
	c.Logging.Level = "info"
}

// applyEnvVars overrides configuration with environment variable values.
// Only non-empty environment variables override existing values.
func (c *Config) applyEnvVars() {
	if v := os.Getenv("SMTP_LISTEN"); v != "" {
		c.SMTP.Listen = v
	}
	if v := os.Getenv("SMTP_BANNER"); v != "" {
		c.SMTP.Banner = v
	}

	if v := os.Getenv("STORE_BACKEND"); v != "" {
		c.Store.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("STORE_ROOT"); v != "" {
		c.Store.Root = v
	}

	if v := os.Getenv("SES_REGION"); v != "" {
		c.SES.Region = v
	}
	if v := os.Getenv("SES_ACCESS_KEY_ID"); v != "" {
		c.SES.AccessKeyID = v
	}
	if v := os.Getenv("SES_SECRET_ACCESS_KEY"); v != "" {
		c.SES.SecretAccessKey = v
	}
	if v := os.Getenv("SES_SENDER"); v != "" {
		c.SES.Sender = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
}
