// Package config provides configuration loading for the battkit CLI
package config

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/battkit/battkit/pkg/container"
	"github.com/battkit/battkit/pkg/errors"
)

// Config holds the tool-level settings shared by CLI commands
type Config struct {
	// Format is the default container format for new containers
	Format string `yaml:"format"`
	// CompressionLevel is the default compression level, 0-9
	CompressionLevel int `yaml:"compression_level"`
	// BatchSize is the default number of rows per on-disk chunk
	BatchSize int `yaml:"batch_size"`
	// Logging controls the CLI's log output
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig mirrors the logger package's configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		Format:           "arrow",
		CompressionLevel: 0,
		BatchSize:        container.DefaultBatchSize,
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Validate checks ranges and referenced names
func (c *Config) Validate() error {
	if _, ok := container.Get(c.Format); !ok {
		return errors.Newf(errors.ErrorTypeConfig, "",
			"unknown container format %q (available: %s)",
			c.Format, strings.Join(container.Formats(), ", "))
	}
	if c.CompressionLevel < 0 || c.CompressionLevel > 9 {
		return errors.Newf(errors.ErrorTypeConfig, "",
			"compression level %d outside range [0, 9]", c.CompressionLevel)
	}
	if c.BatchSize < 0 {
		return errors.Newf(errors.ErrorTypeConfig, "", "batch size must not be negative")
	}
	return nil
}

// Load reads a YAML configuration file, substituting ${VAR} references
// with environment variable values before parsing. Defaults fill any
// field the file leaves unset.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "", "failed to read config file")
	}

	cfg := Default()
	content := substituteEnvVars(string(data))
	if err := yaml.Unmarshal([]byte(content), cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "", "failed to parse config file")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes a configuration to a YAML file
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "", "failed to marshal config")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "", "failed to write config file")
	}
	return nil
}

// substituteEnvVars replaces ${VAR_NAME} with environment variable values
func substituteEnvVars(content string) string {
	for {
		start := strings.Index(content, "${")
		if start == -1 {
			break
		}
		end := strings.Index(content[start:], "}")
		if end == -1 {
			break
		}
		end += start

		varName := content[start+2 : end]
		content = content[:start] + os.Getenv(varName) + content[end+1:]
	}
	return content
}
