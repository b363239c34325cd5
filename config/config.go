// Package config loads the sitegen YAML configuration.
package config

import (
	"fmt"
	"time"

	"github.com/fwojciec/sitegen"
)

// Backend names.
const (
	OutputFS          = "fs"
	OutputS3          = "s3"
	HistoryRedis      = "redis"
	HistoryNone       = "none"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// Config is the sitegen.yaml file. CLI flags override its values.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Output   OutputConfig   `yaml:"output"`
	Provider ProviderConfig `yaml:"provider"`
	History  HistoryConfig  `yaml:"history"`
	Build    BuildConfig    `yaml:"build"`
	Memory   MemoryConfig   `yaml:"memory"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Addr            string   `yaml:"addr"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

// OutputConfig selects where artifacts are written.
type OutputConfig struct {
	Root    string   `yaml:"root"`
	Backend string   `yaml:"backend"`
	S3      S3Config `yaml:"s3"`
}

// S3Config holds object-store settings for the s3 backend.
type S3Config struct {
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	PathStyle bool   `yaml:"path_style"`
}

// ProviderConfig selects the AI generation client.
type ProviderConfig struct {
	Name      string   `yaml:"name"`
	APIKey    string   `yaml:"api_key"`
	Model     string   `yaml:"model"`
	MaxTokens int      `yaml:"max_tokens"`
	Timeout   Duration `yaml:"timeout"`
}

// HistoryConfig selects the transcript sink.
type HistoryConfig struct {
	Backend string `yaml:"backend"`
	URL     string `yaml:"url"`
	Prefix  string `yaml:"prefix"`
	Retries int    `yaml:"retries"`
}

// BuildConfig configures the tool-project build.
type BuildConfig struct {
	Enabled bool     `yaml:"enabled"`
	NPM     string   `yaml:"npm"`
	Timeout Duration `yaml:"timeout"`
}

// MemoryConfig configures per-target conversation memory.
type MemoryConfig struct {
	Dir         string `yaml:"dir"`
	MaxMessages int    `yaml:"max_messages"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Server:   ServerConfig{Addr: ":8123", ShutdownTimeout: Duration{10 * time.Second}},
		Output:   OutputConfig{Root: "tmp/code_output", Backend: OutputFS},
		Provider: ProviderConfig{Name: ProviderAnthropic, Timeout: Duration{5 * time.Minute}},
		History:  HistoryConfig{Backend: HistoryNone, Prefix: "sitegen:history", Retries: 3},
		Build:    BuildConfig{Enabled: true, NPM: "npm", Timeout: Duration{5 * time.Minute}},
		Memory:   MemoryConfig{Dir: "tmp/memory", MaxMessages: 20},
		Log:      LogConfig{Level: "info"},
	}
}

// Validate checks cross-field constraints. Failures wrap ErrConfiguration.
func (c Config) Validate() error {
	switch c.Output.Backend {
	case OutputFS:
		if c.Output.Root == "" {
			return fmt.Errorf("output.root is required for the fs backend: %w", sitegen.ErrConfiguration)
		}
	case OutputS3:
		if c.Output.S3.Bucket == "" {
			return fmt.Errorf("output.s3.bucket is required for the s3 backend: %w", sitegen.ErrConfiguration)
		}
	default:
		return fmt.Errorf("unknown output.backend %q: %w", c.Output.Backend, sitegen.ErrConfiguration)
	}

	switch c.Provider.Name {
	case ProviderAnthropic, ProviderGemini:
	default:
		return fmt.Errorf("unknown provider.name %q: %w", c.Provider.Name, sitegen.ErrConfiguration)
	}
	if c.Provider.APIKey == "" {
		return fmt.Errorf("provider.api_key is required: %w", sitegen.ErrConfiguration)
	}

	switch c.History.Backend {
	case HistoryNone:
	case HistoryRedis:
		if c.History.URL == "" {
			return fmt.Errorf("history.url is required for the redis backend: %w", sitegen.ErrConfiguration)
		}
	default:
		return fmt.Errorf("unknown history.backend %q: %w", c.History.Backend, sitegen.ErrConfiguration)
	}

	if c.Memory.MaxMessages < 0 {
		return fmt.Errorf("memory.max_messages must be non-negative: %w", sitegen.ErrConfiguration)
	}
	return nil
}
