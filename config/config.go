package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port       int    `toml:"port"`
	CORSOrigin string `toml:"cors_origin"`
}

// RedditConfig holds Reddit API client settings
type RedditConfig struct {
	UserAgent      string `toml:"user_agent"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// ExtractorConfig selects and tunes the keyword extraction strategy.
// Strategy is "textrazor" or "local"; the choice is a deployment decision
// made once at startup, not a runtime switch.
type ExtractorConfig struct {
	Strategy       string `toml:"strategy"`
	Endpoint       string `toml:"endpoint,omitempty"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Config represents the top-level configuration
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Reddit    RedditConfig    `toml:"reddit"`
	Extractor ExtractorConfig `toml:"extractor"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:       3000,
			CORSOrigin: "http://localhost:3001",
		},
		Reddit: RedditConfig{
			UserAgent:      "subsight/0.1",
			TimeoutSeconds: 10,
		},
		Extractor: ExtractorConfig{
			Strategy:       "textrazor",
			TimeoutSeconds: 15,
		},
	}
}

// LoadConfig reads the TOML config at path on top of the defaults. A missing
// file is not an error; the defaults apply.
func LoadConfig(path string) (*Config, error) {
	config := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return config, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return config, nil
}

func (c *RedditConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c *ExtractorConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}
