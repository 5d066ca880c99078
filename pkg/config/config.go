// Package config holds the replay tool configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration for the replay tool.
type Config struct {
	// Trace names the capture to replay
	Trace TraceConfig `yaml:"trace" json:"trace" mapstructure:"trace"`

	// Trackers selects which built-in observers run
	Trackers TrackersConfig `yaml:"trackers" json:"trackers" mapstructure:"trackers"`

	// Relay configures the optional NATS forwarder
	Relay RelayConfig `yaml:"relay" json:"relay" mapstructure:"relay"`
}

// TraceConfig names the capture file to replay.
type TraceConfig struct {
	Path string `yaml:"path" json:"path" mapstructure:"path"`
}

// TrackersConfig selects which built-in observers run.
type TrackersConfig struct {
	Enabled []string `yaml:"enabled" json:"enabled" mapstructure:"enabled"`
}

// RelayConfig configures the optional NATS forwarder.
type RelayConfig struct {
	Enabled       bool   `yaml:"enabled" json:"enabled" mapstructure:"enabled"`
	URL           string `yaml:"url" json:"url" mapstructure:"url"`
	SubjectPrefix string `yaml:"subject_prefix" json:"subject_prefix" mapstructure:"subject_prefix"`
}

// LoadConfig loads configuration from a YAML or JSON file, determined
// by extension, and applies defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := &Config{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, config)
	case ".json":
		err = json.Unmarshal(data, config)
	default:
		// Try YAML first, then JSON
		err = yaml.Unmarshal(data, config)
		if err != nil {
			err = json.Unmarshal(data, config)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	config.ApplyDefaults()
	return config, nil
}

// DefaultConfig returns a config with every default applied.
func DefaultConfig() *Config {
	c := &Config{}
	c.ApplyDefaults()
	return c
}

// ApplyDefaults sets default values for missing fields.
func (c *Config) ApplyDefaults() {
	if len(c.Trackers.Enabled) == 0 {
		c.Trackers.Enabled = []string{"procs", "modules"}
	}
	if c.Relay.URL == "" {
		c.Relay.URL = "nats://localhost:4222"
	}
	if c.Relay.SubjectPrefix == "" {
		c.Relay.SubjectPrefix = "etwtap.events"
	}
}

// Validate checks the configuration for contradictions.
func (c *Config) Validate() error {
	for _, name := range c.Trackers.Enabled {
		switch name {
		case "procs", "modules":
		default:
			return fmt.Errorf("unknown tracker %q", name)
		}
	}
	if c.Relay.Enabled && c.Relay.URL == "" {
		return fmt.Errorf("relay enabled but no url configured")
	}
	return nil
}
