package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the application's configuration.
type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Scratch struct {
		Dir        string `yaml:"dir"`
		TTLSeconds int    `yaml:"ttl_seconds"`
	} `yaml:"scratch"`
	Pipeline struct {
		MinCategoryCount int      `yaml:"min_category_count"`
		RequiredColumns  []string `yaml:"required_columns"`
	} `yaml:"pipeline"`
	Output struct {
		// Transport is "link" (download link served by this process) or
		// "path" (location on the shared scratch filesystem).
		Transport string `yaml:"transport"`
	} `yaml:"output"`
}

// LoadConfig reads configuration from the specified YAML file, then applies
// environment overrides. A missing file is not an error: deployments that
// configure purely through the environment get the defaults as a base.
func LoadConfig(configPath string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config file: %w", err)
		}
	case os.IsNotExist(err):
		// fall through to env overrides
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

func defaults() *Config {
	cfg := &Config{}
	cfg.Server.Port = ":8080"
	cfg.Scratch.Dir = os.TempDir()
	cfg.Scratch.TTLSeconds = 600
	cfg.Pipeline.MinCategoryCount = 2
	cfg.Output.Transport = "link"
	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if !strings.HasPrefix(v, ":") {
			v = ":" + v
		}
		c.Server.Port = v
	}
	if v := os.Getenv("SCRATCH_DIR"); v != "" {
		c.Scratch.Dir = v
	}
	if v := os.Getenv("ARTIFACT_TTL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Scratch.TTLSeconds = n
		}
	}
	if v := os.Getenv("MIN_CATEGORY_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Pipeline.MinCategoryCount = n
		}
	}
	if v := os.Getenv("OUTPUT_TRANSPORT"); v != "" {
		c.Output.Transport = v
	}
}
