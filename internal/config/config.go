// Package config resolves the server configuration from an optional YAML
// file and environment variables. Environment variables take precedence
// over the file; everything is read once at process start.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DatabricksHostEnvVar  = "DATABRICKS_HOST"
	DatabricksTokenEnvVar = "DATABRICKS_TOKEN"
	WarehouseIDEnvVar     = "DATABRICKS_WAREHOUSE_ID"
	AnthropicAPIKeyEnvVar = "ANTHROPIC_API_KEY"
	AnthropicModelEnvVar  = "ANTHROPIC_MODEL"
	QueryTimeoutSecEnvVar = "QUERY_TIMEOUT_SEC"

	// QueryTimeoutSecDefault is the maximum time in seconds the SQL
	// executor waits for a statement to reach a terminal state.
	QueryTimeoutSecDefault = 30

	// AnthropicModelDefault is the model used for natural language to SQL
	// conversion unless overridden.
	AnthropicModelDefault = "claude-sonnet-4-20250514"
)

// Config holds all externally sourced configuration for the server.
type Config struct {
	DatabricksHost  string `yaml:"databricks_host"`
	DatabricksToken string `yaml:"databricks_token"`
	WarehouseID     string `yaml:"warehouse_id"`
	AnthropicAPIKey string `yaml:"anthropic_api_key"`
	AnthropicModel  string `yaml:"anthropic_model"`
	QueryTimeoutSec int    `yaml:"query_timeout_sec"`
}

// Load reads the configuration from the given YAML file (if path is
// non-empty) and then overlays environment variables on top of it.
func Load(path string) (*Config, error) {
	c := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, c); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if v := os.Getenv(DatabricksHostEnvVar); v != "" {
		c.DatabricksHost = v
	}
	if v := os.Getenv(DatabricksTokenEnvVar); v != "" {
		c.DatabricksToken = v
	}
	if v := os.Getenv(WarehouseIDEnvVar); v != "" {
		c.WarehouseID = v
	}
	if v := os.Getenv(AnthropicAPIKeyEnvVar); v != "" {
		c.AnthropicAPIKey = v
	}
	if v := os.Getenv(AnthropicModelEnvVar); v != "" {
		c.AnthropicModel = v
	}
	if v := os.Getenv(QueryTimeoutSecEnvVar); v != "" {
		sec, err := strconv.Atoi(v)
		if err != nil || sec < 1 {
			return nil, fmt.Errorf(
				"invalid value for %s: '%s', must be a positive integer", QueryTimeoutSecEnvVar, v,
			)
		}
		c.QueryTimeoutSec = sec
	}

	if c.AnthropicModel == "" {
		c.AnthropicModel = AnthropicModelDefault
	}
	if c.QueryTimeoutSec == 0 {
		c.QueryTimeoutSec = QueryTimeoutSecDefault
	}

	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) validate() error {
	if c.DatabricksHost == "" {
		return fmt.Errorf("databricks host is not set, set the %s environment variable", DatabricksHostEnvVar)
	}
	if c.DatabricksToken == "" {
		return fmt.Errorf("databricks token is not set, set the %s environment variable", DatabricksTokenEnvVar)
	}
	return nil
}

// QueryTimeout returns the SQL wait budget as a duration.
func (c *Config) QueryTimeout() time.Duration {
	return time.Duration(c.QueryTimeoutSec) * time.Second
}

// NLEnabled reports whether the natural language to SQL tool is usable.
// Absence of the Anthropic API key disables only that tool, not the rest
// of the surface.
func (c *Config) NLEnabled() bool {
	return c.AnthropicAPIKey != ""
}
