package gateflow

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gateflow/gateflow/policy"
)

// Config is a serialisable representation of the service configuration. It
// can be populated from JSON, YAML, environment variables, etc. The
// zero-value is useful – all nested fields inherit their package defaults.
type Config struct {
	Engine EngineConfig   `json:"engine" yaml:"engine"`
	Policy *policy.Config `json:"policy,omitempty" yaml:"policy,omitempty"`
}

type EngineConfig struct {
	WorkerCount int           `json:"workers" yaml:"workers"`
	MaxRetries  int           `json:"maxRetries" yaml:"maxRetries"`
	RetryDelay  time.Duration `json:"retryDelay" yaml:"retryDelay"`
}

// DefaultConfig returns a Config populated with the same default values the
// constructors use. Callers may modify the returned struct before passing it
// to New via WithConfig.
func DefaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			WorkerCount: 5,
			MaxRetries:  1,
			RetryDelay:  3 * time.Second,
		},
	}
}

// Validate returns aggregated error describing invalid settings or nil.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	if c.Engine.WorkerCount <= 0 {
		return fmt.Errorf("engine.workers must be > 0")
	}
	if c.Engine.MaxRetries < 0 {
		return fmt.Errorf("engine.maxRetries must be >= 0")
	}
	return nil
}

// LoadConfig reads a YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}
