package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultDt        = 0.01
	DefaultDuration  = 10.0
	DefaultScheme    = "ssprk22"
	DefaultDiagram   = "simple_integrator"
	DefaultTolerance = 1e-12
	DefaultMaxIter   = 100
)

// Config describes one simulation run: which diagram to build, which scheme
// advances its integrators, and the time grid.
type Config struct {
	Diagram   string             `yaml:"diagram"`
	Scheme    string             `yaml:"scheme"`
	Dt        float64            `yaml:"dt"`
	Duration  float64            `yaml:"duration"`
	Tolerance float64            `yaml:"tolerance"`
	MaxIter   int                `yaml:"max_iter"`
	Params    map[string]float64 `yaml:"params"`
}

func DefaultConfig() *Config {
	return &Config{
		Diagram:   DefaultDiagram,
		Scheme:    DefaultScheme,
		Dt:        DefaultDt,
		Duration:  DefaultDuration,
		Tolerance: DefaultTolerance,
		MaxIter:   DefaultMaxIter,
		Params:    map[string]float64{},
	}
}

// Load reads a YAML config file on top of the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config as YAML.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks the time grid; diagram and scheme names are resolved by
// their registries.
func (c *Config) Validate() error {
	if c.Dt <= 0 {
		return fmt.Errorf("config: dt must be positive, got %f", c.Dt)
	}
	if c.Duration <= 0 {
		return fmt.Errorf("config: duration must be positive, got %f", c.Duration)
	}
	return nil
}
