package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultDt        = 0.01
	DefaultDuration  = 10.0
	DefaultMethod    = "dense"
	DefaultSparseTol = 1e-10
	DefaultLogLevel  = "info"
)

// EventConfig schedules a parameter change during the run.
type EventConfig struct {
	Time  float64 `yaml:"time"`
	Param string  `yaml:"param"`
	Value float64 `yaml:"value"`
}

type Config struct {
	Model    string  `yaml:"model"`
	Method   string  `yaml:"method"`
	Dt       float64 `yaml:"dt"`
	Duration float64 `yaml:"duration"`

	SparseTol     float64 `yaml:"sparse_tol"`
	SparseMaxIter int     `yaml:"sparse_max_iter"`

	VerboseFailures bool   `yaml:"verbose_failures"`
	AbortOnFailure  bool   `yaml:"abort_on_failure"`
	LogLevel        string `yaml:"log_level"`

	Params map[string]float64 `yaml:"params"`
	Events []EventConfig      `yaml:"events"`
}

func DefaultConfig() *Config {
	return &Config{
		Model:           "heatrod",
		Method:          DefaultMethod,
		Dt:              DefaultDt,
		Duration:        DefaultDuration,
		SparseTol:       DefaultSparseTol,
		VerboseFailures: true,
		LogLevel:        DefaultLogLevel,
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks the fields that are cheap to get wrong in a hand-written
// file.
func (c *Config) Validate() error {
	if c.Dt <= 0 {
		return fmt.Errorf("dt must be positive, got %g", c.Dt)
	}
	if c.Duration <= 0 {
		return fmt.Errorf("duration must be positive, got %g", c.Duration)
	}
	if c.SparseTol < 0 {
		return fmt.Errorf("sparse_tol must not be negative, got %g", c.SparseTol)
	}
	for i, ev := range c.Events {
		if ev.Param == "" {
			return fmt.Errorf("event %d has no param", i)
		}
		if i > 0 && ev.Time < c.Events[i-1].Time {
			return fmt.Errorf("events must be sorted by time (event %d at t=%g)", i, ev.Time)
		}
	}
	return nil
}
