// Package config holds the YAML-backed engine configuration: parallelism,
// migration, cache sizing, random seeding and logging.
package config

import (
	"os"
	"runtime"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/pelago/pelago/pkg/errors"
)

// Config is the complete engine configuration.
type Config struct {
	Engine  EngineConfig  `yaml:"engine,omitempty" validate:"omitempty"`
	Cache   CacheConfig   `yaml:"cache,omitempty" validate:"omitempty"`
	Random  RandomConfig  `yaml:"random,omitempty"`
	Logging LoggingConfig `yaml:"logging,omitempty" validate:"omitempty"`
}

// EngineConfig shapes archipelago construction and evolution.
type EngineConfig struct {
	// MaxConcurrent bounds the goroutines used while building island
	// populations in batch. Zero selects runtime.NumCPU().
	MaxConcurrent int `yaml:"max_concurrent" validate:"min=0"`

	// Rounds is the number of algorithm invocations each island performs
	// per evolution cycle.
	Rounds int `yaml:"rounds" validate:"min=1"`

	// EmigrantCount is the number of individuals each island offers to its
	// neighbors during the migration phase.
	EmigrantCount int `yaml:"emigrant_count" validate:"min=1"`

	// Topology names the connect policy used when islands are pushed.
	Topology string `yaml:"topology" validate:"oneof=unconnected ring fully_connected"`
}

// CacheConfig sizes the per-problem evaluation caches.
type CacheConfig struct {
	// Capacity is the maximum number of memoized decision vectors per
	// cache. Zero selects the built-in default.
	Capacity int `yaml:"capacity" validate:"min=0"`
}

// RandomConfig seeds the random stream service.
type RandomConfig struct {
	// Seed for the generator factory. Zero means time-derived seeding.
	Seed int64 `yaml:"seed"`
}

// LoggingConfig configures the engine logger.
type LoggingConfig struct {
	Level string `yaml:"level" validate:"oneof=DEBUG INFO WARN ERROR FATAL"`

	// File receives a copy of the log stream when non-empty.
	File string `yaml:"file,omitempty"`

	Color bool `yaml:"color"`
}

// DefaultConfig returns the configuration used when no file is supplied.
func DefaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			MaxConcurrent: runtime.NumCPU(),
			Rounds:        1,
			EmigrantCount: 1,
			Topology:      "unconnected",
		},
		Cache: CacheConfig{
			Capacity: 0,
		},
		Random: RandomConfig{
			Seed: 0,
		},
		Logging: LoggingConfig{
			Level: "INFO",
			Color: true,
		},
	}
}

// LoadFromFile reads a YAML configuration file on top of the defaults and
// validates the result.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.InvalidInput, "failed to read config file"),
			errors.Fields{"path": path})
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.InvalidInput, "failed to parse config file"),
			errors.Fields{"path": path})
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks tag constraints plus the cross-field rules the tags
// cannot express.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return errors.Wrap(err, errors.ValidationFailed, "invalid configuration")
	}
	return nil
}
