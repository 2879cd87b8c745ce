package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// configValidate is the validator instance for model definitions.
var configValidate = validator.New()

// LoadFile reads and validates a YAML model definition.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model file %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML model definition.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, &ConfigurationError{Reason: fmt.Sprintf("invalid YAML: %v", err)}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks struct tags and cross references.
func (c *Config) Validate() error {
	if err := configValidate.Struct(c); err != nil {
		return &ConfigurationError{Reason: err.Error()}
	}

	seen := make(map[string]bool, len(c.Time.Steps))
	for _, st := range c.Time.Steps {
		if seen[st.Label] {
			return &ConfigurationError{Key: "time.steps", Reason: "duplicate timestep " + st.Label}
		}
		seen[st.Label] = true
	}
	for from, to := range c.Time.Links {
		if !seen[from] || !seen[to] {
			return &ConfigurationError{Key: "time.links", Reason: fmt.Sprintf("link %s -> %s references an unknown timestep", from, to)}
		}
	}

	for name, loc := range c.Locations {
		if loc.Within == "" {
			continue
		}
		parent, ok := c.Locations[loc.Within]
		if !ok {
			return &ConfigurationError{Location: name, Reason: "within references unknown location " + loc.Within}
		}
		if parent.Level >= loc.Level {
			return &ConfigurationError{Location: name, Reason: fmt.Sprintf("level %d must be deeper than level %d of %s", loc.Level, parent.Level, loc.Within)}
		}
	}

	for tech, locs := range c.Data.Resource {
		for loc, series := range locs {
			if len(series) != len(c.Time.Steps) {
				return &ConfigurationError{Key: "data.resource", Technology: tech, Location: loc,
					Reason: fmt.Sprintf("series has %d values for %d timesteps", len(series), len(c.Time.Steps))}
			}
		}
	}
	for tech, locs := range c.Data.Efficiency {
		for loc, series := range locs {
			if len(series) != len(c.Time.Steps) {
				return &ConfigurationError{Key: "data.efficiency", Technology: tech, Location: loc,
					Reason: fmt.Sprintf("series has %d values for %d timesteps", len(series), len(c.Time.Steps))}
			}
		}
	}
	return nil
}
