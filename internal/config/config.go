// Package config handles configuration loading and shared data structures.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the root configuration file structure.
type Config struct {
	Engine  Engine   `yaml:"engine" json:"engine"`
	Sources []Source `yaml:"sources,omitempty" json:"sources,omitempty"`
}

// Engine holds the quality-check and filter tuning knobs. All of them affect
// observable contracts, so they live in configuration rather than constants.
type Engine struct {
	// MaxCategoricalValues caps the categorical filter domain; columns with
	// more distinct values are left unfiltered.
	MaxCategoricalValues int `yaml:"max_categorical_values" json:"max_categorical_values"`
	// MaxFractionDigits is the decimal-digit budget per coordinate before a
	// vertex counts as excessively precise.
	MaxFractionDigits int `yaml:"max_fraction_digits" json:"max_fraction_digits"`
	// NumericRoundDecimals rounds inferred numeric bounds.
	NumericRoundDecimals int `yaml:"numeric_round_decimals" json:"numeric_round_decimals"`
	// RangeWidenAmount inflates the upper bound of a degenerate min==max range.
	RangeWidenAmount float64 `yaml:"range_widen_amount" json:"range_widen_amount"`
}

// Source is a named preset collection that can be loaded by name.
// Exactly one of URL, File or Inline should be set.
type Source struct {
	Name string `yaml:"name" json:"name"`
	URL  string `yaml:"url,omitempty" json:"url,omitempty"`
	File string `yaml:"file,omitempty" json:"-"`

	// Inline carries a GeoJSON document directly in config.yaml,
	// as a literal block so the original bytes survive untouched.
	Inline string `yaml:"inline,omitempty" json:"-"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

// Load reads and parses the YAML configuration file from the specified path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.setDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.Engine.MaxCategoricalValues <= 0 {
		c.Engine.MaxCategoricalValues = 100
	}
	if c.Engine.MaxFractionDigits <= 0 {
		c.Engine.MaxFractionDigits = 6
	}
	if c.Engine.NumericRoundDecimals < 0 {
		c.Engine.NumericRoundDecimals = 0
	}
	if c.Engine.NumericRoundDecimals == 0 {
		c.Engine.NumericRoundDecimals = 2
	}
	if c.Engine.RangeWidenAmount <= 0 {
		c.Engine.RangeWidenAmount = 1
	}
}

func (c *Config) validate() error {
	seen := make(map[string]bool)
	for _, s := range c.Sources {
		if s.Name == "" {
			return fmt.Errorf("config: source without a name")
		}
		if seen[s.Name] {
			return fmt.Errorf("config: duplicate source name %q", s.Name)
		}
		seen[s.Name] = true

		set := 0
		for _, v := range []string{s.URL, s.File, s.Inline} {
			if v != "" {
				set++
			}
		}
		if set != 1 {
			return fmt.Errorf("config: source %q must set exactly one of url, file or inline", s.Name)
		}
	}
	return nil
}

// FindSource looks up a preset source by name.
func (c *Config) FindSource(name string) (Source, bool) {
	for _, s := range c.Sources {
		if s.Name == name {
			return s, true
		}
	}
	return Source{}, false
}
