// Package config loads engine limits.
//
// Limits bound the worst-case cost of a plan: how many steps one plan may
// carry, how many targets its selectors may expand to in total, and how
// long a search pattern may be. They ship with compiled-in defaults and may
// be overridden by a TOML file.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/dhowell/redline/internal/fsops"
)

// Default limit values.
const (
	DefaultMaxSteps         = 64
	DefaultMaxTargets       = 256
	DefaultMaxPatternLength = 1024
)

// Limits bounds the size of a mutation plan.
type Limits struct {
	// MaxSteps is the maximum number of steps in one plan.
	MaxSteps int `toml:"max_steps"`

	// MaxTargets is the maximum total number of resolved targets across
	// the whole plan.
	MaxTargets int `toml:"max_targets"`

	// MaxPatternLength is the maximum length of a text selector pattern.
	MaxPatternLength int `toml:"max_pattern_length"`
}

// DefaultLimits returns the compiled-in limits.
func DefaultLimits() Limits {
	return Limits{
		MaxSteps:         DefaultMaxSteps,
		MaxTargets:       DefaultMaxTargets,
		MaxPatternLength: DefaultMaxPatternLength,
	}
}

// LoadLimits loads limits from the TOML file at path. A missing file yields
// the defaults; a present file overrides only the fields it sets.
func LoadLimits(fs fsops.FS, path string) (Limits, error) {
	limits := DefaultLimits()

	data, err := fs.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return limits, nil
		}
		return Limits{}, fmt.Errorf("failed to read limits config: %w", err)
	}

	if err := toml.Unmarshal(data, &limits); err != nil {
		return Limits{}, fmt.Errorf("failed to parse limits config: %w", err)
	}
	if err := limits.Validate(); err != nil {
		return Limits{}, err
	}
	return limits, nil
}

// Validate checks that every limit is positive.
func (l Limits) Validate() error {
	if l.MaxSteps <= 0 {
		return fmt.Errorf("max_steps must be positive, got %d", l.MaxSteps)
	}
	if l.MaxTargets <= 0 {
		return fmt.Errorf("max_targets must be positive, got %d", l.MaxTargets)
	}
	if l.MaxPatternLength <= 0 {
		return fmt.Errorf("max_pattern_length must be positive, got %d", l.MaxPatternLength)
	}
	return nil
}
