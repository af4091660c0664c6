package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/kilianp07/pyro/core/factory"
)

// FactoryConfig configures type resolution.
type FactoryConfig struct {
	// Root is the dotted module that relative identifiers are resolved in.
	Root string `json:"root"`
	// Preload lists identifiers resolved at startup so that registration
	// problems surface before the first use.
	Preload []string `json:"preload"`
}

// SetDefaults applies sane defaults.
func (c *FactoryConfig) SetDefaults() {
	if c.Root == "" {
		c.Root = factory.Root
	}
}

// Validate checks that identifiers are well formed.
func (c FactoryConfig) Validate() error {
	for _, id := range append([]string{c.Root}, c.Preload...) {
		if id == "" || strings.HasPrefix(id, ".") || strings.HasSuffix(id, ".") || strings.Contains(id, "..") {
			return fmt.Errorf("malformed identifier %q", id)
		}
	}
	return nil
}

// MetricsConfig lists the sinks receiving registry events. Each sink is a
// factory descriptor.
type MetricsConfig struct {
	Sinks []factory.Descriptor `json:"sinks"`
}

// Validate checks that every sink names a type.
func (c MetricsConfig) Validate() error {
	for i, s := range c.Sinks {
		if s.Type == "" {
			return fmt.Errorf("metrics sink %d: type is required", i)
		}
	}
	return nil
}

// CleanConfig configures the cache cleanup command.
type CleanConfig struct {
	// Patterns are glob patterns matched against entry base names.
	Patterns []string `json:"patterns"`
}

// SetDefaults applies sane defaults.
func (c *CleanConfig) SetDefaults() {
	if len(c.Patterns) == 0 {
		c.Patterns = []string{"__pycache__", "*.pyc"}
	}
}

// Validate checks the glob syntax of every pattern.
func (c CleanConfig) Validate() error {
	for _, p := range c.Patterns {
		if _, err := filepath.Match(p, ""); err != nil {
			return fmt.Errorf("clean pattern %q: %w", p, err)
		}
	}
	return nil
}
