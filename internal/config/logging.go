package config

import (
	"fmt"

	"yaml2json/internal/logging"
)

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level      string          `yaml:"level"`      // debug, info, warn, error
	Format     string          `yaml:"format"`     // console, json
	Categories map[string]bool `yaml:"categories"` // Per-category toggles
}

// Validate checks the level and format names.
func (c *LoggingConfig) Validate() error {
	switch c.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error, got %q", c.Level)
	}
	switch c.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Format)
	}
	return nil
}

// Options converts the config for logging.Initialize. verbose forces debug.
func (c *LoggingConfig) Options(verbose bool) logging.Options {
	level := c.Level
	if verbose {
		level = "debug"
	}
	return logging.Options{
		Level:      level,
		Format:     c.Format,
		Categories: c.Categories,
	}
}
