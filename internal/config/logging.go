package config

import "fichaje/internal/logging"

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level      string          `yaml:"level"`                // debug, info, warn, error
	Console    string          `yaml:"console"`              // console, json
	File       string          `yaml:"file,omitempty"`       // JSON copy of every entry
	Categories map[string]bool `yaml:"categories,omitempty"` // Per-category toggles
}

// IsCategoryEnabled returns whether logging is enabled for a category.
// Categories not listed are enabled.
func (c *LoggingConfig) IsCategoryEnabled(category string) bool {
	if c.Categories == nil {
		return true
	}
	enabled, exists := c.Categories[category]
	if !exists {
		return true
	}
	return enabled
}

// ToLogging converts to the logging package's configuration. verbose forces
// the debug level.
func (c LoggingConfig) ToLogging(verbose bool) logging.Config {
	level := c.Level
	if verbose {
		level = "debug"
	}
	return logging.Config{
		Level:      level,
		File:       c.File,
		Console:    c.Console,
		Categories: c.Categories,
	}
}
