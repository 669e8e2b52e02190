package config

import (
	"fmt"
	"slices"
	"strings"

	"critiqal/internal/logging"
)

// LoggingConfig configures logging. Nothing is written unless DebugMode is set.
type LoggingConfig struct {
	Level      string          `yaml:"level"`      // debug, info, warn, error
	Format     string          `yaml:"format"`     // json, console
	File       string          `yaml:"file"`       // empty = stderr
	DebugMode  bool            `yaml:"debug_mode"` // master toggle
	Categories map[string]bool `yaml:"categories"` // missing = enabled
}

var (
	validLevels  = []string{"", "debug", "info", "warn", "error"}
	validFormats = []string{"", "json", "console"}
)

// Options converts the config into logging options.
func (c LoggingConfig) Options() logging.Options {
	return logging.Options{
		Level:      c.Level,
		Format:     c.Format,
		File:       c.File,
		DebugMode:  c.DebugMode,
		Categories: c.Categories,
	}
}

func (c LoggingConfig) validate() error {
	if !slices.Contains(validLevels, strings.ToLower(c.Level)) {
		return fmt.Errorf("invalid logging.level: %s", c.Level)
	}
	if !slices.Contains(validFormats, strings.ToLower(c.Format)) {
		return fmt.Errorf("invalid logging.format: %s", c.Format)
	}
	for name := range c.Categories {
		if !logging.KnownCategory(name) {
			return fmt.Errorf("unknown logging category: %s", name)
		}
	}
	return nil
}
