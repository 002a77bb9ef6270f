package config

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if c.Paths.BaseDir == "" {
		return errors.New("paths.base_dir must be set")
	}
	if c.Paths.OutputDir == c.Paths.BaseDir {
		return errors.New("paths.output_dir must differ from paths.base_dir")
	}
	if utf8.RuneCountInString(c.Captions.Separator) != 1 {
		return fmt.Errorf("captions.separator must be a single character, got %q", c.Captions.Separator)
	}
	if c.Generation.Variations < 1 {
		return errors.New("generation.variations must be positive")
	}
	if c.Generation.Workers < 1 {
		return errors.New("generation.workers must be positive")
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error, got %q", c.Logging.Level)
	}
	return nil
}
