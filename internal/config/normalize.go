package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeCaptions()
	c.normalizeGeneration()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if value, ok := os.LookupEnv(envBaseDir); ok && strings.TrimSpace(value) != "" {
		c.Paths.BaseDir = strings.TrimSpace(value)
	}
	if strings.TrimSpace(c.Paths.BaseDir) == "" {
		c.Paths.BaseDir = defaultBaseDir
	}
	var err error
	if c.Paths.BaseDir, err = expandPath(c.Paths.BaseDir); err != nil {
		return fmt.Errorf("paths.base_dir: %w", err)
	}
	base := c.Paths.BaseDir

	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = resolveProjectPath(base, c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.DefaultTemplate, err = resolveProjectPath(base, c.Paths.DefaultTemplate); err != nil {
		return fmt.Errorf("paths.default_template: %w", err)
	}
	if c.Paths.FontsDir, err = resolveProjectPath(base, c.Paths.FontsDir); err != nil {
		return fmt.Errorf("paths.fonts_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.HistoryDB) == "" {
		c.Paths.HistoryDB = defaultHistoryDB
	}
	if c.Paths.HistoryDB, err = expandPath(strings.TrimSpace(c.Paths.HistoryDB)); err != nil {
		return fmt.Errorf("paths.history_db: %w", err)
	}
	if strings.TrimSpace(c.Captions.File) == "" {
		c.Captions.File = defaultCaptionsFile
	}
	if c.Captions.File, err = resolveProjectPath(base, c.Captions.File); err != nil {
		return fmt.Errorf("captions.file: %w", err)
	}
	return nil
}

func (c *Config) normalizeCaptions() {
	if c.Captions.Separator == "" {
		c.Captions.Separator = defaultCaptionSeparator
	}
	if c.Captions.Separator == `\t` {
		c.Captions.Separator = "\t"
	}
}

func (c *Config) normalizeGeneration() {
	if c.Generation.Variations == 0 {
		c.Generation.Variations = defaultVariations
	}
	if c.Generation.Workers == 0 {
		c.Generation.Workers = defaultWorkers
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	if value, ok := os.LookupEnv(envLogLevel); ok && strings.TrimSpace(value) != "" {
		c.Logging.Level = value
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
