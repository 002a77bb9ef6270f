package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"slidemill/internal/captions"
	"slidemill/internal/config"
	"slidemill/internal/logging"
	"slidemill/internal/metadata"
	"slidemill/internal/settings"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			c.loggerErr = fmt.Errorf("initialize logging: %w", err)
			return
		}
		if dir := cfg.Paths.LogDir; dir != "" {
			logging.CleanupOldLogs(logger, dir, cfg.Logging.RetentionDays, logging.DailyLogPath(dir, time.Now()))
		}
		c.logger = logger
	})
	return c.logger, c.loggerErr
}

// project bundles what most commands need: the parsed captions, the metadata
// document, and the store it came from.
type project struct {
	cfg       *config.Config
	logger    *slog.Logger
	table     *captions.Table
	store     *metadata.Store
	md        *metadata.Metadata
	generated bool
	locked    bool
}

// openProject loads the captions and the metadata document, generating the
// document on first use. writable takes the project lock, which is also taken
// whenever the document has to be generated.
func (c *commandContext) openProject(writable bool) (*project, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}

	table, err := captions.Load(cfg.Captions.File, cfg.Captions.Delimiter())
	if err != nil {
		return nil, fmt.Errorf("load captions: %w", err)
	}
	for _, warning := range table.Warnings {
		logging.WarnWithContext(logger, "captions file warning", "captions_warning",
			logging.String("detail", warning),
			logging.String(logging.FieldErrorHint, "fix the captions file"),
			logging.String(logging.FieldImpact, "product names may be split"))
	}

	p := &project{
		cfg:    cfg,
		logger: logger,
		table:  table,
		store:  metadata.NewStore(cfg.Paths.BaseDir, logger),
	}
	exists, err := p.store.Exists()
	if err != nil {
		return nil, err
	}
	if writable || !exists {
		if err := p.store.Lock(); err != nil {
			if errors.Is(err, metadata.ErrLocked) {
				return nil, fmt.Errorf("%w; wait for the other slidemill command to finish", err)
			}
			return nil, err
		}
		p.locked = true
	}
	md, generated, err := p.store.LoadOrGenerate(table.Catalog())
	if err != nil {
		p.close()
		return nil, err
	}
	p.md = md
	p.generated = generated
	return p, nil
}

func (p *project) close() {
	if p == nil || !p.locked {
		return
	}
	if err := p.store.Unlock(); err != nil {
		p.logger.Warn("failed to release metadata lock", logging.Error(err))
	}
	p.locked = false
}

func (p *project) checker() *settings.Validator {
	return settings.NewValidator(p.cfg.Paths.FontsDir)
}

func (p *project) editor() *metadata.Editor {
	return metadata.NewEditor(p.md, p.store, p.logger, metadata.WithSettingsChecker(p.checker()))
}

func (p *project) validate(strict bool) metadata.Report {
	return metadata.Validate(p.md, p.table.Catalog(), metadata.Options{
		Strict:   strict,
		BaseDir:  p.cfg.Paths.BaseDir,
		Probe:    p.store.Probe(),
		Settings: p.checker(),
		Logger:   p.logger,
	})
}

func (p *project) defaults() (*settings.Blob, error) {
	return settings.LoadTemplate(p.cfg.Paths.DefaultTemplate)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
