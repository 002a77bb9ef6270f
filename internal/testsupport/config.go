package testsupport

import (
	"path/filepath"
	"testing"

	"slidemill/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	cfg *config.Config
}

// NewConfig produces a config rooted in a fresh temp project directory.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.BaseDir = base
	cfgVal.Paths.OutputDir = filepath.Join(base, "output")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.HistoryDB = filepath.Join(base, "state", "history.db")
	cfgVal.Captions.File = filepath.Join(base, "captions.csv")

	builder := &configBuilder{cfg: &cfgVal}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithBaseDir points the config at an existing project folder.
func WithBaseDir(dir string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.BaseDir = dir
		b.cfg.Paths.OutputDir = filepath.Join(dir, "output")
		b.cfg.Captions.File = filepath.Join(dir, "captions.csv")
	}
}
