package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"slidemill/internal/config"
	"slidemill/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	project    *testsupport.Project
	configPath string
}

// setupCLITestEnv lays out a project with hook images a.png and b.png, the
// cta image c.png, the loose image loose.png, and a one-row captions file.
func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	t.Setenv("HOME", t.TempDir())
	t.Setenv("SLIDEMILL_BASE_DIR", "")
	t.Setenv("SLIDEMILL_LOG_LEVEL", "")

	proj := testsupport.NewProject(t)
	proj.AddImage("hook", "a.png")
	proj.AddImage("hook", "b.png")
	proj.AddImage("cta", "c.png")
	proj.AddUntagged("loose.png")

	cfg := testsupport.NewConfig(t, testsupport.WithBaseDir(proj.Base))
	cfg.Logging.Level = "error"
	testsupport.WriteCaptions(t, cfg.Captions.File,
		[]string{"product_hook", "hook", "product_cta", "cta"},
		[]string{"magnesium", "Sleep better", "zinc", "Shop now"},
	)

	configPath := filepath.Join(t.TempDir(), "config.toml")
	writeTestConfig(t, configPath, cfg)
	return &cliTestEnv{cfg: cfg, project: proj, configPath: configPath}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := config.Encode(cfg)
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func (env *cliTestEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", env.configPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String() + stderr.String(), err
}

func (env *cliTestEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := env.run(t, args...)
	if err != nil {
		t.Fatalf("slidemill %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
