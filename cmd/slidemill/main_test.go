package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"slidemill/internal/logging"
	"slidemill/internal/render"
	"slidemill/internal/settings"
	"slidemill/internal/testsupport"
)

func TestValidateGeneratesMetadata(t *testing.T) {
	env := setupCLITestEnv(t)

	out := env.mustRun(t, "validate")
	requireContains(t, out, "Generated")
	requireContains(t, out, "Image a.png has no product assigned")
	requireContains(t, out, "Metadata valid with")
	if _, err := os.Stat(env.project.Path("metadata.json")); err != nil {
		t.Fatalf("metadata.json not written: %v", err)
	}

	out, err := env.run(t, "validate", "--strict")
	if err == nil {
		t.Fatalf("strict validation should fail:\n%s", out)
	}
	requireContains(t, out, "Metadata invalid")
}

func TestTagDedupeAndGenerate(t *testing.T) {
	env := setupCLITestEnv(t)

	env.mustRun(t, "images", "tag", "a.png", "magnesium")
	env.mustRun(t, "images", "tag", "b.png", "magnesium", "--content-type", "cta")
	env.mustRun(t, "images", "tag", "c.png", "zinc")
	if _, err := env.run(t, "images", "tag", "c.png", "vitamin"); err == nil {
		t.Fatal("tagging with an undeclared product should fail")
	}

	out := env.mustRun(t, "images", "list", "--product", "magnesium")
	requireContains(t, out, "a.png")
	requireContains(t, out, "b.png")

	env.mustRun(t, "products", "dedupe", "hook", "magnesium")
	out = env.mustRun(t, "products", "list", "hook")
	requireContains(t, out, "magnesium")
	requireContains(t, out, "yes")
	requireContains(t, out, "[magnesium]")

	out = env.mustRun(t, "generate", "--seed", "11", "--variations", "2")
	requireContains(t, out, "Wrote 4 images")
	sc, err := render.ReadSidecar(filepath.Join(env.cfg.Paths.OutputDir, "variation2", "post1", "2.json"))
	if err != nil {
		t.Fatalf("read sidecar: %v", err)
	}
	if sc.Image != "c.png" || sc.Caption != "Shop now" {
		t.Fatalf("unexpected sidecar: %+v", sc)
	}

	out = env.mustRun(t, "history")
	requireContains(t, out, "completed")
	out = env.mustRun(t, "history", "usage", "--content-type", "cta")
	requireContains(t, out, "c.png")
}

func TestGenerateFailsOnUnassignedProduct(t *testing.T) {
	env := setupCLITestEnv(t)
	env.mustRun(t, "images", "tag", "a.png", "magnesium")

	out, err := env.run(t, "generate", "--seed", "1")
	if err == nil {
		t.Fatalf("generate should fail without zinc images:\n%s", out)
	}
	requireContains(t, err.Error(), "no available images for cta - zinc")
}

func TestMoveUntaggedImage(t *testing.T) {
	env := setupCLITestEnv(t)

	out := env.mustRun(t, "images", "list", "--untagged")
	requireContains(t, out, "loose.png")

	env.mustRun(t, "images", "move", "loose.png", "cta")
	out = env.mustRun(t, "images", "list", "--untagged")
	requireContains(t, out, "No untagged images")
	if _, err := os.Stat(env.project.Path("cta", "loose.png")); err != nil {
		t.Fatalf("image not moved: %v", err)
	}
	out = env.mustRun(t, "images", "list", "--content-type", "cta")
	requireContains(t, out, "loose.png")
}

func TestSettingsSetAndShow(t *testing.T) {
	env := setupCLITestEnv(t)

	blob := settings.Builtin()
	plain := blob.TextSettings[settings.TextTypePlain]
	plain.FontSize = 55
	blob.TextSettings[settings.TextTypePlain] = plain
	data, err := json.Marshal(blob)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "magnesium.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	env.mustRun(t, "settings", "set", "--level", "product", "--target", "magnesium", "--content-type", "hook", "--file", path)
	env.mustRun(t, "images", "tag", "a.png", "magnesium", "--settings-source", "product")

	out := env.mustRun(t, "settings", "show", "a.png")
	requireContains(t, out, "a.png uses the product settings")
	requireContains(t, out, `"font_size": 55`)

	out = env.mustRun(t, "settings", "show", "--level", "content_type", "--target", "hook")
	requireContains(t, out, "No settings stored")

	if _, err := env.run(t, "settings", "show", "b.png", "--level", "bogus"); err == nil {
		t.Fatal("unknown level should fail")
	}
	if _, err := env.run(t, "settings", "set", "--level", "default", "--target", "x", "--clear"); err == nil {
		t.Fatal("default level should be read-only")
	}
}

func TestConfigInitAndShow(t *testing.T) {
	env := setupCLITestEnv(t)

	target := filepath.Join(t.TempDir(), "config.toml")
	out := env.mustRun(t, "config", "init", "--path", target)
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}
	if _, err := env.run(t, "config", "init", "--path", target); err == nil {
		t.Fatal("second init without --overwrite should fail")
	}

	out = env.mustRun(t, "config", "show")
	requireContains(t, out, env.project.Base)
}

func TestOutputListAndClean(t *testing.T) {
	env := setupCLITestEnv(t)
	for _, rel := range []string{"variation1/post1/1.png", "variation2/post1/1.png", "variation2/post2/1.png"} {
		testsupport.WriteFile(t, filepath.Join(env.cfg.Paths.OutputDir, rel), 16)
	}

	out := env.mustRun(t, "output", "list")
	requireContains(t, out, "32 B")

	out = env.mustRun(t, "output", "clean")
	requireContains(t, out, "Removed 0 variation folders")

	out = env.mustRun(t, "output", "clean", "--older-than", "0")
	requireContains(t, out, "Removed 2 variation folders")
	out = env.mustRun(t, "output", "list")
	requireContains(t, out, "No variations")
}

func TestLogsShowsTrailingLines(t *testing.T) {
	env := setupCLITestEnv(t)
	out := env.mustRun(t, "logs")
	requireContains(t, out, "No log entries")

	path := logging.DailyLogPath(env.cfg.Paths.LogDir, time.Now())
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir logs: %v", err)
	}
	if err := os.WriteFile(path, []byte("first\nsecond\nthird\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	out = env.mustRun(t, "logs", "-n", "2")
	if strings.Contains(out, "first") {
		t.Fatalf("expected only the last two lines, got %q", out)
	}
	requireContains(t, out, "second\nthird\n")
}
