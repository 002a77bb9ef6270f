package preflight

import (
	"os"
	"path/filepath"
	"testing"

	"slidemill/internal/config"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckFileReadable(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, "captions.csv")
	if err := os.WriteFile(f, []byte("product_hook,hook\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if result := CheckFileReadable("captions", f); !result.Passed {
		t.Fatalf("expected pass, got %s", result.Detail)
	}
	if result := CheckFileReadable("captions", dir); result.Passed {
		t.Fatal("expected failure for directory")
	}
	if result := CheckFileReadable("captions", filepath.Join(dir, "missing.csv")); result.Passed {
		t.Fatal("expected failure for missing file")
	}
}

func TestRunAllSkipsUnsetOptionalPaths(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.BaseDir = base
	cfg.Paths.OutputDir = filepath.Join(base, "output")
	cfg.Paths.LogDir = ""
	cfg.Paths.DefaultTemplate = ""
	cfg.Paths.FontsDir = ""
	cfg.Captions.File = filepath.Join(base, "captions.csv")

	results := RunAll(&cfg)
	if len(results) != 3 {
		t.Fatalf("expected 3 checks, got %d: %+v", len(results), results)
	}
	failed := Failed(results)
	if len(failed) != 2 {
		t.Fatalf("expected captions and output checks to fail, got %+v", failed)
	}
	if failed[0].Name != "Captions file" || failed[1].Name != "Output directory" {
		t.Fatalf("unexpected failures: %+v", failed)
	}
}

func TestRunAllNilConfig(t *testing.T) {
	if results := RunAll(nil); results != nil {
		t.Fatalf("expected nil results, got %+v", results)
	}
}
