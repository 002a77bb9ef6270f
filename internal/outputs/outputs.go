package outputs

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"slidemill/internal/logging"
)

const variationPrefix = "variation"

// Variation describes one variation folder.
type Variation struct {
	Number  int
	Path    string
	Posts   int
	Files   int
	Size    int64
	ModTime time.Time
}

// CleanResult contains the outcome of a cleanup.
type CleanResult struct {
	Removed []string
	Errors  []CleanupError
}

// CleanupError pairs a folder with its removal error.
type CleanupError struct {
	Path  string
	Error error
}

// List returns the variation folders inside outputDir ordered by number.
// A missing outputDir yields no folders.
func List(outputDir string) ([]Variation, error) {
	entries, err := readVariations(outputDir)
	if err != nil {
		return nil, err
	}
	out := make([]Variation, 0, len(entries))
	for _, entry := range entries {
		v := Variation{Number: entry.number, Path: entry.path, ModTime: entry.modTime}
		v.Posts, v.Files, v.Size = walk(entry.path)
		out = append(out, v)
	}
	return out, nil
}

// CleanStale removes variation folders last modified more than maxAge ago.
// A zero maxAge removes every variation folder.
func CleanStale(ctx context.Context, outputDir string, maxAge time.Duration, logger *slog.Logger) CleanResult {
	var result CleanResult
	entries, err := readVariations(outputDir)
	if err != nil {
		result.Errors = append(result.Errors, CleanupError{Path: outputDir, Error: err})
		return result
	}
	cutoff := time.Now().Add(-maxAge)
	for _, entry := range entries {
		if ctx.Err() != nil {
			break
		}
		if maxAge > 0 && !entry.modTime.Before(cutoff) {
			continue
		}
		if err := os.RemoveAll(entry.path); err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: entry.path, Error: err})
			logging.WarnWithContext(logger, "failed to remove output folder", "output_cleanup_failed",
				logging.String("path", entry.path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check output_dir permissions"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"))
			continue
		}
		result.Removed = append(result.Removed, entry.path)
		logger.Info("removed output folder",
			logging.String("path", entry.path),
			logging.Duration("age", time.Since(entry.modTime).Round(time.Second)),
			logging.String(logging.FieldEventType, "output_cleanup"))
	}
	return result
}

type variationDir struct {
	number  int
	path    string
	modTime time.Time
}

func readVariations(outputDir string) ([]variationDir, error) {
	outputDir = strings.TrimSpace(outputDir)
	if outputDir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(outputDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []variationDir
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		digits, ok := strings.CutPrefix(entry.Name(), variationPrefix)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(digits)
		if err != nil || n < 1 {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		out = append(out, variationDir{number: n, path: filepath.Join(outputDir, entry.Name()), modTime: info.ModTime()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].number < out[j].number })
	return out, nil
}

// walk counts post folders and files below a variation folder, best effort.
func walk(root string) (posts, files int, size int64) {
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != root && filepath.Dir(path) == root {
				posts++
			}
			return nil
		}
		if info, err := d.Info(); err == nil {
			files++
			size += info.Size()
		}
		return nil
	})
	return posts, files, size
}
