package preflight

import (
	"slidemill/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the checks applicable to cfg. Optional paths are only
// checked when configured.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Base directory", cfg.Paths.BaseDir),
		CheckFileReadable("Captions file", cfg.Captions.File),
		CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
	}
	if cfg.Paths.DefaultTemplate != "" {
		results = append(results, CheckFileReadable("Default template", cfg.Paths.DefaultTemplate))
	}
	if cfg.Paths.FontsDir != "" {
		results = append(results, CheckDirectoryReadable("Fonts directory", cfg.Paths.FontsDir))
	}
	if cfg.Paths.LogDir != "" {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
