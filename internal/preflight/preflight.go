package preflight

import (
	"context"

	"voicequeue/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// RunAll executes the readiness checks for the given config. outputFolder is
// the session's current folder and is skipped when empty.
func RunAll(ctx context.Context, cfg *config.Config, outputFolder string, backend Backend) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
	}
	if outputFolder != "" {
		results = append(results, CheckDirectoryAccess("Output folder", outputFolder))
	}
	results = append(results, CheckBackend(ctx, "TTS backend ("+cfg.Backend.Transport+")", backend))
	if cfg.Notifications.Desktop {
		results = append(results, CheckBinary("Desktop notifications", "notify-send"))
	}
	return results
}

// AllPassed reports whether every result passed.
func AllPassed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return false
		}
	}
	return true
}
