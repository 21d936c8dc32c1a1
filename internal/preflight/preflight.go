package preflight

import (
	"context"

	"orsi/internal/api"
	"orsi/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name     string
	Passed   bool
	Optional bool
	Detail   string
}

// Lister is the backend call used to probe reachability.
type Lister interface {
	ListVideos(ctx context.Context) (api.VideoCollections, error)
}

// RunAll executes every check for cfg. backend may be nil when no client
// could be built; the backend check then fails.
func RunAll(ctx context.Context, cfg *config.Config, backend Lister) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckBackend(ctx, cfg.API.BaseURL, backend),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckDownloadDir(cfg.Paths.DownloadDir),
	}
	if cfg.Player.Command != "" {
		results = append(results, CheckBinary("Player", cfg.Player.Command, true))
	}
	return results
}

// Failed reports whether any required check failed.
func Failed(results []Result) bool {
	for _, result := range results {
		if !result.Passed && !result.Optional {
			return true
		}
	}
	return false
}
