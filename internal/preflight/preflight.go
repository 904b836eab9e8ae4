package preflight

import (
	"context"

	"mediavault/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Storage directory", cfg.Paths.StorageDir),
		CheckDirectoryAccess("Temp directory", cfg.Paths.TempDir),
		CheckCipher(cfg),
	}

	if cfg.Remote.BaseURL != "" {
		results = append(results, CheckRemote(ctx, cfg.Remote.BaseURL))
	}

	return results
}
