package preflight

import (
	"context"

	"deckhand/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name        string
	Description string
	Optional    bool
	Passed      bool
	Detail      string
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckWorkerBinary(cfg.WorkerBinary()),
		CheckDirectoryAccess("Output directory", "Destination for downloaded slide decks", cfg.Paths.OutputDir),
	}

	if cfg.Paths.InboxDir != "" {
		results = append(results, CheckDirectoryAccess("Inbox directory", "Watched for documents to submit automatically", cfg.Paths.InboxDir))
	}

	results = append(results, CheckCredentials(ctx, cfg))
	return results
}
