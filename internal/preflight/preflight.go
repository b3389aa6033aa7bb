package preflight

import (
	"context"

	"reelup/internal/config"
	"reelup/internal/deps"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable offline checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	var results []Result

	results = append(results, CheckDirectoryAccess("State directory", cfg.Paths.StateDir))
	results = append(results, CheckDirectoryAccess("Lock directory", cfg.LockDir()))
	if cfg.Paths.LogDir != "" {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	}

	results = append(results, CheckClientSecrets(cfg.YouTube.ClientSecretsFile))
	results = append(results, CheckToken(cfg.YouTube.TokenFile))
	results = append(results, CheckHistory(ctx, cfg.HistoryPath()))

	for _, status := range CheckSystemDeps(ctx, cfg) {
		results = append(results, resultFromStatus(status))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}

func resultFromStatus(status deps.Status) Result {
	if status.Available {
		detail := status.Path
		if status.Version != "" {
			detail += " (" + status.Version + ")"
		}
		return Result{Name: status.Name, Passed: true, Detail: detail}
	}
	detail := status.Detail
	if status.Description != "" {
		detail += " (" + status.Description + ")"
	}
	return Result{Name: status.Name, Passed: status.Optional, Detail: detail}
}
