package main

import (
	"context"
	"time"

	"github.com/desertthunder/crmx/internal/models"
	"github.com/urfave/cli/v3"
)

// RunsList shows past migration runs, newest first.
func (r *Runner) RunsList(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireRuns(); err != nil {
		return err
	}

	runs, err := r.runs.ListRuns(int(cmd.Int("limit")))
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		r.writePlain("No runs recorded yet.\n")
		return nil
	}

	r.writePlainHeader("Migration runs")
	for _, run := range runs {
		mode := ""
		if run.DryRun {
			mode = " (dry run)"
		}
		r.writePlain("%s  %s -> %s%s\n", run.ID, run.SourceObject, run.TargetObject, mode)
		r.writePlain("  started %s, %d ok / %d failed / %d skipped\n",
			run.StartedAt.Format(time.RFC3339), run.SuccessCount, run.FailureCount, run.SkippedCount)
	}
	return nil
}

// RunsShow shows one run with its per-record outcomes.
func (r *Runner) RunsShow(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireRuns(); err != nil {
		return err
	}

	runID := cmd.String("id")
	run, err := r.runs.GetRun(runID)
	if err != nil {
		return err
	}

	r.writePlainHeader("Run " + run.ID)
	r.writePlain("Migration: %s -> %s\n", run.SourceObject, run.TargetObject)
	r.writePlain("Started: %s\n", run.StartedAt.Format(time.RFC3339))
	if !run.FinishedAt.IsZero() {
		r.writePlain("Finished: %s\n", run.FinishedAt.Format(time.RFC3339))
	}
	r.writePlain("Succeeded: %d, failed: %d, skipped: %d (%.1f%%)\n\n",
		run.SuccessCount, run.FailureCount, run.SkippedCount, run.SuccessRate())

	results, err := r.runs.ListResults(runID)
	if err != nil {
		return err
	}

	failuresOnly := cmd.Bool("failures")
	for _, result := range results {
		if failuresOnly && result.Status != models.StatusFailure {
			continue
		}
		switch result.Status {
		case models.StatusSuccess:
			r.writePlain("  ✓ %s -> %s\n", result.SourceID, result.TargetID)
		case models.StatusFailure:
			r.writePlain("  ✗ %s: %s\n", result.SourceID, result.Reason)
		case models.StatusSkipped:
			r.writePlain("  - %s (%s)\n", result.SourceID, result.Reason)
		}
	}
	return nil
}
