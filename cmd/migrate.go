package main

import (
	"context"

	"github.com/desertthunder/crmx/internal/formatter"
	"github.com/desertthunder/crmx/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Migrate runs a full Twenty → Attio migration of one collection.
func (r *Runner) Migrate(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireTwenty(); err != nil {
		return err
	}
	if err := r.requireAttio(); err != nil {
		return err
	}

	opts := tasks.MigrationOpts{
		SourceObject: cmd.String("object"),
		TargetObject: cmd.String("target-object"),
		MappingFile:  cmd.String("mapping"),
		Filter:       cmd.String("filter"),
		DryRun:       cmd.Bool("dry-run"),
		ResumeRunID:  cmd.String("resume"),
		NumWorkers:   int(cmd.Int("workers")),
		RateLimit:    r.config.Migration.RateLimit,
	}
	if opts.NumWorkers == 0 {
		opts.NumWorkers = r.config.Migration.Workers
	}

	r.logger.Info("starting migration", "object", opts.SourceObject, "dry_run", opts.DryRun)
	r.writePlain("Starting migration...\n")
	r.writePlain("Source: Twenty %s\n", opts.SourceObject)
	if opts.DryRun {
		r.writePlain("Mode: dry run, nothing will be written\n")
	}
	r.writePlain("\n")

	progressCh := make(chan tasks.ProgressUpdate, 50)
	go func() {
		for update := range progressCh {
			switch update.Phase {
			case tasks.Extract:
				r.writePlain("📥 %s\n", update.Message)
			case tasks.Load:
				r.writePlain("   %s\n", update.Message)
			}
		}
	}()

	report, err := r.engine.Run(ctx, progressCh, opts)
	close(progressCh)

	if err != nil {
		return err
	}

	run := report.Run
	r.writePlain("\n")
	r.writePlainHeader("Migration Complete")
	r.writePlain("Run id: %s\n", run.ID)
	r.writePlain("Extracted: %d records", report.Extracted)
	if report.Truncated {
		r.writePlain(" (extraction truncated, rerun to pick up the rest)")
	}
	r.writePlain("\n")
	r.writePlain("Succeeded: %d, failed: %d, skipped: %d (%.1f%%)\n",
		run.SuccessCount, run.FailureCount, run.SkippedCount, run.SuccessRate())

	logDir := cmd.String("log-dir")
	if logDir == "" {
		logDir = r.config.Migration.LogDir
	}
	artifacts, err := formatter.WriteRunArtifacts(report, logDir)
	if err != nil {
		return err
	}
	r.writePlain("\nArtifacts:\n")
	r.writePlain("  %s\n", artifacts.SummaryFile)
	r.writePlain("  %s\n", artifacts.SuccessFile)
	r.writePlain("  %s\n", artifacts.FailureFile)
	if artifacts.PayloadsFile != "" {
		r.writePlain("  %s\n", artifacts.PayloadsFile)
	}

	return nil
}
