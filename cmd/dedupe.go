package main

import (
	"context"

	"github.com/desertthunder/crmx/internal/formatter"
	"github.com/desertthunder/crmx/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Dedupe scans the target workspace for duplicate records and writes a report.
func (r *Runner) Dedupe(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireAttio(); err != nil {
		return err
	}

	object := cmd.String("object")
	r.writePlain("Scanning %s for duplicates...\n\n", object)

	detector := tasks.NewDuplicateDetector(r.attio, r.logger)
	report, err := detector.Scan(ctx, nil, object)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(report, true)
	}

	r.output.Write(formatter.DuplicatesToText(report))

	path, err := formatter.WriteDuplicatesReport(report, cmd.String("output"))
	if err != nil {
		return err
	}
	r.writePlain("\nReport written to %s\n", path)
	return nil
}
