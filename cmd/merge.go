package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/crmx/internal/formatter"
	"github.com/desertthunder/crmx/internal/shared"
	"github.com/desertthunder/crmx/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Merge scans the target for duplicates and collapses every group into its
// oldest record. Destructive, so it prompts unless --yes is passed.
func (r *Runner) Merge(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireAttio(); err != nil {
		return err
	}

	object := cmd.String("object")

	detector := tasks.NewDuplicateDetector(r.attio, r.logger)
	report, err := detector.Scan(ctx, nil, object)
	if err != nil {
		return err
	}

	// Name-only company groups are reported but not auto-merged, a shared
	// name is too weak a signal to delete records on.
	groups := report.ByEmail
	groups = append(groups, report.ByDomain...)
	if len(groups) == 0 {
		r.writePlain("No duplicate %s found.\n", object)
		return nil
	}

	r.writePlain("Found %d duplicate groups:\n", len(groups))
	for _, group := range groups {
		r.writePlain("  %s (%d records)\n", group.Key, len(group.Records))
	}

	if !cmd.Bool("yes") {
		r.writePlain("\nMerge all groups? The oldest record in each survives. [y/N] ")
		var answer string
		fmt.Fscanln(os.Stdin, &answer)
		if answer != "y" && answer != "Y" {
			return fmt.Errorf("%w: merge declined", shared.ErrInvalidInput)
		}
	}

	progressCh := make(chan tasks.ProgressUpdate, 50)
	go func() {
		for update := range progressCh {
			r.writePlain("%s\n", update.Message)
		}
	}()

	resolver := tasks.NewMergeResolver(r.attio, r.config.Migration.RateLimit, r.logger)
	results, err := resolver.MergeGroups(ctx, progressCh, object, groups)
	close(progressCh)
	if err != nil {
		return err
	}

	merged := 0
	aborted := 0
	deleted := 0
	for _, result := range results {
		if result.Err != nil {
			aborted++
		} else {
			merged++
		}
		deleted += len(result.Deleted)
	}

	r.writePlain("\n")
	r.writePlainHeader("Merge Complete")
	r.writePlain("Merged: %d groups, aborted: %d, deleted: %d records\n", merged, aborted, deleted)

	if output := cmd.String("output"); output != "" {
		data, err := formatter.MergesToCSV(results)
		if err != nil {
			return err
		}
		if err := os.WriteFile(output, data, 0644); err != nil {
			return fmt.Errorf("failed to write merge log: %w", err)
		}
		r.writePlain("Merge log written to %s\n", output)
	}

	return nil
}
