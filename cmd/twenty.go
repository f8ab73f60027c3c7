package main

import (
	"context"

	"github.com/urfave/cli/v3"
)

// TwentyObjects lists the collections the source workspace exposes.
func (r *Runner) TwentyObjects(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireTwenty(); err != nil {
		return err
	}

	objects, err := r.twenty.AvailableObjects(ctx)
	if err != nil {
		return err
	}

	r.writePlainHeader("Twenty collections")
	for _, object := range objects {
		r.writePlain("  %s\n", object)
	}
	return nil
}

// TwentyExtract dumps flattened records from one collection.
func (r *Runner) TwentyExtract(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireTwenty(); err != nil {
		return err
	}

	object := cmd.String("object")
	limit := int(cmd.Int("limit"))

	r.logger.Info("extracting records", "object", object)
	records, err := r.twenty.ExtractRecords(ctx, object)
	if err != nil {
		r.logger.Warn("extraction truncated", "records", len(records), "error", err)
	}

	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return r.writeJSON(records, cmd.Bool("pretty"))
}
