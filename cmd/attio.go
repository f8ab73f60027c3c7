package main

import (
	"context"

	"github.com/urfave/cli/v3"
)

// AttioObjects lists the object types configured in the target workspace.
func (r *Runner) AttioObjects(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireAttio(); err != nil {
		return err
	}

	objects, err := r.attio.ListObjects(ctx)
	if err != nil {
		return err
	}

	r.writePlainHeader("Attio objects")
	for _, object := range objects {
		r.writePlain("  %-20s %s\n", object.APISlug, object.ObjectID)
	}
	return nil
}

// AttioInspect fetches one record as raw JSON.
func (r *Runner) AttioInspect(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireAttio(); err != nil {
		return err
	}

	record, err := r.attio.GetRecord(ctx, cmd.String("object"), cmd.String("id"))
	if err != nil {
		return err
	}
	return r.writeJSON(record, true)
}
