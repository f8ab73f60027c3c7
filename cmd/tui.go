package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/crmx/internal/shared"
	"github.com/desertthunder/crmx/internal/tasks"
	"github.com/desertthunder/crmx/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive terminal UI for duplicate review and merging.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireAttio(); err != nil {
		return err
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/crmx-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	object := cmd.String("object")
	detector := tasks.NewDuplicateDetector(r.attio, r.logger)
	resolver := tasks.NewMergeResolver(r.attio, r.config.Migration.RateLimit, r.logger)

	model := ui.NewModel(ctx, object, detector, resolver)
	p := tea.NewProgram(model)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
