package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/crmx/internal/repositories"
	"github.com/desertthunder/crmx/internal/services"
	"github.com/desertthunder/crmx/internal/shared"
	"github.com/desertthunder/crmx/internal/tasks"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config *shared.Config
	twenty services.Source
	attio  services.Target
	db     *sql.DB
	runs   *repositories.RunRepository
	logger *log.Logger
	output io.Writer
	engine *tasks.MigrationEngine
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config *shared.Config
	Twenty services.Source
	Attio  services.Target
	DB     *sql.DB
	Logger *log.Logger
	Output io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	var runs *repositories.RunRepository
	var store tasks.RunStore
	if opts.DB != nil {
		runs = repositories.NewRunRepository(opts.DB)
		store = runs
	}

	engine := tasks.NewMigrationEngine(opts.Twenty, opts.Attio, store, opts.Logger)

	return &Runner{
		config: opts.Config,
		twenty: opts.Twenty,
		attio:  opts.Attio,
		db:     opts.DB,
		runs:   runs,
		logger: opts.Logger,
		output: opts.Output,
		engine: engine,
	}
}

// SetLogger swaps the runner's logger, used when the TUI owns the terminal.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// requireTwenty fails when the source service is not configured.
func (r *Runner) requireTwenty() error {
	if r.twenty == nil {
		return fmt.Errorf("%w: Twenty service not initialized, check credentials", shared.ErrServiceUnavailable)
	}
	return nil
}

// requireAttio fails when the target service is not configured.
func (r *Runner) requireAttio() error {
	if r.attio == nil {
		return fmt.Errorf("%w: Attio service not initialized, check credentials", shared.ErrServiceUnavailable)
	}
	return nil
}

// requireRuns fails when the run database has not been set up.
func (r *Runner) requireRuns() error {
	if r.runs == nil {
		return fmt.Errorf("%w: run database not initialized, run 'crmx setup' first", shared.ErrServiceUnavailable)
	}
	return nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
