// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, configCommand, twentyCommand, attioCommand, migrateCommand, dedupeCommand, mergeCommand, runsCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

// setupCommand initializes the run database
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Initialize run database and run migrations",
		Flags:  []cli.Flag{configFlag()},
		Action: r.SetupDatabase,
	}
}

// configCommand handles configuration inspection
func configCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration operations",
		Commands: []*cli.Command{
			{
				Name:   "check",
				Usage:  "Validate credentials and connectivity settings",
				Flags:  []cli.Flag{configFlag()},
				Action: r.ConfigCheck,
			},
			{
				Name:   "init",
				Usage:  "Create a config file from the template",
				Flags:  []cli.Flag{configFlag()},
				Action: r.ConfigInit,
			},
		},
	}
}

// twentyCommand handles source CRM operations
func twentyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "twenty",
		Aliases: []string{"src"},
		Usage:   "Twenty CRM (source) operations",
		Commands: []*cli.Command{
			{
				Name:   "objects",
				Usage:  "List available record collections",
				Action: r.TwentyObjects,
			},
			{
				Name:  "extract",
				Usage: "Extract and flatten records for inspection",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "object",
						Usage:    "Collection to extract (people, companies, ...)",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of records to print",
						Value: 10,
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
					},
				},
				Action: r.TwentyExtract,
			},
		},
	}
}

// attioCommand handles target CRM operations
func attioCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "attio",
		Aliases: []string{"dest"},
		Usage:   "Attio CRM (target) operations",
		Commands: []*cli.Command{
			{
				Name:   "objects",
				Usage:  "List objects configured in the workspace",
				Action: r.AttioObjects,
			},
			{
				Name:  "inspect",
				Usage: "Fetch one record as raw JSON",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "object",
						Usage:    "Object type (people, companies, ...)",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "id",
						Usage:    "Record id to fetch",
						Required: true,
					},
				},
				Action: r.AttioInspect,
			},
		},
	}
}

// migrateCommand runs a full migration
func migrateCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Migrate records from Twenty to Attio",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "object",
				Usage:    "Source collection to migrate",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "target-object",
				Usage: "Target object type (defaults to the source collection)",
			},
			&cli.StringFlag{
				Name:  "mapping",
				Usage: "Path to a JSON field mapping file",
			},
			&cli.StringFlag{
				Name:  "filter",
				Usage: "key=value substring filter on flattened records",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Encode and report without writing to Attio",
			},
			&cli.StringFlag{
				Name:  "resume",
				Usage: "Run id whose successful records should be skipped",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Concurrent upload workers",
			},
			&cli.StringFlag{
				Name:  "log-dir",
				Usage: "Directory for run artifacts (summary, CSV logs)",
			},
		},
		Action: r.Migrate,
	}
}

// dedupeCommand scans the target for duplicates
func dedupeCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "dedupe",
		Usage: "Scan Attio for duplicate records",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "object",
				Usage: "Object type to scan",
				Value: "companies",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Report file path (default: duplicates_report.txt)",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON instead of the text report",
			},
		},
		Action: r.Dedupe,
	}
}

// mergeCommand collapses duplicate groups
func mergeCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "merge",
		Usage: "Merge duplicate records (oldest survives)",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "object",
				Usage: "Object type to merge",
				Value: "companies",
			},
			&cli.BoolFlag{
				Name:  "yes",
				Usage: "Skip the confirmation prompt",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "CSV file for merge outcomes",
			},
		},
		Action: r.Merge,
	}
}

// runsCommand inspects the run ledger
func runsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "runs",
		Usage: "Inspect past migration runs",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List runs, newest first",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of runs to show",
						Value: 20,
					},
				},
				Action: r.RunsList,
			},
			{
				Name:  "show",
				Usage: "Show one run and its record outcomes",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "id",
						Usage:    "Run id",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "failures",
						Usage: "Only show failed records",
					},
				},
				Action: r.RunsShow,
			},
		},
	}
}

// tuiCommand launches the duplicate review TUI
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "tui",
		Usage: "Interactive duplicate review and merge",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "object",
				Usage: "Object type to review",
				Value: "companies",
			},
		},
		Action: r.TUI,
	}
}
