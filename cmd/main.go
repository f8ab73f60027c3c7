package main

import (
	"context"
	"errors"
	"os"

	"github.com/desertthunder/crmx/internal/services"
	"github.com/desertthunder/crmx/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	shared.LoadDotenv(".env")

	config := shared.DefaultConfig()
	if _, err := os.Stat("config.toml"); err == nil {
		if loadedConfig, err := shared.LoadConfig("config.toml"); err == nil {
			config = loadedConfig
		}
	}

	var twentyService services.Source
	var attioService services.Target

	if config.Credentials.Twenty.APIKey != "" {
		twentyService = services.NewTwentyService(config, logger)
	}
	if config.Credentials.Attio.APIToken != "" {
		attioService = services.NewAttioService(config, logger)
	}

	opts := RunnerOpts{
		Config: config,
		Twenty: twentyService,
		Attio:  attioService,
		Logger: logger,
	}

	// The run ledger is optional until setup has created it.
	if _, err := os.Stat(config.Database.Path); err == nil {
		if db, err := shared.NewDatabase(config.Database.Path); err == nil {
			shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)
			defer db.Close()
			opts.DB = db
		} else {
			logger.Warn("failed to open run database", "path", config.Database.Path, "error", err)
		}
	}

	runner := NewRunner(opts)

	app := &cli.Command{
		Name:     "crmx",
		Usage:    "Migrate and dedupe CRM records between Twenty & Attio",
		Version:  "0.3.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		err_ := errors.Unwrap(err)
		if errors.Is(err_, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			os.Exit(0)
		} else {
			logger.Fatalf("application error: %v", err)
		}
	}
}
