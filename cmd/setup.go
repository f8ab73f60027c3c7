package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/crmx/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupDatabase initializes the run database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	var config *shared.Config
	if _, err := os.Stat(configPath); err == nil {
		if config, err = shared.LoadConfig(configPath); err != nil {
			r.logger.Warn("failed to load config, using defaults", "error", err)
			config = shared.DefaultConfig()
		}
	} else {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			r.logger.Warn("failed to create config file, using defaults", "error", err)
			config = shared.DefaultConfig()
		} else {
			r.logger.Info("config file created", "path", configPath)
			if config, err = shared.LoadConfig(configPath); err != nil {
				r.logger.Warn("failed to load created config, using defaults", "error", err)
				config = shared.DefaultConfig()
			}
		}
	}

	r.logger.Info("initializing run database", "path", config.Database.Path)

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

	r.logger.Info("running database migrations")
	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	r.logger.Infof("setup complete for database: %v", config.Database.Path)
	return nil
}

// ConfigInit creates a config file from the embedded template.
func (r *Runner) ConfigInit(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")
	if err := shared.CreateConfigFile(configPath); err != nil {
		return err
	}
	r.writePlain("✓ Config file created: %s\n", configPath)
	r.writePlain("Fill in credentials.twenty and credentials.attio, or set TWENTY_API_KEY and ATTIO_API_TOKEN\n")
	return nil
}

// ConfigCheck validates the loaded configuration and reports what is usable.
func (r *Runner) ConfigCheck(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	config := r.config
	if _, err := os.Stat(configPath); err == nil {
		loaded, err := shared.LoadConfig(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		config = loaded
	}

	r.writePlainHeader("Configuration")
	r.writePlain("Twenty base URL: %s\n", config.Credentials.Twenty.BaseURL)
	r.writePlain("Twenty API key:  %s\n", shared.MaskSecret(config.Credentials.Twenty.APIKey))
	r.writePlain("Attio base URL:  %s\n", config.Credentials.Attio.BaseURL)
	r.writePlain("Attio token:     %s\n", shared.MaskSecret(config.Credentials.Attio.APIToken))
	r.writePlain("Batch size: %d, retries: %d, timeout: %ds\n",
		config.Migration.BatchSize, config.Migration.MaxRetries, config.Migration.RequestTimeout)

	if err := config.Validate(); err != nil {
		r.writePlainln("✗ %v", err)
		return err
	}

	r.writePlainln("✓ Configuration is complete")
	return nil
}
