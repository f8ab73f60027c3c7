package shared

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Migration   MigrationConfig   `toml:"migration"`
	Database    DatabaseConfig    `toml:"database"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Twenty TwentyConfig `toml:"twenty"`
	Attio  AttioConfig  `toml:"attio"`
}

// TwentyConfig contains Twenty CRM API settings.
type TwentyConfig struct {
	BaseURL string `toml:"base_url"`
	APIKey  string `toml:"api_key"`
}

// AttioConfig contains Attio CRM API settings.
type AttioConfig struct {
	BaseURL      string `toml:"base_url"`
	APIToken     string `toml:"api_token"`
	DashboardURL string `toml:"dashboard_url"`
}

// MigrationConfig contains tunables for the migration and dedupe engines.
type MigrationConfig struct {
	BatchSize      int     `toml:"batch_size"`
	RequestTimeout int     `toml:"request_timeout"` // seconds
	MaxRetries     int     `toml:"max_retries"`
	MaxPages       int     `toml:"max_pages"`
	Workers        int     `toml:"workers"`
	RateLimit      float64 `toml:"rate_limit"` // mutating requests per second
	LogDir         string  `toml:"log_dir"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path,
// then applies environment variable overrides.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingConfig, path)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	config.applyEnv()
	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded
// example config, with environment variable overrides applied.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	config.applyEnv()
	return &config
}

// CreateConfigFile creates a config file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: config file already exists at %s", ErrInvalidInput, path)
	}

	// Write the embedded example config to the file
	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadDotenv loads a .env file into the process environment when one exists.
// Existing environment variables always win.
func LoadDotenv(path string) {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); err == nil {
		_ = godotenv.Load(path)
	}
}

// applyEnv overrides credential and migration settings from environment variables.
func (c *Config) applyEnv() {
	if v := os.Getenv("TWENTY_BASE_URL"); v != "" {
		c.Credentials.Twenty.BaseURL = v
	}
	if v := os.Getenv("TWENTY_API_KEY"); v != "" {
		c.Credentials.Twenty.APIKey = v
	}
	if v := os.Getenv("ATTIO_API_TOKEN"); v != "" {
		c.Credentials.Attio.APIToken = v
	}
	if v := os.Getenv("ATTIO_DASHBOARD_URL"); v != "" {
		c.Credentials.Attio.DashboardURL = v
	}
	if v := os.Getenv("BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Migration.BatchSize = n
		}
	}
	if v := os.Getenv("REQUEST_TIMEOUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Migration.RequestTimeout = n
		}
	}
	if v := os.Getenv("MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Migration.MaxRetries = n
		}
	}
}

// placeholder reports whether a credential still holds its example-file value.
func placeholder(v string) bool {
	return strings.HasPrefix(v, "your_")
}

// Validate checks that all credentials required to talk to both CRMs are present.
// Reported before any engine work starts; a failed validation is fatal to the run.
func (c *Config) Validate() error {
	var missing []string

	if c.Credentials.Twenty.BaseURL == "" {
		missing = append(missing, "credentials.twenty.base_url (TWENTY_BASE_URL)")
	}
	if c.Credentials.Twenty.APIKey == "" || placeholder(c.Credentials.Twenty.APIKey) {
		missing = append(missing, "credentials.twenty.api_key (TWENTY_API_KEY)")
	}
	if c.Credentials.Attio.APIToken == "" || placeholder(c.Credentials.Attio.APIToken) {
		missing = append(missing, "credentials.attio.api_token (ATTIO_API_TOKEN)")
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingCredentials, strings.Join(missing, ", "))
	}
	return nil
}

// ValidateAttio checks only the target-side credentials, for commands that never touch the source CRM.
func (c *Config) ValidateAttio() error {
	if c.Credentials.Attio.APIToken == "" || placeholder(c.Credentials.Attio.APIToken) {
		return fmt.Errorf("%w: credentials.attio.api_token (ATTIO_API_TOKEN)", ErrMissingCredentials)
	}
	return nil
}
