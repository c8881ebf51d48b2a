// Package config loads migration settings from the environment, optionally
// seeded from .env files, and validates them before a run. The variable
// names mirror the two-database convention of the system being migrated:
// OLD_DB_* is the legacy store, NEW_DB_* the target store.
package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// DatabaseOptions holds the connection parameters for one Postgres database.
type DatabaseOptions struct {
	Name     string `env:"NAME"`
	Host     string `env:"HOST" envDefault:"localhost"`
	Port     string `env:"PORT" envDefault:"5432"`
	User     string `env:"USER" envDefault:"postgres"`
	Password string `env:"PASSWORD" envDefault:"postgres"`
}

// DSN renders the options as a pgx connection string.
func (d DatabaseOptions) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s dbname=%s password=%s sslmode=disable",
		d.Host, d.Port, d.User, d.Name, d.Password,
	)
}

// Config is the full runtime configuration for a migration run.
type Config struct {
	Legacy DatabaseOptions `envPrefix:"OLD_DB_"`
	Target DatabaseOptions `envPrefix:"NEW_DB_"`

	// BatchSize is the commit granularity of the batch transaction
	// controller. It affects throughput only, never correctness.
	BatchSize int `env:"MIGRATE_BATCH_SIZE" envDefault:"500"`

	// PageSize is the legacy reader's keyset page size.
	PageSize int `env:"MIGRATE_PAGE_SIZE" envDefault:"500"`

	// SkipReportDir is where per-run CSV skip reports are written.
	// Empty disables the report.
	SkipReportDir string `env:"MIGRATE_SKIP_REPORT_DIR" envDefault:"skipped"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// LogPath duplicates the log stream into a file. Empty logs to stderr
	// only.
	LogPath string `env:"LOG_PATH"`

	// MetricsBackend selects the metrics sink: "pushgateway" or "none".
	MetricsBackend string `env:"METRICS_BACKEND" envDefault:"none"`
	PushgatewayURL string `env:"PUSHGATEWAY_URL" envDefault:"http://localhost:9091"`
	JobName        string `env:"MIGRATE_JOB_NAME" envDefault:"shopmigrate"`
}

// Load reads the given .env files (those that exist), then parses the
// process environment into a Config.
func Load(envFiles ...string) (*Config, error) {
	existing := make([]string, 0, len(envFiles))
	for _, f := range envFiles {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) > 0 {
		if err := godotenv.Load(existing...); err != nil {
			return nil, fmt.Errorf("load env files: %w", err)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}
