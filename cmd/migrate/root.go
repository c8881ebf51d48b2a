package main

import (
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"shopmigrate/internal/config"
)

var envFiles []string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "migrate",
		Short:         "Migrate the legacy e-commerce database to the normalized schema",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", []string{".env"},
		"env files to load before reading the environment")
	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newSeedCmd())
	cmd.AddCommand(newValidateCmd())
	return cmd
}

func execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// setup loads and validates the configuration and builds the run logger.
// Validation errors abort; warnings are logged and the run proceeds.
func setup() (*config.Config, *logrus.Logger, error) {
	cfg, err := config.Load(envFiles...)
	if err != nil {
		return nil, nil, err
	}

	log := newLogger(cfg.LogLevel, cfg.LogPath)
	issues := config.Validate(cfg)
	for _, issue := range issues {
		if issue.Severity == config.SeverityError {
			log.WithField("path", issue.Path).Error(issue.Message)
		} else {
			log.WithField("path", issue.Path).Warn(issue.Message)
		}
	}
	if config.HasErrors(issues) {
		return nil, nil, fmt.Errorf("configuration is invalid")
	}
	return cfg, log, nil
}

func newLogger(level, path string) *logrus.Logger {
	log := logrus.New()
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			log.WithError(err).Warn("cannot open log file, logging to stderr only")
		} else {
			log.SetOutput(io.MultiWriter(os.Stderr, f))
		}
	}
	return log
}

// runID tags every log line of one invocation so interleaved runs can be
// told apart in aggregated logs.
func runID() string {
	return uuid.NewString()
}
