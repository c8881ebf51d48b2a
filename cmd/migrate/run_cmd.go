package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"shopmigrate/internal/config"
	"shopmigrate/internal/legacy"
	"shopmigrate/internal/metrics"
	"shopmigrate/internal/metrics/prompush"
	"shopmigrate/internal/pipeline"
	"shopmigrate/internal/skiplog"
	"shopmigrate/internal/target"
)

func newRunCmd() *cobra.Command {
	var (
		reset    bool
		columnar bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the four-stage migration against the configured databases",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			return runMigration(cmd.Context(), cfg, log, reset, columnar)
		},
	}
	cmd.Flags().BoolVar(&reset, "reset", false,
		"delete all target data before migrating")
	cmd.Flags().BoolVar(&columnar, "columnar", false,
		"use the columnar (bulk COPY) variant instead of record-at-a-time")
	return cmd
}

func runMigration(ctx context.Context, cfg *config.Config, log *logrus.Logger, reset, columnar bool) error {
	id := runID()
	log.WithField("run_id", id).WithField("columnar", columnar).Info("migration starting")

	setupMetrics(cfg, log)
	defer func() {
		if err := metrics.Flush(); err != nil {
			log.WithError(err).Warn("metrics flush failed")
		}
	}()

	reader, err := legacy.NewReader(ctx, cfg.Legacy.DSN(), cfg.PageSize)
	if err != nil {
		return err
	}
	defer reader.Close()

	store, err := target.NewStore(ctx, cfg.Target.DSN())
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}

	var skips *skiplog.Report
	if cfg.SkipReportDir != "" {
		path := filepath.Join(cfg.SkipReportDir, fmt.Sprintf("skipped_%s.csv", id))
		var closeFn func()
		skips, closeFn, err = skiplog.New(path)
		if err != nil {
			return err
		}
		defer closeFn()
		log.WithField("path", path).Info("skip report enabled")
	}

	opts := pipeline.Options{
		BatchSize: cfg.BatchSize,
		Skips:     skips,
		Logger:    log,
	}

	if reset {
		if err := pipeline.NewRunner(reader, store, opts).Reset(ctx); err != nil {
			return err
		}
	}

	var stats map[string]pipeline.Stats
	if columnar {
		stats, err = pipeline.NewBulkRunner(reader, store, opts).Run(ctx)
	} else {
		stats, err = pipeline.NewRunner(reader, store, opts).Run(ctx)
	}
	if err != nil {
		return err
	}

	var total pipeline.Stats
	for _, st := range stats {
		total.Processed += st.Processed
		total.Created += st.Created
		total.Adopted += st.Adopted
		total.Skipped += st.Skipped
		total.Warnings += st.Warnings
	}
	log.WithField("run_id", id).Infof("migration complete: %s", total)
	return nil
}

// setupMetrics wires the configured metrics backend; the nop backend stays
// in place when metrics are disabled or the backend cannot be built.
func setupMetrics(cfg *config.Config, log *logrus.Logger) {
	switch cfg.MetricsBackend {
	case "pushgateway":
		b, err := prompush.NewBackend(cfg.JobName, cfg.PushgatewayURL)
		if err != nil {
			log.WithError(err).Warn("metrics backend unavailable, metrics disabled")
			return
		}
		log.WithField("url", cfg.PushgatewayURL).WithField("job", cfg.JobName).
			Info("metrics: pushgateway enabled")
		metrics.SetBackend(b)
	case "", "none":
	default:
		log.WithField("backend", cfg.MetricsBackend).Warn("unknown metrics backend, metrics disabled")
	}
}
