// Copyright (C) 2026 Caldera Simulations (sims@caldera-sim.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command haloforest builds halo merger trees from structure-finder catalogs.
//
// Usage:
//
//	haloforest build --config run.yaml --catalog catalog.ndjson
//
// With Prometheus metrics exposed while building:
//
//	haloforest build --config run.yaml --catalog catalog.ndjson --metrics-addr :9090
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/caldera-sim/haloforest/pkg/logging"
	"github.com/caldera-sim/haloforest/services/forest"
	"github.com/caldera-sim/haloforest/services/forest/catalog"
	"github.com/caldera-sim/haloforest/services/forest/config"
	"github.com/caldera-sim/haloforest/services/forest/cosmology"
	"github.com/caldera-sim/haloforest/services/forest/telemetry"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "haloforest",
		Short:         "Merger-tree reconstruction for dark-matter halo catalogs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newBuildCmd())
	return root
}

func newBuildCmd() *cobra.Command {
	var (
		configPath  string
		catalogPath string
		workers     int
		metricsAddr string
		logDir      string
		verbose     bool
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the merger-tree forest from a catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd.Context(), configPath, catalogPath, workers, metricsAddr, logDir, verbose)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "run.yaml", "run configuration file")
	cmd.Flags().StringVar(&catalogPath, "catalog", "", "structure-finder catalog (ndjson)")
	cmd.Flags().IntVar(&workers, "workers", 0, "worker count for per-tree passes (0 = NumCPU, overrides config)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "expose Prometheus metrics on this address")
	cmd.Flags().StringVar(&logDir, "log-dir", "", "also write JSON logs to this directory")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "enable debug logging")
	_ = cmd.MarkFlagRequired("catalog")

	return cmd
}

func runBuild(ctx context.Context, configPath, catalogPath string, workers int, metricsAddr, logDir string, verbose bool) error {
	level := logging.LevelInfo
	if verbose {
		level = logging.LevelDebug
	}
	runID := uuid.NewString()
	log := logging.New(logging.Config{
		Level:   level,
		LogDir:  logDir,
		Service: "haloforest",
	})
	defer log.Close()

	logger := log.Slog().With(slog.String("run_id", runID))
	slog.SetDefault(logger)

	telemetryCfg := telemetry.DefaultConfig()
	if metricsAddr == "" {
		telemetryCfg.MetricExporter = "none"
	}
	shutdown, err := telemetry.Init(ctx, telemetryCfg)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown failed", slog.Any("error", err))
		}
	}()

	if metricsAddr != "" {
		if handler := telemetry.MetricsHandler(); handler != nil {
			mux := http.NewServeMux()
			mux.Handle("/metrics", handler)
			go func() {
				if err := http.ListenAndServe(metricsAddr, mux); err != nil {
					logger.Warn("metrics server stopped", slog.Any("error", err))
				}
			}()
			logger.Info("serving metrics", slog.String("addr", metricsAddr))
		}
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if workers > 0 {
		cfg.Execution.WorkerCount = workers
	}

	cosmo, err := cosmology.New(cfg.Cosmology)
	if err != nil {
		return err
	}

	logger.Info("reading catalog", slog.String("path", catalogPath))
	halos, err := catalog.ReadFile(catalogPath)
	if err != nil {
		return err
	}
	logger.Info("catalog read", slog.Int("halo_count", len(halos)))

	builder := forest.NewTreeBuilder(cfg.Execution, forest.WithLogger(logger))
	allBaryons := forest.NewTotalBaryon()

	start := time.Now()
	trees, err := builder.BuildTrees(ctx, halos, cfg.Simulation, cfg.GasCooling, cosmo, allBaryons)
	if err != nil {
		return err
	}

	haloCount := 0
	for _, tree := range trees {
		haloCount += tree.HaloCount()
	}
	logger.Info("forest built",
		slog.Int("trees", len(trees)),
		slog.Int("halos", haloCount),
		slog.Duration("elapsed", time.Since(start)),
		slog.Float64("baryons_accreted", allBaryons.BaryonTotalCreated[cfg.Execution.LastSnapshotToConsider()]),
	)
	return nil
}
