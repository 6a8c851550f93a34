// Copyright (C) 2026 Caldera Simulations (sims@caldera-sim.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package forest

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/caldera-sim/haloforest/services/forest/config"
	"github.com/caldera-sim/haloforest/services/forest/cosmology"
)

var (
	tracer = otel.Tracer("haloforest.forest")
	meter  = otel.Meter("haloforest.forest")
)

// Option configures a TreeBuilder.
type Option func(*TreeBuilder)

// WithWorkerCount sets the number of workers for the data-parallel passes
// over trees. Values <= 0 select runtime.NumCPU().
func WithWorkerCount(n int) Option {
	return func(b *TreeBuilder) {
		b.workers = n
	}
}

// WithLogger sets the logger. If nil, slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(b *TreeBuilder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithLinker replaces the linking strategy. The default is the identity-based
// halo linker from NewHaloBasedLinker.
func WithLinker(linker Linker) Option {
	return func(b *TreeBuilder) {
		b.linker = linker
	}
}

// TreeBuilder assembles a forest of merger trees from a halo population.
//
// Description:
//
//	BuildTrees seeds one tree per halo at the root snapshot, delegates edge
//	discovery to the configured Linker, then runs the fixed validation and
//	derivation passes: self-containment, optional mass growth, optional
//	interpolated-subhalo spin propagation, central-subhalo resolution and
//	accretion bookkeeping.
//
// Thread Safety:
//
//	Safe for reuse across sequential runs. A single run owns its halo
//	population; see the package documentation.
type TreeBuilder struct {
	execParams config.ExecutionParameters
	workers    int
	logger     *slog.Logger
	linker     Linker

	// Metrics (initialized lazily)
	metricsOnce  sync.Once
	treesBuilt   metric.Int64Counter
	halosLinked  metric.Int64Counter
	halosIgnored metric.Int64Counter
	passLatency  metric.Float64Histogram
}

// NewTreeBuilder creates a TreeBuilder for the given execution policy.
func NewTreeBuilder(execParams config.ExecutionParameters, opts ...Option) *TreeBuilder {
	b := &TreeBuilder{
		execParams: execParams,
		workers:    execParams.WorkerCount,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.workers <= 0 {
		b.workers = runtime.NumCPU()
	}
	if b.linker == nil {
		b.linker = NewHaloBasedLinker(execParams, b.logger)
	}
	return b
}

// ExecParams returns the execution policy this builder runs under.
func (b *TreeBuilder) ExecParams() config.ExecutionParameters {
	return b.execParams
}

// initMetrics lazily initializes metrics. Failures degrade observability but
// never the build.
func (b *TreeBuilder) initMetrics() {
	b.metricsOnce.Do(func() {
		var initErrors []string

		var err error
		b.treesBuilt, err = meter.Int64Counter("forest_trees_built_total",
			metric.WithDescription("Number of merger trees seeded at the root snapshot"),
		)
		if err != nil {
			initErrors = append(initErrors, "trees_built: "+err.Error())
		}

		b.halosLinked, err = meter.Int64Counter("forest_halos_linked_total",
			metric.WithDescription("Number of halos attached to a tree by the linker"),
		)
		if err != nil {
			initErrors = append(initErrors, "halos_linked: "+err.Error())
		}

		b.halosIgnored, err = meter.Int64Counter("forest_halos_ignored_total",
			metric.WithDescription("Number of halos abandoned for unresolvable lineage"),
		)
		if err != nil {
			initErrors = append(initErrors, "halos_ignored: "+err.Error())
		}

		b.passLatency, err = meter.Float64Histogram("forest_pass_duration_seconds",
			metric.WithDescription("Time spent in each forest pipeline pass"),
			metric.WithUnit("s"),
		)
		if err != nil {
			initErrors = append(initErrors, "pass_latency: "+err.Error())
		}

		if len(initErrors) > 0 {
			b.logger.Error("failed to initialize some forest metrics (observability degraded)",
				slog.Int("failed_count", len(initErrors)),
				slog.Any("errors", initErrors),
			)
		}
	})
}

// recordPass records one pipeline pass duration.
func (b *TreeBuilder) recordPass(ctx context.Context, pass string, start time.Time) {
	if b.passLatency != nil {
		b.passLatency.Record(ctx, time.Since(start).Seconds(),
			metric.WithAttributes(attribute.String("pass", pass)))
	}
}

// BuildTrees reconstructs the merger-tree forest from the halo population.
//
// Inputs:
//
//	ctx - Context carrying the active trace span.
//	halos - Full halo population across all snapshots. Mutated in place.
//	simParams - Snapshot bounds for the per-tree walking loops.
//	coolingParams - Cooling knobs handed through to the accretion pass.
//	cosmo - Cosmology collaborator; supplies the universal baryon fraction.
//	allBaryons - Accumulator for diffusely accreted baryon mass per snapshot.
//
// Outputs:
//
//	[]*MergerTree - One tree per halo at the root snapshot, in halo order.
//	error - ErrInvalidData on any structural invariant violation,
//	        a *SubhaloNotFoundError under strict missing-descendant policy,
//	        ErrInvalidArgument on a central-subhalo post-condition failure.
func (b *TreeBuilder) BuildTrees(ctx context.Context, halos []*Halo, simParams config.SimulationParameters,
	coolingParams config.GasCoolingParameters, cosmo *cosmology.Cosmology, allBaryons *TotalBaryon) ([]*MergerTree, error) {

	ctx, span := tracer.Start(ctx, "forest.BuildTrees",
		trace.WithAttributes(attribute.Int("halo_count", len(halos))),
	)
	defer span.End()
	b.initMetrics()

	lastSnapshot := b.execParams.LastSnapshotToConsider()

	// Find roots and create one tree for each of them.
	var trees []*MergerTree
	for _, halo := range halos {
		if halo.Snapshot != lastSnapshot {
			continue
		}
		tree := NewMergerTree(len(trees))
		halo.Tree = tree
		tree.AddHalo(halo)
		trees = append(trees, tree)
		b.logger.Debug("created merger tree", slog.Int("tree", tree.ID), slog.Int64("root_halo", int64(halo.ID)))
	}

	// No halos at the desired snapshot, the forest cannot be seeded.
	if len(trees) == 0 {
		err := fmt.Errorf("%w: no halo definitions found at snapshot %d; halos found at snapshots %v; considering snapshots %v",
			ErrInvalidData, lastSnapshot, snapshotsIn(halos), b.execParams.OutputSnapshots)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("tree_count", len(trees)))
	if b.treesBuilt != nil {
		b.treesBuilt.Add(ctx, int64(len(trees)))
	}

	linkStart := time.Now()
	stats, err := b.linker.LoopThroughHalos(ctx, halos)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	b.recordPass(ctx, "link_halos", linkStart)
	if b.halosLinked != nil {
		b.halosLinked.Add(ctx, int64(stats.Linked))
	}
	if b.halosIgnored != nil {
		b.halosIgnored.Add(ctx, int64(stats.Ignored))
	}
	span.SetAttributes(
		attribute.Int("halos_linked", stats.Linked),
		attribute.Int("halos_ignored", stats.Ignored),
	)

	// Make sure merger trees are fully self-contained.
	start := time.Now()
	if err := b.ensureTreesSelfContained(ctx, trees); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	b.recordPass(ctx, "self_containment", start)

	if b.execParams.EnsureMassGrowth {
		b.logger.Info("making sure halos only grow in mass")
		start = time.Now()
		if err := b.ensureHaloMassGrowth(ctx, trees, simParams); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		b.recordPass(ctx, "mass_growth", start)
	}

	if b.execParams.InterpolateSubhaloProperties {
		b.logger.Info("propagating properties into interpolated subhalos")
		start = time.Now()
		if err := b.spinInterpolatedHalos(ctx, trees, simParams); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		b.recordPass(ctx, "spin_interpolated", start)
	}

	b.logger.Info("defining central subhalos")
	start = time.Now()
	if err := b.defineCentralSubhalos(ctx, trees, simParams); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	b.recordPass(ctx, "define_centrals", start)

	b.logger.Info("defining accretion rate using cosmology")
	start = time.Now()
	if err := b.defineAccretionRateFromDM(ctx, trees, simParams, coolingParams, cosmo, allBaryons); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	b.recordPass(ctx, "accretion", start)

	return trees, nil
}

// ensureTreesSelfContained verifies that every halo reachable through a
// tree's snapshot buckets references that same tree. Read-only, parallel
// across trees.
func (b *TreeBuilder) ensureTreesSelfContained(ctx context.Context, trees []*MergerTree) error {
	ctx, span := tracer.Start(ctx, "forest.ensure_self_contained")
	defer span.End()

	return b.forEachTree(ctx, trees, func(tree *MergerTree) error {
		for _, halos := range tree.HalosBySnapshot {
			for _, halo := range halos {
				if halo.Tree != tree {
					return fmt.Errorf("%w: %s is not actually part of %s", ErrInvalidData, halo, tree)
				}
			}
		}
		return nil
	})
}

// snapshotsIn returns the sorted set of snapshots the population covers.
func snapshotsIn(halos []*Halo) []int {
	seen := make(map[int]struct{})
	for _, halo := range halos {
		seen[halo.Snapshot] = struct{}{}
	}
	snapshots := make([]int, 0, len(seen))
	for snapshot := range seen {
		snapshots = append(snapshots, snapshot)
	}
	sort.Ints(snapshots)
	return snapshots
}
