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
	"sort"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/caldera-sim/haloforest/services/forest/config"
)

// LinkStats summarize one linking pass.
type LinkStats struct {
	// Linked counts halos attached to a tree through at least one
	// subhalo-level link.
	Linked int

	// Ignored counts halos abandoned because their lineage could not be
	// resolved (no linkable subhalos, or a pruned descendant chain).
	Ignored int
}

// Linker discovers ascendant/descendant edges across the halo population and
// attaches halos to the trees seeded by the TreeBuilder, mutating halos,
// subhalos and trees in place.
//
// The pass is inherently sequential: links at snapshot S depend on halos at
// snapshot S+1 already belonging to a tree.
type Linker interface {
	LoopThroughHalos(ctx context.Context, halos []*Halo) (LinkStats, error)
}

// linkOutcome is the tri-state result of one subhalo link attempt. Fatal
// conditions travel separately as errors.
type linkOutcome int

const (
	// outcomeSkipped: the subhalo was detached (dead end or pruned missing
	// descendant); the halo's remaining subhalos are still processed.
	outcomeSkipped linkOutcome = iota

	// outcomeLinked: an edge was established and the halo joined a tree.
	outcomeLinked

	// outcomeAbandoned: the claimed descendant halo does not exist; the
	// halo and its entire remaining ascendant chain are abandoned.
	outcomeAbandoned
)

// HaloBasedLinker resolves subhalo descendant claims through an identity
// index of the full halo population.
//
// For each snapshot S in strictly descending recency order (skipping the
// already seeded root snapshot), for each halo H at S, for each hosted
// subhalo SH: resolve SH's claimed descendant halo by identity, locate the
// claimed descendant subhalo inside it, enforce direct parentage, and link
// subhalo, halo and tree levels together.
type HaloBasedLinker struct {
	execParams config.ExecutionParameters
	logger     *slog.Logger
}

// NewHaloBasedLinker creates the identity-based linking strategy.
func NewHaloBasedLinker(execParams config.ExecutionParameters, logger *slog.Logger) *HaloBasedLinker {
	if logger == nil {
		logger = slog.Default()
	}
	return &HaloBasedLinker{execParams: execParams, logger: logger}
}

// LoopThroughHalos implements Linker.
func (l *HaloBasedLinker) LoopThroughHalos(ctx context.Context, halos []*Halo) (LinkStats, error) {
	ctx, span := tracer.Start(ctx, "forest.loop_through_halos")
	defer span.End()

	// Index all halos by snapshot and by identity. Both indices are
	// transient, rebuilt once per run.
	halosBySnapshot := make(map[int][]*Halo)
	halosByID := make(map[HaloID]*Halo, len(halos))
	for _, halo := range halos {
		halosBySnapshot[halo.Snapshot] = append(halosBySnapshot[halo.Snapshot], halo)
		halosByID[halo.ID] = halo
	}

	// All snapshots present in the population, most recent first, minus
	// the root snapshot: roots were already seeded into trees.
	snapshots := make([]int, 0, len(halosBySnapshot))
	for snapshot := range halosBySnapshot {
		snapshots = append(snapshots, snapshot)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(snapshots)))
	if len(snapshots) > 0 {
		snapshots = snapshots[1:]
	}

	var stats LinkStats
	for _, snapshot := range snapshots {
		if err := ctx.Err(); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return stats, err
		}
		l.logger.Info("linking halos/subhalos", slog.Int("snapshot", snapshot))

		ignored := 0
		for _, halo := range halosBySnapshot[snapshot] {
			linked, abandoned := false, false
			for _, subhalo := range halo.AllSubhalos() {
				outcome, err := l.linkSubhalo(subhalo, halo, halosByID)
				if err != nil {
					span.RecordError(err)
					span.SetStatus(codes.Error, err.Error())
					return stats, err
				}
				if outcome == outcomeLinked {
					linked = true
				}
				if outcome == outcomeAbandoned {
					abandoned = true
					break
				}
			}

			// A halo with zero linked subhalos cannot belong to any
			// tree; drop it from future lookups so its own
			// progenitors are abandoned in turn.
			if abandoned || !linked {
				delete(halosByID, halo.ID)
				ignored++
				continue
			}
			stats.Linked++
		}

		stats.Ignored += ignored
		total := len(halosBySnapshot[snapshot])
		if total > 0 {
			l.logger.Debug("halos ignored at snapshot due to missing descendants",
				slog.Int("snapshot", snapshot),
				slog.Int("ignored", ignored),
				slog.Int("total", total),
				slog.Float64("ignored_pct", float64(ignored)*100/float64(total)),
			)
		}
	}

	span.SetAttributes(
		attribute.Int("halos_linked", stats.Linked),
		attribute.Int("halos_ignored", stats.Ignored),
	)
	return stats, nil
}

// linkSubhalo attempts to resolve and establish one subhalo's descendant
// link. Fatal invariant violations come back as errors; expected dead ends
// come back as outcomeSkipped or outcomeAbandoned.
func (l *HaloBasedLinker) linkSubhalo(subhalo *Subhalo, halo *Halo, halosByID map[HaloID]*Halo) (linkOutcome, error) {
	// No descendant claimed: a dead end, detach and move on.
	if !subhalo.HasDescendant {
		l.logger.Debug("subhalo has no descendant, not following",
			slog.Int64("subhalo", int64(subhalo.ID)), slog.Int("snapshot", subhalo.Snapshot))
		halo.RemoveSubhalo(subhalo)
		return outcomeSkipped, nil
	}

	// The claimed descendant halo must still be in the index; if it is
	// not, this halo and all its progenitors are not worth following.
	descHalo, ok := halosByID[subhalo.DescendantHaloID]
	if !ok {
		l.logger.Debug("descendant halo does not exist, abandoning halo and its progenitors",
			slog.Int64("subhalo", int64(subhalo.ID)),
			slog.Int64("descendant_halo", int64(subhalo.DescendantHaloID)),
			slog.Int64("descendant_subhalo", int64(subhalo.DescendantID)),
		)
		return outcomeAbandoned, nil
	}

	for _, descSubhalo := range descHalo.AllSubhalos() {
		if descSubhalo.ID != subhalo.DescendantID {
			continue
		}

		// Only direct parentage is supported: descendants must live in
		// the snapshot immediately after ours.
		if subhalo.Snapshot != descSubhalo.Snapshot-1 {
			return 0, fmt.Errorf("%w: %s is not a direct descendant of %s",
				ErrInvalidData, descSubhalo, subhalo)
		}

		if err := link(subhalo, descSubhalo, halo, descHalo); err != nil {
			return 0, err
		}
		return outcomeLinked, nil
	}

	// The descendant subhalo is missing from the descendant halo. Policy
	// decides between aborting, pruning loudly and pruning silently.
	if !l.execParams.SkipMissingDescendants {
		return 0, &SubhaloNotFoundError{SubhaloID: subhalo.DescendantID, HaloID: descHalo.ID}
	}
	if l.execParams.WarnOnMissingDescendants {
		l.logger.Warn("descendant subhalo not found, removing subhalo",
			slog.Int64("subhalo", int64(subhalo.ID)),
			slog.Float64("mvir", subhalo.Mvir),
			slog.Int64("descendant_subhalo", int64(subhalo.DescendantID)),
			slog.Int64("descendant_halo", int64(descHalo.ID)),
		)
	}
	halo.RemoveSubhalo(subhalo)
	return outcomeSkipped, nil
}

// link establishes one ascendant/descendant edge at subhalo, halo and tree
// level.
//
// Ordering matters: linking proceeds from later to earlier snapshots, so
// descHalo must already belong to a tree; parentHalo inherits that tree and
// is appended to its snapshot bucket only when the halo-level ascendant
// insertion was new, preventing duplicate tree membership when several
// subhalo links connect the same halo pair.
func link(parentSubhalo, descSubhalo *Subhalo, parentHalo, descHalo *Halo) error {
	descSubhalo.Ascendants = append(descSubhalo.Ascendants, parentSubhalo)

	if parentSubhalo.Descendant != nil {
		return fmt.Errorf("%w: %s already has a descendant %s but %s is claiming to be its descendant as well",
			ErrInvalidData, parentSubhalo, parentSubhalo.Descendant, descSubhalo)
	}
	parentSubhalo.Descendant = descSubhalo

	halosLinked := descHalo.addAscendant(parentHalo)

	if parentHalo.Descendant != nil && parentHalo.Descendant.ID != descHalo.ID {
		return fmt.Errorf("%w: %s already has a descendant %s but %s is claiming to be its descendant as well",
			ErrInvalidData, parentHalo, parentHalo.Descendant, descHalo)
	}
	parentHalo.Descendant = descHalo

	if descHalo.Tree == nil {
		return fmt.Errorf("%w: descendant %s has no merger tree associated to it", ErrInvalidData, descHalo)
	}
	parentHalo.Tree = descHalo.Tree
	if halosLinked {
		parentHalo.Tree.AddHalo(parentHalo)
	}
	return nil
}
