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

	"github.com/caldera-sim/haloforest/services/forest/config"
)

// defineCentralSubhalo designates the subhalo as the central of the halo.
//
// The halo inherits the central's position, velocity, concentration and
// spin. The central's directly measured virial velocity wins over the halo's
// own value when larger. The subhalo leaves the satellite list and is tagged
// central, and the halo transitions to resolved.
func defineCentralSubhalo(halo *Halo, subhalo *Subhalo) (*Subhalo, error) {
	halo.CentralSubhalo = subhalo
	halo.Position = subhalo.Position
	halo.Velocity = subhalo.Velocity
	halo.Concentration = subhalo.Concentration
	halo.Lambda = subhalo.Lambda

	if halo.Vvir < subhalo.Vvir {
		halo.Vvir = subhalo.Vvir
	}

	if err := halo.removeSatellite(subhalo); err != nil {
		return nil, err
	}
	subhalo.Type = SubhaloTypeCentral

	return subhalo, nil
}

// defineCentralSubhalos designates exactly one central subhalo per halo per
// snapshot, consistently across time.
//
// Description:
//
//	Per tree, snapshots are walked from latest to earliest. An unresolved
//	halo's first hosted subhalo (finder order) becomes its central; the
//	resolver then walks backward along the main-progenitor chain, resolving
//	each main progenitor's host halo the same way, so a branch keeps one
//	identity across its whole lifetime. Non-main-progenitor ascendants met
//	along the chain are stamped with the snapshot at which their independent
//	lineage terminates.
//
//	When no ascendant carries the main-progenitor flag, the most massive
//	ascendant is declared main progenitor ("first max" in ascendant order).
//	This is a tie-break policy, surfaced as a warning, not a data error.
//
//	A post-pass verifies the exactly-one-central invariant for every halo at
//	every snapshot; zero or excess centrals fail with ErrInvalidArgument.
//
// Thread Safety: parallel across trees; each tree is walked by one worker.
func (b *TreeBuilder) defineCentralSubhalos(ctx context.Context, trees []*MergerTree, simParams config.SimulationParameters) error {
	ctx, span := tracer.Start(ctx, "forest.define_central_subhalos")
	defer span.End()

	err := b.forEachTree(ctx, trees, func(tree *MergerTree) error {
		for snapshot := simParams.MaxSnapshot; snapshot >= simParams.MinSnapshot; snapshot-- {
			for _, halo := range tree.HalosBySnapshot[snapshot] {
				if halo.CentralSubhalo != nil {
					continue
				}
				if err := b.resolveBranch(halo); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	// Make sure each halo has exactly one central subhalo and that the
	// rest are satellites.
	return b.forEachTree(ctx, trees, func(tree *MergerTree) error {
		for snapshot := simParams.MinSnapshot; snapshot <= simParams.MaxSnapshot; snapshot++ {
			for _, halo := range tree.HalosBySnapshot[snapshot] {
				centrals := 0
				for _, subhalo := range halo.AllSubhalos() {
					if subhalo.Type != SubhaloTypeCentral {
						continue
					}
					centrals++
					if centrals > 1 {
						return fmt.Errorf("%w: %s has more than one central subhalo at snapshot %d",
							ErrInvalidArgument, halo, snapshot)
					}
				}
				if centrals == 0 {
					return fmt.Errorf("%w: %s has no central subhalo at snapshot %d",
						ErrInvalidArgument, halo, snapshot)
				}
			}
		}
		return nil
	})
}

// resolveBranch resolves the halo as central and walks backward through its
// main-progenitor chain until the chain runs out of ascendants or reaches a
// branch that was already resolved.
func (b *TreeBuilder) resolveBranch(halo *Halo) error {
	hosted := halo.AllSubhalos()
	if len(hosted) == 0 {
		return fmt.Errorf("%w: %s has no central subhalo (hosts no subhalos)", ErrInvalidArgument, halo)
	}

	subhalo, err := defineCentralSubhalo(halo, hosted[0])
	if err != nil {
		return err
	}

	// Loop going backwards through history:
	//  - find the main progenitor of this subhalo and its host halo
	//  - define that main progenitor as the central of the host
	//  - stamp last_snapshot_identified on the non-main ascendants
	//  - repeat
	ascendants := subhalo.Ascendants
	for len(ascendants) > 0 {
		mainProg := subhalo.Main()
		if mainProg == nil {
			mainProg = mostMassive(ascendants)
			mainProg.MainProgenitor = true
			b.logger.Warn("no main progenitor defined, declared most massive ascendant",
				slog.Int64("subhalo", int64(subhalo.ID)),
				slog.Int64("main_progenitor", int64(mainProg.ID)),
				slog.Float64("mvir", mainProg.Mvir),
			)
		}

		// A resolved ascendant host means its whole branch was already
		// processed; stop here.
		ascendantHalo := mainProg.HostHalo
		if ascendantHalo.CentralSubhalo != nil {
			break
		}

		subhalo, err = defineCentralSubhalo(ascendantHalo, mainProg)
		if err != nil {
			return err
		}

		// Every other ascendant's independent lineage terminates here.
		for _, asc := range ascendants {
			if !asc.MainProgenitor {
				asc.LastSnapshotIdentified = asc.Snapshot
			}
		}

		ascendants = subhalo.Ascendants
	}
	return nil
}

// mostMassive returns the first maximum-Mvir subhalo in the slice's natural
// order. The slice must be non-empty.
func mostMassive(subhalos []*Subhalo) *Subhalo {
	best := subhalos[0]
	for _, subhalo := range subhalos[1:] {
		if subhalo.Mvir > best.Mvir {
			best = subhalo
		}
	}
	return best
}
