// Copyright (C) 2026 Caldera Simulations (sims@caldera-sim.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package forest

import (
	"context"

	"github.com/caldera-sim/haloforest/services/forest/config"
)

// ensureHaloMassGrowth guarantees virial mass is non-decreasing along each
// halo's descendant chain: where a progenitor is heavier than its
// descendant, the descendant's Mvir is raised to match.
//
// Snapshots are processed ascending within a tree so a raise propagates down
// the rest of the chain; trees are independent and run in parallel.
func (b *TreeBuilder) ensureHaloMassGrowth(ctx context.Context, trees []*MergerTree, simParams config.SimulationParameters) error {
	ctx, span := tracer.Start(ctx, "forest.ensure_halo_mass_growth")
	defer span.End()

	return b.forEachTree(ctx, trees, func(tree *MergerTree) error {
		for snapshot := simParams.MinSnapshot; snapshot < simParams.MaxSnapshot; snapshot++ {
			for _, halo := range tree.HalosBySnapshot[snapshot] {
				if halo.Descendant == nil {
					continue
				}
				if halo.Mvir > halo.Descendant.Mvir {
					halo.Descendant.Mvir = halo.Mvir
				}
			}
		}
		return nil
	})
}
