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

	"github.com/caldera-sim/haloforest/services/forest/config"
)

// spinInterpolatedHalos redefines angular momentum and concentration of
// interpolated subhalos to that of their main progenitor, and propagates the
// concentration onto the host halo.
//
// Snapshots are walked from latest to earliest per tree so a property
// crosses a run of several consecutive interpolated records correctly. An
// interpolated subhalo ending up with a non-positive concentration is a
// catalog defect and fails with ErrInvalidData.
func (b *TreeBuilder) spinInterpolatedHalos(ctx context.Context, trees []*MergerTree, simParams config.SimulationParameters) error {
	ctx, span := tracer.Start(ctx, "forest.spin_interpolated_halos")
	defer span.End()

	return b.forEachTree(ctx, trees, func(tree *MergerTree) error {
		for snapshot := simParams.MaxSnapshot; snapshot >= simParams.MinSnapshot; snapshot-- {
			for _, halo := range tree.HalosBySnapshot[snapshot] {
				for _, subhalo := range halo.AllSubhalos() {
					if !subhalo.Interpolated {
						continue
					}
					mainProg := subhalo.Main()
					if mainProg == nil {
						continue
					}
					subhalo.L = mainProg.L
					subhalo.Concentration = mainProg.Concentration
					subhalo.HostHalo.Concentration = mainProg.Concentration

					if subhalo.Concentration <= 0 {
						return fmt.Errorf("%w: interpolated %s has concentration <= 0",
							ErrInvalidData, subhalo)
					}
				}
			}
		}
		return nil
	})
}
