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
	"github.com/caldera-sim/haloforest/services/forest/cosmology"
)

// defineAccretionRateFromDM derives, per halo, the baryonic mass gained from
// diffuse accretion and accumulates the forest-wide running total per
// snapshot into allBaryons.
//
// A halo's central subhalo receives
//
//	accreted_mass = max(0, (Mvir - sum of ascendant Mvir) * fb)
//
// where fb is the universal baryon fraction: mass the halo gained that
// cannot be attributed to inherited progenitor mass, scaled to its baryonic
// share. Negative values clamp to zero; that is a numerical and physical
// floor, not an error.
//
// Must run after central-subhalo resolution: every halo carries a central.
func (b *TreeBuilder) defineAccretionRateFromDM(ctx context.Context, trees []*MergerTree,
	simParams config.SimulationParameters, coolingParams config.GasCoolingParameters,
	cosmo *cosmology.Cosmology, allBaryons *TotalBaryon) error {

	ctx, span := tracer.Start(ctx, "forest.define_accretion_rate")
	defer span.End()

	baryonFraction := cosmo.UniversalBaryonFraction()

	for _, tree := range trees {
		for snapshot := simParams.MaxSnapshot; snapshot >= simParams.MinSnapshot; snapshot-- {
			for _, halo := range tree.HalosBySnapshot[snapshot] {
				var mvirAscendants float64
				for _, ascendant := range halo.Ascendants {
					mvirAscendants += ascendant.Mvir
				}

				accreted := (halo.Mvir - mvirAscendants) * baryonFraction
				if accreted < 0 {
					accreted = 0
				}
				halo.CentralSubhalo.AccretedMass = accreted
			}
		}
	}

	// Accumulate baryons starting from the highest redshift: the value at
	// snapshot S is the total baryon mass created by accretion up to and
	// including S.
	var totalAccreted float64
	for snapshot := simParams.MinSnapshot; snapshot <= simParams.MaxSnapshot; snapshot++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, tree := range trees {
			for _, halo := range tree.HalosBySnapshot[snapshot] {
				totalAccreted += halo.CentralSubhalo.AccretedMass
			}
		}
		allBaryons.BaryonTotalCreated[snapshot] = totalAccreted
	}

	return nil
}
