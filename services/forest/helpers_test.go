// Copyright (C) 2026 Caldera Simulations (sims@caldera-sim.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package forest

import (
	"io"
	"log/slog"

	"github.com/caldera-sim/haloforest/services/forest/config"
	"github.com/caldera-sim/haloforest/services/forest/cosmology"
)

// Helper to build execution parameters with root snapshot first in the
// output list and strict missing-descendant policy.
func testExecParams(snapshots ...int) config.ExecutionParameters {
	return config.ExecutionParameters{
		OutputSnapshots:          snapshots,
		SkipMissingDescendants:   false,
		WarnOnMissingDescendants: false,
		WorkerCount:              2,
	}
}

func testSimParams(minSnapshot, maxSnapshot int) config.SimulationParameters {
	return config.SimulationParameters{MinSnapshot: minSnapshot, MaxSnapshot: maxSnapshot}
}

func testCoolingParams() config.GasCoolingParameters {
	return config.GasCoolingParameters{MaxFractionalAccretedMass: 1.0}
}

// testCosmology has a baryon fraction of exactly 0.15.
func testCosmology() *cosmology.Cosmology {
	cosmo, err := cosmology.New(cosmology.Parameters{
		OmegaM: 0.30,
		OmegaB: 0.045,
		OmegaL: 0.70,
		Hubble: 0.67,
	})
	if err != nil {
		panic(err)
	}
	return cosmo
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestHalo(id HaloID, snapshot int, mvir float64) *Halo {
	return &Halo{ID: id, Snapshot: snapshot, Mvir: mvir}
}

// newTestSubhalo creates a satellite subhalo hosted by halo.
func newTestSubhalo(id SubhaloID, halo *Halo, mvir float64) *Subhalo {
	subhalo := &Subhalo{
		ID:       id,
		Snapshot: halo.Snapshot,
		Mvir:     mvir,
		HostHalo: halo,
	}
	halo.SatelliteSubhalos = append(halo.SatelliteSubhalos, subhalo)
	return subhalo
}

// claimDescendant records a raw descendant claim on the subhalo.
func claimDescendant(subhalo *Subhalo, haloID HaloID, subhaloID SubhaloID) {
	subhalo.HasDescendant = true
	subhalo.DescendantHaloID = haloID
	subhalo.DescendantID = subhaloID
}

// chain builds a single-subhalo halo chain across consecutive snapshots with
// the given virial masses, claims wired from each snapshot to the next.
// Halo IDs are 100+i, subhalo IDs 200+i for snapshot index i.
func chain(masses ...float64) []*Halo {
	halos := make([]*Halo, len(masses))
	subhalos := make([]*Subhalo, len(masses))
	for i, mass := range masses {
		halos[i] = newTestHalo(HaloID(100+i), i, mass)
		subhalos[i] = newTestSubhalo(SubhaloID(200+i), halos[i], mass)
	}
	for i := 0; i < len(masses)-1; i++ {
		claimDescendant(subhalos[i], halos[i+1].ID, subhalos[i+1].ID)
	}
	return halos
}
