// Copyright (C) 2026 Caldera Simulations (sims@caldera-sim.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package forest

import "fmt"

// MergerTree is the connected history of one root halo and all of its
// progenitors across snapshots.
//
// Lifecycle: created when a root halo is found at the most recent snapshot
// under consideration; grows as the linker attaches earlier halos; never
// merges with another tree and never loses a halo. Self-containment is
// validated after linking, not achieved by removal.
type MergerTree struct {
	ID int

	// HalosBySnapshot maps a snapshot index to the halos belonging to this
	// tree at that snapshot, in attachment order.
	HalosBySnapshot map[int][]*Halo
}

// NewMergerTree creates an empty tree with the given sequential identity.
func NewMergerTree(id int) *MergerTree {
	return &MergerTree{
		ID:              id,
		HalosBySnapshot: make(map[int][]*Halo),
	}
}

// AddHalo appends the halo to the tree's bucket for the halo's snapshot.
// Callers are responsible for not attaching the same halo twice; the linker
// guards this with the halo-level ascendant set.
func (t *MergerTree) AddHalo(halo *Halo) {
	t.HalosBySnapshot[halo.Snapshot] = append(t.HalosBySnapshot[halo.Snapshot], halo)
}

// HaloCount returns the number of halos attached to the tree.
func (t *MergerTree) HaloCount() int {
	n := 0
	for _, halos := range t.HalosBySnapshot {
		n += len(halos)
	}
	return n
}

func (t *MergerTree) String() string {
	return fmt.Sprintf("merger tree %d", t.ID)
}

// TotalBaryon accumulates, per snapshot, the running total of diffusely
// accreted baryonic mass across the whole forest. Mutated only by the
// accretion pass.
type TotalBaryon struct {
	// BaryonTotalCreated maps a snapshot to the cumulative baryon mass
	// created by accretion up to and including that snapshot.
	BaryonTotalCreated map[int]float64
}

// NewTotalBaryon creates an empty accumulator.
func NewTotalBaryon() *TotalBaryon {
	return &TotalBaryon{BaryonTotalCreated: make(map[int]float64)}
}
