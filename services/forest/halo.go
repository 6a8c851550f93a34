// Copyright (C) 2026 Caldera Simulations (sims@caldera-sim.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package forest

import "fmt"

// HaloID identifies a halo uniquely within a run.
type HaloID int64

// Halo is a top-level gravitationally bound dark-matter structure at one
// snapshot.
//
// Invariants:
//   - A halo belongs to exactly one tree once linked.
//   - Every subhalo listed as central or satellite references this halo as
//     its host.
//   - At most one descendant halo; re-linking to the same descendant is
//     tolerated because several subhalo-level links can connect the same
//     halo pair.
type Halo struct {
	ID       HaloID
	Snapshot int

	// Mvir is the virial mass.
	Mvir float64

	Position Vector
	Velocity Vector

	// Concentration is the NFW halo concentration.
	Concentration float64

	// Lambda is the dimensionless spin parameter.
	Lambda float64

	// Vvir is the virial velocity derived from total mass and redshift;
	// central-subhalo resolution may raise it to the structure finder's
	// directly measured value.
	Vvir float64

	// Ascendants are the progenitor halos at the previous snapshot,
	// unique by identity.
	Ascendants []*Halo

	// Descendant is the resolved descendant halo; at most one.
	Descendant *Halo

	// CentralSubhalo is the designated central subhalo; nil until
	// central-subhalo resolution runs.
	CentralSubhalo *Subhalo

	// SatelliteSubhalos are the hosted subhalos not designated central.
	SatelliteSubhalos []*Subhalo

	// Tree is a shared, non-owning reference to the merger tree this halo
	// belongs to; nil until the linker attaches the halo to a tree.
	Tree *MergerTree
}

// AllSubhalos returns the hosted subhalos as a fresh slice, central first
// when one is designated, followed by the satellites in finder order.
//
// The returned slice is a snapshot: callers may detach subhalos from the
// halo while ranging over it.
func (h *Halo) AllSubhalos() []*Subhalo {
	subhalos := make([]*Subhalo, 0, len(h.SatelliteSubhalos)+1)
	if h.CentralSubhalo != nil {
		subhalos = append(subhalos, h.CentralSubhalo)
	}
	return append(subhalos, h.SatelliteSubhalos...)
}

// RemoveSubhalo revokes the subhalo's membership of this halo, whether it is
// the central or a satellite. Unknown subhalos are ignored; the linker uses
// this to detach dead-end subhalos it may have already pruned.
func (h *Halo) RemoveSubhalo(subhalo *Subhalo) {
	if h.CentralSubhalo == subhalo {
		h.CentralSubhalo = nil
		return
	}
	for i, sat := range h.SatelliteSubhalos {
		if sat == subhalo {
			h.SatelliteSubhalos = append(h.SatelliteSubhalos[:i], h.SatelliteSubhalos[i+1:]...)
			return
		}
	}
}

// removeSatellite removes the subhalo from the satellite list. A halo that
// does not list the subhalo has a corrupt central/satellite bookkeeping and
// yields ErrInvalidData.
func (h *Halo) removeSatellite(subhalo *Subhalo) error {
	for i, sat := range h.SatelliteSubhalos {
		if sat == subhalo {
			h.SatelliteSubhalos = append(h.SatelliteSubhalos[:i], h.SatelliteSubhalos[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s does not list %s as a satellite", ErrInvalidData, h, subhalo)
}

// addAscendant inserts the halo into the ascendant set, unique by identity.
// It reports whether the insertion was new.
func (h *Halo) addAscendant(ascendant *Halo) bool {
	for _, asc := range h.Ascendants {
		if asc.ID == ascendant.ID {
			return false
		}
	}
	h.Ascendants = append(h.Ascendants, ascendant)
	return true
}

func (h *Halo) String() string {
	return fmt.Sprintf("halo %d (snapshot %d)", h.ID, h.Snapshot)
}
