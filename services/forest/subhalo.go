// Copyright (C) 2026 Caldera Simulations (sims@caldera-sim.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package forest

import "fmt"

// SubhaloID identifies a subhalo uniquely within a run.
type SubhaloID int64

// Vector is a 3-component cartesian quantity (position, velocity, angular
// momentum) in simulation units.
type Vector struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// SubhaloType tags a subhalo as the central structure of its host halo or as
// one of the host's satellites.
type SubhaloType int

const (
	// SubhaloTypeSatellite is the default type for every subhalo read from
	// a catalog; centrals are promoted during central-subhalo resolution.
	SubhaloTypeSatellite SubhaloType = iota

	// SubhaloTypeCentral marks the single subhalo that carries its host
	// halo's identity at a snapshot.
	SubhaloTypeCentral
)

// String returns the string representation of the SubhaloType.
func (t SubhaloType) String() string {
	switch t {
	case SubhaloTypeSatellite:
		return "satellite"
	case SubhaloTypeCentral:
		return "central"
	default:
		return "unknown"
	}
}

// Subhalo is a bound structure hosted by a Halo at one snapshot.
//
// The DescendantHaloID/DescendantID pair is raw structure-finder output and
// is only meaningful while HasDescendant is set and Descendant is still nil;
// once the linker resolves the pair into a live Descendant pointer the raw
// identifiers are superseded.
type Subhalo struct {
	ID       SubhaloID
	Snapshot int

	// Mvir is the virial mass.
	Mvir float64

	Position Vector
	Velocity Vector

	// L is the angular momentum vector.
	L Vector

	// Concentration is the NFW halo concentration.
	Concentration float64

	// Lambda is the dimensionless spin parameter.
	Lambda float64

	// Vvir is the virial velocity as measured by the structure finder.
	Vvir float64

	Type SubhaloType

	// HostHalo is a non-owning back-reference to the halo hosting this
	// subhalo. Invariant: the host lists this subhalo as its central or as
	// one of its satellites.
	HostHalo *Halo

	// Ascendants are the subhalos at the previous snapshot that merged
	// into (or became) this subhalo, in linking order.
	Ascendants []*Subhalo

	// Descendant is the resolved descendant subhalo; at most one.
	Descendant *Subhalo

	// MainProgenitor marks this subhalo as the main progenitor of its
	// descendant. At most one ascendant of any subhalo carries the flag.
	MainProgenitor bool

	// Interpolated marks records synthesized by the structure finder
	// rather than directly detected.
	Interpolated bool

	// HasDescendant reports whether the structure finder supplied a
	// descendant claim for this subhalo.
	HasDescendant bool

	// DescendantHaloID and DescendantID are the raw descendant claim.
	DescendantHaloID HaloID
	DescendantID     SubhaloID

	// LastSnapshotIdentified is the snapshot at which this subhalo's
	// independent lineage terminates as a separately resolvable branch.
	LastSnapshotIdentified int

	// AccretedMass is the diffusely accreted baryonic mass assigned to
	// central subhalos by the accretion pass.
	AccretedMass float64
}

// Main returns the ascendant flagged as main progenitor, or nil if no
// ascendant carries the flag.
func (s *Subhalo) Main() *Subhalo {
	for _, asc := range s.Ascendants {
		if asc.MainProgenitor {
			return asc
		}
	}
	return nil
}

func (s *Subhalo) String() string {
	return fmt.Sprintf("subhalo %d (snapshot %d)", s.ID, s.Snapshot)
}
