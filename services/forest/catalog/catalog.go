// Copyright (C) 2026 Caldera Simulations (sims@caldera-sim.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package catalog reads structure-finder catalogs and materializes the live
// halo/subhalo population the forest core consumes.
//
// The on-disk format is newline-delimited JSON: one halo record per line,
// subhalo records embedded, descendant relations expressed as raw
// identifiers. Records are validated before materialization; cross-snapshot
// consistency is the forest linker's job, not the reader's.
package catalog

import (
	"errors"
	"fmt"
)

// ErrInvalidCatalog indicates a malformed or internally inconsistent catalog
// file: unparseable records, failed field validation, duplicate identities.
var ErrInvalidCatalog = errors.New("invalid catalog")

// SubhaloRecord is the raw per-subhalo structure-finder output.
type SubhaloRecord struct {
	ID       int64 `json:"id"`
	Snapshot int   `json:"snapshot" validate:"gte=0"`

	Mvir     float64    `json:"mvir" validate:"gte=0"`
	Position [3]float64 `json:"position"`
	Velocity [3]float64 `json:"velocity"`

	// L is the angular momentum vector.
	L [3]float64 `json:"l"`

	Concentration float64 `json:"concentration"`
	Lambda        float64 `json:"lambda"`
	Vvir          float64 `json:"vvir"`

	// Type is "central" or "satellite"; empty means satellite.
	Type string `json:"type,omitempty" validate:"omitempty,oneof=central satellite"`

	Interpolated   bool `json:"interpolated,omitempty"`
	MainProgenitor bool `json:"main_progenitor,omitempty"`

	// HasDescendant gates the raw descendant identifiers below.
	HasDescendant    bool  `json:"has_descendant"`
	DescendantHaloID int64 `json:"descendant_halo_id,omitempty"`
	DescendantID     int64 `json:"descendant_id,omitempty"`
}

// HaloRecord is the raw per-halo structure-finder output, one JSON line in a
// catalog file.
type HaloRecord struct {
	ID       int64 `json:"id"`
	Snapshot int   `json:"snapshot" validate:"gte=0"`

	Mvir     float64    `json:"mvir" validate:"gte=0"`
	Position [3]float64 `json:"position"`
	Velocity [3]float64 `json:"velocity"`

	Concentration float64 `json:"concentration"`
	Lambda        float64 `json:"lambda"`
	Vvir          float64 `json:"vvir"`

	Subhalos []SubhaloRecord `json:"subhalos" validate:"dive"`
}

// validateRecord applies per-record consistency checks beyond the struct
// tags: embedded subhalos must share the halo's snapshot.
func validateRecord(rec *HaloRecord) error {
	for _, sub := range rec.Subhalos {
		if sub.Snapshot != rec.Snapshot {
			return fmt.Errorf("%w: subhalo %d at snapshot %d embedded in halo %d at snapshot %d",
				ErrInvalidCatalog, sub.ID, sub.Snapshot, rec.ID, rec.Snapshot)
		}
	}
	return nil
}
