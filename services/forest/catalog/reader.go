// Copyright (C) 2026 Caldera Simulations (sims@caldera-sim.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package catalog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/caldera-sim/haloforest/services/forest"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Read parses a newline-delimited JSON catalog and materializes the halo
// population.
//
// Inputs:
//
//	r - Catalog stream; one HaloRecord per line, blank lines skipped.
//
// Outputs:
//
//	[]*forest.Halo - Live population with host back-references wired;
//	                 descendant relations stay raw for the linker.
//	error - ErrInvalidCatalog (wrapped) on parse, validation or duplicate
//	        identity failures, annotated with the offending line number.
func Read(r io.Reader) ([]*forest.Halo, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)

	var halos []*forest.Halo
	seenHalos := make(map[forest.HaloID]struct{})
	seenSubhalos := make(map[forest.SubhaloID]struct{})

	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var rec HaloRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidCatalog, line, err)
		}
		if err := validate.Struct(&rec); err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidCatalog, line, err)
		}
		if err := validateRecord(&rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		if _, dup := seenHalos[forest.HaloID(rec.ID)]; dup {
			return nil, fmt.Errorf("%w: line %d: duplicate halo id %d", ErrInvalidCatalog, line, rec.ID)
		}
		seenHalos[forest.HaloID(rec.ID)] = struct{}{}
		for _, sub := range rec.Subhalos {
			if _, dup := seenSubhalos[forest.SubhaloID(sub.ID)]; dup {
				return nil, fmt.Errorf("%w: line %d: duplicate subhalo id %d", ErrInvalidCatalog, line, sub.ID)
			}
			seenSubhalos[forest.SubhaloID(sub.ID)] = struct{}{}
		}

		halos = append(halos, materialize(&rec))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return halos, nil
}

// ReadFile opens and reads a catalog file; see Read.
func ReadFile(path string) ([]*forest.Halo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog %s: %w", path, err)
	}
	defer f.Close()
	return Read(f)
}

// materialize converts one validated record into a live halo with hosted
// subhalos. A subhalo record typed "central" is installed as the halo's
// central; any further "central" records stay in the satellite list with the
// tag preserved so the central-subhalo resolver can reject the catalog.
func materialize(rec *HaloRecord) *forest.Halo {
	halo := &forest.Halo{
		ID:            forest.HaloID(rec.ID),
		Snapshot:      rec.Snapshot,
		Mvir:          rec.Mvir,
		Position:      vec(rec.Position),
		Velocity:      vec(rec.Velocity),
		Concentration: rec.Concentration,
		Lambda:        rec.Lambda,
		Vvir:          rec.Vvir,
	}

	for _, sub := range rec.Subhalos {
		subhalo := &forest.Subhalo{
			ID:               forest.SubhaloID(sub.ID),
			Snapshot:         sub.Snapshot,
			Mvir:             sub.Mvir,
			Position:         vec(sub.Position),
			Velocity:         vec(sub.Velocity),
			L:                vec(sub.L),
			Concentration:    sub.Concentration,
			Lambda:           sub.Lambda,
			Vvir:             sub.Vvir,
			Interpolated:     sub.Interpolated,
			MainProgenitor:   sub.MainProgenitor,
			HasDescendant:    sub.HasDescendant,
			DescendantHaloID: forest.HaloID(sub.DescendantHaloID),
			DescendantID:     forest.SubhaloID(sub.DescendantID),
			HostHalo:         halo,
		}
		if sub.Type == "central" {
			subhalo.Type = forest.SubhaloTypeCentral
			if halo.CentralSubhalo == nil {
				halo.CentralSubhalo = subhalo
				continue
			}
		}
		halo.SatelliteSubhalos = append(halo.SatelliteSubhalos, subhalo)
	}
	return halo
}

func vec(a [3]float64) forest.Vector {
	return forest.Vector{X: a[0], Y: a[1], Z: a[2]}
}
