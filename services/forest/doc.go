// Copyright (C) 2026 Caldera Simulations (sims@caldera-sim.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package forest reconstructs halo merger trees from structure-finder catalogs.
//
// A structure finder emits, per simulation snapshot, a catalog of dark-matter
// halos and the subhalos they host, each subhalo carrying raw identifiers for
// its claimed descendant at the next snapshot. This package resolves those raw
// identifiers into a forest of self-contained merger trees: one tree per halo
// present at the most recent snapshot under consideration, each earlier halo
// attached to exactly one tree through subhalo-level descendant links.
//
// # Ownership Model
//
// Trees own their halos transitively through the snapshot-indexed buckets in
// MergerTree. A Halo's Tree field and a Subhalo's HostHalo field are advisory
// back-references used for validation and lookup; they never determine
// lifetime. Ascendant/descendant pointers form cycles-free chains across
// snapshots and are established exclusively by the linker.
//
// # Pipeline
//
// TreeBuilder.BuildTrees runs the fixed pipeline:
//  1. Seed one tree per halo at the root snapshot.
//  2. Link halos/subhalos snapshot by snapshot (sequential, late to early).
//  3. Verify every tree is self-contained.
//  4. Optionally force virial mass to grow along descendant chains.
//  5. Optionally propagate spin/concentration into interpolated subhalos.
//  6. Designate exactly one central subhalo per halo per snapshot.
//  7. Account diffusely accreted baryonic mass into TotalBaryon.
//
// Steps 3-6 are data-parallel across trees; trees share no mutable state, so
// no locking is involved. Step 2 and step 7 are inherently sequential.
//
// # Thread Safety
//
// A TreeBuilder is safe to reuse across runs, but a single BuildTrees call
// owns the halo population it is given; callers must not mutate halos while
// a build is in flight.
package forest
