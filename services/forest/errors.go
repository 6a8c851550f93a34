// Copyright (C) 2026 Caldera Simulations (sims@caldera-sim.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package forest

import (
	"errors"
	"fmt"
)

// Sentinel errors for forest construction.
var (
	// ErrInvalidData indicates a structural or topological invariant
	// violation in the input catalogs or in the partially built forest:
	// duplicate descendants, indirect parentage across snapshots, a halo
	// linked before its descendant joined a tree, and so on. Always fatal.
	ErrInvalidData = errors.New("invalid data")

	// ErrInvalidArgument indicates a violated post-condition of central
	// subhalo resolution (zero or more than one central per halo). Fatal.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrSubhaloNotFound indicates a subhalo's claimed descendant subhalo
	// does not exist inside the claimed descendant halo. Unlike
	// ErrInvalidData this condition is policy-gated: with
	// SkipMissingDescendants enabled the offending subhalo is pruned and
	// the run continues.
	ErrSubhaloNotFound = errors.New("descendant subhalo not found")
)

// SubhaloNotFoundError carries the unresolved descendant identity for a
// missing-descendant condition. It wraps ErrSubhaloNotFound so callers can
// match with errors.Is.
type SubhaloNotFoundError struct {
	// SubhaloID is the claimed descendant subhalo identity that could not
	// be resolved.
	SubhaloID SubhaloID

	// HaloID is the descendant halo that was searched.
	HaloID HaloID
}

func (e *SubhaloNotFoundError) Error() string {
	return fmt.Sprintf("descendant subhalo %d not found in descendant halo %d", e.SubhaloID, e.HaloID)
}

func (e *SubhaloNotFoundError) Unwrap() error { return ErrSubhaloNotFound }
