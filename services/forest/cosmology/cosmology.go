// Copyright (C) 2026 Caldera Simulations (sims@caldera-sim.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package cosmology exposes the cosmological quantities the tree pipeline
// consumes. The forest core only queries the universal baryon fraction.
package cosmology

import (
	"errors"
	"fmt"
)

// ErrInvalidParameters indicates a physically meaningless parameter set.
var ErrInvalidParameters = errors.New("invalid cosmological parameters")

// Parameters are the density parameters and Hubble constant of a flat
// LCDM cosmology.
type Parameters struct {
	// OmegaM is the total matter density parameter.
	OmegaM float64 `yaml:"omega_m" validate:"gt=0"`

	// OmegaB is the baryonic matter density parameter.
	OmegaB float64 `yaml:"omega_b" validate:"gte=0"`

	// OmegaL is the dark energy density parameter.
	OmegaL float64 `yaml:"omega_l" validate:"gte=0"`

	// Hubble is the dimensionless Hubble constant h = H0 / (100 km/s/Mpc).
	Hubble float64 `yaml:"hubble" validate:"gt=0"`
}

// DefaultParameters returns Planck-like fiducial values.
func DefaultParameters() Parameters {
	return Parameters{
		OmegaM: 0.3121,
		OmegaB: 0.0491,
		OmegaL: 0.6879,
		Hubble: 0.6751,
	}
}

// Cosmology answers cosmological queries for a fixed parameter set.
type Cosmology struct {
	params Parameters
}

// New validates the parameters and returns a Cosmology.
func New(params Parameters) (*Cosmology, error) {
	if params.OmegaM <= 0 {
		return nil, fmt.Errorf("%w: OmegaM = %g must be positive", ErrInvalidParameters, params.OmegaM)
	}
	if params.OmegaB < 0 {
		return nil, fmt.Errorf("%w: OmegaB = %g must not be negative", ErrInvalidParameters, params.OmegaB)
	}
	if params.OmegaB > params.OmegaM {
		return nil, fmt.Errorf("%w: OmegaB = %g exceeds OmegaM = %g", ErrInvalidParameters, params.OmegaB, params.OmegaM)
	}
	return &Cosmology{params: params}, nil
}

// UniversalBaryonFraction returns OmegaB / OmegaM, the cosmological ratio of
// baryonic to total matter density.
func (c *Cosmology) UniversalBaryonFraction() float64 {
	return c.params.OmegaB / c.params.OmegaM
}

// Params returns the parameter set this cosmology was built from.
func (c *Cosmology) Params() Parameters {
	return c.params
}
