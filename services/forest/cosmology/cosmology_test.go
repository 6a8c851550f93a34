// Copyright (C) 2026 Caldera Simulations (sims@caldera-sim.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package cosmology

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_ValidParameters(t *testing.T) {
	params := Parameters{OmegaM: 0.3, OmegaB: 0.045, OmegaL: 0.7, Hubble: 0.67}
	cosmo, err := New(params)
	require.NoError(t, err)
	assert.Equal(t, params, cosmo.Params())
	assert.InDelta(t, 0.15, cosmo.UniversalBaryonFraction(), 1e-12)
}

func TestNew_Defaults(t *testing.T) {
	cosmo, err := New(DefaultParameters())
	require.NoError(t, err)
	fb := cosmo.UniversalBaryonFraction()
	assert.Greater(t, fb, 0.0)
	assert.Less(t, fb, 1.0)
}

func TestNew_InvalidParameters(t *testing.T) {
	tests := []struct {
		name   string
		params Parameters
	}{
		{"zero matter density", Parameters{OmegaM: 0, OmegaB: 0.04}},
		{"negative matter density", Parameters{OmegaM: -0.3, OmegaB: 0.04}},
		{"negative baryon density", Parameters{OmegaM: 0.3, OmegaB: -0.01}},
		{"baryons exceed matter", Parameters{OmegaM: 0.04, OmegaB: 0.3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.params)
			require.ErrorIs(t, err, ErrInvalidParameters)
		})
	}
}

func TestUniversalBaryonFraction_PureDarkMatter(t *testing.T) {
	cosmo, err := New(Parameters{OmegaM: 0.3, OmegaB: 0, OmegaL: 0.7, Hubble: 0.7})
	require.NoError(t, err)
	assert.Zero(t, cosmo.UniversalBaryonFraction())
}
