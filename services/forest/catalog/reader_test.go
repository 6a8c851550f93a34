// Copyright (C) 2026 Caldera Simulations (sims@caldera-sim.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package catalog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caldera-sim/haloforest/services/forest"
)

const sampleCatalog = `
{"id":1,"snapshot":0,"mvir":80,"position":[1,2,3],"vvir":110,"subhalos":[{"id":10,"snapshot":0,"mvir":80,"l":[0.1,0.2,0.3],"concentration":6,"lambda":0.03,"has_descendant":true,"descendant_halo_id":2,"descendant_id":11}]}

{"id":2,"snapshot":1,"mvir":100,"subhalos":[{"id":11,"snapshot":1,"mvir":100,"has_descendant":false},{"id":12,"snapshot":1,"mvir":5,"interpolated":true,"main_progenitor":true,"has_descendant":false}]}
`

func TestRead_MaterializesPopulation(t *testing.T) {
	halos, err := Read(strings.NewReader(sampleCatalog))
	require.NoError(t, err)
	require.Len(t, halos, 2)

	h0 := halos[0]
	assert.Equal(t, forest.HaloID(1), h0.ID)
	assert.Equal(t, 0, h0.Snapshot)
	assert.Equal(t, 80.0, h0.Mvir)
	assert.Equal(t, forest.Vector{X: 1, Y: 2, Z: 3}, h0.Position)
	assert.Equal(t, 110.0, h0.Vvir)

	require.Len(t, h0.SatelliteSubhalos, 1)
	sh0 := h0.SatelliteSubhalos[0]
	assert.Equal(t, forest.SubhaloID(10), sh0.ID)
	assert.Same(t, h0, sh0.HostHalo)
	assert.Equal(t, forest.SubhaloTypeSatellite, sh0.Type)
	assert.Equal(t, forest.Vector{X: 0.1, Y: 0.2, Z: 0.3}, sh0.L)
	assert.Equal(t, 6.0, sh0.Concentration)

	// Descendant relations stay raw; the linker resolves them.
	assert.True(t, sh0.HasDescendant)
	assert.Equal(t, forest.HaloID(2), sh0.DescendantHaloID)
	assert.Equal(t, forest.SubhaloID(11), sh0.DescendantID)
	assert.Nil(t, sh0.Descendant)

	h1 := halos[1]
	require.Len(t, h1.SatelliteSubhalos, 2)
	assert.False(t, h1.SatelliteSubhalos[0].HasDescendant)
	assert.True(t, h1.SatelliteSubhalos[1].Interpolated)
	assert.True(t, h1.SatelliteSubhalos[1].MainProgenitor)
}

func TestRead_CentralRecordInstalled(t *testing.T) {
	catalog := `{"id":1,"snapshot":0,"mvir":80,"subhalos":[{"id":10,"snapshot":0,"mvir":70,"type":"central","has_descendant":false},{"id":11,"snapshot":0,"mvir":10,"type":"satellite","has_descendant":false}]}`
	halos, err := Read(strings.NewReader(catalog))
	require.NoError(t, err)
	require.Len(t, halos, 1)

	halo := halos[0]
	require.NotNil(t, halo.CentralSubhalo)
	assert.Equal(t, forest.SubhaloID(10), halo.CentralSubhalo.ID)
	assert.Equal(t, forest.SubhaloTypeCentral, halo.CentralSubhalo.Type)
	require.Len(t, halo.SatelliteSubhalos, 1)
	assert.Equal(t, forest.SubhaloID(11), halo.SatelliteSubhalos[0].ID)
}

func TestRead_SecondCentralKeptForValidation(t *testing.T) {
	// A flawed catalog with two centrals: the second keeps the tag in the
	// satellite list so the central-subhalo resolver rejects the forest.
	catalog := `{"id":1,"snapshot":0,"mvir":80,"subhalos":[{"id":10,"snapshot":0,"mvir":70,"type":"central","has_descendant":false},{"id":11,"snapshot":0,"mvir":10,"type":"central","has_descendant":false}]}`
	halos, err := Read(strings.NewReader(catalog))
	require.NoError(t, err)

	halo := halos[0]
	require.NotNil(t, halo.CentralSubhalo)
	require.Len(t, halo.SatelliteSubhalos, 1)
	assert.Equal(t, forest.SubhaloTypeCentral, halo.SatelliteSubhalos[0].Type)
}

func TestRead_Errors(t *testing.T) {
	tests := []struct {
		name    string
		catalog string
		substr  string
	}{
		{
			name:    "malformed json",
			catalog: `{"id":1,"snapshot":0`,
			substr:  "line 1",
		},
		{
			name:    "negative mass",
			catalog: `{"id":1,"snapshot":0,"mvir":-5,"subhalos":[]}`,
			substr:  "line 1",
		},
		{
			name:    "bad subhalo type",
			catalog: `{"id":1,"snapshot":0,"mvir":5,"subhalos":[{"id":10,"snapshot":0,"mvir":5,"type":"weird"}]}`,
			substr:  "line 1",
		},
		{
			name: "duplicate halo id",
			catalog: `{"id":1,"snapshot":0,"mvir":5,"subhalos":[]}
{"id":1,"snapshot":1,"mvir":6,"subhalos":[]}`,
			substr: "duplicate halo id 1",
		},
		{
			name: "duplicate subhalo id",
			catalog: `{"id":1,"snapshot":0,"mvir":5,"subhalos":[{"id":10,"snapshot":0,"mvir":5}]}
{"id":2,"snapshot":1,"mvir":6,"subhalos":[{"id":10,"snapshot":1,"mvir":6}]}`,
			substr: "duplicate subhalo id 10",
		},
		{
			name:    "subhalo snapshot mismatch",
			catalog: `{"id":1,"snapshot":0,"mvir":5,"subhalos":[{"id":10,"snapshot":3,"mvir":5}]}`,
			substr:  "snapshot 3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tt.catalog))
			require.ErrorIs(t, err, ErrInvalidCatalog)
			assert.Contains(t, err.Error(), tt.substr)
		})
	}
}

func TestRead_EmptyCatalog(t *testing.T) {
	halos, err := Read(strings.NewReader("\n\n"))
	require.NoError(t, err)
	assert.Empty(t, halos)
}
