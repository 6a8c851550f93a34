// Copyright (C) 2026 Caldera Simulations (sims@caldera-sim.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package forest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// interpolatedFixture links a two-snapshot chain whose later subhalo is an
// interpolated record with a flagged main progenitor.
func interpolatedFixture(t *testing.T, progConcentration float64) (halos []*Halo, interpolated *Subhalo) {
	t.Helper()
	halos = chain(40, 40)
	prog := halos[0].SatelliteSubhalos[0]
	prog.MainProgenitor = true
	prog.L = Vector{X: 1, Y: 2, Z: 3}
	prog.Concentration = progConcentration

	interpolated = halos[1].SatelliteSubhalos[0]
	interpolated.Interpolated = true

	seedRoot(halos[1])
	linker := NewHaloBasedLinker(testExecParams(1, 0), quietLogger())
	_, err := linker.LoopThroughHalos(context.Background(), halos)
	require.NoError(t, err)
	return halos, interpolated
}

func TestSpinInterpolatedHalos_PropagatesFromMainProgenitor(t *testing.T) {
	halos, interpolated := interpolatedFixture(t, 8.0)

	builder := NewTreeBuilder(testExecParams(1, 0), WithLogger(quietLogger()))
	require.NoError(t, builder.spinInterpolatedHalos(context.Background(),
		[]*MergerTree{halos[1].Tree}, testSimParams(0, 1)))

	assert.Equal(t, Vector{X: 1, Y: 2, Z: 3}, interpolated.L)
	assert.Equal(t, 8.0, interpolated.Concentration)
	assert.Equal(t, 8.0, halos[1].Concentration)
}

func TestSpinInterpolatedHalos_NonPositiveConcentration(t *testing.T) {
	halos, _ := interpolatedFixture(t, 0)

	builder := NewTreeBuilder(testExecParams(1, 0), WithLogger(quietLogger()))
	err := builder.spinInterpolatedHalos(context.Background(),
		[]*MergerTree{halos[1].Tree}, testSimParams(0, 1))
	require.ErrorIs(t, err, ErrInvalidData)
	assert.Contains(t, err.Error(), "concentration")
}

func TestSpinInterpolatedHalos_NonInterpolatedUntouched(t *testing.T) {
	halos := chain(40, 40)
	descendant := halos[1].SatelliteSubhalos[0]
	descendant.Concentration = 5

	seedRoot(halos[1])
	linker := NewHaloBasedLinker(testExecParams(1, 0), quietLogger())
	_, err := linker.LoopThroughHalos(context.Background(), halos)
	require.NoError(t, err)

	builder := NewTreeBuilder(testExecParams(1, 0), WithLogger(quietLogger()))
	require.NoError(t, builder.spinInterpolatedHalos(context.Background(),
		[]*MergerTree{halos[1].Tree}, testSimParams(0, 1)))
	assert.Equal(t, 5.0, descendant.Concentration)
}
