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

func TestEnsureHaloMassGrowth_RaisePropagatesDownChain(t *testing.T) {
	// 120 -> 50 -> 60: the raise at snapshot 1 must carry through to
	// snapshot 2, leaving the whole chain non-decreasing.
	halos := chain(120, 50, 60)
	seedRoot(halos[2])
	linker := NewHaloBasedLinker(testExecParams(2, 0), quietLogger())
	_, err := linker.LoopThroughHalos(context.Background(), halos)
	require.NoError(t, err)

	builder := NewTreeBuilder(testExecParams(2, 0), WithLogger(quietLogger()))
	require.NoError(t, builder.ensureHaloMassGrowth(context.Background(),
		[]*MergerTree{halos[2].Tree}, testSimParams(0, 2)))

	assert.Equal(t, 120.0, halos[0].Mvir)
	assert.Equal(t, 120.0, halos[1].Mvir)
	assert.Equal(t, 120.0, halos[2].Mvir)
}

func TestEnsureHaloMassGrowth_GrowingChainUntouched(t *testing.T) {
	halos := chain(10, 20, 30)
	seedRoot(halos[2])
	linker := NewHaloBasedLinker(testExecParams(2, 0), quietLogger())
	_, err := linker.LoopThroughHalos(context.Background(), halos)
	require.NoError(t, err)

	builder := NewTreeBuilder(testExecParams(2, 0), WithLogger(quietLogger()))
	require.NoError(t, builder.ensureHaloMassGrowth(context.Background(),
		[]*MergerTree{halos[2].Tree}, testSimParams(0, 2)))

	assert.Equal(t, 10.0, halos[0].Mvir)
	assert.Equal(t, 20.0, halos[1].Mvir)
	assert.Equal(t, 30.0, halos[2].Mvir)
}
