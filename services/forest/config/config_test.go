// Copyright (C) 2026 Caldera Simulations (sims@caldera-sim.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRunFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoad_OverlaysDefaults(t *testing.T) {
	path := writeRunFile(t, `
execution:
  output_snapshots: [99, 98, 97]
  skip_missing_descendants: true
  ensure_mass_growth: true
  worker_count: 4
simulation:
  min_snapshot: 0
  max_snapshot: 99
  particle_mass: 1.17e9
  lbox: 210
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []int{99, 98, 97}, cfg.Execution.OutputSnapshots)
	assert.Equal(t, 99, cfg.Execution.LastSnapshotToConsider())
	assert.True(t, cfg.Execution.SkipMissingDescendants)
	assert.True(t, cfg.Execution.EnsureMassGrowth)
	assert.Equal(t, 4, cfg.Execution.WorkerCount)

	// Unset keys keep their defaults.
	assert.True(t, cfg.Execution.WarnOnMissingDescendants)
	assert.False(t, cfg.Execution.InterpolateSubhaloProperties)
	assert.Equal(t, 1.0, cfg.GasCooling.MaxFractionalAccretedMass)
	assert.Equal(t, 0.3121, cfg.Cosmology.OmegaM)

	assert.Equal(t, 1.17e9, cfg.Simulation.ParticleMass)
	assert.Equal(t, 210.0, cfg.Simulation.LBox)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read run config")
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := writeRunFile(t, "execution: [not: a: mapping")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse run config")
}

func TestValidate(t *testing.T) {
	valid := func() RunConfig {
		cfg := Default()
		cfg.Execution.OutputSnapshots = []int{50, 49}
		cfg.Simulation.MaxSnapshot = 99
		return cfg
	}

	t.Run("valid", func(t *testing.T) {
		cfg := valid()
		assert.NoError(t, cfg.Validate())
	})

	t.Run("no output snapshots", func(t *testing.T) {
		cfg := valid()
		cfg.Execution.OutputSnapshots = nil
		require.Error(t, cfg.Validate())
	})

	t.Run("negative worker count", func(t *testing.T) {
		cfg := valid()
		cfg.Execution.WorkerCount = -1
		require.Error(t, cfg.Validate())
	})

	t.Run("inverted snapshot range", func(t *testing.T) {
		cfg := valid()
		cfg.Simulation.MinSnapshot = 60
		cfg.Simulation.MaxSnapshot = 40
		require.Error(t, cfg.Validate())
	})

	t.Run("root snapshot outside range", func(t *testing.T) {
		cfg := valid()
		cfg.Execution.OutputSnapshots = []int{120}
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "outside simulation range")
	})

	t.Run("bad cosmology", func(t *testing.T) {
		cfg := valid()
		cfg.Cosmology.OmegaM = 0
		require.Error(t, cfg.Validate())
	})
}
