// Copyright (C) 2026 Caldera Simulations (sims@caldera-sim.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package config holds the run configuration for a forest build: execution
// policy, simulation bounds, gas cooling knobs and cosmological parameters,
// loaded from a YAML run file with validated defaults.
package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/caldera-sim/haloforest/services/forest/cosmology"
)

// ExecutionParameters are the policy switches steering tree construction.
type ExecutionParameters struct {
	// OutputSnapshots lists the snapshots to produce output for, most
	// recent first; the first entry seeds the tree roots.
	OutputSnapshots []int `yaml:"output_snapshots" validate:"required,min=1"`

	// SkipMissingDescendants prunes subhalos whose claimed descendant
	// subhalo cannot be found instead of aborting the run.
	SkipMissingDescendants bool `yaml:"skip_missing_descendants"`

	// WarnOnMissingDescendants logs each pruned missing-descendant
	// subhalo. Only consulted when SkipMissingDescendants is set.
	WarnOnMissingDescendants bool `yaml:"warn_on_missing_descendants"`

	// EnsureMassGrowth forces virial mass to be non-decreasing along each
	// halo's descendant chain.
	EnsureMassGrowth bool `yaml:"ensure_mass_growth"`

	// InterpolateSubhaloProperties propagates angular momentum and
	// concentration from main progenitors into interpolated subhalos.
	InterpolateSubhaloProperties bool `yaml:"interpolate_subhalo_properties"`

	// WorkerCount bounds the data-parallel passes over trees.
	// Zero selects runtime.NumCPU().
	WorkerCount int `yaml:"worker_count" validate:"gte=0"`
}

// LastSnapshotToConsider returns the snapshot that seeds the tree roots.
func (p ExecutionParameters) LastSnapshotToConsider() int {
	return p.OutputSnapshots[0]
}

// SimulationParameters describe the snapshot range and box of the underlying
// N-body simulation.
type SimulationParameters struct {
	MinSnapshot int `yaml:"min_snapshot" validate:"gte=0"`
	MaxSnapshot int `yaml:"max_snapshot" validate:"gtefield=MinSnapshot"`

	// ParticleMass is the N-body particle mass in Msun/h.
	ParticleMass float64 `yaml:"particle_mass" validate:"gte=0"`

	// LBox is the comoving box side length in Mpc/h.
	LBox float64 `yaml:"lbox" validate:"gte=0"`
}

// GasCoolingParameters carry the cooling-model knobs the tree pipeline is
// handed through to. Only the accretion cap lives here today.
type GasCoolingParameters struct {
	// MaxFractionalAccretedMass caps accreted baryonic mass as a fraction
	// of Mvir times the baryon fraction. The cap is currently disabled in
	// the accretion pass; the knob is parsed and validated for forward
	// compatibility with the cooling model.
	MaxFractionalAccretedMass float64 `yaml:"max_fractional_accreted_mass" validate:"gte=0"`
}

// RunConfig is the top-level run file.
type RunConfig struct {
	Execution  ExecutionParameters  `yaml:"execution"`
	Simulation SimulationParameters `yaml:"simulation"`
	GasCooling GasCoolingParameters `yaml:"gas_cooling"`
	Cosmology  cosmology.Parameters `yaml:"cosmology"`
}

// Default returns the defaults a run file is overlaid onto.
func Default() RunConfig {
	return RunConfig{
		Execution: ExecutionParameters{
			SkipMissingDescendants:   false,
			WarnOnMissingDescendants: true,
			EnsureMassGrowth:         false,
			WorkerCount:              0,
		},
		Simulation: SimulationParameters{
			MinSnapshot: 0,
			MaxSnapshot: 0,
		},
		GasCooling: GasCoolingParameters{
			MaxFractionalAccretedMass: 1.0,
		},
		Cosmology: cosmology.DefaultParameters(),
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads, parses and validates a YAML run file, overlaying it onto the
// defaults from Default().
func Load(path string) (*RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read run config %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse run config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration's structural constraints.
func (c *RunConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid run config: %w", err)
	}

	// The root-seeding snapshot must fall inside the simulated range.
	last := c.Execution.LastSnapshotToConsider()
	if last < c.Simulation.MinSnapshot || last > c.Simulation.MaxSnapshot {
		return fmt.Errorf("invalid run config: root snapshot %d outside simulation range [%d, %d]",
			last, c.Simulation.MinSnapshot, c.Simulation.MaxSnapshot)
	}
	return nil
}
