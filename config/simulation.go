package config

import (
	"fmt"
	"math"

	"github.com/kilianp07/evpack/core/model"
)

// SimulationConfig drives the batch runner.
type SimulationConfig struct {
	// MilesEach is the trip length applied to every pack.
	MilesEach float64 `json:"miles_each"`
	// Seed makes a run reproducible. Zero picks a time based seed.
	Seed    int64 `json:"seed"`
	Workers int   `json:"workers"`
	// DefaultCapacityKWh applies to packs that do not declare a capacity.
	DefaultCapacityKWh float64 `json:"default_capacity_kwh"`
	// SeriesCycles greater than one also drives the first pack through
	// consecutive cycles.
	SeriesCycles int `json:"series_cycles"`
}

// SetDefaults applies sane defaults.
func (c *SimulationConfig) SetDefaults() {
	if c.MilesEach == 0 {
		c.MilesEach = 100
	}
	if c.Workers == 0 {
		c.Workers = 1
	}
	if c.DefaultCapacityKWh == 0 {
		c.DefaultCapacityKWh = model.DefaultCapacityKWh
	}
	if c.SeriesCycles == 0 {
		c.SeriesCycles = 1
	}
}

// Validate checks ranges.
func (c SimulationConfig) Validate() error {
	if !(c.MilesEach > 0) || math.IsInf(c.MilesEach, 1) {
		return fmt.Errorf("miles_each must be positive, got %v", c.MilesEach)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if !(c.DefaultCapacityKWh > 0) || math.IsInf(c.DefaultCapacityKWh, 1) {
		return fmt.Errorf("default_capacity_kwh must be positive, got %v", c.DefaultCapacityKWh)
	}
	if c.SeriesCycles < 1 {
		return fmt.Errorf("series_cycles must be at least 1, got %d", c.SeriesCycles)
	}
	return nil
}

// PackDefaults returns the defaults applied to pack descriptors.
func (c SimulationConfig) PackDefaults() model.PackDefaults {
	return model.PackDefaults{CapacityKWh: c.DefaultCapacityKWh}
}
