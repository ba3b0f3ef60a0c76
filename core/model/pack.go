package model

import (
	"fmt"
	"math"
)

// DefaultCapacityKWh is the nominal pack capacity assumed when a descriptor
// does not carry one.
const DefaultCapacityKWh = 75.0

// PackState is the mutable scalar state of one battery pack between drive
// cycles. RestoredPsi and RestoredTension are nil when no healing benefit was
// applied to the pack.
type PackState struct {
	CapacityKWh     float64  `json:"capacity_kWh"`
	Cycles          float64  `json:"cycles"`
	RestoredPsi     *float64 `json:"restored_psi,omitempty"`
	RestoredTension *float64 `json:"restored_tension,omitempty"`
}

// Clone returns a deep copy so the optional healing values are not shared.
func (s PackState) Clone() PackState {
	out := s
	if s.RestoredPsi != nil {
		v := *s.RestoredPsi
		out.RestoredPsi = &v
	}
	if s.RestoredTension != nil {
		v := *s.RestoredTension
		out.RestoredTension = &v
	}
	return out
}

// Healed reports whether both healing values are present.
func (s PackState) Healed() bool {
	return s.RestoredPsi != nil && s.RestoredTension != nil
}

// PackDefaults holds the values applied to descriptor fields left unset.
type PackDefaults struct {
	CapacityKWh float64 `json:"capacity_kwh"`
	Cycles      float64 `json:"cycles"`
}

// DefaultPackDefaults returns the built-in defaults: 75 kWh and zero cycles.
func DefaultPackDefaults() PackDefaults {
	return PackDefaults{CapacityKWh: DefaultCapacityKWh}
}

// PackDescriptor identifies a pack handed to the batch runner. Optional fields
// are pointers; the zero descriptor is valid and picks up PackDefaults.
type PackDescriptor struct {
	PackID          string          `json:"pack_id"`
	CapacityKWh     *float64        `json:"capacity_kWh,omitempty"`
	Cycles          *float64        `json:"cycles,omitempty"`
	RestoredPsi     *float64        `json:"restored_psi,omitempty"`
	RestoredTension *float64        `json:"restored_tension,omitempty"`
	HealingData     []HealingRecord `json:"healing_data,omitempty"`
}

// State builds a fresh PackState from the descriptor, filling unset fields
// from d. The descriptor itself is never modified.
func (p PackDescriptor) State(d PackDefaults) PackState {
	st := PackState{CapacityKWh: d.CapacityKWh, Cycles: d.Cycles}
	if p.CapacityKWh != nil {
		st.CapacityKWh = *p.CapacityKWh
	}
	if p.Cycles != nil {
		st.Cycles = *p.Cycles
	}
	if p.RestoredPsi != nil {
		v := *p.RestoredPsi
		st.RestoredPsi = &v
	}
	if p.RestoredTension != nil {
		v := *p.RestoredTension
		st.RestoredTension = &v
	}
	return st
}

// Validate rejects descriptors carrying non-finite numbers.
func (p PackDescriptor) Validate() error {
	check := func(name string, v *float64) error {
		if v != nil && (math.IsNaN(*v) || math.IsInf(*v, 0)) {
			return fmt.Errorf("pack %q: %s must be finite", p.PackID, name)
		}
		return nil
	}
	if err := check("capacity_kWh", p.CapacityKWh); err != nil {
		return err
	}
	if err := check("cycles", p.Cycles); err != nil {
		return err
	}
	if err := check("restored_psi", p.RestoredPsi); err != nil {
		return err
	}
	return check("restored_tension", p.RestoredTension)
}
