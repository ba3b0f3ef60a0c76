// Package breath implements the four-phase symbolic breath cycle used to
// derive pack signatures. Phases only advance through explicit calls:
//
//	inhalation -> held -> exhalation -> restoration -> inhalation
package breath

import (
	"math"

	"github.com/kilianp07/evpack/internal/numeric"
)

// Phase is the current step of a Machine.
type Phase int

const (
	Inhalation Phase = iota
	Held
	Exhalation
	Restoration
)

func (p Phase) String() string {
	switch p {
	case Inhalation:
		return "inhalation"
	case Held:
		return "held"
	case Exhalation:
		return "exhalation"
	case Restoration:
		return "restoration"
	default:
		return "unknown"
	}
}

const (
	initialTension = 0.5
	inhaleTension  = 0.05
	exhaleTension  = 0.03

	// DefaultDelta and DefaultDuration are the parameters of DefaultCycle.
	DefaultDelta    = 0.1
	DefaultDuration = 1.0
)

// Snapshot is returned by Restore.
type Snapshot struct {
	RestoredPressure   float64 `json:"restored_pressure"`
	RestoredTension    float64 `json:"restored_tension"`
	CurvatureSignature float64 `json:"curvature_signature"`
}

// Machine holds the breath state. It is owned by a single caller and is not
// safe for concurrent use.
type Machine struct {
	Pressure  float64
	Tension   float64
	Curvature float64
	phase     Phase
}

// New returns a Machine in the inhalation phase.
func New(initialPressure float64) *Machine {
	return &Machine{Pressure: initialPressure, Tension: initialTension, phase: Inhalation}
}

// Phase returns the current phase.
func (m *Machine) Phase() Phase { return m.phase }

// Inhale raises pressure and tension.
func (m *Machine) Inhale(delta float64) {
	m.Pressure += delta
	m.Tension += inhaleTension * delta
	m.phase = Held
}

// Hold bends the curvature by sin(duration) scaled by tension.
func (m *Machine) Hold(duration float64) {
	m.Curvature += math.Sin(duration) * m.Tension
	m.phase = Exhalation
}

// Exhale releases pressure and tension.
func (m *Machine) Exhale(delta float64) {
	m.Pressure -= delta
	m.Tension -= exhaleTension * delta
	m.phase = Restoration
}

// Restore returns the rounded state and loops back to inhalation.
func (m *Machine) Restore() Snapshot {
	s := Snapshot{
		RestoredPressure:   numeric.Round(m.Pressure, 3),
		RestoredTension:    numeric.Round(m.Tension, 3),
		CurvatureSignature: numeric.Round(m.Curvature, 5),
	}
	m.phase = Inhalation
	return s
}

// Cycle runs inhale, hold, exhale and restore in order.
func (m *Machine) Cycle(delta, duration float64) Snapshot {
	m.Inhale(delta)
	m.Hold(duration)
	m.Exhale(delta)
	return m.Restore()
}

// DefaultCycle is Cycle(DefaultDelta, DefaultDuration).
func (m *Machine) DefaultCycle() Snapshot {
	return m.Cycle(DefaultDelta, DefaultDuration)
}
