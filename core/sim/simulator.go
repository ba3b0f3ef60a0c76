// Package sim evolves pack state across drive cycles and runs batches of
// independent packs.
package sim

import (
	"errors"

	"github.com/kilianp07/evpack/core/model"
	"github.com/kilianp07/evpack/core/rng"
	"github.com/kilianp07/evpack/internal/numeric"
)

// Fixed model policy. These are not tunable physics.
const (
	ConsumptionKWhPerMile  = 0.25
	DegradationPer100Miles = 0.005
	MilesPerCycle          = 250.0
)

// Noise bands applied on every drive cycle.
var (
	capacityJitter   = [2]float64{0.98, 1.02}
	cyclesJitter     = [2]float64{-0.1, 0.1}
	psiFade          = [2]float64{0.98, 0.995}
	tensionFade      = [2]float64{0.985, 0.997}
	efficiencyJitter = [2]float64{-0.01, 0.01}
)

// ErrInvalidDistance is returned for zero, negative or non-finite trip lengths.
// Efficiency divides by consumption, so a zero-mile trip has no defined value.
var ErrInvalidDistance = errors.New("miles must be positive and finite")

// Simulator applies one drive cycle to a pack state.
type Simulator struct {
	src rng.Source
}

// NewSimulator returns a Simulator drawing noise from src. A nil src falls
// back to a time seeded source.
func NewSimulator(src rng.Source) *Simulator {
	if src == nil {
		src = rng.NewTimeSeeded()
	}
	return &Simulator{src: src}
}

// Simulate drives the pack for miles and returns the updated state together
// with the cycle diagnostics. The input state is left untouched. Capacity is
// not floored at zero.
func (s *Simulator) Simulate(state model.PackState, miles float64) (model.PackState, model.DriveDiagnostics, error) {
	if err := validateDistance(miles); err != nil {
		return state, model.DriveDiagnostics{}, err
	}
	st := state.Clone()
	st.CapacityKWh *= s.draw(capacityJitter)
	st.Cycles += s.draw(cyclesJitter)

	consumed := miles * ConsumptionKWhPerMile
	loss := DegradationPer100Miles * (miles / 100) * st.CapacityKWh
	st.CapacityKWh -= loss
	st.Cycles += miles / MilesPerCycle

	if st.RestoredPsi != nil {
		*st.RestoredPsi *= s.draw(psiFade)
	}
	if st.RestoredTension != nil {
		*st.RestoredTension *= s.draw(tensionFade)
	}

	eff := numeric.Round(1-loss/consumed+s.draw(efficiencyJitter), 4)
	diag := model.DriveDiagnostics{
		MilesDriven:          miles,
		TotalConsumedKWh:     consumed,
		CapacityLossKWh:      numeric.Round(loss, 3),
		Efficiency:           eff,
		RemainingCapacityKWh: numeric.Round(st.CapacityKWh, 2),
		CycleCount:           numeric.Round(st.Cycles, 2),
	}
	return st, diag, nil
}

func (s *Simulator) draw(band [2]float64) float64 {
	return s.src.Uniform(band[0], band[1])
}
