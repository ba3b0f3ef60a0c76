package analysis

import (
	"math"

	"github.com/kilianp07/evpack/core/model"
)

// Reference figures of an untreated pack used to express gains.
const (
	BaselineEfficiency     = 0.77
	BaselineMilesPerCharge = 231
	DefaultAnalyzedCells   = 96
)

// Evaluation compares a run against the untreated baseline.
type Evaluation struct {
	AnalyzedCells       int     `json:"analyzed_cells"`
	HealedCells         int     `json:"healed_cells"`
	EfficiencyStart     float64 `json:"efficiency_start"`
	EfficiencyEnd       float64 `json:"efficiency_end"`
	MilesPerChargeStart int     `json:"miles_per_charge_start"`
	MilesPerChargeEnd   int     `json:"miles_per_charge_end"`
	Signature           string  `json:"signature,omitempty"`
}

// Evaluate scales the baseline range by the efficiency ratio. A nil summary
// keeps the baseline figures; analyzedCells below 1 means the reference pack.
func Evaluate(sum *model.EfficiencySummary, analyzedCells, healedCells int, signature string) Evaluation {
	if analyzedCells < 1 {
		analyzedCells = DefaultAnalyzedCells
	}
	end := BaselineEfficiency
	if sum != nil {
		end = sum.AverageEfficiency
	}
	return Evaluation{
		AnalyzedCells:       analyzedCells,
		HealedCells:         healedCells,
		EfficiencyStart:     BaselineEfficiency,
		EfficiencyEnd:       end,
		MilesPerChargeStart: BaselineMilesPerCharge,
		MilesPerChargeEnd:   int(math.Round(BaselineMilesPerCharge * end / BaselineEfficiency)),
		Signature:           signature,
	}
}
