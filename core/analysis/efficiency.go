// Package analysis reduces drive diagnostics and healing measurements into
// summary statistics.
package analysis

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/evpack/core/model"
	"github.com/kilianp07/evpack/internal/numeric"
)

// SummarizeEfficiency reduces diagnostics into an EfficiencySummary. Records
// without an efficiency value still contribute miles and capacity loss. On
// error the returned summary is the zero value.
func SummarizeEfficiency(diags []model.DriveDiagnostics) (model.EfficiencySummary, error) {
	if len(diags) == 0 {
		return model.EfficiencySummary{}, &InputError{Reason: "no simulation results"}
	}
	effs := make([]float64, 0, len(diags))
	remaining := make([]float64, 0, len(diags))
	miles := make([]float64, len(diags))
	losses := make([]float64, len(diags))
	for i, d := range diags {
		if d.HasEfficiency() {
			effs = append(effs, d.Efficiency)
		}
		if d.HasRemainingCapacity() {
			remaining = append(remaining, d.RemainingCapacityKWh)
		}
		miles[i] = d.MilesDriven
		losses[i] = d.CapacityLossKWh
	}
	if len(effs) == 0 {
		return model.EfficiencySummary{}, &InputError{Reason: "no valid efficiency data found"}
	}
	sum := model.EfficiencySummary{
		AverageEfficiency:    numeric.Round(stat.Mean(effs, nil), 3),
		TotalMilesDriven:     floats.Sum(miles),
		TotalCapacityLossKWh: numeric.Round(floats.Sum(losses), 3),
		Records:              len(diags),
	}
	if len(remaining) > 0 {
		sum.AverageRemainingCapacityKWh = numeric.Ptr(numeric.Round(stat.Mean(remaining, nil), 3))
	}
	return sum, nil
}
