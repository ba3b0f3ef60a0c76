package analysis

import (
	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/evpack/core/model"
	"github.com/kilianp07/evpack/internal/numeric"
)

// AnalyzeHealing averages restored psi and tension over the records carrying
// both values. The overall score is the mean of the two rounded averages.
func AnalyzeHealing(records []model.HealingRecord) (model.HealthSummary, error) {
	if len(records) == 0 {
		return model.HealthSummary{}, &InputError{Reason: "no healing records"}
	}
	psis := make([]float64, 0, len(records))
	tensions := make([]float64, 0, len(records))
	for _, r := range records {
		if !r.Complete() {
			continue
		}
		psis = append(psis, *r.RestoredPsi)
		tensions = append(tensions, *r.RestoredTension)
	}
	if len(psis) == 0 {
		return model.HealthSummary{}, &InputError{Reason: "no valid healing data found"}
	}
	psi := numeric.Round(stat.Mean(psis, nil), 3)
	tension := numeric.Round(stat.Mean(tensions, nil), 3)
	return model.HealthSummary{
		AverageRestoredPsi:     psi,
		AverageRestoredTension: tension,
		OverallHealthScore:     numeric.Round((psi+tension)/2, 3),
		Cells:                  len(psis),
	}, nil
}
