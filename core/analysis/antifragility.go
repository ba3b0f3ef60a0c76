package analysis

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/evpack/core/model"
	"github.com/kilianp07/evpack/internal/numeric"
)

// TraceSignature is a stress snapshot of a pack.
type TraceSignature struct {
	PsiVariation     float64 `json:"psi_variation"`
	TensionVariation float64 `json:"tension_variation"`
	EntropyShift     float64 `json:"entropy_shift"`
}

// Adjustment is fed back into the restoration pipeline.
type Adjustment struct {
	Gain                 float64 `json:"adjustment_gain"`
	Protocol             string  `json:"rebalancing_protocol"`
	ResilienceInflection bool    `json:"resilience_inflection"`
}

const (
	psiStressThreshold     = 0.12
	tensionStressThreshold = 0.15
	entropyWeight          = 0.1

	ProtocolRebalance = "ψ̃↺"
	ProtocolNone      = "none"
)

// AntifragileAdjustment turns stress above both thresholds into a gain.
func AntifragileAdjustment(sig TraceSignature) Adjustment {
	if sig.PsiVariation > psiStressThreshold && sig.TensionVariation > tensionStressThreshold {
		return Adjustment{
			Gain:                 sig.PsiVariation*sig.TensionVariation + entropyWeight*sig.EntropyShift,
			Protocol:             ProtocolRebalance,
			ResilienceInflection: true,
		}
	}
	return Adjustment{Protocol: ProtocolNone}
}

// TraceFromRun builds a stress snapshot from a run: the spread of restored psi
// and tension over complete healing records, and the standard deviation of
// the drive efficiencies as entropy shift. Missing inputs yield zeros.
func TraceFromRun(records []model.HealingRecord, diags []model.DriveDiagnostics) TraceSignature {
	var psis, tensions, effs []float64
	for _, r := range records {
		if r.Complete() {
			psis = append(psis, *r.RestoredPsi)
			tensions = append(tensions, *r.RestoredTension)
		}
	}
	for _, d := range diags {
		if d.HasEfficiency() {
			effs = append(effs, d.Efficiency)
		}
	}
	var sig TraceSignature
	if len(psis) > 0 {
		sig.PsiVariation = numeric.Round(floats.Max(psis)-floats.Min(psis), 4)
		sig.TensionVariation = numeric.Round(floats.Max(tensions)-floats.Min(tensions), 4)
	}
	if len(effs) > 1 {
		sig.EntropyShift = numeric.Round(stat.StdDev(effs, nil), 4)
	}
	return sig
}
