package model

import (
	"encoding/json"
	"math"
)

// DriveDiagnostics is emitted once per simulated drive cycle. A NaN
// Efficiency or RemainingCapacityKWh marks the field as absent, which only
// happens for records loaded from external sources.
type DriveDiagnostics struct {
	PackID               string  `json:"pack_id,omitempty"`
	MilesDriven          float64 `json:"miles_driven"`
	TotalConsumedKWh     float64 `json:"total_consumed_kWh"`
	CapacityLossKWh      float64 `json:"capacity_loss_kWh"`
	Efficiency           float64 `json:"efficiency"`
	RemainingCapacityKWh float64 `json:"remaining_capacity_kWh"`
	CycleCount           float64 `json:"cycle_count"`
}

// HasEfficiency reports whether the efficiency field carries a value.
func (d DriveDiagnostics) HasEfficiency() bool { return !math.IsNaN(d.Efficiency) }

// HasRemainingCapacity reports whether the remaining capacity carries a value.
func (d DriveDiagnostics) HasRemainingCapacity() bool { return !math.IsNaN(d.RemainingCapacityKWh) }

type diagnosticsJSON struct {
	PackID               string   `json:"pack_id,omitempty"`
	MilesDriven          float64  `json:"miles_driven"`
	TotalConsumedKWh     float64  `json:"total_consumed_kWh"`
	CapacityLossKWh      float64  `json:"capacity_loss_kWh"`
	Efficiency           *float64 `json:"efficiency,omitempty"`
	RemainingCapacityKWh *float64 `json:"remaining_capacity_kWh,omitempty"`
	CycleCount           float64  `json:"cycle_count"`
}

// MarshalJSON leaves absent fields out since JSON has no NaN.
func (d DriveDiagnostics) MarshalJSON() ([]byte, error) {
	out := diagnosticsJSON{
		PackID:           d.PackID,
		MilesDriven:      d.MilesDriven,
		TotalConsumedKWh: d.TotalConsumedKWh,
		CapacityLossKWh:  d.CapacityLossKWh,
		CycleCount:       d.CycleCount,
	}
	if d.HasEfficiency() {
		out.Efficiency = &d.Efficiency
	}
	if d.HasRemainingCapacity() {
		out.RemainingCapacityKWh = &d.RemainingCapacityKWh
	}
	return json.Marshal(out)
}

// UnmarshalJSON maps missing or null optional fields to NaN.
func (d *DriveDiagnostics) UnmarshalJSON(b []byte) error {
	var in diagnosticsJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	*d = DriveDiagnostics{
		PackID:               in.PackID,
		MilesDriven:          in.MilesDriven,
		TotalConsumedKWh:     in.TotalConsumedKWh,
		CapacityLossKWh:      in.CapacityLossKWh,
		Efficiency:           math.NaN(),
		RemainingCapacityKWh: math.NaN(),
		CycleCount:           in.CycleCount,
	}
	if in.Efficiency != nil {
		d.Efficiency = *in.Efficiency
	}
	if in.RemainingCapacityKWh != nil {
		d.RemainingCapacityKWh = *in.RemainingCapacityKWh
	}
	return nil
}

// HealingRecord is one per-cell restoration measurement. Either value may be
// missing in upstream reports, hence the pointers. Values are expected in
// [0,1] but this is not enforced.
type HealingRecord struct {
	CellIndex       int      `json:"cell_index"`
	RestoredPsi     *float64 `json:"restored_psi"`
	RestoredTension *float64 `json:"restored_tension"`
}

// Complete reports whether both restoration values are present.
func (r HealingRecord) Complete() bool {
	return r.RestoredPsi != nil && r.RestoredTension != nil
}

// NewHealingRecord is a convenience constructor for fully populated records.
func NewHealingRecord(cell int, psi, tension float64) HealingRecord {
	return HealingRecord{CellIndex: cell, RestoredPsi: &psi, RestoredTension: &tension}
}

// EfficiencySummary reduces a batch of DriveDiagnostics.
// AverageRemainingCapacityKWh is nil when no record carried a remaining capacity.
type EfficiencySummary struct {
	AverageEfficiency           float64  `json:"average_efficiency"`
	TotalMilesDriven            float64  `json:"total_miles_driven"`
	TotalCapacityLossKWh        float64  `json:"total_capacity_loss_kWh"`
	AverageRemainingCapacityKWh *float64 `json:"average_remaining_capacity_kWh"`
	Records                     int      `json:"records"`
}

// HealthSummary reduces a batch of HealingRecords.
type HealthSummary struct {
	AverageRestoredPsi     float64 `json:"average_restored_psi"`
	AverageRestoredTension float64 `json:"average_restored_tension"`
	OverallHealthScore     float64 `json:"overall_health_score"`
	Cells                  int     `json:"cells"`
}
