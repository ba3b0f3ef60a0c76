package analysis

import (
	"errors"
	"testing"

	"github.com/kilianp07/evpack/core/model"
)

func TestAnalyzeHealingSingleRecord(t *testing.T) {
	sum, err := AnalyzeHealing([]model.HealingRecord{model.NewHealingRecord(0, 0.8, 0.6)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum.OverallHealthScore != 0.7 {
		t.Fatalf("expected 0.7 got %v", sum.OverallHealthScore)
	}
	if sum.AverageRestoredPsi != 0.8 || sum.AverageRestoredTension != 0.6 || sum.Cells != 1 {
		t.Fatalf("unexpected summary %+v", sum)
	}
}

func TestAnalyzeHealingSkipsIncomplete(t *testing.T) {
	psi := 0.9
	recs := []model.HealingRecord{
		model.NewHealingRecord(0, 0.5, 0.6),
		{CellIndex: 1, RestoredPsi: &psi},
		model.NewHealingRecord(2, 0.7, 0.8),
	}
	sum, err := AnalyzeHealing(recs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum.AverageRestoredPsi != 0.6 || sum.AverageRestoredTension != 0.7 || sum.Cells != 2 {
		t.Fatalf("unexpected summary %+v", sum)
	}
	if sum.OverallHealthScore != 0.65 {
		t.Fatalf("expected 0.65 got %v", sum.OverallHealthScore)
	}
}

func TestAnalyzeHealingErrors(t *testing.T) {
	cases := map[string][]model.HealingRecord{
		"empty":      nil,
		"incomplete": {{CellIndex: 3}},
	}
	for name, recs := range cases {
		t.Run(name, func(t *testing.T) {
			sum, err := AnalyzeHealing(recs)
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
			if sum != (model.HealthSummary{}) {
				t.Fatalf("expected zero summary, got %+v", sum)
			}
		})
	}
}
