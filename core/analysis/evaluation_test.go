package analysis

import (
	"testing"

	"github.com/kilianp07/evpack/core/model"
)

func TestEvaluate(t *testing.T) {
	ev := Evaluate(&model.EfficiencySummary{AverageEfficiency: 0.98}, 0, 20, "sig")
	if ev.MilesPerChargeEnd != 294 {
		t.Fatalf("expected 294 miles, got %d", ev.MilesPerChargeEnd)
	}
	if ev.HealedCells != 20 || ev.AnalyzedCells != 96 || ev.Signature != "sig" {
		t.Fatalf("unexpected evaluation %+v", ev)
	}
}

func TestEvaluateBaseline(t *testing.T) {
	ev := Evaluate(nil, 48, 0, "")
	if ev.EfficiencyEnd != BaselineEfficiency || ev.MilesPerChargeEnd != BaselineMilesPerCharge {
		t.Fatalf("expected baseline, got %+v", ev)
	}
	if ev.AnalyzedCells != 48 {
		t.Fatalf("expected 48 analyzed cells, got %d", ev.AnalyzedCells)
	}
}
