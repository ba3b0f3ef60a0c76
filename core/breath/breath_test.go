package breath

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCycleZeroInputsIsNeutral(t *testing.T) {
	m := New(1.0)
	s := m.Cycle(0, 0)
	assert.Equal(t, Snapshot{RestoredPressure: 1.0, RestoredTension: 0.5, CurvatureSignature: 0}, s)
	assert.Equal(t, Inhalation, m.Phase())
}

func TestPhaseSequence(t *testing.T) {
	m := New(1.0)
	steps := []struct {
		do   func()
		want Phase
	}{
		{func() { m.Inhale(0.2) }, Held},
		{func() { m.Hold(0.5) }, Exhalation},
		{func() { m.Exhale(0.2) }, Restoration},
		{func() { m.Restore() }, Inhalation},
	}
	for i, s := range steps {
		s.do()
		if m.Phase() != s.want {
			t.Fatalf("step %d: phase %s want %s", i, m.Phase(), s.want)
		}
	}
}

func TestDefaultCycleFormulas(t *testing.T) {
	m := New(1.0)
	s := m.DefaultCycle()
	tensionAfterInhale := 0.5 + 0.05*0.1
	wantCurv := math.Round(math.Sin(1.0)*tensionAfterInhale*1e5) / 1e5
	wantTension := math.Round((tensionAfterInhale-0.03*0.1)*1e3) / 1e3
	assert.Equal(t, 1.0, s.RestoredPressure)
	assert.Equal(t, wantTension, s.RestoredTension)
	assert.Equal(t, wantCurv, s.CurvatureSignature)
}

func TestCurvatureAccumulates(t *testing.T) {
	m := New(1.0)
	first := m.DefaultCycle()
	second := m.DefaultCycle()
	if second.CurvatureSignature <= first.CurvatureSignature {
		t.Fatalf("curvature should grow: %v then %v", first.CurvatureSignature, second.CurvatureSignature)
	}
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "held", Held.String())
	assert.Equal(t, "unknown", Phase(9).String())
}
