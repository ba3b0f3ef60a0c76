package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/evpack/config"
	coremetrics "github.com/kilianp07/evpack/core/metrics"
	"github.com/kilianp07/evpack/core/model"
	"github.com/kilianp07/evpack/infra/logger"
	"github.com/kilianp07/evpack/infra/store"
)

type recordingSink struct {
	mu     sync.Mutex
	cycles []coremetrics.DriveCycleEvent
	eff    []coremetrics.EfficiencySummaryEvent
	health []coremetrics.HealthSummaryEvent
	runs   []coremetrics.RunEvent
}

func (r *recordingSink) RecordDriveCycles(evs []coremetrics.DriveCycleEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cycles = append(r.cycles, evs...)
	return nil
}

func (r *recordingSink) RecordEfficiencySummary(ev coremetrics.EfficiencySummaryEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.eff = append(r.eff, ev)
	return nil
}

func (r *recordingSink) RecordHealthSummary(ev coremetrics.HealthSummaryEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.health = append(r.health, ev)
	return nil
}

func (r *recordingSink) RecordRun(ev coremetrics.RunEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, ev)
	return nil
}

type recordingMonitor struct {
	tags []map[string]string
}

func (m *recordingMonitor) CaptureException(_ error, tags map[string]string) {
	m.tags = append(m.tags, tags)
}

func (m *recordingMonitor) Flush(time.Duration) {}

type failingStore struct{}

func (failingStore) Append(context.Context, ...store.RunRecord) error { return errors.New("disk full") }
func (failingStore) Query(context.Context, store.Query) ([]store.RunRecord, error) {
	return nil, nil
}
func (failingStore) Close() error { return nil }

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Simulation.Seed = 7
	cfg.Store.Path = filepath.Join(dir, "runs.jsonl")
	cfg.Output.Dir = filepath.Join(dir, "reports")
	cfg.Output.Formats = []string{"csv", "json"}
	return cfg
}

func TestServiceRun(t *testing.T) {
	cfg := testConfig(t)
	dir := filepath.Dir(cfg.Store.Path)
	csvPath := filepath.Join(dir, "healing.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("cell_index,restored_psi,restored_tension\n0,0.6,0.6\n1,0.7,0.62\n"), 0o644))
	cfg.Inputs.HealingReport = csvPath

	capacity := 60.0
	psi, tension := 0.8, 0.8
	cfg.Inputs.Packs = []model.PackDescriptor{
		{PackID: "a", CapacityKWh: &capacity},
		{PackID: "b", RestoredPsi: &psi, RestoredTension: &tension},
		{PackID: "c"},
	}
	cfg.Simulation.SeriesCycles = 3
	cfg.Simulation.Workers = 2

	sink := &recordingSink{}
	svc, err := New(cfg, WithSink(sink), WithLogger(logger.NopLogger{}))
	require.NoError(t, err)
	defer func() { require.NoError(t, svc.Close()) }()

	rep, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, rep.RunID)
	assert.Equal(t, int64(7), rep.Seed)
	require.Len(t, rep.Diagnostics, 3)
	require.Len(t, rep.Series, 3)
	for i, id := range []string{"a", "b", "c"} {
		assert.Equal(t, id, rep.Diagnostics[i].PackID)
	}
	assert.Less(t, rep.Diagnostics[0].RemainingCapacityKWh, 60.0)
	assert.NotEqual(t, rep.Diagnostics[0], rep.Series[0])

	require.NotNil(t, rep.Efficiency)
	// 3 batch cycles and 3 series cycles, each simulated once.
	assert.Equal(t, 6, rep.Efficiency.Records)
	assert.Equal(t, 600.0, rep.Efficiency.TotalMilesDriven)

	require.NotNil(t, rep.Health)
	assert.Equal(t, 2, rep.Health.Cells)
	assert.Equal(t, 0.65, rep.Health.AverageRestoredPsi)
	assert.Equal(t, 2, rep.Evaluation.HealedCells)
	assert.Empty(t, rep.Evaluation.Signature)

	require.Len(t, sink.cycles, 6)
	assert.Equal(t, "report", sink.cycles[0].Healing)
	assert.Equal(t, "provided", sink.cycles[1].Healing)
	assert.Equal(t, 3, sink.cycles[5].Cycle)
	assert.Len(t, sink.eff, 1)
	assert.Len(t, sink.health, 1)
	require.Len(t, sink.runs, 1)
	assert.False(t, sink.runs[0].Failed)
	assert.Equal(t, 3, sink.runs[0].Packs)

	st, err := store.NewJSONLStore(cfg.Store.Path)
	require.NoError(t, err)
	recs, err := st.Query(context.Background(), store.Query{RunID: rep.RunID})
	require.NoError(t, err)
	assert.Len(t, recs, 6)

	require.Len(t, rep.Exports, 2)
	assert.Equal(t, ".json", filepath.Ext(rep.Exports[1]))
	for _, p := range rep.Exports {
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.Positive(t, info.Size())
	}
}

func TestServiceRunFactoryPack(t *testing.T) {
	cfg := testConfig(t)
	cfg.Output.Dir = ""
	cfg.Store.Disabled = true

	sink := &recordingSink{}
	svc, err := New(cfg, WithSink(sink), WithLogger(logger.NopLogger{}))
	require.NoError(t, err)

	rep, err := svc.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, rep.Diagnostics, 1)
	assert.Equal(t, DefaultPackID, rep.Diagnostics[0].PackID)
	assert.Contains(t, rep.Evaluation.Signature, "ψₐ:")
	assert.Nil(t, rep.Health)
	assert.Equal(t, 0, rep.Evaluation.HealedCells)
	assert.Equal(t, 96, rep.Evaluation.AnalyzedCells)
	assert.Empty(t, rep.Exports)
	assert.Equal(t, "synthetic", sink.cycles[0].Healing)
	require.NoError(t, svc.Close())
}

func TestServiceRunFactoryCellCount(t *testing.T) {
	cfg := testConfig(t)
	cfg.Output.Dir = ""
	cfg.Store.Disabled = true
	cfg.Inputs.PackMetadata = filepath.Join(t.TempDir(), "factory.json")
	require.NoError(t, os.WriteFile(cfg.Inputs.PackMetadata, []byte(`{"cell_count": 48, "capacity_kWh": 40}`), 0o644))

	svc, err := New(cfg, WithSink(&recordingSink{}), WithLogger(logger.NopLogger{}))
	require.NoError(t, err)
	rep, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 48, rep.Evaluation.AnalyzedCells)
	require.NoError(t, svc.Close())
}

func TestServiceRunCancelled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store.Disabled = true
	sink := &recordingSink{}
	svc, err := New(cfg, WithSink(sink), WithLogger(logger.NopLogger{}))
	require.NoError(t, err)

	mon := &recordingMonitor{}
	WithMonitor(mon)(svc)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = svc.Run(ctx)
	require.Error(t, err)
	require.Len(t, sink.runs, 1)
	assert.True(t, sink.runs[0].Failed)
	assert.Empty(t, sink.cycles)
	assert.Empty(t, mon.tags)
}

func TestServiceStoreFailureReported(t *testing.T) {
	cfg := testConfig(t)
	cfg.Output.Dir = ""
	sink := &recordingSink{}
	mon := &recordingMonitor{}
	svc, err := New(cfg, WithSink(sink), WithStore(failingStore{}), WithMonitor(mon), WithLogger(logger.NopLogger{}))
	require.NoError(t, err)

	_, err = svc.Run(context.Background())
	require.Error(t, err)
	require.Len(t, mon.tags, 1)
	assert.Equal(t, "persist", mon.tags[0]["stage"])
	assert.NotEmpty(t, mon.tags[0]["run_id"])
	require.Len(t, sink.runs, 1)
	assert.True(t, sink.runs[0].Failed)
	assert.Empty(t, sink.cycles)
}

func TestServiceMissingHealingFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store.Disabled = true
	cfg.Inputs.HealingJSON = filepath.Join(t.TempDir(), "missing.json")
	mon := &recordingMonitor{}
	svc, err := New(cfg, WithSink(coremetrics.NopSink{}), WithMonitor(mon), WithLogger(logger.NopLogger{}))
	require.NoError(t, err)
	_, err = svc.Run(context.Background())
	assert.Error(t, err)
	require.Len(t, mon.tags, 1)
	assert.Equal(t, "inputs", mon.tags[0]["stage"])
}
