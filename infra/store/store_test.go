package store

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/evpack/core/model"
)

func sampleRecords(base time.Time) []RunRecord {
	return []RunRecord{
		{RunID: "r1", Timestamp: base, PackID: "a", Healing: "report", Diagnostics: model.DriveDiagnostics{
			PackID: "a", MilesDriven: 100, TotalConsumedKWh: 25, CapacityLossKWh: 0.375, Efficiency: 0.985, RemainingCapacityKWh: 74.62, CycleCount: 0.4,
		}},
		{RunID: "r1", Timestamp: base.Add(time.Second), PackID: "b", Healing: "synthetic", Diagnostics: model.DriveDiagnostics{
			PackID: "b", MilesDriven: 100, TotalConsumedKWh: 25, CapacityLossKWh: 0.3, Efficiency: math.NaN(), RemainingCapacityKWh: 60, CycleCount: 1,
		}},
		{RunID: "r2", Timestamp: base.Add(time.Hour), PackID: "a", Cycle: 1, Diagnostics: model.DriveDiagnostics{
			PackID: "a", MilesDriven: 50, TotalConsumedKWh: 12.5, Efficiency: 0.99, RemainingCapacityKWh: 74.4, CycleCount: 0.6,
		}},
	}
}

func openStores(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()
	jsonl, err := New("jsonl", filepath.Join(dir, "runs.jsonl"))
	require.NoError(t, err)
	sqlite, err := New("sqlite", filepath.Join(dir, "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = jsonl.Close()
		_ = sqlite.Close()
	})
	return map[string]Store{"jsonl": jsonl, "sqlite": sqlite}
}

func TestStoreQuery(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.Append(ctx, sampleRecords(base)...))

			all, err := s.Query(ctx, Query{})
			require.NoError(t, err)
			assert.Len(t, all, 3)

			run, err := s.Query(ctx, Query{RunID: "r1"})
			require.NoError(t, err)
			require.Len(t, run, 2)
			assert.Equal(t, "a", run[0].PackID)
			assert.Equal(t, 0.985, run[0].Diagnostics.Efficiency)
			assert.False(t, run[1].Diagnostics.HasEfficiency())
			assert.Equal(t, 60.0, run[1].Diagnostics.RemainingCapacityKWh)

			pack, err := s.Query(ctx, Query{PackID: "a"})
			require.NoError(t, err)
			assert.Len(t, pack, 2)

			window, err := s.Query(ctx, Query{Start: base.Add(time.Minute), End: base.Add(2 * time.Hour)})
			require.NoError(t, err)
			require.Len(t, window, 1)
			assert.Equal(t, "r2", window[0].RunID)
			assert.True(t, window[0].Timestamp.Equal(base.Add(time.Hour)))
		})
	}
}

func TestJSONLStoreSkipsCorruptLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.jsonl")
	s, err := NewJSONLStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Append(context.Background(), sampleRecords(time.Now())[0]))

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, err = f.WriteString("{not json\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	out, err := s.Query(context.Background(), Query{})
	require.NoError(t, err)
	assert.Len(t, out, 1)
}

func TestNewUnknownBackend(t *testing.T) {
	_, err := New("postgres", "x")
	assert.Error(t, err)
}
