package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/evpack/app"
	"github.com/kilianp07/evpack/core/analysis"
	"github.com/kilianp07/evpack/core/breath"
	"github.com/kilianp07/evpack/core/model"
	"github.com/kilianp07/evpack/core/pack"
	"github.com/kilianp07/evpack/pkg/report"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	runJSON, runServe = false, false
	convertFormat, convertOut = "bms", ""
	analyzeDiagnostics = false
	initPackMetadata = ""
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, data string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

func TestBreathCommand(t *testing.T) {
	out, err := execute(t, "breath", "--pressure", "1", "--delta", "0.1", "--duration", "1")
	require.NoError(t, err)
	var snap breath.Snapshot
	require.NoError(t, json.Unmarshal([]byte(out), &snap))
	assert.Equal(t, breath.New(1).Cycle(0.1, 1), snap)
}

func TestInitPackCommand(t *testing.T) {
	dir := t.TempDir()
	md := writeFile(t, dir, "md.json", `{"capacity_kWh": 60, "cell_count": 48}`)

	out, err := execute(t, "init-pack", "pack-7", "--metadata", md)
	require.NoError(t, err)
	var m pack.Manifest
	require.NoError(t, json.Unmarshal([]byte(out), &m))
	assert.Equal(t, "pack-7", m.PackID)
	assert.Equal(t, pack.StatusInitialized, m.Status)
	assert.InDelta(t, 60.0, m.CapacityKWh(), 1e-9)
}

func TestConvertCommand(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "bms.json", `[
  {"cell_id": 1, "voltage": 4.0, "temperature": 20},
  {"cell_index": 2, "voltage": 3.25, "temperature": 40},
  {"cell_id": 3, "voltage": "n/a", "temperature": 30}
]`)
	dest := filepath.Join(dir, "out", "healing.json")

	out, err := execute(t, "convert", in, "--output", dest)
	require.NoError(t, err)
	assert.Contains(t, out, "Converted 2 cells (1 skipped)")

	f, err := os.Open(dest)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	recs, err := report.LoadHealingJSON(f)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, 1, recs[0].CellIndex)
	assert.InDelta(t, 1.0, *recs[0].RestoredPsi, 1e-9)
	assert.InDelta(t, 1.0, *recs[0].RestoredTension, 1e-9)
}

func TestConvertUnknownFormat(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "log.json", `[]`)
	_, err := execute(t, "convert", in, "--format", "xml", "--output", filepath.Join(dir, "x.json"))
	require.Error(t, err)
}

func TestAnalyzeHealingCSV(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "healing.csv", "cell_index,restored_psi,restored_tension\n1,0.6,0.6\n2,0.8,0.6\n")

	out, err := execute(t, "analyze", in)
	require.NoError(t, err)
	var sum model.HealthSummary
	require.NoError(t, json.Unmarshal([]byte(out), &sum))
	assert.Equal(t, 2, sum.Cells)
	assert.InDelta(t, 0.7, sum.AverageRestoredPsi, 1e-9)
}

func TestAnalyzeDiagnostics(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "diag.csv",
		"miles_driven,total_consumed_kWh,capacity_loss_kWh,efficiency,remaining_capacity_kWh,cycle_count\n"+
			"100,25,0.375,0.98,74.6,0.4\n100,25,0.375,0.96,,0.4\n")

	out, err := execute(t, "analyze", "--diagnostics", in)
	require.NoError(t, err)
	var sum model.EfficiencySummary
	require.NoError(t, json.Unmarshal([]byte(out), &sum))
	assert.Equal(t, 2, sum.Records)
	assert.InDelta(t, 200.0, sum.TotalMilesDriven, 1e-9)
	require.NotNil(t, sum.AverageRemainingCapacityKWh)
	assert.InDelta(t, 74.6, *sum.AverageRemainingCapacityKWh, 1e-9)
}

func TestRunCommand(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "config.yaml", `simulation:
  miles_each: 100
  seed: 11
inputs:
  packs:
    - pack_id: "a"
    - pack_id: "b"
      restored_psi: 0.6
      restored_tension: 0.6
store:
  disabled: true
`)

	out, err := execute(t, "run", "--config", cfg, "--json")
	require.NoError(t, err)
	var rep app.Report
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.Equal(t, int64(11), rep.Seed)
	require.Len(t, rep.Diagnostics, 2)
	assert.Equal(t, "a", rep.Diagnostics[0].PackID)
	assert.Equal(t, analysis.DefaultAnalyzedCells, rep.Evaluation.AnalyzedCells)
	assert.Equal(t, 0, rep.Evaluation.HealedCells)

	text, err := execute(t, "run", "--config", cfg, "--miles", "50")
	require.NoError(t, err)
	assert.Contains(t, text, "Analyzed Cells: 96")
	assert.Contains(t, text, "Total Miles Driven: 100.0")
}

func TestRunCommandBadConfig(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "config.toml", "x = 1")
	_, err := execute(t, "run", "--config", cfg)
	require.Error(t, err)
}
