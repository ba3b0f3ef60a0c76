package report

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/kilianp07/evpack/core/model"
	"github.com/kilianp07/evpack/internal/numeric"
)

// BMS conversion bands: voltage maps linearly from [2.5, 4.0] V onto psi and
// temperature from [20, 60] °C onto tension, inverted.
const (
	bmsVoltageFloor = 2.5
	bmsVoltageSpan  = 1.5
	bmsTempFloor    = 20.0
	bmsTempSpan     = 40.0
)

// Defaults used for simulation log entries missing a reading.
const (
	simDefaultPsiFlux = 0.5
	simDefaultVoltage = 3.6
)

// ConversionResult holds converted records and the number of log entries that
// could not be used.
type ConversionResult struct {
	Records []model.HealingRecord
	Skipped int
}

// ConvertBMSLog turns a JSON array of BMS entries into healing records.
// Each entry needs voltage and temperature; the cell comes from cell_id, then
// cell_index, then 0. Entries with missing or non numeric readings are
// skipped. Values are rounded to 3 decimals and clamped to [0,1].
func ConvertBMSLog(r io.Reader) (ConversionResult, error) {
	entries, err := decodeEntries(r)
	if err != nil {
		return ConversionResult{}, err
	}
	var res ConversionResult
	for _, e := range entries {
		cell, err := cellIndex(e)
		if err != nil {
			res.Skipped++
			continue
		}
		voltage, okV := number(e, "voltage")
		temp, okT := number(e, "temperature")
		if !okV || !okT {
			res.Skipped++
			continue
		}
		psi := numeric.Clamp01(numeric.Round((voltage-bmsVoltageFloor)/bmsVoltageSpan, 3))
		tension := numeric.Clamp01(numeric.Round(1-(temp-bmsTempFloor)/bmsTempSpan, 3))
		res.Records = append(res.Records, model.NewHealingRecord(cell, psi, tension))
	}
	return res, nil
}

// ConvertSimulationLog turns a JSON array of simulation log entries into one
// healing record per entry, indexed by position. psi_flux defaults to 0.5 and
// voltage to 3.6, also when the reading is not a finite number.
func ConvertSimulationLog(r io.Reader) ([]model.HealingRecord, error) {
	entries, err := decodeEntries(r)
	if err != nil {
		return nil, err
	}
	out := make([]model.HealingRecord, 0, len(entries))
	for i, e := range entries {
		flux, ok := number(e, "psi_flux")
		if !ok {
			flux = simDefaultPsiFlux
		}
		voltage, ok := number(e, "voltage")
		if !ok {
			voltage = simDefaultVoltage
		}
		psi := numeric.Round(flux*1.05, 3)
		tension := numeric.Round(0.6+0.05*(voltage-simDefaultVoltage), 3)
		out = append(out, model.NewHealingRecord(i, psi, tension))
	}
	return out, nil
}

func decodeEntries(r io.Reader) ([]map[string]any, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var entries []map[string]any
	if err := dec.Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode log: %w", err)
	}
	return entries, nil
}

func cellIndex(e map[string]any) (int, error) {
	raw, ok := e["cell_id"]
	if !ok {
		raw, ok = e["cell_index"]
	}
	if !ok || raw == nil {
		return 0, nil
	}
	v, ok := toFloat(raw)
	if !ok || v != float64(int(v)) {
		return 0, fmt.Errorf("invalid cell index %v", raw)
	}
	return int(v), nil
}

func number(e map[string]any, key string) (float64, bool) {
	raw, ok := e[key]
	if !ok || raw == nil {
		return 0, false
	}
	return toFloat(raw)
}

// toFloat accepts JSON numbers and numeric strings. "NaN" and "Inf" strings
// are not readings.
func toFloat(v any) (float64, bool) {
	var (
		f   float64
		err error
	)
	switch t := v.(type) {
	case json.Number:
		f, err = t.Float64()
	case string:
		f, err = strconv.ParseFloat(strings.TrimSpace(t), 64)
	default:
		return 0, false
	}
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
