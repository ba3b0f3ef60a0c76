package report

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/kilianp07/evpack/core/model"
)

// DiagnosticsHeader is the column order of diagnostics CSV exports.
var DiagnosticsHeader = []string{
	"miles_driven",
	"total_consumed_kWh",
	"capacity_loss_kWh",
	"efficiency",
	"remaining_capacity_kWh",
	"cycle_count",
}

// WriteDiagnosticsCSV writes diags with DiagnosticsHeader. Absent values are
// written as empty cells.
func WriteDiagnosticsCSV(w io.Writer, diags []model.DriveDiagnostics) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(DiagnosticsHeader); err != nil {
		return err
	}
	for _, d := range diags {
		rec := []string{
			formatFloat(d.MilesDriven),
			formatFloat(d.TotalConsumedKWh),
			formatFloat(d.CapacityLossKWh),
			formatFloat(d.Efficiency),
			formatFloat(d.RemainingCapacityKWh),
			formatFloat(d.CycleCount),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadDiagnosticsCSV reads an export back. Columns are matched by name;
// missing optional columns or empty cells leave efficiency and remaining
// capacity absent.
func ReadDiagnosticsCSV(r io.Reader) ([]model.DriveDiagnostics, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(h)] = i
	}
	if _, ok := cols["miles_driven"]; !ok {
		return nil, fmt.Errorf("%w: miles_driven", ErrMissingColumn)
	}
	field := func(row []string, name string, absent float64) (float64, error) {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return absent, nil
		}
		v, err := optionalFloat(row[i])
		if err != nil {
			return 0, fmt.Errorf("%s: %w", name, err)
		}
		if v == nil {
			return absent, nil
		}
		return *v, nil
	}

	var out []model.DriveDiagnostics
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		var d model.DriveDiagnostics
		var ferr error
		set := func(dst *float64, name string, absent float64) {
			if ferr != nil {
				return
			}
			*dst, ferr = field(row, name, absent)
		}
		set(&d.MilesDriven, "miles_driven", 0)
		set(&d.TotalConsumedKWh, "total_consumed_kWh", 0)
		set(&d.CapacityLossKWh, "capacity_loss_kWh", 0)
		set(&d.Efficiency, "efficiency", math.NaN())
		set(&d.RemainingCapacityKWh, "remaining_capacity_kWh", math.NaN())
		set(&d.CycleCount, "cycle_count", 0)
		if ferr != nil {
			return nil, fmt.Errorf("line %d: %w", line, ferr)
		}
		out = append(out, d)
	}
	return out, nil
}

// WriteDiagnosticsJSON writes diags as an indented JSON array.
func WriteDiagnosticsJSON(w io.Writer, diags []model.DriveDiagnostics) error {
	if diags == nil {
		diags = []model.DriveDiagnostics{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(diags)
}

// OutputFilename builds a timestamped export path such as
// reports/run_simulated_pack_diagnostics_20240501-120000.csv.
func OutputFilename(dir, prefix, ext string, now time.Time) string {
	name := "simulated_pack_diagnostics_" + now.Format("20060102-150405") + "." + strings.TrimPrefix(ext, ".")
	if prefix != "" {
		name = prefix + "_" + name
	}
	return filepath.Join(dir, name)
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
