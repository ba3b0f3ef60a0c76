// Package report reads and writes the file formats exchanged with battery
// management tooling: healing reports, BMS logs and diagnostics exports.
package report

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/kilianp07/evpack/core/model"
)

// ErrMissingColumn is returned when a CSV header lacks a required column.
var ErrMissingColumn = errors.New("missing column")

// ParseHealingCSV reads a healing report with the columns cell_index,
// restored_psi and restored_tension in any order. Empty cells leave the value
// absent.
func ParseHealingCSV(r io.Reader) ([]model.HealingRecord, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := columnIndex(header)
	for _, name := range []string{"cell_index", "restored_psi", "restored_tension"} {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
	}

	var out []model.HealingRecord
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		cell, err := strconv.Atoi(strings.TrimSpace(row[cols["cell_index"]]))
		if err != nil {
			return nil, fmt.Errorf("line %d: cell_index: %w", line, err)
		}
		psi, err := optionalFloat(row[cols["restored_psi"]])
		if err != nil {
			return nil, fmt.Errorf("line %d: restored_psi: %w", line, err)
		}
		tension, err := optionalFloat(row[cols["restored_tension"]])
		if err != nil {
			return nil, fmt.Errorf("line %d: restored_tension: %w", line, err)
		}
		out = append(out, model.HealingRecord{CellIndex: cell, RestoredPsi: psi, RestoredTension: tension})
	}
	return out, nil
}

// LoadHealingJSON reads a JSON array of healing records.
func LoadHealingJSON(r io.Reader) ([]model.HealingRecord, error) {
	var out []model.HealingRecord
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode healing json: %w", err)
	}
	return out, nil
}

// WriteHealingJSON writes records as an indented JSON array.
func WriteHealingJSON(w io.Writer, recs []model.HealingRecord) error {
	if recs == nil {
		recs = []model.HealingRecord{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(recs)
}

func columnIndex(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return cols
}

func optionalFloat(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
