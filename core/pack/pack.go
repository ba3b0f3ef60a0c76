// Package pack initializes battery packs at the factory and stamps them with
// a symbolic signature.
package pack

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/cespare/xxhash/v2"
	"gopkg.in/yaml.v3"

	"github.com/kilianp07/evpack/core/breath"
	"github.com/kilianp07/evpack/core/model"
)

// StatusInitialized marks a freshly stamped pack.
const StatusInitialized = "factory_initialized"

// CapacityKey is the metadata key carrying the pack capacity.
const CapacityKey = "capacity_kWh"

const signatureBuckets = 10000

// Imprint is the symbolic signature of a pack.
type Imprint struct {
	PackID    string          `json:"pack_id"`
	Signature string          `json:"signature"`
	Breath    breath.Snapshot `json:"breath"`
}

// Manifest describes an initialized pack.
type Manifest struct {
	PackID   string         `json:"pack_id"`
	Metadata map[string]any `json:"factory_metadata"`
	Imprint  Imprint        `json:"symbolic_imprint"`
	Status   string         `json:"status"`
}

// DefaultMetadata returns the calibration data of the reference 96 cell pack.
func DefaultMetadata() map[string]any {
	return map[string]any{
		CellCountKey:            96,
		"factory_voltage_range": []any{300, 400},
		"initial_temperature_C": 25,
		"manufacture_date":      "2025-07-09",
		"chemical_profile":      "NMC-532",
		CapacityKey:             model.DefaultCapacityKWh,
	}
}

// Signature derives the symbolic signature from the pack id and the number of
// metadata entries.
func Signature(packID string, metadata map[string]any) string {
	return fmt.Sprintf("ψₐ:%d-∇̃:%d-Ω", xxhash.Sum64String(packID)%signatureBuckets, len(metadata))
}

// Initialize stamps a pack. The metadata map is copied and receives a default
// capacity when it has none.
func Initialize(packID string, metadata map[string]any) Manifest {
	md := make(map[string]any, len(metadata)+1)
	for k, v := range metadata {
		md[k] = v
	}
	if _, ok := md[CapacityKey]; !ok {
		md[CapacityKey] = model.DefaultCapacityKWh
	}
	return Manifest{
		PackID:   packID,
		Metadata: md,
		Imprint: Imprint{
			PackID:    packID,
			Signature: Signature(packID, md),
			Breath:    breath.New(1.0).DefaultCycle(),
		},
		Status: StatusInitialized,
	}
}

// LoadMetadata decodes a JSON metadata object.
func LoadMetadata(r io.Reader) (map[string]any, error) {
	var md map[string]any
	if err := json.NewDecoder(r).Decode(&md); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	return md, nil
}

// LoadMetadataYAML decodes a YAML metadata mapping.
func LoadMetadataYAML(r io.Reader) (map[string]any, error) {
	var md map[string]any
	if err := yaml.NewDecoder(r).Decode(&md); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	return md, nil
}

// MetadataDecoder picks the decoder matching the file extension. Anything
// other than .yaml or .yml is read as JSON.
func MetadataDecoder(path string) func(io.Reader) (map[string]any, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return LoadMetadataYAML
	}
	return LoadMetadata
}

// CellCountKey is the metadata key carrying the number of cells.
const CellCountKey = "cell_count"

// CapacityKWh returns the capacity recorded in the metadata, or the default
// when missing or not numeric.
func (m Manifest) CapacityKWh() float64 {
	if v, ok := m.number(CapacityKey); ok {
		return v
	}
	return model.DefaultCapacityKWh
}

// CellCount returns the positive whole cell count recorded in the metadata.
func (m Manifest) CellCount() (int, bool) {
	v, ok := m.number(CellCountKey)
	if !ok || v < 1 || v != float64(int(v)) {
		return 0, false
	}
	return int(v), true
}

func (m Manifest) number(key string) (float64, bool) {
	switch v := m.Metadata[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return f, true
		}
	}
	return 0, false
}

// Descriptor turns the manifest into a batch input with zero cycles.
func (m Manifest) Descriptor(healing []model.HealingRecord) model.PackDescriptor {
	capacity, cycles := m.CapacityKWh(), 0.0
	return model.PackDescriptor{
		PackID:      m.PackID,
		CapacityKWh: &capacity,
		Cycles:      &cycles,
		HealingData: healing,
	}
}
