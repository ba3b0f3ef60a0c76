package config

import (
	"fmt"

	"github.com/kilianp07/evpack/core/model"
)

// InputsConfig lists the packs to simulate and optional healing sources.
type InputsConfig struct {
	Packs []model.PackDescriptor `json:"packs"`
	// PackMetadata is a factory metadata JSON file used when Packs is empty.
	PackMetadata string `json:"pack_metadata"`
	// HealingReport is a CSV healing report.
	HealingReport string `json:"healing_report"`
	// HealingJSON is a converted healing JSON file.
	HealingJSON string `json:"healing_json"`
}

// Validate rejects duplicate pack ids and non-finite values.
func (c InputsConfig) Validate() error {
	seen := make(map[string]struct{}, len(c.Packs))
	for i, p := range c.Packs {
		if p.PackID != "" {
			if _, ok := seen[p.PackID]; ok {
				return fmt.Errorf("duplicate pack_id %q", p.PackID)
			}
			seen[p.PackID] = struct{}{}
		}
		if err := p.Validate(); err != nil {
			return fmt.Errorf("packs[%d]: %w", i, err)
		}
	}
	return nil
}
