package config

import (
	"fmt"
)

// StoreConfig defines where simulated drive cycles are persisted.
type StoreConfig struct {
	// Backend selects the store type: "jsonl" or "sqlite".
	Backend string `json:"backend"`
	// Path is the file location of the store.
	Path string `json:"path"`
	// Disabled skips persistence entirely.
	Disabled bool `json:"disabled"`
}

// SetDefaults applies sane defaults.
func (c *StoreConfig) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "jsonl"
	}
	if c.Path == "" {
		c.Path = "drive_cycles.jsonl"
	}
}

// Validate checks mandatory fields.
func (c StoreConfig) Validate() error {
	if c.Disabled {
		return nil
	}
	if c.Backend != "jsonl" && c.Backend != "sqlite" {
		return fmt.Errorf("unknown backend %s", c.Backend)
	}
	if c.Path == "" {
		return fmt.Errorf("path is required")
	}
	return nil
}
