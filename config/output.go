package config

import "fmt"

// OutputConfig controls the diagnostics exports written after a run.
type OutputConfig struct {
	// Dir receives the export files. Empty disables exports.
	Dir    string `json:"dir"`
	Prefix string `json:"prefix"`
	// Formats lists "csv" and/or "json".
	Formats []string `json:"formats"`
}

// SetDefaults applies sane defaults.
func (c *OutputConfig) SetDefaults() {
	if c.Dir != "" && len(c.Formats) == 0 {
		c.Formats = []string{"csv"}
	}
}

// Validate checks the formats.
func (c OutputConfig) Validate() error {
	for _, f := range c.Formats {
		if f != "csv" && f != "json" {
			return fmt.Errorf("unknown format %s", f)
		}
	}
	return nil
}
