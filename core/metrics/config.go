package metrics

import (
	"fmt"
	"net"

	"github.com/kilianp07/evpack/core/factory"
)

// Config lists the sinks receiving run results. PrometheusPort, a listen
// address such as ":9100", starts the /metrics endpoint when set.
type Config struct {
	Sinks          []factory.ModuleConfig `json:"sinks"`
	PrometheusPort string                 `json:"prometheus_port"`
}

// Validate rejects untyped sinks and malformed listen addresses.
func (c Config) Validate() error {
	for i, s := range c.Sinks {
		if s.Type == "" {
			return fmt.Errorf("sink %d: missing type", i)
		}
	}
	if c.PrometheusPort != "" {
		if _, _, err := net.SplitHostPort(c.PrometheusPort); err != nil {
			return fmt.Errorf("prometheus_port: %w", err)
		}
	}
	return nil
}
