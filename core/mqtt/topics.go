// Package mqtt defines the topic layout used to publish simulation results.
package mqtt

import "strings"

// DefaultPrefix is used when no topic prefix is configured.
const DefaultPrefix = "evpack"

// Topics builds topic names under a common prefix.
type Topics struct {
	Prefix string
}

// NewTopics trims slashes from prefix and falls back to DefaultPrefix.
func NewTopics(prefix string) Topics {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return Topics{Prefix: prefix}
}

// Diagnostics is the topic for the drive cycles of one pack.
func (t Topics) Diagnostics(runID, packID string) string {
	return t.join(runID, "pack", segment(packID), "diagnostics")
}

// EfficiencySummary is the topic for the efficiency summary of a run.
func (t Topics) EfficiencySummary(runID string) string {
	return t.join(runID, "summary", "efficiency")
}

// HealthSummary is the topic for a healing analysis of a run.
func (t Topics) HealthSummary(runID string) string {
	return t.join(runID, "summary", "health")
}

// Run is the topic for the outcome of a run.
func (t Topics) Run(runID string) string {
	return t.join(runID, "run")
}

// Status carries the publisher online/offline state.
func (t Topics) Status() string {
	return t.Prefix + "/status"
}

func (t Topics) join(runID string, parts ...string) string {
	return t.Prefix + "/" + segment(runID) + "/" + strings.Join(parts, "/")
}

// segment makes an identifier safe for use as a single topic level.
func segment(id string) string {
	if id == "" {
		return "_"
	}
	return strings.NewReplacer("/", "_", "+", "_", "#", "_").Replace(id)
}
