package metrics

import (
	"time"

	"github.com/kilianp07/evpack/core/model"
)

// DriveCycleEvent is one simulated drive cycle of one pack.
type DriveCycleEvent struct {
	RunID       string
	PackID      string
	Cycle       int
	Healing     string
	Diagnostics model.DriveDiagnostics
	Time        time.Time
}

// MetricsSink records drive cycle diagnostics.
type MetricsSink interface {
	RecordDriveCycles(events []DriveCycleEvent) error
}

// EfficiencySummaryEvent carries the reduction of a run.
type EfficiencySummaryEvent struct {
	RunID   string
	Summary model.EfficiencySummary
	Time    time.Time
}

// EfficiencySummaryRecorder records efficiency summaries.
type EfficiencySummaryRecorder interface {
	RecordEfficiencySummary(ev EfficiencySummaryEvent) error
}

// HealthSummaryEvent carries the healing analysis of a run.
type HealthSummaryEvent struct {
	RunID   string
	Source  string
	Summary model.HealthSummary
	Time    time.Time
}

// HealthSummaryRecorder records healing summaries.
type HealthSummaryRecorder interface {
	RecordHealthSummary(ev HealthSummaryEvent) error
}

// RunEvent describes a finished batch run.
type RunEvent struct {
	RunID    string
	Seed     int64
	Packs    int
	Cycles   int
	Duration time.Duration
	Failed   bool
	Time     time.Time
}

// RunRecorder records batch run events.
type RunRecorder interface {
	RecordRun(ev RunEvent) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordDriveCycles([]DriveCycleEvent) error            { return nil }
func (NopSink) RecordEfficiencySummary(EfficiencySummaryEvent) error { return nil }
func (NopSink) RecordHealthSummary(HealthSummaryEvent) error         { return nil }
func (NopSink) RecordRun(RunEvent) error                             { return nil }
