package metrics

import (
	"errors"
	"io"
)

// MultiSink fans events out to several sinks. Every sink is attempted; the
// errors are joined.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

func (m *MultiSink) RecordDriveCycles(evs []DriveCycleEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		errs = append(errs, s.RecordDriveCycles(evs))
	}
	return errors.Join(errs...)
}

func (m *MultiSink) RecordEfficiencySummary(ev EfficiencySummaryEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if rec, ok := s.(EfficiencySummaryRecorder); ok {
			errs = append(errs, rec.RecordEfficiencySummary(ev))
		}
	}
	return errors.Join(errs...)
}

func (m *MultiSink) RecordHealthSummary(ev HealthSummaryEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if rec, ok := s.(HealthSummaryRecorder); ok {
			errs = append(errs, rec.RecordHealthSummary(ev))
		}
	}
	return errors.Join(errs...)
}

func (m *MultiSink) RecordRun(ev RunEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if rec, ok := s.(RunRecorder); ok {
			errs = append(errs, rec.RecordRun(ev))
		}
	}
	return errors.Join(errs...)
}

// Close closes the sinks that hold resources.
func (m *MultiSink) Close() error {
	var errs []error
	for _, s := range m.Sinks {
		if c, ok := s.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}
