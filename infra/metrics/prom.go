package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/evpack/core/metrics"
)

// PromSink exposes drive cycle diagnostics and run summaries as Prometheus
// metrics.
type PromSink struct {
	cycles     *prometheus.CounterVec
	efficiency prometheus.Histogram
	lossTotal  prometheus.Counter
	remaining  *prometheus.GaugeVec
	cycleCount *prometheus.GaugeVec
	avgEff     prometheus.Gauge
	health     *prometheus.GaugeVec
	runs       *prometheus.CounterVec
	runTime    prometheus.Histogram
}

// NewPromSink registers the metrics on the default Prometheus registerer.
// The HTTP endpoint is started separately with StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{}
	var err error
	if s.cycles, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "evpack_drive_cycles_total",
		Help: "Total number of simulated drive cycles",
	}, []string{"healing"})); err != nil {
		return nil, err
	}
	if s.efficiency, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "evpack_drive_efficiency",
		Help:    "Efficiency reported for each drive cycle",
		Buckets: prometheus.LinearBuckets(0.95, 0.005, 10),
	})); err != nil {
		return nil, err
	}
	if s.lossTotal, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "evpack_capacity_loss_kwh_total",
		Help: "Capacity lost across all simulated drive cycles",
	})); err != nil {
		return nil, err
	}
	if s.remaining, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "evpack_pack_remaining_capacity_kwh",
		Help: "Remaining capacity after the latest drive cycle",
	}, []string{"pack_id"})); err != nil {
		return nil, err
	}
	if s.cycleCount, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "evpack_pack_cycle_count",
		Help: "Equivalent full cycles after the latest drive cycle",
	}, []string{"pack_id"})); err != nil {
		return nil, err
	}
	if s.avgEff, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "evpack_average_efficiency",
		Help: "Average efficiency of the latest run",
	})); err != nil {
		return nil, err
	}
	if s.health, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "evpack_health_score",
		Help: "Overall health score of the latest healing analysis",
	}, []string{"source"})); err != nil {
		return nil, err
	}
	if s.runs, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "evpack_runs_total",
		Help: "Total number of batch runs",
	}, []string{"status"})); err != nil {
		return nil, err
	}
	if s.runTime, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "evpack_run_duration_seconds",
		Help:    "Wall time of batch runs",
		Buckets: prometheus.DefBuckets,
	})); err != nil {
		return nil, err
	}
	return s, nil
}

// register reuses an already registered collector of the same description.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		var zero T
		return zero, err
	}
	return c, nil
}

// RecordDriveCycles updates the per-cycle metrics.
func (s *PromSink) RecordDriveCycles(evs []coremetrics.DriveCycleEvent) error {
	for _, ev := range evs {
		d := ev.Diagnostics
		s.cycles.WithLabelValues(ev.Healing).Inc()
		if d.HasEfficiency() {
			s.efficiency.Observe(d.Efficiency)
		}
		if d.CapacityLossKWh > 0 {
			s.lossTotal.Add(d.CapacityLossKWh)
		}
		if d.HasRemainingCapacity() {
			s.remaining.WithLabelValues(ev.PackID).Set(d.RemainingCapacityKWh)
		}
		s.cycleCount.WithLabelValues(ev.PackID).Set(d.CycleCount)
	}
	return nil
}

// RecordEfficiencySummary sets the average efficiency gauge.
func (s *PromSink) RecordEfficiencySummary(ev coremetrics.EfficiencySummaryEvent) error {
	s.avgEff.Set(ev.Summary.AverageEfficiency)
	return nil
}

// RecordHealthSummary sets the health score for the summary source.
func (s *PromSink) RecordHealthSummary(ev coremetrics.HealthSummaryEvent) error {
	s.health.WithLabelValues(ev.Source).Set(ev.Summary.OverallHealthScore)
	return nil
}

// RecordRun counts the run and observes its duration.
func (s *PromSink) RecordRun(ev coremetrics.RunEvent) error {
	status := "ok"
	if ev.Failed {
		status = "failed"
	}
	s.runs.WithLabelValues(status).Inc()
	s.runTime.Observe(ev.Duration.Seconds())
	return nil
}
