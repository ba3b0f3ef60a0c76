package metrics

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/evpack/core/metrics"
	"github.com/kilianp07/evpack/infra/logger"
	"github.com/kilianp07/evpack/internal/numeric"
)

// InfluxConfig holds the InfluxDB connection settings.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

// InfluxSink writes drive cycle diagnostics and run summaries to InfluxDB
// using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(cfg InfluxConfig) *InfluxSink {
	base := strings.TrimSuffix(cfg.URL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(cfg InfluxConfig) coremetrics.MetricsSink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordDriveCycles writes one drive_cycle point per event. Absent
// efficiency or remaining capacity values are left out of the point.
func (s *InfluxSink) RecordDriveCycles(evs []coremetrics.DriveCycleEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, ev := range evs {
		d := ev.Diagnostics
		p := write.NewPointWithMeasurement("drive_cycle").
			AddTag("run_id", ev.RunID).
			AddTag("pack_id", ev.PackID).
			AddTag("healing", ev.Healing).
			AddField("cycle", ev.Cycle).
			AddField("miles_driven", d.MilesDriven).
			AddField("total_consumed_kwh", numeric.Round(d.TotalConsumedKWh, 3)).
			AddField("capacity_loss_kwh", d.CapacityLossKWh).
			AddField("cycle_count", d.CycleCount)
		if d.HasEfficiency() {
			p = p.AddField("efficiency", d.Efficiency)
		}
		if d.HasRemainingCapacity() {
			p = p.AddField("remaining_capacity_kwh", d.RemainingCapacityKWh)
		}
		p = p.SetTime(ev.Time)
		if err := s.writeAPI.WritePoint(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// RecordEfficiencySummary persists the reduction of a run.
func (s *InfluxSink) RecordEfficiencySummary(ev coremetrics.EfficiencySummaryEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	sum := ev.Summary
	p := write.NewPointWithMeasurement("efficiency_summary").
		AddTag("run_id", ev.RunID).
		AddField("average_efficiency", sum.AverageEfficiency).
		AddField("total_miles_driven", sum.TotalMilesDriven).
		AddField("total_capacity_loss_kwh", sum.TotalCapacityLossKWh).
		AddField("records", sum.Records)
	if sum.AverageRemainingCapacityKWh != nil {
		p = p.AddField("average_remaining_capacity_kwh", *sum.AverageRemainingCapacityKWh)
	}
	p = p.SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordHealthSummary persists a healing analysis.
func (s *InfluxSink) RecordHealthSummary(ev coremetrics.HealthSummaryEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	sum := ev.Summary
	p := write.NewPointWithMeasurement("healing_summary").
		AddTag("run_id", ev.RunID).
		AddTag("source", ev.Source).
		AddField("average_restored_psi", sum.AverageRestoredPsi).
		AddField("average_restored_tension", sum.AverageRestoredTension).
		AddField("overall_health_score", sum.OverallHealthScore).
		AddField("cells", sum.Cells).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordRun persists the outcome of a batch run.
func (s *InfluxSink) RecordRun(ev coremetrics.RunEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("run").
		AddTag("run_id", ev.RunID).
		AddTag("failed", strconv.FormatBool(ev.Failed)).
		AddField("seed", ev.Seed).
		AddField("packs", ev.Packs).
		AddField("cycles", ev.Cycles).
		AddField("duration_ms", numeric.Round(ev.Duration.Seconds()*1000, 3)).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the underlying client.
func (s *InfluxSink) Close() error {
	s.client.Close()
	return nil
}
