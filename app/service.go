package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/evpack/config"
	"github.com/kilianp07/evpack/core/analysis"
	coremetrics "github.com/kilianp07/evpack/core/metrics"
	"github.com/kilianp07/evpack/core/model"
	"github.com/kilianp07/evpack/core/monitoring"
	"github.com/kilianp07/evpack/core/pack"
	"github.com/kilianp07/evpack/core/sim"
	"github.com/kilianp07/evpack/infra/logger"
	"github.com/kilianp07/evpack/infra/store"
	"github.com/kilianp07/evpack/internal/eventbus"
	"github.com/kilianp07/evpack/pkg/report"
)

// DefaultPackID names the factory pack simulated when no packs are configured.
const DefaultPackID = "default_pack"

// Report is the outcome of one Run.
type Report struct {
	RunID       string                   `json:"run_id"`
	Seed        int64                    `json:"seed"`
	Diagnostics []model.DriveDiagnostics `json:"diagnostics"`
	Series      []model.DriveDiagnostics `json:"series,omitempty"`
	Efficiency  *model.EfficiencySummary `json:"efficiency,omitempty"`
	Health      *model.HealthSummary     `json:"health,omitempty"`
	Adjustment  analysis.Adjustment      `json:"adjustment"`
	Evaluation  analysis.Evaluation      `json:"evaluation"`
	Exports     []string                 `json:"exports,omitempty"`
}

// Option customises a Service.
type Option func(*Service)

// WithSink replaces the sinks built from the configuration.
func WithSink(s coremetrics.MetricsSink) Option {
	return func(svc *Service) { svc.sink = s }
}

// WithStore replaces the store built from the configuration.
func WithStore(s store.Store) Option {
	return func(svc *Service) { svc.store = s }
}

// WithLogger sets the service logger.
func WithLogger(l logger.Logger) Option {
	return func(svc *Service) { svc.log = l }
}

// WithMonitor reports failed runs to m.
func WithMonitor(m monitoring.Monitor) Option {
	return func(svc *Service) { svc.monitor = m }
}

// Service runs batch simulations and fans the results out to the store,
// the metrics sinks and the report files.
type Service struct {
	cfg     *config.Config
	sink    coremetrics.MetricsSink
	store   store.Store
	log     logger.Logger
	monitor monitoring.Monitor
	now     func() time.Time
}

// New creates a Service from the configuration.
func New(cfg *config.Config, opts ...Option) (*Service, error) {
	if cfg == nil {
		return nil, errors.New("nil config")
	}
	svc := &Service{cfg: cfg, log: logger.New("service"), monitor: monitoring.NopMonitor{}, now: time.Now}
	for _, o := range opts {
		o(svc)
	}
	if svc.sink == nil {
		sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
		if err != nil {
			return nil, fmt.Errorf("metrics sink: %w", err)
		}
		svc.sink = sink
	}
	if svc.store == nil && !cfg.Store.Disabled {
		st, err := store.New(cfg.Store.Backend, cfg.Store.Path)
		if err != nil {
			return nil, fmt.Errorf("store: %w", err)
		}
		svc.store = st
	}
	return svc, nil
}

// Run performs one batch run.
func (s *Service) Run(ctx context.Context) (*Report, error) {
	start := s.now()
	rep := &Report{RunID: uuid.NewString()}

	healing, err := s.loadHealing()
	if err != nil {
		return nil, s.fail(rep, "inputs", err)
	}
	packs, manifest, err := s.loadPacks(healing)
	if err != nil {
		return nil, s.fail(rep, "inputs", err)
	}
	var (
		signature string
		cells     int
	)
	if manifest != nil {
		signature = manifest.Imprint.Signature
		cells, _ = manifest.CellCount()
	}

	bus := eventbus.New[sim.PackSimulated]()
	var wg sync.WaitGroup
	wg.Add(1)
	go func(events <-chan sim.PackSimulated) {
		defer wg.Done()
		for ev := range events {
			s.log.Debugw("pack simulated", map[string]any{
				"run_id":    rep.RunID,
				"pack_id":   ev.PackID,
				"cycle":     ev.Cycle,
				"healing":   string(ev.Healing),
				"remaining": ev.Diagnostics.RemainingCapacityKWh,
			})
		}
	}(bus.Subscribe())

	simCfg := s.cfg.Simulation
	runner := sim.NewBatchRunner(sim.BatchConfig{
		Seed:     simCfg.Seed,
		Workers:  simCfg.Workers,
		Defaults: simCfg.PackDefaults(),
	}, sim.WithLogger(s.log), sim.WithEvents(bus))
	rep.Seed = runner.Seed()

	rep.Diagnostics, err = runner.Run(ctx, packs, simCfg.MilesEach)
	if err == nil && simCfg.SeriesCycles > 1 && len(packs) > 0 {
		rep.Series, err = runner.RunSeries(ctx, packs[0], simCfg.MilesEach, simCfg.SeriesCycles)
	}
	bus.Close()
	wg.Wait()
	if dropped := bus.Dropped(); dropped > 0 {
		s.log.Debugf("%d progress events dropped", dropped)
	}
	if err != nil {
		s.recordRun(rep, len(packs), start, true)
		return nil, s.fail(rep, "simulate", fmt.Errorf("simulate: %w", err))
	}

	events := s.driveCycleEvents(rep, packs)
	if err := s.persist(ctx, events); err != nil {
		s.recordRun(rep, len(packs), start, true)
		return nil, s.fail(rep, "persist", err)
	}
	if err := s.sink.RecordDriveCycles(events); err != nil {
		s.log.Warnf("record drive cycles: %v", err)
	}

	all := append(append([]model.DriveDiagnostics{}, rep.Diagnostics...), rep.Series...)
	if sum, err := analysis.SummarizeEfficiency(all); err == nil {
		rep.Efficiency = &sum
		if rec, ok := s.sink.(coremetrics.EfficiencySummaryRecorder); ok {
			if err := rec.RecordEfficiencySummary(coremetrics.EfficiencySummaryEvent{RunID: rep.RunID, Summary: sum, Time: s.now()}); err != nil {
				s.log.Warnf("record efficiency summary: %v", err)
			}
		}
	} else {
		s.log.Warnf("efficiency summary: %v", err)
	}

	healed := healingCells(healing, packs)
	if sum, err := analysis.AnalyzeHealing(healed); err == nil {
		rep.Health = &sum
		if rec, ok := s.sink.(coremetrics.HealthSummaryRecorder); ok {
			ev := coremetrics.HealthSummaryEvent{RunID: rep.RunID, Source: string(sim.HealingReport), Summary: sum, Time: s.now()}
			if err := rec.RecordHealthSummary(ev); err != nil {
				s.log.Warnf("record health summary: %v", err)
			}
		}
	} else if len(healed) > 0 {
		s.log.Warnf("healing analysis: %v", err)
	}

	rep.Adjustment = analysis.AntifragileAdjustment(analysis.TraceFromRun(healed, all))
	rep.Evaluation = analysis.Evaluate(rep.Efficiency, cells, len(healing), signature)

	rep.Exports, err = s.export(rep.RunID, all)
	if err != nil {
		s.recordRun(rep, len(packs), start, true)
		return nil, s.fail(rep, "export", err)
	}

	s.recordRun(rep, len(packs), start, false)
	s.logReport(rep)
	return rep, nil
}

// fail reports err unless the run was cancelled.
func (s *Service) fail(rep *Report, stage string, err error) error {
	if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		s.monitor.CaptureException(err, map[string]string{"run_id": rep.RunID, "stage": stage})
	}
	s.log.Errorf("run %s failed at %s: %v", rep.RunID, stage, err)
	return err
}

// Close releases the store and the sinks holding resources.
func (s *Service) Close() error {
	s.monitor.Flush(2 * time.Second)
	var errs []error
	if s.store != nil {
		errs = append(errs, s.store.Close())
	}
	if c, ok := s.sink.(interface{ Close() error }); ok {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// loadHealing reads the converted healing JSON, then the CSV report.
func (s *Service) loadHealing() ([]model.HealingRecord, error) {
	in := s.cfg.Inputs
	var out []model.HealingRecord
	if in.HealingJSON != "" {
		recs, err := readFile(in.HealingJSON, report.LoadHealingJSON)
		if err != nil {
			return nil, fmt.Errorf("healing json: %w", err)
		}
		out = append(out, recs...)
	}
	if in.HealingReport != "" {
		recs, err := readFile(in.HealingReport, report.ParseHealingCSV)
		if err != nil {
			return nil, fmt.Errorf("healing report: %w", err)
		}
		out = append(out, recs...)
	}
	return out, nil
}

// loadPacks returns the configured packs, or a freshly initialized factory
// pack with its manifest. Packs without healing data of their own share the
// loaded report.
func (s *Service) loadPacks(healing []model.HealingRecord) ([]model.PackDescriptor, *pack.Manifest, error) {
	in := s.cfg.Inputs
	if len(in.Packs) > 0 {
		packs := make([]model.PackDescriptor, len(in.Packs))
		for i, p := range in.Packs {
			if len(p.HealingData) == 0 {
				p.HealingData = healing
			}
			packs[i] = p
		}
		return packs, nil, nil
	}
	md := pack.DefaultMetadata()
	if in.PackMetadata != "" {
		loaded, err := readFile(in.PackMetadata, pack.MetadataDecoder(in.PackMetadata))
		if err != nil {
			return nil, nil, fmt.Errorf("pack metadata: %w", err)
		}
		md = loaded
	}
	manifest := pack.Initialize(DefaultPackID, md)
	s.log.Infof("factory initialized %s (%s)", manifest.PackID, manifest.Imprint.Signature)
	return []model.PackDescriptor{manifest.Descriptor(healing)}, &manifest, nil
}

func (s *Service) driveCycleEvents(rep *Report, packs []model.PackDescriptor) []coremetrics.DriveCycleEvent {
	now := s.now()
	events := make([]coremetrics.DriveCycleEvent, 0, len(rep.Diagnostics)+len(rep.Series))
	for i, d := range rep.Diagnostics {
		events = append(events, coremetrics.DriveCycleEvent{
			RunID:       rep.RunID,
			PackID:      d.PackID,
			Healing:     string(sim.ClassifyHealing(packs[i])),
			Diagnostics: d,
			Time:        now,
		})
	}
	for c, d := range rep.Series {
		events = append(events, coremetrics.DriveCycleEvent{
			RunID:       rep.RunID,
			PackID:      d.PackID,
			Cycle:       c + 1,
			Healing:     string(sim.ClassifyHealing(packs[0])),
			Diagnostics: d,
			Time:        now,
		})
	}
	return events
}

func (s *Service) persist(ctx context.Context, events []coremetrics.DriveCycleEvent) error {
	if s.store == nil || len(events) == 0 {
		return nil
	}
	recs := make([]store.RunRecord, len(events))
	for i, ev := range events {
		recs[i] = store.RunRecord{
			RunID:       ev.RunID,
			Timestamp:   ev.Time,
			PackID:      ev.PackID,
			Cycle:       ev.Cycle,
			Healing:     ev.Healing,
			Diagnostics: ev.Diagnostics,
		}
	}
	if err := s.store.Append(ctx, recs...); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	return nil
}

func (s *Service) export(runID string, diags []model.DriveDiagnostics) ([]string, error) {
	out := s.cfg.Output
	if out.Dir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(out.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("output dir: %w", err)
	}
	now := s.now()
	var paths []string
	for _, format := range out.Formats {
		path := report.OutputFilename(out.Dir, out.Prefix, format, now)
		write := report.WriteDiagnosticsCSV
		if format == "json" {
			write = report.WriteDiagnosticsJSON
		}
		if err := writeFile(path, func(f *os.File) error { return write(f, diags) }); err != nil {
			return paths, fmt.Errorf("export %s: %w", format, err)
		}
		s.log.Infof("run %s: wrote %s", runID, filepath.Base(path))
		paths = append(paths, path)
	}
	return paths, nil
}

func (s *Service) recordRun(rep *Report, packs int, start time.Time, failed bool) {
	rec, ok := s.sink.(coremetrics.RunRecorder)
	if !ok {
		return
	}
	ev := coremetrics.RunEvent{
		RunID:    rep.RunID,
		Seed:     rep.Seed,
		Packs:    packs,
		Cycles:   len(rep.Diagnostics) + len(rep.Series),
		Duration: s.now().Sub(start),
		Failed:   failed,
		Time:     s.now(),
	}
	if err := rec.RecordRun(ev); err != nil {
		s.log.Warnf("record run: %v", err)
	}
}

func (s *Service) logReport(rep *Report) {
	if rep.Efficiency != nil {
		s.log.Infof("run %s: %d records, average efficiency %.3f, %.0f miles, capacity loss %.3f kWh",
			rep.RunID, rep.Efficiency.Records, rep.Efficiency.AverageEfficiency,
			rep.Efficiency.TotalMilesDriven, rep.Efficiency.TotalCapacityLossKWh)
	}
	if rep.Health != nil {
		s.log.Infof("run %s: health score %.3f over %d cells", rep.RunID, rep.Health.OverallHealthScore, rep.Health.Cells)
	}
	ev := rep.Evaluation
	s.log.Infof("run %s: efficiency %.3f -> %.3f, miles per charge %d -> %d",
		rep.RunID, ev.EfficiencyStart, ev.EfficiencyEnd, ev.MilesPerChargeStart, ev.MilesPerChargeEnd)
}

// healingCells gathers the report records and the per-pack healing data that
// differs from the report.
func healingCells(shared []model.HealingRecord, packs []model.PackDescriptor) []model.HealingRecord {
	out := append([]model.HealingRecord{}, shared...)
	for _, p := range packs {
		if len(p.HealingData) > 0 && !sameSlice(p.HealingData, shared) {
			out = append(out, p.HealingData...)
		}
	}
	return out
}

func sameSlice(a, b []model.HealingRecord) bool {
	return len(a) == len(b) && len(a) > 0 && &a[0] == &b[0]
}
