package sim

import (
	"context"
	"fmt"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kilianp07/evpack/core/analysis"
	"github.com/kilianp07/evpack/core/logger"
	"github.com/kilianp07/evpack/core/model"
	"github.com/kilianp07/evpack/core/rng"
	"github.com/kilianp07/evpack/internal/eventbus"
)

// Baseline healing values given to packs without any healing information.
var (
	baselinePsi     = [2]float64{0.45, 0.72}
	baselineTension = [2]float64{0.59, 0.615}
)

// seriesStream is the random stream of RunSeries. Run uses the pack positions
// 0..n-1, so a series never replays a batch pack.
const seriesStream = -1

// HealingSource tells where the restored values of a simulated pack came from.
type HealingSource string

const (
	HealingProvided  HealingSource = "provided"
	HealingReport    HealingSource = "report"
	HealingSynthetic HealingSource = "synthetic"
)

// PackSimulated is published on the runner's bus after each drive cycle.
// Index is -1 for RunSeries cycles.
type PackSimulated struct {
	Index       int
	Cycle       int
	PackID      string
	Healing     HealingSource
	Diagnostics model.DriveDiagnostics
	State       model.PackState
}

// BatchConfig configures a BatchRunner. A zero Seed picks a time based seed;
// Workers below 1 means sequential execution.
type BatchConfig struct {
	Seed     int64
	Workers  int
	Defaults model.PackDefaults
}

// Option customises a BatchRunner.
type Option func(*BatchRunner)

// WithLogger sets the runner logger.
func WithLogger(l logger.Logger) Option {
	return func(r *BatchRunner) {
		if l != nil {
			r.log = l
		}
	}
}

// WithEvents publishes a PackSimulated event for every simulated cycle.
func WithEvents(bus *eventbus.Bus[PackSimulated]) Option {
	return func(r *BatchRunner) { r.bus = bus }
}

// WithSourceFactory overrides how per-pack random sources are built.
func WithSourceFactory(f func(seed int64) rng.Source) Option {
	return func(r *BatchRunner) {
		if f != nil {
			r.newSource = f
		}
	}
}

// BatchRunner simulates independent packs. Every pack gets its own random
// source derived from the base seed and the pack position, so results do not
// depend on the worker count.
type BatchRunner struct {
	seed      int64
	workers   int
	defaults  model.PackDefaults
	log       logger.Logger
	bus       *eventbus.Bus[PackSimulated]
	newSource func(seed int64) rng.Source
}

// NewBatchRunner builds a runner from cfg.
func NewBatchRunner(cfg BatchConfig, opts ...Option) *BatchRunner {
	r := &BatchRunner{
		seed:     cfg.Seed,
		workers:  cfg.Workers,
		defaults: cfg.Defaults,
		log:      logger.Nop{},
		newSource: func(seed int64) rng.Source {
			return rng.New(seed)
		},
	}
	if r.seed == 0 {
		r.seed = time.Now().UnixNano()
	}
	if r.workers < 1 {
		r.workers = 1
	}
	if r.defaults == (model.PackDefaults{}) {
		r.defaults = model.DefaultPackDefaults()
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Seed returns the base seed, useful to replay a run.
func (r *BatchRunner) Seed() int64 { return r.seed }

// Run simulates one drive cycle of milesEach for every pack and returns the
// diagnostics in input order.
func (r *BatchRunner) Run(ctx context.Context, packs []model.PackDescriptor, milesEach float64) ([]model.DriveDiagnostics, error) {
	if err := validateDistance(milesEach); err != nil {
		return nil, err
	}
	out := make([]model.DriveDiagnostics, len(packs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, p := range packs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			series, err := r.simulatePack(i, p, milesEach, 1)
			if err != nil {
				return err
			}
			out[i] = series[0]
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	r.log.Debugf("simulated %d packs over %.1f miles (seed %d)", len(packs), milesEach, r.seed)
	return out, nil
}

// RunSeries drives a single pack through consecutive cycles and returns one
// diagnostics record per cycle. The series draws from its own random stream,
// so it is an independent trajectory even for a pack also passed to Run.
func (r *BatchRunner) RunSeries(ctx context.Context, pack model.PackDescriptor, miles float64, cycles int) ([]model.DriveDiagnostics, error) {
	if err := validateDistance(miles); err != nil {
		return nil, err
	}
	if cycles < 1 {
		return nil, fmt.Errorf("cycles must be at least 1, got %d", cycles)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.simulatePack(seriesStream, pack, miles, cycles)
}

func (r *BatchRunner) simulatePack(index int, pack model.PackDescriptor, miles float64, cycles int) ([]model.DriveDiagnostics, error) {
	if err := pack.Validate(); err != nil {
		return nil, err
	}
	src := r.newSource(rng.Derive(r.seed, index))
	state, source := r.prepare(pack, src)
	sim := NewSimulator(src)
	out := make([]model.DriveDiagnostics, 0, cycles)
	for c := 0; c < cycles; c++ {
		next, diag, err := sim.Simulate(state, miles)
		if err != nil {
			return nil, fmt.Errorf("pack %q cycle %d: %w", pack.PackID, c, err)
		}
		diag.PackID = pack.PackID
		state = next
		out = append(out, diag)
		if r.bus != nil {
			r.bus.Publish(PackSimulated{
				Index:       index,
				Cycle:       c,
				PackID:      pack.PackID,
				Healing:     source,
				Diagnostics: diag,
				State:       state.Clone(),
			})
		}
	}
	return out, nil
}

// ClassifyHealing tells which healing source the runner will use for pack.
func ClassifyHealing(pack model.PackDescriptor) HealingSource {
	if pack.RestoredPsi != nil && pack.RestoredTension != nil {
		return HealingProvided
	}
	if _, err := analysis.AnalyzeHealing(pack.HealingData); err == nil {
		return HealingReport
	}
	return HealingSynthetic
}

// prepare builds the starting state. Explicit restored values win, then the
// averages of the pack healing data, then the synthetic baseline. Only
// missing values are filled in.
func (r *BatchRunner) prepare(pack model.PackDescriptor, src rng.Source) (model.PackState, HealingSource) {
	st := pack.State(r.defaults)
	if st.Healed() {
		return st, HealingProvided
	}
	var psi, tension float64
	source := HealingSynthetic
	if sum, err := analysis.AnalyzeHealing(pack.HealingData); err == nil {
		psi, tension = sum.AverageRestoredPsi, sum.AverageRestoredTension
		source = HealingReport
	} else {
		if len(pack.HealingData) > 0 {
			r.log.Warnf("pack %s: ignoring healing data: %v", pack.PackID, err)
		}
		psi = src.Uniform(baselinePsi[0], baselinePsi[1])
		tension = src.Uniform(baselineTension[0], baselineTension[1])
	}
	if st.RestoredPsi == nil {
		st.RestoredPsi = &psi
	}
	if st.RestoredTension == nil {
		st.RestoredTension = &tension
	}
	return st, source
}

func validateDistance(miles float64) error {
	if !(miles > 0) || math.IsInf(miles, 1) {
		return fmt.Errorf("%w: got %v", ErrInvalidDistance, miles)
	}
	return nil
}
