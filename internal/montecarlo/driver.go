// Package montecarlo runs many independent cascade trials and collects the
// mapping from initial to final controlled fraction.
package montecarlo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/GoSim-25-26J-441/inheritance-core/internal/cascade"
	"github.com/GoSim-25-26J-441/inheritance-core/internal/metrics"
	"github.com/GoSim-25-26J-441/inheritance-core/internal/sampler"
	"github.com/GoSim-25-26J-441/inheritance-core/internal/succession"
	"github.com/GoSim-25-26J-441/inheritance-core/pkg/config"
	"github.com/GoSim-25-26J-441/inheritance-core/pkg/logger"
	"github.com/GoSim-25-26J-441/inheritance-core/pkg/models"
	"github.com/GoSim-25-26J-441/inheritance-core/pkg/utils"
	"golang.org/x/sync/errgroup"
)

// DefaultProgressEvery is the progress notification interval in trials.
const DefaultProgressEvery = 100

// Progress is reported to the progress callback as trials complete.
type Progress struct {
	Requested int
	Completed int
	Succeeded int
	Skipped   int
}

// ProgressFunc receives progress notifications. Calls are serialized.
type ProgressFunc func(Progress)

// Driver runs sweeps over a fixed graph and sample pool. Both are shared
// read-only by all trials, so one Driver may run several sweeps concurrently.
type Driver struct {
	graph *succession.Graph
	pool  *sampler.Pool

	workers       int
	seed          int64
	fractionMode  string
	progressEvery int
	progress      ProgressFunc
	collector     *metrics.Collector
	log           *slog.Logger
}

// Option configures a Driver.
type Option func(*Driver)

// WithWorkers bounds the number of trials running at once. Values below 1
// select GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(d *Driver) { d.workers = n }
}

// WithSeed sets the sweep seed. Zero picks a time-based seed, which is
// logged and reported in the result.
func WithSeed(seed int64) Option {
	return func(d *Driver) { d.seed = seed }
}

// WithFractionMode selects how trial fractions are chosen: config.FractionModeRandom
// draws them uniformly from [0, 1), config.FractionModeGrid spaces them evenly.
func WithFractionMode(mode string) Option {
	return func(d *Driver) { d.fractionMode = mode }
}

// WithProgress registers a progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(d *Driver) { d.progress = fn }
}

// WithProgressEvery sets the progress interval. Zero disables progress
// notifications.
func WithProgressEvery(n int) Option {
	return func(d *Driver) { d.progressEvery = n }
}

// WithCollector records trial outcomes into c, for callers that watch a
// sweep while it runs.
func WithCollector(c *metrics.Collector) Option {
	return func(d *Driver) { d.collector = c }
}

// WithLogger sets the logger used for sweep lifecycle messages.
func WithLogger(l *slog.Logger) Option {
	return func(d *Driver) { d.log = l }
}

// NewDriver creates a driver for graph and pool.
func NewDriver(graph *succession.Graph, pool *sampler.Pool, opts ...Option) (*Driver, error) {
	if graph == nil {
		return nil, fmt.Errorf("graph is required")
	}
	if pool == nil {
		return nil, fmt.Errorf("sample pool is required")
	}
	if pool.Universe() != graph.Size() {
		return nil, fmt.Errorf("sample pool covers %d nodes but graph has %d", pool.Universe(), graph.Size())
	}

	d := &Driver{
		graph:         graph,
		pool:          pool,
		fractionMode:  config.FractionModeRandom,
		progressEvery: DefaultProgressEvery,
	}
	for _, opt := range opts {
		opt(d)
	}

	if d.workers < 1 {
		d.workers = runtime.GOMAXPROCS(0)
	}
	if d.fractionMode != config.FractionModeRandom && d.fractionMode != config.FractionModeGrid {
		return nil, fmt.Errorf("unknown fraction mode %q", d.fractionMode)
	}
	if d.progressEvery < 0 {
		return nil, fmt.Errorf("progress interval cannot be negative, got %d", d.progressEvery)
	}
	if d.log == nil {
		d.log = logger.Default
	}

	return d, nil
}

// Graph returns the driver's succession graph.
func (d *Driver) Graph() *succession.Graph {
	return d.graph
}

// Pool returns the driver's sample pool.
func (d *Driver) Pool() *sampler.Pool {
	return d.pool
}

// Workers returns the effective worker count.
func (d *Driver) Workers() int {
	return d.workers
}

type outcome struct {
	done    bool
	result  models.TrialResult
	failure *models.TrialFailure
}

// sweep holds the mutable state of one Run call.
type sweep struct {
	requested int
	completed atomic.Int64
	succeeded atomic.Int64
	skipped   atomic.Int64
	notifyMu  sync.Mutex
}

// Run executes trials trials and returns them ordered by trial index. Trials
// whose initial set cannot be drawn are skipped and counted. Each trial uses
// its own random stream derived from the seed and the trial index, so the
// result does not depend on the worker count.
//
// If ctx is cancelled, no further trials are started and Run returns the
// trials finished so far together with ctx.Err().
func (d *Driver) Run(ctx context.Context, trials int) (*models.SweepResult, error) {
	if trials <= 0 {
		return nil, fmt.Errorf("trial count must be positive, got %d", trials)
	}

	seed := utils.ResolveSeed(d.seed)
	root := utils.NewRandSource(seed)
	collector := d.collector
	if collector == nil {
		collector = metrics.NewCollector()
	}
	collector.Start(trials)

	d.log.Info("sweep started",
		"trials", trials,
		"workers", d.workers,
		"seed", seed,
		"seed_time_based", d.seed == 0,
		"nodes", d.graph.Size(),
		"time_weighted", d.pool.TimeWeighted(),
		"fraction_mode", d.fractionMode)

	start := time.Now()
	slots := make([]outcome, trials)
	state := &sweep{requested: trials}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.workers)

	for i := 0; i < trials; i++ {
		if gctx.Err() != nil {
			break
		}
		idx := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out, err := d.runTrial(root.Stream(uint64(idx)), idx, trials)
			if err != nil {
				return err
			}
			slots[idx] = out

			if out.failure != nil {
				collector.RecordSkip(*out.failure)
				state.skipped.Add(1)
			} else {
				collector.RecordTrial(out.result)
				state.succeeded.Add(1)
			}
			d.notify(state, state.completed.Add(1))
			return nil
		})
	}

	err := g.Wait()
	collector.Stop()
	result := d.assemble(slots, seed, trials, time.Since(start))

	if ctxErr := ctx.Err(); ctxErr != nil {
		metrics.ObserveSweep(string(models.RunStatusCancelled), result.Duration)
		d.log.Warn("sweep cancelled",
			"completed", result.Succeeded+result.Skipped,
			"trials", trials,
			"error", ctxErr)
		return result, ctxErr
	}
	if err != nil {
		metrics.ObserveSweep(string(models.RunStatusFailed), result.Duration)
		d.log.Error("sweep failed", "error", err)
		return nil, err
	}

	metrics.ObserveSweep(string(models.RunStatusCompleted), result.Duration)
	d.log.Info("sweep finished",
		"succeeded", result.Succeeded,
		"skipped", result.Skipped,
		"duration", result.Duration)

	return result, nil
}

func (d *Driver) runTrial(rng *utils.RandSource, idx, trials int) (outcome, error) {
	n := d.graph.Size()
	f := d.fraction(rng, idx, trials)
	size := utils.CeilFraction(f, n)

	initial, err := d.pool.Draw(rng, size)
	if err != nil {
		if errors.Is(err, sampler.ErrInsufficientPool) {
			d.log.Debug("trial skipped", "trial", idx, "fraction", f, "size", size, "error", err)
			return outcome{
				done: true,
				failure: &models.TrialFailure{
					Trial:           idx,
					InitialFraction: f,
					RequestedSize:   size,
					Reason:          err.Error(),
				},
			}, nil
		}
		return outcome{}, fmt.Errorf("trial %d: %w", idx, err)
	}

	res := cascade.Run(d.graph, initial)
	final := res.FinalSize()

	return outcome{
		done: true,
		result: models.TrialResult{
			Trial:           idx,
			InitialFraction: f,
			FinalFraction:   float64(final) / float64(n),
			InitialSize:     size,
			FinalSize:       final,
			Iterations:      res.Iterations,
		},
	}, nil
}

func (d *Driver) fraction(rng *utils.RandSource, idx, trials int) float64 {
	if d.fractionMode == config.FractionModeGrid {
		return float64(idx) / float64(trials)
	}
	return rng.Float64()
}

func (d *Driver) notify(s *sweep, completed int64) {
	if d.progressEvery == 0 {
		return
	}
	if completed%int64(d.progressEvery) != 0 && completed != int64(s.requested) {
		return
	}

	p := Progress{
		Requested: s.requested,
		Completed: int(completed),
		Succeeded: int(s.succeeded.Load()),
		Skipped:   int(s.skipped.Load()),
	}
	d.log.Info("sweep progress",
		"completed", p.Completed,
		"trials", p.Requested,
		"skipped", p.Skipped)

	if d.progress != nil {
		s.notifyMu.Lock()
		d.progress(p)
		s.notifyMu.Unlock()
	}
}

func (d *Driver) assemble(slots []outcome, seed int64, trials int, elapsed time.Duration) *models.SweepResult {
	result := &models.SweepResult{
		Nodes:        d.graph.Size(),
		Seed:         seed,
		TimeWeighted: d.pool.TimeWeighted(),
		Requested:    trials,
		Trials:       make([]models.TrialResult, 0, trials),
		Duration:     elapsed,
	}
	for _, out := range slots {
		switch {
		case !out.done:
		case out.failure != nil:
			result.Failures = append(result.Failures, *out.failure)
			result.Skipped++
		default:
			result.Trials = append(result.Trials, out.result)
			result.Succeeded++
		}
	}
	return result
}
