package simd

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/GoSim-25-26J-441/inheritance-core/internal/metrics"
	"github.com/GoSim-25-26J-441/inheritance-core/internal/montecarlo"
	"github.com/GoSim-25-26J-441/inheritance-core/pkg/logger"
	"github.com/GoSim-25-26J-441/inheritance-core/pkg/models"
)

// RunExecutor manages asynchronous sweep execution and per-run cancellation.
type RunExecutor struct {
	store    *RunStore
	notifier *Notifier

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	done    map[string]chan struct{}
}

var (
	ErrRunNotFound     = errors.New("run not found")
	ErrRunTerminal     = errors.New("run is terminal")
	ErrRunIDMissing    = errors.New("run_id is required")
	ErrRunExists       = errors.New("run already exists")
	ErrInvalidInput    = errors.New("invalid run input")
	ErrResultsNotReady = errors.New("results not available")
)

func NewRunExecutor(store *RunStore) *RunExecutor {
	return &RunExecutor{
		store:   store,
		cancels: make(map[string]context.CancelFunc),
		done:    make(map[string]chan struct{}),
	}
}

// SetNotifier enables completion callbacks for runs that request one.
func (e *RunExecutor) SetNotifier(n *Notifier) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.notifier = n
}

// Start begins executing a run asynchronously.
// Starting a running run is a no-op; starting a terminal run fails.
func (e *RunExecutor) Start(runID string) (*RunRecord, error) {
	if runID == "" {
		return nil, ErrRunIDMissing
	}

	rec, ok := e.store.Get(runID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	switch {
	case rec.Run.Status == models.RunStatusRunning:
		return rec, nil
	case rec.Run.Status.IsTerminal():
		return nil, fmt.Errorf("%w: %s", ErrRunTerminal, runID)
	}

	updated, err := e.store.SetStatus(runID, models.RunStatusRunning, "")
	if err != nil {
		return nil, err
	}

	collector := metrics.NewCollector()
	if err := e.store.SetCollector(runID, collector); err != nil {
		return nil, err
	}
	updated.Collector = collector

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	e.mu.Lock()
	if old, exists := e.cancels[runID]; exists {
		old()
	}
	e.cancels[runID] = cancel
	e.done[runID] = done
	e.mu.Unlock()

	go e.runSweep(ctx, runID, collector, done)
	return updated, nil
}

// Stop requests cancellation of a pending or running run and marks it
// cancelled. Trials finished before the stop are kept as partial results.
func (e *RunExecutor) Stop(runID string) (*RunRecord, error) {
	if runID == "" {
		return nil, ErrRunIDMissing
	}

	rec, ok := e.store.Get(runID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if rec.Run.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: %s", ErrRunTerminal, runID)
	}

	updated, err := e.store.SetStatus(runID, models.RunStatusCancelled, "")
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	cancel, ok := e.cancels[runID]
	e.mu.Unlock()
	if ok {
		cancel()
	}

	logger.ForRun(runID).Info("run cancelled")
	return updated, nil
}

// Wait blocks until the run's sweep goroutine has returned or ctx is done.
// It returns immediately for runs that are not executing.
func (e *RunExecutor) Wait(ctx context.Context, runID string) error {
	e.mu.Lock()
	done, ok := e.done[runID]
	e.mu.Unlock()
	if !ok {
		return nil
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ActiveRuns returns the number of runs currently executing.
func (e *RunExecutor) ActiveRuns() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.cancels)
}

// Shutdown cancels every executing run and waits for them to return.
func (e *RunExecutor) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	ids := make([]string, 0, len(e.cancels))
	for id, cancel := range e.cancels {
		cancel()
		ids = append(ids, id)
	}
	e.mu.Unlock()

	for _, id := range ids {
		if err := e.Wait(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (e *RunExecutor) cleanup(runID string, done chan struct{}) {
	e.mu.Lock()
	if cancel, ok := e.cancels[runID]; ok {
		cancel()
		delete(e.cancels, runID)
	}
	delete(e.done, runID)
	e.mu.Unlock()
	close(done)
}

func (e *RunExecutor) runSweep(ctx context.Context, runID string, collector *metrics.Collector, done chan struct{}) {
	defer e.cleanup(runID, done)
	log := logger.ForRun(runID)

	rec, ok := e.store.Get(runID)
	if !ok {
		log.Error("run not found")
		return
	}

	driver, err := montecarlo.NewDriverFromConfig(rec.Config,
		montecarlo.WithCollector(collector),
		montecarlo.WithLogger(log))
	if err != nil {
		e.finish(runID, models.RunStatusFailed, fmt.Sprintf("invalid configuration: %v", err))
		return
	}

	log.Info("starting sweep", "trials", rec.Config.Sweep.Trials, "workers", driver.Workers())
	result, err := driver.Run(ctx, rec.Config.Sweep.Trials)
	if result != nil {
		if setErr := e.store.SetResult(runID, result, metrics.Summarize(result, metrics.DefaultBins)); setErr != nil {
			log.Error("failed to store result", "error", setErr)
		}
	}

	switch {
	case ctx.Err() != nil:
		e.finish(runID, models.RunStatusCancelled, "")
	case err != nil:
		e.finish(runID, models.RunStatusFailed, err.Error())
	default:
		e.finish(runID, models.RunStatusCompleted, "")
		log.Info("run completed",
			"succeeded", result.Succeeded,
			"skipped", result.Skipped,
			"duration", result.Duration)
	}
}

// finish records the terminal status unless the run already reached one, then
// sends the completion callback.
func (e *RunExecutor) finish(runID string, status models.RunStatus, errMsg string) {
	log := logger.ForRun(runID)

	rec, err := e.store.SetStatus(runID, status, errMsg)
	if err != nil {
		if !errors.Is(err, ErrRunTerminal) {
			log.Error("failed to set terminal status", "status", status, "error", err)
			return
		}
		var ok bool
		if rec, ok = e.store.Get(runID); !ok {
			return
		}
	}
	if status == models.RunStatusFailed {
		log.Error("run failed", "error", errMsg)
	}

	e.mu.Lock()
	notifier := e.notifier
	e.mu.Unlock()
	if notifier != nil && rec.Input != nil && rec.Input.CallbackURL != "" {
		notifier.Notify(rec.Input.CallbackURL, getCallbackSecret(rec), rec)
	}
}
