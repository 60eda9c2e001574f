package metrics

import (
	"sync"
	"time"

	"github.com/GoSim-25-26J-441/inheritance-core/pkg/models"
	"github.com/GoSim-25-26J-441/inheritance-core/pkg/utils"
)

// Collector tracks the outcome of one sweep while its trials complete.
// It is safe for concurrent use by the trial workers.
type Collector struct {
	mu sync.RWMutex

	startTime time.Time
	endTime   time.Time

	requested int
	succeeded int
	skipped   int

	finals     []float64
	iterations []float64
}

// Snapshot is a point-in-time view of a Collector.
type Snapshot struct {
	Requested      int           `json:"requested"`
	Completed      int           `json:"completed"`
	Succeeded      int           `json:"succeeded"`
	Skipped        int           `json:"skipped"`
	MeanFinal      float64       `json:"mean_final"`
	MeanIterations float64       `json:"mean_iterations"`
	Elapsed        time.Duration `json:"elapsed_ns"`
}

// NewCollector creates an empty collector
func NewCollector() *Collector {
	return &Collector{startTime: time.Now()}
}

// Start resets the collector for a sweep of requested trials
func (c *Collector) Start(requested int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.startTime = time.Now()
	c.endTime = time.Time{}
	c.requested = requested
	c.succeeded = 0
	c.skipped = 0
	c.finals = make([]float64, 0, requested)
	c.iterations = make([]float64, 0, requested)
}

// Stop marks the end of the sweep
func (c *Collector) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.endTime = time.Now()
}

// RecordTrial records a completed trial
func (c *Collector) RecordTrial(t models.TrialResult) {
	c.mu.Lock()
	c.succeeded++
	c.finals = append(c.finals, t.FinalFraction)
	c.iterations = append(c.iterations, float64(t.Iterations))
	c.mu.Unlock()

	trialsTotal.WithLabelValues(OutcomeSucceeded).Inc()
	cascadeIterations.Observe(float64(t.Iterations))
	finalFraction.Observe(t.FinalFraction)
}

// RecordSkip records a trial that could not draw its initial set
func (c *Collector) RecordSkip(models.TrialFailure) {
	c.mu.Lock()
	c.skipped++
	c.mu.Unlock()

	trialsTotal.WithLabelValues(OutcomeSkipped).Inc()
}

// Completed returns the number of trials recorded so far
func (c *Collector) Completed() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.succeeded + c.skipped
}

// Snapshot returns the current totals
func (c *Collector) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	end := c.endTime
	if end.IsZero() {
		end = time.Now()
	}

	return Snapshot{
		Requested:      c.requested,
		Completed:      c.succeeded + c.skipped,
		Succeeded:      c.succeeded,
		Skipped:        c.skipped,
		MeanFinal:      utils.Mean(c.finals),
		MeanIterations: utils.Mean(c.iterations),
		Elapsed:        end.Sub(c.startTime),
	}
}
