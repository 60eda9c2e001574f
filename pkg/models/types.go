package models

import (
	"strings"
	"time"
)

// Axis labels used by every consumer that plots a sweep.
const (
	AxisInitialFraction = "initial fraction controlled"
	AxisFinalFraction   = "final fraction controlled"
)

// RunStatus represents the status of a sweep run
type RunStatus string

const (
	RunStatusUnspecified RunStatus = ""
	RunStatusPending     RunStatus = "pending"
	RunStatusRunning     RunStatus = "running"
	RunStatusCompleted   RunStatus = "completed"
	RunStatusFailed      RunStatus = "failed"
	RunStatusCancelled   RunStatus = "cancelled"
)

// IsTerminal reports whether no further transitions are possible.
func (s RunStatus) IsTerminal() bool {
	switch s {
	case RunStatusCompleted, RunStatusFailed, RunStatusCancelled:
		return true
	}
	return false
}

// ParseRunStatus parses a status name case-insensitively.
// Unknown names map to RunStatusUnspecified.
func ParseRunStatus(s string) RunStatus {
	switch RunStatus(strings.ToLower(strings.TrimSpace(s))) {
	case RunStatusPending:
		return RunStatusPending
	case RunStatusRunning:
		return RunStatusRunning
	case RunStatusCompleted:
		return RunStatusCompleted
	case RunStatusFailed:
		return RunStatusFailed
	case RunStatusCancelled, "canceled":
		return RunStatusCancelled
	}
	return RunStatusUnspecified
}

// TrialResult is the outcome of one Monte Carlo trial.
type TrialResult struct {
	Trial           int     `json:"trial"`
	InitialFraction float64 `json:"initial_fraction"`
	FinalFraction   float64 `json:"final_fraction"`
	InitialSize     int     `json:"initial_size"`
	FinalSize       int     `json:"final_size"`
	Iterations      int     `json:"iterations"`
}

// TrialFailure records a trial that was skipped because no initial set could
// be drawn.
type TrialFailure struct {
	Trial           int     `json:"trial"`
	InitialFraction float64 `json:"initial_fraction"`
	RequestedSize   int     `json:"requested_size"`
	Reason          string  `json:"reason"`
}

// SweepResult is the ordered outcome of a Monte Carlo sweep.
// Trials holds successful trials in trial-index order.
type SweepResult struct {
	Nodes        int            `json:"nodes"`
	Seed         int64          `json:"seed"`
	TimeWeighted bool           `json:"time_weighted"`
	Requested    int            `json:"requested"`
	Succeeded    int            `json:"succeeded"`
	Skipped      int            `json:"skipped"`
	Trials       []TrialResult  `json:"trials"`
	Failures     []TrialFailure `json:"failures,omitempty"`
	Duration     time.Duration  `json:"duration_ns"`
}

// InitialFractions returns the x values of the result sequence.
func (r *SweepResult) InitialFractions() []float64 {
	out := make([]float64, len(r.Trials))
	for i, t := range r.Trials {
		out[i] = t.InitialFraction
	}
	return out
}

// FinalFractions returns the y values of the result sequence.
func (r *SweepResult) FinalFractions() []float64 {
	out := make([]float64, len(r.Trials))
	for i, t := range r.Trials {
		out[i] = t.FinalFraction
	}
	return out
}

// SkipRate is the share of requested trials that were skipped.
func (r *SweepResult) SkipRate() float64 {
	if r.Requested == 0 {
		return 0
	}
	return float64(r.Skipped) / float64(r.Requested)
}

// BinStat aggregates the final fractions of the trials whose initial fraction
// falls into [Lower, Upper).
type BinStat struct {
	Lower       float64 `json:"lower"`
	Upper       float64 `json:"upper"`
	Count       int     `json:"count"`
	MeanFinal   float64 `json:"mean_final"`
	StdDevFinal float64 `json:"stddev_final"`
	MinFinal    float64 `json:"min_final"`
	MaxFinal    float64 `json:"max_final"`
}

// SweepSummary condenses a sweep into a binned response curve.
type SweepSummary struct {
	Bins             []BinStat `json:"bins"`
	MeanFinal        float64   `json:"mean_final"`
	MedianFinal      float64   `json:"median_final"`
	SkipRate         float64   `json:"skip_rate"`
	CriticalFraction float64   `json:"critical_fraction"`
	HasCritical      bool      `json:"has_critical"`
}
