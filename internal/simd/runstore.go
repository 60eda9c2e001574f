package simd

import (
	"fmt"
	"sync"
	"time"

	"github.com/GoSim-25-26J-441/inheritance-core/internal/metrics"
	"github.com/GoSim-25-26J-441/inheritance-core/internal/montecarlo"
	"github.com/GoSim-25-26J-441/inheritance-core/pkg/config"
	"github.com/GoSim-25-26J-441/inheritance-core/pkg/models"
	"github.com/GoSim-25-26J-441/inheritance-core/pkg/utils"
)

// Run is the lifecycle state of a sweep run.
type Run struct {
	ID              string           `json:"id"`
	Status          models.RunStatus `json:"status"`
	CreatedAtUnixMs int64            `json:"created_at_unix_ms"`
	StartedAtUnixMs int64            `json:"started_at_unix_ms,omitempty"`
	EndedAtUnixMs   int64            `json:"ended_at_unix_ms,omitempty"`
	Error           string           `json:"error,omitempty"`
}

// RunInput is what a client submits to create a run. An empty ConfigYAML
// runs the default configuration.
type RunInput struct {
	ConfigYAML     string `json:"config_yaml"`
	CallbackURL    string `json:"callback_url,omitempty"`
	CallbackSecret string `json:"callback_secret,omitempty"`
}

// RunRecord is a stored run. Records handed out by RunStore are copies;
// Result and Summary are never mutated once set.
type RunRecord struct {
	Run       Run
	Input     *RunInput
	Config    *config.Config
	Collector *metrics.Collector
	Result    *models.SweepResult
	Summary   *models.SweepSummary
}

type RunStore struct {
	mu    sync.RWMutex
	runs  map[string]*RunRecord
	order []string
}

func NewRunStore() *RunStore {
	return &RunStore{
		runs: make(map[string]*RunRecord),
	}
}

func nowUnixMs() int64 {
	return time.Now().UTC().UnixMilli()
}

func (r *RunRecord) clone() *RunRecord {
	c := *r
	return &c
}

// Create parses and validates input and stores a pending run. An empty runID
// is replaced by a generated one.
func (s *RunStore) Create(runID string, input *RunInput) (*RunRecord, error) {
	if input == nil {
		return nil, fmt.Errorf("%w: input is required", ErrInvalidInput)
	}
	if runID != "" {
		if err := utils.ValidateRunID(runID); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}

	cfg, err := config.ParseConfigYAMLString(input.ConfigYAML)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if _, err := montecarlo.NewDriverFromConfig(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if input.CallbackURL != "" {
		if err := validateCallbackURL(input.CallbackURL); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if runID == "" {
		runID = utils.GenerateRunID()
	}
	if _, exists := s.runs[runID]; exists {
		return nil, fmt.Errorf("%w: %s", ErrRunExists, runID)
	}

	in := *input
	rec := &RunRecord{
		Run: Run{
			ID:              runID,
			Status:          models.RunStatusPending,
			CreatedAtUnixMs: nowUnixMs(),
		},
		Input:  &in,
		Config: cfg,
	}
	s.runs[runID] = rec
	s.order = append(s.order, runID)
	return rec.clone(), nil
}

func (s *RunStore) Get(runID string) (*RunRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.runs[runID]
	if !ok {
		return nil, false
	}
	return rec.clone(), true
}

func (s *RunStore) List(limit int) []*RunRecord {
	return s.ListFiltered(limit, 0, models.RunStatusUnspecified)
}

// ListFiltered returns runs in creation order, skipping offset matches.
// RunStatusUnspecified matches every run.
func (s *RunStore) ListFiltered(limit, offset int, status models.RunStatus) []*RunRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	out := make([]*RunRecord, 0, min(limit, len(s.order)))
	skipped := 0
	for _, id := range s.order {
		rec := s.runs[id]
		if status != models.RunStatusUnspecified && rec.Run.Status != status {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		out = append(out, rec.clone())
		if len(out) >= limit {
			break
		}
	}
	return out
}

// SetStatus moves a run to status. Once a run is terminal its status can no
// longer change.
func (s *RunStore) SetStatus(runID string, status models.RunStatus, errMsg string) (*RunRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.runs[runID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if rec.Run.Status.IsTerminal() && rec.Run.Status != status {
		return nil, fmt.Errorf("%w: %s is %s", ErrRunTerminal, runID, rec.Run.Status)
	}

	rec.Run.Status = status
	if errMsg != "" {
		rec.Run.Error = errMsg
	}

	switch {
	case status == models.RunStatusRunning:
		if rec.Run.StartedAtUnixMs == 0 {
			rec.Run.StartedAtUnixMs = nowUnixMs()
		}
	case status.IsTerminal():
		if rec.Run.EndedAtUnixMs == 0 {
			rec.Run.EndedAtUnixMs = nowUnixMs()
		}
	}

	return rec.clone(), nil
}

func (s *RunStore) SetCollector(runID string, collector *metrics.Collector) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.runs[runID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	rec.Collector = collector
	return nil
}

// SetResult stores the sweep result and its summary.
func (s *RunStore) SetResult(runID string, result *models.SweepResult, summary *models.SweepSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.runs[runID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	rec.Result = result
	rec.Summary = summary
	return nil
}
