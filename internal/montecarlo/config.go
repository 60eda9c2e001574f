package montecarlo

import (
	"fmt"

	"github.com/GoSim-25-26J-441/inheritance-core/internal/sampler"
	"github.com/GoSim-25-26J-441/inheritance-core/internal/succession"
	"github.com/GoSim-25-26J-441/inheritance-core/pkg/config"
)

// NewDriverFromConfig builds the graph and sample pool described by cfg and
// returns a driver using cfg's sweep settings. opts are applied after the
// configured ones.
func NewDriverFromConfig(cfg *config.Config, opts ...Option) (*Driver, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	graph, err := succession.NewGraph(cfg.Network.Nodes, cfg.Network.GroupSize,
		cfg.Network.ExecutorOffsets, cfg.Network.Quorum)
	if err != nil {
		return nil, fmt.Errorf("failed to build succession graph: %w", err)
	}

	pool, err := sampler.BuildPool(cfg.Network.Nodes, sampler.Options{
		BucketSize:   cfg.Sampling.BucketSize,
		TimeWeighted: cfg.Sampling.TimeWeighted,
		MaxWeight:    cfg.Sampling.MaxWeight,
		MaxDraws:     cfg.Sampling.MaxDraws,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build sample pool: %w", err)
	}

	base := []Option{
		WithWorkers(cfg.Sweep.Workers),
		WithSeed(cfg.Sweep.Seed),
		WithFractionMode(cfg.Sweep.FractionMode),
		WithProgressEvery(cfg.Sweep.ProgressEvery),
	}
	return NewDriver(graph, pool, append(base, opts...)...)
}
