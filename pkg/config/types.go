package config

// Fraction modes for choosing each trial's initial fraction.
const (
	FractionModeRandom = "random"
	FractionModeGrid   = "grid"
)

// Config represents the main sweep configuration
type Config struct {
	LogLevel string   `yaml:"log_level" validate:"oneof=debug info warn error"`
	Network  Network  `yaml:"network"`
	Sampling Sampling `yaml:"sampling"`
	Sweep    Sweep    `yaml:"sweep"`
}

// Network describes the succession graph and the executor quorum rule
type Network struct {
	Nodes           int   `yaml:"nodes" validate:"gt=0"`
	GroupSize       int   `yaml:"group_size" validate:"gt=0"`
	ExecutorOffsets []int `yaml:"executor_offsets" validate:"min=1,unique,dive,gt=0"`
	Quorum          int   `yaml:"quorum" validate:"gte=0"`
}

// Sampling describes how initial controlled sets are drawn.
// MaxDraws 0 lets a draw consume the whole pool.
type Sampling struct {
	BucketSize   int  `yaml:"bucket_size" validate:"gt=0"`
	TimeWeighted bool `yaml:"time_weighted"`
	MaxWeight    int  `yaml:"max_weight" validate:"gte=1"`
	MaxDraws     int  `yaml:"max_draws" validate:"gte=0"`
}

// Sweep describes the Monte Carlo trial schedule.
// Seed 0 picks a time-based seed; Workers 0 means GOMAXPROCS.
type Sweep struct {
	Trials        int    `yaml:"trials" validate:"gt=0"`
	Seed          int64  `yaml:"seed"`
	Workers       int    `yaml:"workers" validate:"gte=0"`
	FractionMode  string `yaml:"fraction_mode" validate:"oneof=random grid"`
	ProgressEvery int    `yaml:"progress_every" validate:"gte=0"`
}

// DefaultExecutorOffsets are the relative positions of a relay's executors.
var DefaultExecutorOffsets = []int{9, 11, 17, 22, 29, 31}

// Default returns the reference configuration: 600 relays in groups of 60,
// quorum of 5 out of 6 executors, 100-node sampling buckets, 1000 trials.
func Default() *Config {
	offsets := make([]int, len(DefaultExecutorOffsets))
	copy(offsets, DefaultExecutorOffsets)

	return &Config{
		LogLevel: "info",
		Network: Network{
			Nodes:           600,
			GroupSize:       60,
			ExecutorOffsets: offsets,
			Quorum:          5,
		},
		Sampling: Sampling{
			BucketSize: 100,
			MaxWeight:  4,
		},
		Sweep: Sweep{
			Trials:        1000,
			Seed:          1,
			FractionMode:  FractionModeRandom,
			ProgressEvery: 100,
		},
	}
}
