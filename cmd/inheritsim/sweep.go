package main

import (
	"fmt"
	"io"
	"os"

	"github.com/GoSim-25-26J-441/inheritance-core/internal/export"
	"github.com/GoSim-25-26J-441/inheritance-core/internal/metrics"
	"github.com/GoSim-25-26J-441/inheritance-core/internal/montecarlo"
	"github.com/GoSim-25-26J-441/inheritance-core/pkg/config"
	"github.com/GoSim-25-26J-441/inheritance-core/pkg/logger"
	"github.com/GoSim-25-26J-441/inheritance-core/pkg/models"
	"github.com/spf13/cobra"
)

type sweepOptions struct {
	root *rootOptions

	configPath   string
	timeWeighted bool
	trials       int
	seed         int64
	workers      int
	fractionMode string
	format       string
	outPath      string
	bins         int
}

func newSweepCmd(root *rootOptions) *cobra.Command {
	opts := &sweepOptions{root: root}

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run one Monte Carlo sweep and export the points",
		Long: `Run a sweep of cascade trials and write the (initial fraction, final
fraction) points as CSV or JSON. Flags override the matching config values.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSweep(cmd, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "path to a YAML sweep config (defaults are used when empty)")
	flags.BoolVar(&opts.timeWeighted, "timeweighted", false, "over-represent recently joined relays in the sample pool")
	flags.IntVar(&opts.trials, "trials", 0, "number of trials")
	flags.Int64Var(&opts.seed, "seed", 0, "root seed (0 picks a time-based seed)")
	flags.IntVar(&opts.workers, "workers", 0, "concurrent trials (0 means GOMAXPROCS)")
	flags.StringVar(&opts.fractionMode, "fraction-mode", config.FractionModeRandom, "initial fraction schedule (random, grid)")
	flags.StringVarP(&opts.format, "format", "f", export.FormatCSV, "output format (csv, json)")
	flags.StringVarP(&opts.outPath, "out", "o", "", "output file (stdout when empty)")
	flags.IntVar(&opts.bins, "bins", metrics.DefaultBins, "initial fraction bins in the summary")

	return cmd
}

// loadSweepConfig reads the config file if one was given and applies the
// flags the user set explicitly.
func loadSweepConfig(cmd *cobra.Command, opts *sweepOptions) (*config.Config, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		loaded, err := config.LoadConfig(opts.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("timeweighted") {
		cfg.Sampling.TimeWeighted = opts.timeWeighted
	}
	if flags.Changed("trials") {
		cfg.Sweep.Trials = opts.trials
	}
	if flags.Changed("seed") {
		cfg.Sweep.Seed = opts.seed
	}
	if flags.Changed("workers") {
		cfg.Sweep.Workers = opts.workers
	}
	if flags.Changed("fraction-mode") {
		cfg.Sweep.FractionMode = opts.fractionMode
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = opts.root.logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runSweep(cmd *cobra.Command, opts *sweepOptions) error {
	format, err := export.ParseFormat(opts.format)
	if err != nil {
		return err
	}
	if opts.bins <= 0 {
		return fmt.Errorf("bins must be positive, got %d", opts.bins)
	}

	cfg, err := loadSweepConfig(cmd, opts)
	if err != nil {
		return err
	}
	logger.SetDefault(logger.NewWithFormat(opts.root.resolvedFormat(), cfg.LogLevel, cmd.ErrOrStderr()))

	driver, err := montecarlo.NewDriverFromConfig(cfg)
	if err != nil {
		return err
	}

	result, runErr := driver.Run(cmd.Context(), cfg.Sweep.Trials)
	if runErr != nil && result == nil {
		return runErr
	}
	if runErr != nil {
		logger.Warn("sweep interrupted, exporting partial result",
			"completed", result.Succeeded+result.Skipped,
			"requested", result.Requested,
			"error", runErr)
	}

	summary := metrics.Summarize(result, opts.bins)
	if summary.HasCritical {
		logger.Info("critical fraction estimated", "initial_fraction", summary.CriticalFraction)
	}

	if err := writeSweep(cmd.OutOrStdout(), opts.outPath, format, result, summary); err != nil {
		return err
	}
	return runErr
}

func writeSweep(stdout io.Writer, path, format string, result *models.SweepResult, summary *models.SweepSummary) (err error) {
	if path == "" {
		return export.Write(stdout, format, result, summary)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close output file: %w", cerr)
		}
	}()

	if err := export.Write(f, format, result, summary); err != nil {
		return err
	}
	logger.Info("sweep exported", "path", path, "format", format, "points", len(result.Trials))
	return nil
}
