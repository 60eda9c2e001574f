package metrics

import (
	"github.com/GoSim-25-26J-441/inheritance-core/pkg/models"
	"github.com/GoSim-25-26J-441/inheritance-core/pkg/utils"
)

const (
	// DefaultBins is the number of initial-fraction bins used by Summarize
	// when none is given.
	DefaultBins = 20

	// CriticalLevel is the mean final fraction a bin must reach to count as
	// full compromise.
	CriticalLevel = 0.99
)

// Summarize bins the trials of result by initial fraction into bins equal
// intervals over [0, 1) and reports per-bin statistics of the final fraction.
// The critical fraction is the lower edge of the first non-empty bin whose
// mean final fraction reaches CriticalLevel.
func Summarize(result *models.SweepResult, bins int) *models.SweepSummary {
	if bins <= 0 {
		bins = DefaultBins
	}
	summary := &models.SweepSummary{
		Bins: make([]models.BinStat, bins),
	}
	if result == nil {
		return summary
	}

	grouped := make([][]float64, bins)
	for _, t := range result.Trials {
		idx := utils.Clamp(int(t.InitialFraction*float64(bins)), 0, bins-1)
		grouped[idx] = append(grouped[idx], t.FinalFraction)
	}

	width := 1.0 / float64(bins)
	for i, values := range grouped {
		stat := models.BinStat{
			Lower: float64(i) * width,
			Upper: float64(i+1) * width,
			Count: len(values),
		}
		if len(values) > 0 {
			stat.MeanFinal = utils.Mean(values)
			stat.StdDevFinal = utils.StdDev(values)
			stat.MinFinal = utils.Percentile(values, 0)
			stat.MaxFinal = utils.Percentile(values, 100)

			if !summary.HasCritical && stat.MeanFinal >= CriticalLevel {
				summary.HasCritical = true
				summary.CriticalFraction = stat.Lower
			}
		}
		summary.Bins[i] = stat
	}

	finals := result.FinalFractions()
	summary.MeanFinal = utils.Mean(finals)
	summary.MedianFinal = utils.Percentile(finals, 50)
	summary.SkipRate = result.SkipRate()

	return summary
}
