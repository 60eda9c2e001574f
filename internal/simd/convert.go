package simd

import (
	"github.com/GoSim-25-26J-441/inheritance-core/pkg/models"
)

// The converters below produce plain maps holding only strings, numbers,
// bools, nested maps and []any, so the same values serve the JSON API and
// structpb messages.

func runToMap(rec *RunRecord) map[string]any {
	out := map[string]any{
		"id":                 rec.Run.ID,
		"status":             string(rec.Run.Status),
		"created_at_unix_ms": rec.Run.CreatedAtUnixMs,
		"started_at_unix_ms": rec.Run.StartedAtUnixMs,
		"ended_at_unix_ms":   rec.Run.EndedAtUnixMs,
		"error":              rec.Run.Error,
	}
	if rec.Collector != nil {
		snap := rec.Collector.Snapshot()
		out["progress"] = map[string]any{
			"requested":       int64(snap.Requested),
			"completed":       int64(snap.Completed),
			"succeeded":       int64(snap.Succeeded),
			"skipped":         int64(snap.Skipped),
			"mean_final":      snap.MeanFinal,
			"mean_iterations": snap.MeanIterations,
			"elapsed_ms":      snap.Elapsed.Milliseconds(),
		}
	}
	if rec.Config != nil {
		out["config"] = map[string]any{
			"nodes":         int64(rec.Config.Network.Nodes),
			"group_size":    int64(rec.Config.Network.GroupSize),
			"quorum":        int64(rec.Config.Network.Quorum),
			"time_weighted": rec.Config.Sampling.TimeWeighted,
			"trials":        int64(rec.Config.Sweep.Trials),
			"seed":          rec.Config.Sweep.Seed,
			"fraction_mode": rec.Config.Sweep.FractionMode,
		}
	}
	return out
}

func resultsToMap(rec *RunRecord) map[string]any {
	res := rec.Result
	points := make([]any, len(res.Trials))
	for i, t := range res.Trials {
		points[i] = map[string]any{
			"trial":        int64(t.Trial),
			"initial":      t.InitialFraction,
			"final":        t.FinalFraction,
			"iterations":   int64(t.Iterations),
			"initial_size": int64(t.InitialSize),
			"final_size":   int64(t.FinalSize),
		}
	}

	out := map[string]any{
		"run":       runToMap(rec),
		"x_label":   models.AxisInitialFraction,
		"y_label":   models.AxisFinalFraction,
		"nodes":     int64(res.Nodes),
		"seed":      res.Seed,
		"requested": int64(res.Requested),
		"succeeded": int64(res.Succeeded),
		"skipped":   int64(res.Skipped),
		"points":    points,
	}
	if rec.Summary != nil {
		out["summary"] = summaryToMap(rec.Summary)
	}
	return out
}

func summaryToMap(s *models.SweepSummary) map[string]any {
	bins := make([]any, len(s.Bins))
	for i, b := range s.Bins {
		bins[i] = map[string]any{
			"lower":        b.Lower,
			"upper":        b.Upper,
			"count":        int64(b.Count),
			"mean_final":   b.MeanFinal,
			"stddev_final": b.StdDevFinal,
			"min_final":    b.MinFinal,
			"max_final":    b.MaxFinal,
		}
	}
	return map[string]any{
		"bins":              bins,
		"mean_final":        s.MeanFinal,
		"median_final":      s.MedianFinal,
		"skip_rate":         s.SkipRate,
		"critical_fraction": s.CriticalFraction,
		"has_critical":      s.HasCritical,
	}
}
