package worker

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/flightctl/flightctl/internal/scenario"
	"github.com/flightctl/flightctl/internal/sim"
	"github.com/flightctl/flightctl/pkg/core"
)

// VariantResult is the outcome of one variant over the whole chain.
type VariantResult struct {
	Name    string
	Results []core.ScenarioResult
	Totals  scenario.Totals
	Elapsed time.Duration
}

// Summary compares the variants of a sweep.
type Summary struct {
	FuelMean   float64
	FuelStdDev float64
	TimeMean   float64
	TimeStdDev float64
	TimeMedian float64
	// Best is the fastest variant that completed every scenario, "" if none did.
	Best string
}

// SweepReport holds per-variant results in the order the variants were given.
type SweepReport struct {
	Variants []VariantResult
	Summary  Summary
}

// Sweep flies chain once per variant, at most Parallelism at a time. The
// first variant to fail cancels the rest.
func (m *Manager) Sweep(ctx context.Context, chain *scenario.Chain, variants []Variant) (SweepReport, error) {
	out := make([]VariantResult, len(variants))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.deps.Parallelism)
	for i, v := range variants {
		g.Go(func() error {
			res, err := m.runVariant(gctx, chain, v)
			if err != nil {
				return fmt.Errorf("variant %s: %w", v.Name, err)
			}
			out[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return SweepReport{}, err
	}

	return SweepReport{Variants: out, Summary: Summarize(out)}, nil
}

func (m *Manager) runVariant(ctx context.Context, chain *scenario.Chain, v Variant) (VariantResult, error) {
	logger := m.deps.LogManager.Logger().With("variant", v.Name)
	params := m.deps.Params
	params.Gains = v.Gains

	s := sim.New(m.deps.SimConfig, m.deps.World, params, logger)
	r, err := scenario.NewRunner(s,
		scenario.WithCriteria(m.deps.Criteria),
		scenario.WithMaxTicks(m.deps.MaxTicks),
		scenario.WithLogger(logger),
	)
	if err != nil {
		return VariantResult{}, err
	}

	start := time.Now()
	results, err := r.Run(ctx, chain)
	if err != nil {
		return VariantResult{}, err
	}
	totals := scenario.Summarize(results)
	logger.Info("Variant finished", "completed", totals.Completed, "scenarios", totals.Scenarios, "simTime", totals.TimeTaken)

	return VariantResult{
		Name:    v.Name,
		Results: results,
		Totals:  totals,
		Elapsed: time.Since(start),
	}, nil
}

// Summarize computes the spread of fuel and time across variants.
func Summarize(variants []VariantResult) Summary {
	if len(variants) == 0 {
		return Summary{}
	}
	fuel := make([]float64, len(variants))
	times := make([]float64, len(variants))
	best, bestTime := "", math.Inf(1)
	for i, v := range variants {
		fuel[i] = v.Totals.FuelUsed
		times[i] = v.Totals.TimeTaken
		if v.Totals.AllCompleted() && v.Totals.TimeTaken < bestTime {
			best, bestTime = v.Name, v.Totals.TimeTaken
		}
	}

	var s Summary
	s.FuelMean, s.FuelStdDev = stat.MeanStdDev(fuel, nil)
	s.TimeMean, s.TimeStdDev = stat.MeanStdDev(times, nil)
	if len(variants) == 1 {
		s.FuelStdDev, s.TimeStdDev = 0, 0
	}
	sort.Float64s(times)
	s.TimeMedian = median(times)
	s.Best = best
	return s
}

// median of sorted x; the mean of the middle pair when len(x) is even.
func median(x []float64) float64 {
	n := len(x)
	if n%2 == 1 {
		return x[n/2]
	}
	return (x[n/2-1] + x[n/2]) / 2
}
