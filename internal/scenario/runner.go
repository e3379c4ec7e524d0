package scenario

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/flightctl/flightctl/internal/autopilot"
	"github.com/flightctl/flightctl/internal/dispatcher"
	"github.com/flightctl/flightctl/internal/handlers"
	"github.com/flightctl/flightctl/internal/mission"
	"github.com/flightctl/flightctl/internal/sim"
	"github.com/flightctl/flightctl/pkg/core"
)

const instrumentationName = "github.com/flightctl/flightctl/internal/scenario"

// DefaultMaxTicks caps a scenario at ten simulated minutes.
const DefaultMaxTicks = 30000

// Runner drives one simulation through a chain, one tick at a time.
type Runner struct {
	sim      *sim.Simulation
	criteria Criteria
	maxTicks int
	logger   *slog.Logger

	dispatcher *dispatcher.Dispatcher
	pilot      *handlers.PilotService
	progress   *mission.Context
	reporters  []Reporter

	ticks     metric.Int64Counter
	duration  metric.Float64Histogram
	completed metric.Int64Counter
}

type Option func(*Runner)

// WithPilot feeds scripted commands through d and drains p before each tick.
// p must be registered on d.
func WithPilot(d *dispatcher.Dispatcher, p *handlers.PilotService) Option {
	return func(r *Runner) {
		r.dispatcher = d
		r.pilot = p
	}
}

// WithProgress publishes the active scenario and latest frame to mc.
func WithProgress(mc *mission.Context) Option {
	return func(r *Runner) { r.progress = mc }
}

// WithMaxTicks sets the per-scenario tick cap. n <= 0 disables it.
func WithMaxTicks(n int) Option {
	return func(r *Runner) { r.maxTicks = n }
}

// WithCriteria overrides the completion thresholds.
func WithCriteria(c Criteria) Option {
	return func(r *Runner) { r.criteria = c }
}

// WithReporter adds a reporter called for every result, in order.
func WithReporter(rep Reporter) Option {
	return func(r *Runner) { r.reporters = append(r.reporters, rep) }
}

// WithLogger sets the runner's logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// NewRunner creates a runner for s. Metrics go to the global OTel meter.
func NewRunner(s *sim.Simulation, opts ...Option) (*Runner, error) {
	r := &Runner{
		sim:      s,
		criteria: DefaultCriteria(),
		maxTicks: DefaultMaxTicks,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}

	m := otel.Meter(instrumentationName)
	var err error
	r.ticks, err = m.Int64Counter(
		"scenario.ticks",
		metric.WithDescription("Simulation frames executed by the scenario runner"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating tick counter: %w", err)
	}
	r.duration, err = m.Float64Histogram(
		"scenario.duration",
		metric.WithDescription("Simulated time taken per scenario"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating duration histogram: %w", err)
	}
	r.completed, err = m.Int64Counter(
		"scenario.results",
		metric.WithDescription("Scenario results by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating result counter: %w", err)
	}
	return r, nil
}

// Run flies every scenario of c in order and returns their results. It
// stops at a tick boundary when ctx is done, returning the results so far
// with ctx's error. A scenario that exceeds the tick cap is reported as not
// completed and the chain moves on.
func (r *Runner) Run(ctx context.Context, c *Chain) ([]core.ScenarioResult, error) {
	results := make([]core.ScenarioResult, 0, c.Len())
	h := NewHarness(r.criteria, ReporterFunc(func(res core.ScenarioResult) {
		results = append(results, res)
		r.report(ctx, res)
	}))

	h.Begin(c, r.sim)
	r.announce(h)

	for !h.Done() {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		if r.dispatcher != nil {
			if due := h.DuePilotCommands(r.sim); len(due) > 0 {
				if err := handlers.DispatchScript(r.dispatcher, due); err != nil {
					sc, _ := h.Active()
					return results, fmt.Errorf("scenario %s: %w", sc.Name, err)
				}
			}
		}
		var in autopilot.Input
		if r.pilot != nil {
			in = r.pilot.Drain()
		}

		r.sim.Tick(in)
		r.ticks.Add(ctx, 1)
		if r.progress != nil {
			r.progress.UpdateFrame(r.sim.Frame())
		}

		if _, ok := h.Poll(r.sim); ok {
			r.announce(h)
			continue
		}
		if r.maxTicks > 0 && h.Elapsed(r.sim) >= int64(r.maxTicks) {
			sc, _ := h.Active()
			r.logger.Warn("Scenario hit tick cap", "scenario", sc.Name, "maxTicks", r.maxTicks)
			h.Abort(r.sim)
			r.announce(h)
		}
	}
	return results, nil
}

func (r *Runner) announce(h *Harness) {
	sc, ok := h.Active()
	if !ok {
		return
	}
	r.logger.Debug("Scenario started", "scenario", sc.Name, "sequence", h.Sequence(), "mode", sc.Mode.String())
	if r.progress != nil {
		r.progress.StartScenario(sc.Name, h.Sequence())
	}
}

func (r *Runner) report(ctx context.Context, res core.ScenarioResult) {
	attrs := metric.WithAttributes(
		attribute.String("scenario", res.Name),
		attribute.Bool("completed", res.Completed),
	)
	r.duration.Record(ctx, res.TimeTaken, attrs)
	r.completed.Add(ctx, 1, attrs)

	r.logger.Info("Scenario finished",
		"scenario", res.Name,
		"sequence", res.Sequence,
		"completed", res.Completed,
		"timeTaken", res.TimeTaken,
		"fuelUsed", res.FuelUsed)

	if r.progress != nil {
		r.progress.FinishScenario(res.Completed)
	}
	for _, rep := range r.reporters {
		rep.Report(res)
	}
}
