package scenario

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/flightctl/flightctl/internal/sim"
	"github.com/flightctl/flightctl/pkg/core"
)

// Reporter receives one result per finished scenario.
type Reporter interface {
	Report(core.ScenarioResult)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(core.ScenarioResult)

func (f ReporterFunc) Report(r core.ScenarioResult) { f(r) }

// Criteria decides when a scenario counts as finished.
type Criteria struct {
	CompletionAltitude float64
	VelocityTolerance  float64
	// TrajectoryInterval samples the path every n ticks. 0 records no path.
	TrajectoryInterval int
}

// DefaultCriteria returns the standard completion thresholds.
func DefaultCriteria() Criteria {
	return Criteria{
		CompletionAltitude: 200,
		VelocityTolerance:  0.1,
		TrajectoryInterval: 10,
	}
}

// Harness walks a chain of scenarios on one simulation. The engine state
// carries over from one scenario to the next; only kinematics, mode and
// ignition are reset by Start.
type Harness struct {
	criteria Criteria
	reporter Reporter

	current *Link
	seq     int

	fuelAtStart float64
	timeAtStart float64
	tickAtStart int64

	minAltitude float64
	maxTWR      float64
	trajectory  []mgl64.Vec2
}

// NewHarness creates an idle harness. A nil reporter discards results.
func NewHarness(criteria Criteria, reporter Reporter) *Harness {
	if reporter == nil {
		reporter = ReporterFunc(func(core.ScenarioResult) {})
	}
	return &Harness{criteria: criteria, reporter: reporter}
}

// Begin starts the first scenario of c. An empty chain leaves the harness
// idle.
func (h *Harness) Begin(c *Chain, s *sim.Simulation) {
	h.seq = 0
	h.current = nil
	if head := c.Head(); head != nil {
		h.Start(head, s)
	}
}

// Start force-writes the scenario's initial state, engages its mode, lights
// the engine and snapshots the counters results are measured against.
func (h *Harness) Start(l *Link, s *sim.Simulation) {
	sc := l.Scenario
	h.current = l
	h.seq++

	s.Place(sc.Position, sc.Velocity, sc.Angle, sc.AngularVelocity)
	s.Autopilot().SetMode(sc.Mode)
	s.Engine().Ignite()
	s.SetLabel(sc.Name)

	h.fuelAtStart = s.Rocket().Fuel().FuelUsed
	h.timeAtStart = s.Time()
	h.tickAtStart = s.Ticks()

	h.minAltitude = sc.Position.Y()
	h.maxTWR = s.Rocket().TWR(s.World().Gravity.Y())
	h.trajectory = nil
	if h.criteria.TrajectoryInterval > 0 {
		h.trajectory = append(h.trajectory, sc.Position)
	}
}

// Active reports the scenario being flown.
func (h *Harness) Active() (core.Scenario, bool) {
	if h.current == nil {
		return core.Scenario{}, false
	}
	return h.current.Scenario, true
}

// Done is true once the chain is exhausted.
func (h *Harness) Done() bool {
	return h.current == nil
}

// Sequence is the 1-based position of the active scenario in its chain.
func (h *Harness) Sequence() int {
	return h.seq
}

// Elapsed is the number of ticks since the active scenario started.
func (h *Harness) Elapsed(s *sim.Simulation) int64 {
	return s.Ticks() - h.tickAtStart
}

// DuePilotCommands returns the scripted commands of the active scenario
// scheduled for the coming tick.
func (h *Harness) DuePilotCommands(s *sim.Simulation) []core.PilotCommand {
	if h.current == nil {
		return nil
	}
	next := h.Elapsed(s)
	var due []core.PilotCommand
	for _, c := range h.current.Scenario.Pilot {
		if int64(c.Tick) == next {
			due = append(due, c)
		}
	}
	return due
}

// Poll updates the running statistics and checks for completion. When the
// active scenario is finished its result is reported, the next scenario is
// started right away and Poll returns the result with true.
func (h *Harness) Poll(s *sim.Simulation) (core.ScenarioResult, bool) {
	if h.current == nil {
		return core.ScenarioResult{}, false
	}
	f := s.Frame()
	h.track(s, f)

	if !h.finished(f.Telemetry) {
		return core.ScenarioResult{}, false
	}
	return h.finish(s, f, true), true
}

// Abort ends the active scenario as not completed and moves on.
func (h *Harness) Abort(s *sim.Simulation) (core.ScenarioResult, bool) {
	if h.current == nil {
		return core.ScenarioResult{}, false
	}
	return h.finish(s, s.Frame(), false), true
}

func (h *Harness) finished(t core.Telemetry) bool {
	sc := h.current.Scenario
	if t.Altitude() >= h.criteria.CompletionAltitude && !sc.IgnoreAltitudeCheck {
		return false
	}
	tol := h.criteria.VelocityTolerance
	return math.Abs(t.Velocity.X()) < tol && math.Abs(t.Velocity.Y()) < tol
}

func (h *Harness) track(s *sim.Simulation, f core.TelemetryFrame) {
	alt := f.Telemetry.Altitude()
	if alt < h.minAltitude {
		h.minAltitude = alt
	}
	if twr := s.Rocket().TWR(s.World().Gravity.Y()); twr > h.maxTWR {
		h.maxTWR = twr
	}
	if n := h.criteria.TrajectoryInterval; n > 0 && (f.Tick-h.tickAtStart)%int64(n) == 0 {
		h.trajectory = append(h.trajectory, f.Telemetry.Position)
	}
}

func (h *Harness) finish(s *sim.Simulation, f core.TelemetryFrame, completed bool) core.ScenarioResult {
	sc := h.current.Scenario
	if h.criteria.TrajectoryInterval > 0 {
		if last := len(h.trajectory) - 1; last < 0 || h.trajectory[last] != f.Telemetry.Position {
			h.trajectory = append(h.trajectory, f.Telemetry.Position)
		}
	}
	res := core.ScenarioResult{
		Sequence:    h.seq,
		Name:        sc.Name,
		Fingerprint: sc.Fingerprint(),
		FuelUsed:    s.Rocket().Fuel().FuelUsed - h.fuelAtStart,
		TimeTaken:   s.Time() - h.timeAtStart,
		Ticks:       int(s.Ticks() - h.tickAtStart),
		Completed:   completed,
		MinAltitude: h.minAltitude,
		MaxTWR:      h.maxTWR,
		Trajectory:  h.trajectory,
	}
	h.trajectory = nil
	h.reporter.Report(res)

	if next := h.current.Next(); next != nil {
		h.Start(next, s)
	} else {
		h.current = nil
		s.SetLabel("")
	}
	return res
}
