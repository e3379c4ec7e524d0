package scenario

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flightctl/flightctl/internal/autopilot"
	"github.com/flightctl/flightctl/internal/physics"
	"github.com/flightctl/flightctl/internal/sim"
	"github.com/flightctl/flightctl/pkg/core"
)

func newTestSim(t *testing.T) *sim.Simulation {
	t.Helper()
	return sim.New(sim.DefaultConfig(), physics.DefaultWorld(), sim.DefaultParams(), nil)
}

// fly ticks until the harness reports a result or limit ticks pass.
func fly(t *testing.T, h *Harness, s *sim.Simulation, limit int, each func()) (core.ScenarioResult, bool) {
	t.Helper()
	for range limit {
		s.Tick(autopilot.Input{})
		if each != nil {
			each()
		}
		if res, ok := h.Poll(s); ok {
			return res, true
		}
	}
	return core.ScenarioResult{}, false
}

func TestStart_WritesInitialState(t *testing.T) {
	s := newTestSim(t)
	h := NewHarness(DefaultCriteria(), nil)
	sc := core.Scenario{
		Name:            "probe",
		Position:        mgl64.Vec2{10, 4000},
		Velocity:        mgl64.Vec2{-5, 20},
		Angle:           0.3,
		AngularVelocity: 1.5,
		Mode:            core.ModeStabilize,
	}

	h.Begin(NewChain(sc), s)

	assert.Equal(t, sc.Position, s.Body().Position())
	assert.Equal(t, sc.Velocity, s.Body().Velocity())
	assert.Equal(t, 0.3, s.Body().Angle())
	assert.Equal(t, 1.5, s.Body().AngularVelocity())
	assert.Equal(t, core.ModeStabilize, s.Autopilot().Mode())
	assert.True(t, s.Engine().Ignited())
	assert.Equal(t, 1, h.Sequence())
	assert.Equal(t, "probe", s.Frame().Scenario)

	active, ok := h.Active()
	require.True(t, ok)
	assert.Equal(t, "probe", active.Name)
}

func TestPoll_LandFromRest(t *testing.T) {
	s := newTestSim(t)
	var reported []core.ScenarioResult
	h := NewHarness(DefaultCriteria(), ReporterFunc(func(r core.ScenarioResult) {
		reported = append(reported, r)
	}))
	sc, ok := DefaultCatalog().Get("land-from-rest")
	require.True(t, ok)

	h.Begin(NewChain(sc), s)
	res, done := fly(t, h, s, 400, nil)

	require.True(t, done, "landing from 1000 should finish well inside 400 ticks")
	assert.True(t, res.Completed)
	assert.Equal(t, 1, res.Sequence)
	assert.Equal(t, "land-from-rest", res.Name)
	assert.Equal(t, sc.Fingerprint(), res.Fingerprint)
	assert.GreaterOrEqual(t, res.FuelUsed, 0.0)
	assert.Greater(t, res.TimeTaken, 0.0)
	assert.InDelta(t, float64(res.Ticks)*s.Config().FrameDT, res.TimeTaken, 1e-9)
	assert.Less(t, res.MinAltitude, 200.0)
	assert.Greater(t, res.MaxTWR, 1.0)
	assert.NotEmpty(t, res.Trajectory)
	assert.Equal(t, sc.Position, res.Trajectory[0])

	require.Len(t, reported, 1)
	assert.Equal(t, res.Name, reported[0].Name)
	assert.True(t, h.Done())
}

func TestPoll_SidewaysLandingStaysAboveGround(t *testing.T) {
	s := newTestSim(t)
	h := NewHarness(DefaultCriteria(), nil)
	sc, ok := DefaultCatalog().Get("land-sideways-right")
	require.True(t, ok)

	h.Begin(NewChain(sc), s)
	res, done := fly(t, h, s, 5000, func() {
		require.GreaterOrEqual(t, s.Body().Position().Y(), 0.0)
	})

	require.True(t, done)
	assert.True(t, res.Completed)
	assert.GreaterOrEqual(t, res.MinAltitude, 0.0)
}

func TestPoll_ResultsMeasuredFromScenarioStart(t *testing.T) {
	s := newTestSim(t)
	h := NewHarness(DefaultCriteria(), nil)
	c := NewChain(
		core.Scenario{Name: "a", Position: mgl64.Vec2{0, 1000}, Mode: core.ModeLand},
		core.Scenario{Name: "b", Position: mgl64.Vec2{0, 1000}, Mode: core.ModeLand},
	)

	h.Begin(c, s)
	first, ok := fly(t, h, s, 1000, nil)
	require.True(t, ok)
	assert.Equal(t, 2, h.Sequence(), "the next scenario starts on completion")
	assert.Equal(t, int64(0), h.Elapsed(s))

	second, ok := fly(t, h, s, 1000, nil)
	require.True(t, ok)

	assert.Equal(t, 1, first.Sequence)
	assert.Equal(t, 2, second.Sequence)
	assert.Equal(t, int64(first.Ticks+second.Ticks), s.Ticks())
	assert.InDelta(t, s.Rocket().Fuel().FuelUsed, first.FuelUsed+second.FuelUsed, 1)
	assert.InDelta(t, s.Time(), first.TimeTaken+second.TimeTaken, 1e-9)
}

func TestPoll_IgnoreAltitudeCheck(t *testing.T) {
	s := newTestSim(t)
	h := NewHarness(DefaultCriteria(), nil)
	c := NewChain(core.Scenario{Name: "hold", Position: mgl64.Vec2{0, 3000}, Mode: core.ModeHover, IgnoreAltitudeCheck: true})

	h.Begin(c, s)
	res, ok := fly(t, h, s, 3000, nil)

	require.True(t, ok)
	assert.True(t, res.Completed)
	assert.Greater(t, s.Body().Position().Y(), 200.0)
	assert.Less(t, math.Abs(s.Body().Velocity().Y()), 0.1)
}

func TestAbort_ReportsIncomplete(t *testing.T) {
	s := newTestSim(t)
	h := NewHarness(DefaultCriteria(), nil)
	c := NewChain(
		core.Scenario{Name: "stuck", Position: mgl64.Vec2{0, 5000}, Mode: core.ModeHover},
		core.Scenario{Name: "next", Position: mgl64.Vec2{0, 1000}, Mode: core.ModeLand},
	)

	h.Begin(c, s)
	for range 10 {
		s.Tick(autopilot.Input{})
		_, ok := h.Poll(s)
		require.False(t, ok)
	}
	res, ok := h.Abort(s)

	require.True(t, ok)
	assert.False(t, res.Completed)
	assert.Equal(t, 10, res.Ticks)
	active, _ := h.Active()
	assert.Equal(t, "next", active.Name)
}

func TestPoll_IdleHarness(t *testing.T) {
	s := newTestSim(t)
	h := NewHarness(DefaultCriteria(), nil)
	h.Begin(NewChain(), s)

	assert.True(t, h.Done())
	_, ok := h.Poll(s)
	assert.False(t, ok)
	_, ok = h.Abort(s)
	assert.False(t, ok)
	assert.Nil(t, h.DuePilotCommands(s))
}

func TestDuePilotCommands_RelativeToStart(t *testing.T) {
	s := newTestSim(t)
	s.Tick(autopilot.Input{})
	s.Tick(autopilot.Input{})
	h := NewHarness(DefaultCriteria(), nil)
	c := NewChain(core.Scenario{
		Name:     "scripted",
		Position: mgl64.Vec2{0, 2000},
		Mode:     core.ModeOff,
		Pilot: []core.PilotCommand{
			{Tick: 0, Command: "set_mode", Args: []string{"HOVER"}},
			{Tick: 1, Command: "throttle", Args: []string{"0.5"}},
			{Tick: 1, Command: "steer", Args: []string{"-0.5"}},
		},
	})

	h.Begin(c, s)
	due := h.DuePilotCommands(s)
	require.Len(t, due, 1)
	assert.Equal(t, "set_mode", due[0].Command)

	s.Tick(autopilot.Input{})
	assert.Len(t, h.DuePilotCommands(s), 2)

	s.Tick(autopilot.Input{})
	assert.Empty(t, h.DuePilotCommands(s))
}
