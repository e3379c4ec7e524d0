// Package sim closes the control loop: one autopilot evaluation per frame,
// followed by a fixed number of physics sub-steps.
package sim

import (
	"log/slog"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/flightctl/flightctl/internal/autopilot"
	"github.com/flightctl/flightctl/internal/engine"
	"github.com/flightctl/flightctl/internal/physics"
	"github.com/flightctl/flightctl/internal/rocket"
	"github.com/flightctl/flightctl/pkg/core"
)

// Config controls the loop timing and the optional force models.
type Config struct {
	FrameDT     float64 `json:"frameDt"`
	Substeps    int     `json:"substeps"`
	Drag        bool    `json:"drag"`
	SensorNoise float64 `json:"sensorNoise"`
	NoiseSeed   uint64  `json:"noiseSeed"`
}

// DefaultConfig runs 50 frames per simulated second with 1ms physics steps.
func DefaultConfig() Config {
	return Config{
		FrameDT:  1.0 / 50,
		Substeps: 20,
	}
}

// Observer receives a frame after every tick.
type Observer func(core.TelemetryFrame)

// Simulation owns one rocket, its engine and its autopilot. It is driven
// from a single goroutine.
type Simulation struct {
	cfg    Config
	world  physics.World
	body   *physics.Body
	engine *engine.Engine
	rocket *rocket.Rocket
	pilot  *autopilot.Autopilot
	logger *slog.Logger

	ticks     int64
	time      float64
	label     string
	observers []Observer
}

// Params groups the vehicle definition.
type Params struct {
	Geometry rocket.Geometry
	Limits   engine.Limits
	Gains    autopilot.Gains
	Drag     rocket.Drag
}

// DefaultParams returns the stock vehicle, engine and autopilot tuning.
func DefaultParams() Params {
	return Params{
		Geometry: rocket.DefaultGeometry(),
		Limits:   engine.DefaultLimits(),
		Gains:    autopilot.DefaultGains(),
		Drag:     rocket.DefaultDrag(),
	}
}

// New builds a simulation with the rocket at rest on the origin.
func New(cfg Config, world physics.World, p Params, logger *slog.Logger) *Simulation {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Substeps < 1 {
		cfg.Substeps = 1
	}
	g := p.Geometry
	body := physics.NewBody(g.Mass, physics.BoxInertia(g.Mass, g.Width, g.Height), g.Hull())
	eng := engine.New(p.Limits)

	opts := []rocket.Option{rocket.WithDrag(p.Drag)}
	if cfg.SensorNoise > 0 {
		opts = append(opts, rocket.WithSensorNoise(cfg.SensorNoise, cfg.NoiseSeed))
	}

	return &Simulation{
		cfg:    cfg,
		world:  world,
		body:   body,
		engine: eng,
		rocket: rocket.New(g, body, eng, opts...),
		pilot:  autopilot.New(eng, p.Gains),
		logger: logger,
	}
}

func (s *Simulation) Config() Config { return s.cfg }
func (s *Simulation) World() physics.World { return s.world }
func (s *Simulation) Body() *physics.Body { return s.body }
func (s *Simulation) Engine() *engine.Engine { return s.engine }
func (s *Simulation) Rocket() *rocket.Rocket { return s.rocket }
func (s *Simulation) Autopilot() *autopilot.Autopilot { return s.pilot }

// Ticks is the number of frames simulated so far.
func (s *Simulation) Ticks() int64 { return s.ticks }

// Time is the simulated time in seconds.
func (s *Simulation) Time() float64 { return s.time }

// SetLabel tags subsequent frames, usually with the active scenario name.
func (s *Simulation) SetLabel(label string) { s.label = label }

// Observe registers an observer called after every tick.
func (s *Simulation) Observe(o Observer) {
	s.observers = append(s.observers, o)
}

// Environment exposes the parameters the autopilot needs.
func (s *Simulation) Environment() autopilot.Environment {
	return autopilot.Environment{
		Mass:         s.body.Mass(),
		Gravity:      s.world.Gravity,
		RocketHeight: s.rocket.Geometry().Height,
	}
}

// Telemetry samples the rocket's sensors.
func (s *Simulation) Telemetry() core.Telemetry {
	return s.rocket.Telemetry()
}

// Place force-writes the rocket's kinematic state.
func (s *Simulation) Place(pos, vel mgl64.Vec2, angle, omega float64) {
	s.body.SetState(pos, vel, angle, omega)
}

// Tick advances one frame. Telemetry is captured before any actuator
// mutation, the control law runs once, pilot input is layered on top, then
// physics runs its sub-steps.
func (s *Simulation) Tick(in autopilot.Input) autopilot.Transition {
	tel := s.rocket.Telemetry()

	tr := s.pilot.Update(tel, s.Environment())
	s.logTransition(tr)
	if ptr := s.pilot.ApplyInput(in); ptr.Occurred() {
		s.logTransition(ptr)
		tr = ptr
	}
	s.rocket.SetAirbrakes(s.pilot.Airbrakes())

	dt := s.cfg.FrameDT / float64(s.cfg.Substeps)
	for range s.cfg.Substeps {
		s.rocket.UpdateForces(dt)
		if s.cfg.Drag {
			s.rocket.UpdateDrag()
		}
		s.world.Step(s.body, dt)
	}
	s.ticks++
	s.time += s.cfg.FrameDT

	if len(s.observers) > 0 {
		frame := s.Frame()
		for _, o := range s.observers {
			o(frame)
		}
	}
	return tr
}

// Frame reports the state at the end of the last tick.
func (s *Simulation) Frame() core.TelemetryFrame {
	st := s.engine.State()
	return core.TelemetryFrame{
		Tick:      s.ticks,
		Time:      s.time,
		Scenario:  s.label,
		Telemetry: core.NewTelemetry(s.body.Position(), s.body.Velocity(), s.body.Angle(), s.body.AngularVelocity()),
		Thrust:    st.Thrust,
		Gimbal:    st.Gimbal,
		Ignited:   st.Ignited,
		Mode:      s.pilot.Mode(),
		Airbrakes: s.pilot.Airbrakes(),
		FuelUsed:  s.rocket.Fuel().FuelUsed,
	}
}

func (s *Simulation) logTransition(tr autopilot.Transition) {
	if !tr.Occurred() {
		return
	}
	s.logger.Debug("Autopilot mode changed",
		"from", tr.From.String(),
		"to", tr.To.String(),
		"cause", tr.Cause,
		"tick", s.ticks,
		"altitude", s.body.Position().Y())
}
