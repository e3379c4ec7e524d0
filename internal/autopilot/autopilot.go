// Package autopilot implements the flight-control state machine: one control
// law per mode, evaluated once per tick against a telemetry snapshot.
package autopilot

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/flightctl/flightctl/internal/engine"
	"github.com/flightctl/flightctl/pkg/core"
)

// Actuator is the engine surface the control laws drive.
type Actuator interface {
	SetThrust(v float64)
	IncreaseThrust(d float64)
	SetGimbal(v float64)
	IncreaseGimbal(d float64)
	Ignite()
	CutOff()
	ToggleIgnition()
	Thrust() float64
	Gimbal() float64
	Ignited() bool
	Limits() engine.Limits
}

// Environment carries the vehicle and world parameters the laws need.
type Environment struct {
	Mass         float64
	Gravity      mgl64.Vec2
	RocketHeight float64
}

// Transition records a mode change. The zero value means none happened.
type Transition struct {
	From  core.Mode
	To    core.Mode
	Cause string
}

// Transition causes.
const (
	CauseTouchdown = "touchdown"
	CausePilot     = "pilot"
	CauseCommand   = "command"
)

// Occurred reports whether the transition changed the mode.
func (t Transition) Occurred() bool {
	return t.Cause != ""
}

// Autopilot owns the mode selector and the airbrake flag; it commands the
// engine but never integrates physics.
type Autopilot struct {
	gains     Gains
	engine    Actuator
	mode      core.Mode
	airbrakes bool
}

// New creates an autopilot in OFF mode driving the given engine.
func New(eng Actuator, gains Gains) *Autopilot {
	return &Autopilot{
		gains:  gains,
		engine: eng,
		mode:   core.ModeOff,
	}
}

// Mode returns the active control law.
func (a *Autopilot) Mode() core.Mode { return a.mode }

// Gains returns the control-law tuning the autopilot was built with.
func (a *Autopilot) Gains() Gains { return a.gains }

// Airbrakes reports whether the drag surfaces are deployed.
func (a *Autopilot) Airbrakes() bool { return a.airbrakes }

// SetMode switches the control law. Leaving LAND retracts the airbrakes.
// Selecting the active mode, or an invalid one, is not a transition.
func (a *Autopilot) SetMode(m core.Mode) Transition {
	return a.switchMode(m, CauseCommand)
}

func (a *Autopilot) switchMode(m core.Mode, cause string) Transition {
	if !m.Valid() || m == a.mode {
		return Transition{}
	}
	tr := Transition{From: a.mode, To: m, Cause: cause}
	if a.mode == core.ModeLand && m != core.ModeLand {
		a.airbrakes = false
	}
	a.mode = m
	return tr
}

// Update evaluates the current mode's law exactly once.
func (a *Autopilot) Update(t core.Telemetry, env Environment) Transition {
	switch a.mode {
	case core.ModeAssist:
		a.assist(t)
	case core.ModeStabilize:
		a.holdAttitude(t, env)
	case core.ModeHover:
		a.holdAttitude(t, env)
		a.hover(t, env)
	case core.ModeLand:
		if t.Position.Y() < env.RocketHeight/a.gains.TouchdownDivisor {
			return a.touchdown()
		}
		a.airbrakes = true
		a.holdAttitude(t, env)
		a.land(t, env)
	}
	return Transition{}
}

func (a *Autopilot) assist(t core.Telemetry) {
	a.engine.IncreaseGimbal(-a.gains.AssistRate * t.AngularVelocity)
}

// holdAttitude points the thrust axis against gravity, leaning into the
// velocity vector by the mode's weight.
func (a *Autopilot) holdAttitude(t core.Telemetry, env Environment) {
	target := t.Velocity.Mul(a.gains.velocityWeight(a.mode)).Add(env.Gravity)
	targetAngle := math.Atan2(target.X(), -target.Y())
	errAngle := core.NormalizeAngle(targetAngle - t.Angle)
	a.engine.SetGimbal(errAngle - a.gains.AttitudeRate*t.AngularVelocity)
}

func (a *Autopilot) hover(t core.Telemetry, env Environment) {
	thrust := env.Mass*env.Gravity.Len() - a.gains.HoverDamping*env.Mass*t.Velocity.Y()
	thrust = math.Max(thrust, 0)
	thrust /= math.Max(math.Abs(math.Cos(a.engine.Gimbal()-t.Angle)), a.gains.HoverCosFloor)
	a.engine.SetThrust(thrust)
}

// land applies the suicide-burn law: the thrust needed to cancel the current
// vertical speed over the remaining height.
func (a *Autopilot) land(t core.Telemetry, env Environment) {
	vy := t.Velocity.Y()
	h := math.Max(t.Position.Y()-env.RocketHeight/a.gains.LandingOffsetDivisor, a.gains.LandMinHeight)

	thrust := 2*vy*vy*env.Mass/h + env.Gravity.Len()
	cos := math.Abs(math.Cos(a.engine.Gimbal() - t.Angle))
	comp := a.gains.LandCompensationCap
	if cos > 0 {
		comp = math.Min(1/cos, comp)
	}
	thrust *= comp * a.gains.LandSafety

	if vy > 0 || (thrust < a.engine.Limits().MinThrust && !a.engine.Ignited()) {
		a.engine.SetThrust(0)
		a.engine.CutOff()
		return
	}
	a.engine.Ignite()
	a.engine.SetThrust(thrust)
}

func (a *Autopilot) touchdown() Transition {
	a.engine.CutOff()
	a.airbrakes = false
	return a.switchMode(a.gains.TouchdownMode, CauseTouchdown)
}
