// Package engine models the gimbaled, throttle-limited rocket engine.
//
// Every mutator saturates instead of failing: the requested value is first
// limited to the per-call rate around the current value and only then to
// the absolute bounds.
package engine

import "math"

// Limits bounds thrust and gimbal magnitude and their per-call change.
type Limits struct {
	MinThrust      float64 `json:"minThrust"`
	MaxThrust      float64 `json:"maxThrust"`
	MaxThrustRate  float64 `json:"maxThrustRate"`
	MaxGimbalAngle float64 `json:"maxGimbalAngle"`
	MaxGimbalRate  float64 `json:"maxGimbalRate"`
}

// DefaultLimits returns the stock engine envelope.
func DefaultLimits() Limits {
	return Limits{
		MinThrust:      3.6e7,
		MaxThrust:      3.6e8,
		MaxThrustRate:  1e7,
		MaxGimbalAngle: math.Pi / 4,
		MaxGimbalRate:  math.Pi / 8,
	}
}

// State is a copy of the engine's actuator state.
type State struct {
	Thrust  float64 `json:"thrust"`
	Gimbal  float64 `json:"gimbal"`
	Ignited bool    `json:"ignited"`
}

// Engine holds the commanded thrust and gimbal angle. It is owned by a single
// rocket and is not safe for concurrent use.
type Engine struct {
	limits  Limits
	thrust  float64
	gimbal  float64
	ignited bool
}

// New creates an engine at full thrust, centered and not ignited.
func New(limits Limits) *Engine {
	return &Engine{
		limits: limits,
		thrust: limits.MaxThrust,
	}
}

// clampStep limits v to within step of cur, then to [lo, hi]. A NaN request
// leaves cur unchanged.
func clampStep(cur, v, step, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return cur
	}
	v = clamp(v, cur-step, cur+step)
	return clamp(v, lo, hi)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// SetThrust moves thrust toward v by at most MaxThrustRate, within
// [MinThrust, MaxThrust].
func (e *Engine) SetThrust(v float64) {
	e.thrust = clampStep(e.thrust, v, e.limits.MaxThrustRate, e.limits.MinThrust, e.limits.MaxThrust)
}

// IncreaseThrust is SetThrust relative to the current thrust.
func (e *Engine) IncreaseThrust(d float64) {
	e.SetThrust(e.thrust + d)
}

// SetGimbal moves the gimbal angle toward v by at most MaxGimbalRate, within
// ±MaxGimbalAngle.
func (e *Engine) SetGimbal(v float64) {
	e.gimbal = clampStep(e.gimbal, v, e.limits.MaxGimbalRate, -e.limits.MaxGimbalAngle, e.limits.MaxGimbalAngle)
}

// IncreaseGimbal is SetGimbal relative to the current angle.
func (e *Engine) IncreaseGimbal(d float64) {
	e.SetGimbal(e.gimbal + d)
}

// Ignite and CutOff only flip the ignition flag; thrust and gimbal keep
// their commanded values.
func (e *Engine) Ignite() { e.ignited = true }

// CutOff clears the ignition flag.
func (e *Engine) CutOff() { e.ignited = false }

// ToggleIgnition flips the ignition flag.
func (e *Engine) ToggleIgnition() { e.ignited = !e.ignited }

// Thrust returns the commanded thrust in newtons.
func (e *Engine) Thrust() float64 { return e.thrust }

// Gimbal returns the gimbal angle in radians, positive clockwise.
func (e *Engine) Gimbal() float64 { return e.gimbal }

// Ignited reports whether the engine is producing thrust.
func (e *Engine) Ignited() bool { return e.ignited }

// Limits returns the engine envelope.
func (e *Engine) Limits() Limits { return e.limits }

// State returns a snapshot of the actuator.
func (e *Engine) State() State {
	return State{Thrust: e.thrust, Gimbal: e.gimbal, Ignited: e.ignited}
}
