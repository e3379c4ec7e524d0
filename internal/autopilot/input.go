package autopilot

import (
	"math"

	"github.com/flightctl/flightctl/pkg/core"
)

// Input is the pilot's command set for one tick. Throttle and Steer are
// continuous axes in [-1, 1].
type Input struct {
	ToggleIgnition  bool
	ToggleAirbrakes bool
	SelectMode      *core.Mode
	Throttle        float64
	Steer           float64
}

// IsZero reports whether the input carries no command.
func (in Input) IsZero() bool {
	return !in.ToggleIgnition && !in.ToggleAirbrakes && in.SelectMode == nil &&
		in.Throttle == 0 && in.Steer == 0
}

// ApplyInput layers pilot commands on top of the law evaluated this tick.
// Selecting a different mode also ignites the engine. While an attitude-holding mode is
// engaged the manual steps are scaled by the override servo gain.
func (a *Autopilot) ApplyInput(in Input) Transition {
	var tr Transition
	if in.SelectMode != nil {
		tr = a.switchMode(*in.SelectMode, CausePilot)
		if tr.Occurred() {
			a.engine.Ignite()
		}
	}
	if in.ToggleIgnition {
		a.engine.ToggleIgnition()
	}
	if in.ToggleAirbrakes {
		a.airbrakes = !a.airbrakes
	}

	servo := 1.0
	if a.mode.AttitudeHold() {
		servo = a.gains.OverrideServo
	}
	if in.Throttle != 0 {
		a.engine.IncreaseThrust(clampAxis(in.Throttle) * a.gains.ThrustStep * servo)
	}
	if in.Steer != 0 {
		a.engine.IncreaseGimbal(clampAxis(in.Steer) * a.gains.GimbalStep * servo)
	}
	return tr
}

func clampAxis(v float64) float64 {
	return math.Max(-1, math.Min(1, v))
}
