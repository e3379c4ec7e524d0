package autopilot

import (
	"github.com/flightctl/flightctl/pkg/core"
)

// Gains tunes the control laws. The harness never changes them; sweeps run
// separate autopilots with different values.
type Gains struct {
	// ASSIST: gimbal increment per unit of angular velocity.
	AssistRate float64 `json:"assistRate"`
	// Attitude hold: angular velocity damping term.
	AttitudeRate float64 `json:"attitudeRate"`

	// Weight of the velocity vector in the attitude target, per mode.
	StabilizeVelocityWeight float64 `json:"stabilizeVelocityWeight"`
	HoverVelocityWeight     float64 `json:"hoverVelocityWeight"`
	LandVelocityWeight      float64 `json:"landVelocityWeight"`

	HoverDamping  float64 `json:"hoverDamping"`
	HoverCosFloor float64 `json:"hoverCosFloor"`

	LandCompensationCap  float64   `json:"landCompensationCap"`
	LandSafety           float64   `json:"landSafety"`
	LandingOffsetDivisor float64   `json:"landingOffsetDivisor"`
	LandMinHeight        float64   `json:"landMinHeight"`
	TouchdownDivisor     float64   `json:"touchdownDivisor"`
	TouchdownMode        core.Mode `json:"touchdownMode"`

	// Pilot override scaling. OverrideServo multiplies the steps while an
	// attitude-holding mode is engaged.
	OverrideServo float64 `json:"overrideServo"`
	ThrustStep    float64 `json:"thrustStep"`
	GimbalStep    float64 `json:"gimbalStep"`
}

// DefaultGains returns the tuning used by the regression scenarios.
func DefaultGains() Gains {
	return Gains{
		AssistRate:              0.1,
		AttitudeRate:            0.4,
		StabilizeVelocityWeight: 0,
		HoverVelocityWeight:     1,
		LandVelocityWeight:      1,
		HoverDamping:            1,
		HoverCosFloor:           0.7,
		LandCompensationCap:     4,
		LandSafety:              1.25,
		LandingOffsetDivisor:    1.9,
		LandMinHeight:           1e-3,
		TouchdownDivisor:        1.8,
		TouchdownMode:           core.ModeOff,
		OverrideServo:           8,
		ThrustStep:              1e6,
		GimbalStep:              0.01,
	}
}

// Parameters flattens the gains for run metadata.
func (g Gains) Parameters() map[string]float64 {
	return map[string]float64{
		"assistRate":              g.AssistRate,
		"attitudeRate":            g.AttitudeRate,
		"stabilizeVelocityWeight": g.StabilizeVelocityWeight,
		"hoverVelocityWeight":     g.HoverVelocityWeight,
		"landVelocityWeight":      g.LandVelocityWeight,
		"hoverDamping":            g.HoverDamping,
		"hoverCosFloor":           g.HoverCosFloor,
		"landCompensationCap":     g.LandCompensationCap,
		"landSafety":              g.LandSafety,
		"landingOffsetDivisor":    g.LandingOffsetDivisor,
		"landMinHeight":           g.LandMinHeight,
		"touchdownDivisor":        g.TouchdownDivisor,
		"overrideServo":           g.OverrideServo,
		"thrustStep":              g.ThrustStep,
		"gimbalStep":              g.GimbalStep,
	}
}

func (g Gains) velocityWeight(m core.Mode) float64 {
	switch m {
	case core.ModeHover:
		return g.HoverVelocityWeight
	case core.ModeLand:
		return g.LandVelocityWeight
	default:
		return g.StabilizeVelocityWeight
	}
}
