// pkg/core/telemetry.go
package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Telemetry is a snapshot of the rocket's kinematic state taken once per tick.
// Angle is always normalized to (-π, π]; the raw physics angle may wind freely.
type Telemetry struct {
	Position        mgl64.Vec2 `json:"position"`
	Velocity        mgl64.Vec2 `json:"velocity"`
	Angle           float64    `json:"angle"`
	AngularVelocity float64    `json:"angularVelocity"`
}

// NewTelemetry builds a snapshot, normalizing the angle.
func NewTelemetry(position, velocity mgl64.Vec2, angle, angularVelocity float64) Telemetry {
	return Telemetry{
		Position:        position,
		Velocity:        velocity,
		Angle:           NormalizeAngle(angle),
		AngularVelocity: angularVelocity,
	}
}

// Altitude is the height of the center of mass above the ground plane.
func (t Telemetry) Altitude() float64 {
	return t.Position.Y()
}

// Speed is the magnitude of the velocity vector.
func (t Telemetry) Speed() float64 {
	return t.Velocity.Len()
}

// NormalizeAngle maps any angle onto (-π, π].
func NormalizeAngle(a float64) float64 {
	r := math.Mod(math.Pi-a, 2*math.Pi)
	if r < 0 {
		r += 2 * math.Pi
	}
	if r >= 2*math.Pi {
		r -= 2 * math.Pi
	}
	return math.Pi - r
}
