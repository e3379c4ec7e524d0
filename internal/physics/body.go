// Package physics is a minimal planar rigid-body integrator with a flat
// ground plane, enough to close the control loop headless.
package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Body is a rigid polygon. Forces accumulate until the next Step.
type Body struct {
	mass    float64
	inertia float64
	hull    []mgl64.Vec2

	pos   mgl64.Vec2
	vel   mgl64.Vec2
	angle float64
	omega float64

	force  mgl64.Vec2
	torque float64

	contact bool
}

// NewBody creates a body with the given hull, in body coordinates around the
// center of mass.
func NewBody(mass, inertia float64, hull []mgl64.Vec2) *Body {
	return &Body{
		mass:    mass,
		inertia: inertia,
		hull:    append([]mgl64.Vec2(nil), hull...),
	}
}

// BoxInertia is the moment of inertia of a uniform w×h rectangle.
func BoxInertia(mass, w, h float64) float64 {
	return mass * (w*w + h*h) / 12
}

func (b *Body) Mass() float64 { return b.mass }
func (b *Body) Inertia() float64 { return b.inertia }
func (b *Body) Position() mgl64.Vec2 { return b.pos }
func (b *Body) Velocity() mgl64.Vec2 { return b.vel }
func (b *Body) Angle() float64 { return b.angle }
func (b *Body) AngularVelocity() float64 { return b.omega }
func (b *Body) InContact() bool { return b.contact }
func (b *Body) SetAngularVelocity(w float64) { b.omega = w }

// SetState force-writes the kinematic state and drops pending forces.
func (b *Body) SetState(pos, vel mgl64.Vec2, angle, omega float64) {
	b.pos, b.vel, b.angle, b.omega = pos, vel, angle, omega
	b.force, b.torque = mgl64.Vec2{}, 0
	b.contact = false
}

// LocalToWorld rotates a body-frame vector into the world frame.
func (b *Body) LocalToWorld(v mgl64.Vec2) mgl64.Vec2 {
	return mgl64.Rotate2D(b.angle).Mul2x1(v)
}

// ApplyForceAtLocalPoint applies a body-frame force at a body-frame point.
func (b *Body) ApplyForceAtLocalPoint(force, point mgl64.Vec2) {
	b.force = b.force.Add(b.LocalToWorld(force))
	b.torque += cross(point, force)
}

// ApplyForceAtWorldOffset applies a world-frame force at a world-frame lever
// arm measured from the center of mass.
func (b *Body) ApplyForceAtWorldOffset(force, offset mgl64.Vec2) {
	b.force = b.force.Add(force)
	b.torque += cross(offset, force)
}

// lowestPoint returns the minimum world y over the hull.
func (b *Body) lowestPoint() float64 {
	low := math.Inf(1)
	for _, p := range b.hull {
		low = math.Min(low, b.pos.Y()+b.LocalToWorld(p).Y())
	}
	return low
}

func cross(a, b mgl64.Vec2) float64 {
	return a.X()*b.Y() - a.Y()*b.X()
}
