package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// World holds gravity and the ground contact parameters.
type World struct {
	Gravity mgl64.Vec2
	// Ground is the height of the flat ground plane.
	Ground float64
	// Friction is the Coulomb coefficient applied to horizontal speed in contact.
	Friction float64
	// ContactDamping multiplies angular velocity on each contact step.
	ContactDamping float64
	// RestSpin is the angular speed below which a grounded body stops turning.
	RestSpin float64
}

// DefaultWorld returns the standard world: strong gravity, ground at zero.
func DefaultWorld() World {
	return World{
		Gravity:        mgl64.Vec2{0, -600},
		Friction:       0.8,
		ContactDamping: 0.9,
		RestSpin:       1e-3,
	}
}

// Step integrates b over dt with semi-implicit Euler, clears the force
// accumulators and resolves ground penetration.
func (w World) Step(b *Body, dt float64) {
	accel := b.force.Mul(1 / b.mass).Add(w.Gravity)
	b.vel = b.vel.Add(accel.Mul(dt))
	b.omega += b.torque / b.inertia * dt

	b.pos = b.pos.Add(b.vel.Mul(dt))
	b.angle += b.omega * dt

	b.force, b.torque = mgl64.Vec2{}, 0

	w.resolveContact(b, dt)
}

func (w World) resolveContact(b *Body, dt float64) {
	depth := b.lowestPoint() - w.Ground
	b.contact = depth < 0
	if !b.contact {
		return
	}

	b.pos[1] -= depth
	vx, vy := b.vel.X(), b.vel.Y()
	if vy < 0 {
		vy = 0
	}
	dv := w.Friction * w.Gravity.Len() * dt
	if math.Abs(vx) <= dv {
		vx = 0
	} else {
		vx -= math.Copysign(dv, vx)
	}
	b.vel = mgl64.Vec2{vx, vy}

	b.omega *= w.ContactDamping
	if math.Abs(b.omega) < w.RestSpin {
		b.omega = 0
	}
}
