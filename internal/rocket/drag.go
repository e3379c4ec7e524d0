package rocket

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Drag parameterizes the aerodynamic model. The force acts far below the
// center of mass so the airframe weathervanes tail-first; airbrakes move the
// center of pressure above it and double the coefficient.
type Drag struct {
	Coefficient float64 `json:"coefficient"`
	Scale       float64 `json:"scale"`
	MinSpeed    float64 `json:"minSpeed"`
	// Lever is the center of pressure in multiples of the height, body frame.
	Lever float64 `json:"lever"`
	// AirbrakeLever scales the lever while airbrakes are deployed.
	AirbrakeLever float64 `json:"airbrakeLever"`
	AirbrakeGain  float64 `json:"airbrakeGain"`
	// AngularDecay multiplies angular velocity on every drag update.
	AngularDecay float64 `json:"angularDecay"`
}

// DefaultDrag returns the stock aerodynamic coefficients.
func DefaultDrag() Drag {
	return Drag{
		Coefficient:   1e-5,
		Scale:         30,
		MinSpeed:      0.1,
		Lever:         -5,
		AirbrakeLever: -0.3,
		AirbrakeGain:  2,
		AngularDecay:  0.999,
	}
}

// UpdateDrag applies quadratic drag against the velocity and passive angular
// damping.
func (r *Rocket) UpdateDrag() {
	v := r.body.Velocity()
	speed := v.Len()
	if speed >= r.drag.MinSpeed {
		force, offset := r.dragForce(v, speed)
		r.body.ApplyForceAtWorldOffset(force, offset)
	}
	r.body.SetAngularVelocity(r.body.AngularVelocity() * r.drag.AngularDecay)
}

func (r *Rocket) dragForce(v mgl64.Vec2, speed float64) (force, offset mgl64.Vec2) {
	w, h := r.geom.Width, r.geom.Height
	side := mgl64.Vec2{math.Cos(r.body.Angle()), math.Sin(r.body.Angle())}
	k := math.Abs(v.Mul(1 / speed).Dot(side))

	area := (k*h*h + (1-k)*w*w) * r.drag.Coefficient
	point := mgl64.Vec2{0, r.drag.Lever * h}
	if r.airbrakes {
		area *= r.drag.AirbrakeGain
		point = point.Mul(r.drag.AirbrakeLever)
	}

	force = v.Mul(-r.drag.Scale * area * speed)
	return force, r.body.LocalToWorld(point)
}
