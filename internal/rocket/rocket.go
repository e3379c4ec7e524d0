// Package rocket turns engine and airframe state into forces on a rigid body.
package rocket

import (
	"math"
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/flightctl/flightctl/internal/engine"
	"github.com/flightctl/flightctl/pkg/core"
)

// Body is the rigid-body collaborator that integrates the forces.
type Body interface {
	Mass() float64
	Position() mgl64.Vec2
	Velocity() mgl64.Vec2
	Angle() float64
	AngularVelocity() float64
	SetAngularVelocity(w float64)
	LocalToWorld(v mgl64.Vec2) mgl64.Vec2
	ApplyForceAtLocalPoint(force, point mgl64.Vec2)
	ApplyForceAtWorldOffset(force, offset mgl64.Vec2)
}

// Geometry is the airframe: a w×h hull with a nose cone, engine at the base.
type Geometry struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Mass   float64 `json:"mass"`
}

// DefaultGeometry returns the stock airframe dimensions.
func DefaultGeometry() Geometry {
	return Geometry{Width: 15, Height: 150, Mass: 3e5}
}

// Hull returns the outline in body coordinates around the center of mass.
func (g Geometry) Hull() []mgl64.Vec2 {
	w, h := g.Width/2, g.Height/2
	return []mgl64.Vec2{
		{-w, -h},
		{w, -h},
		{w, h},
		{0, g.Height / 1.5},
		{-w, h},
	}
}

// EngineMount is the body-frame thrust application point.
func (g Geometry) EngineMount() mgl64.Vec2 {
	return mgl64.Vec2{0, -g.Height / 2}
}

// FuelStats accumulates thrust×time while the engine is lit. It never
// decreases.
type FuelStats struct {
	FuelUsed float64 `json:"fuelUsed"`
}

// Rocket couples one engine to one body.
type Rocket struct {
	geom      Geometry
	drag      Drag
	body      Body
	engine    *engine.Engine
	fuel      FuelStats
	airbrakes bool

	noise float64
	rng   *rand.Rand
}

type Option func(*Rocket)

// WithDrag replaces the default drag model.
func WithDrag(d Drag) Option {
	return func(r *Rocket) { r.drag = d }
}

// WithSensorNoise perturbs every telemetry channel by a uniform relative
// error of at most amp. The generator is seeded so runs stay reproducible.
func WithSensorNoise(amp float64, seed uint64) Option {
	return func(r *Rocket) {
		r.noise = amp
		r.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
}

// New assembles a rocket from its airframe, rigid body and engine.
func New(geom Geometry, body Body, eng *engine.Engine, opts ...Option) *Rocket {
	r := &Rocket{
		geom:   geom,
		drag:   DefaultDrag(),
		body:   body,
		engine: eng,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Rocket) Geometry() Geometry { return r.geom }
func (r *Rocket) Body() Body { return r.body }
func (r *Rocket) Engine() *engine.Engine { return r.engine }
// Fuel returns the cumulative fuel accounting.
func (r *Rocket) Fuel() FuelStats { return r.fuel }
func (r *Rocket) Airbrakes() bool { return r.airbrakes }
// SetAirbrakes deploys or retracts the drag surfaces.
func (r *Rocket) SetAirbrakes(on bool) { r.airbrakes = on }

// UpdateForces applies engine thrust for one physics step of length dt.
// Thrust is deflected by the gimbal in the body frame and acts at the
// engine mount, so a gimbaled engine also produces torque.
func (r *Rocket) UpdateForces(dt float64) {
	if !r.engine.Ignited() {
		return
	}
	t, g := r.engine.Thrust(), r.engine.Gimbal()
	r.body.ApplyForceAtLocalPoint(mgl64.Vec2{t * math.Sin(g), t * math.Cos(g)}, r.geom.EngineMount())
	r.fuel.FuelUsed += t * dt
}

// Telemetry captures the current kinematic state.
func (r *Rocket) Telemetry() core.Telemetry {
	pos, vel := r.body.Position(), r.body.Velocity()
	angle, omega := r.body.Angle(), r.body.AngularVelocity()
	if r.noise > 0 {
		pos = mgl64.Vec2{r.perturb(pos.X()), r.perturb(pos.Y())}
		vel = mgl64.Vec2{r.perturb(vel.X()), r.perturb(vel.Y())}
		angle = r.perturb(angle)
		omega = r.perturb(omega)
	}
	return core.NewTelemetry(pos, vel, angle, omega)
}

func (r *Rocket) perturb(v float64) float64 {
	return v * (1 + r.noise*(2*r.rng.Float64()-1))
}

// TWR is the thrust-to-weight ratio at the commanded thrust.
func (r *Rocket) TWR(gravity float64) float64 {
	if gravity == 0 || r.body.Mass() == 0 {
		return 0
	}
	return r.engine.Thrust() / r.body.Mass() / math.Abs(gravity)
}
