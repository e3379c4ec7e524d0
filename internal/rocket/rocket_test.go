package rocket

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flightctl/flightctl/internal/engine"
)

type appliedForce struct {
	force, point mgl64.Vec2
	local        bool
}

// fakeBody records applied forces instead of integrating them.
type fakeBody struct {
	mass    float64
	pos     mgl64.Vec2
	vel     mgl64.Vec2
	angle   float64
	omega   float64
	applied []appliedForce
}

func (b *fakeBody) Mass() float64 { return b.mass }
func (b *fakeBody) Position() mgl64.Vec2 { return b.pos }
func (b *fakeBody) Velocity() mgl64.Vec2 { return b.vel }
func (b *fakeBody) Angle() float64 { return b.angle }
func (b *fakeBody) AngularVelocity() float64 { return b.omega }
func (b *fakeBody) SetAngularVelocity(w float64) { b.omega = w }

func (b *fakeBody) LocalToWorld(v mgl64.Vec2) mgl64.Vec2 {
	return mgl64.Rotate2D(b.angle).Mul2x1(v)
}

func (b *fakeBody) ApplyForceAtLocalPoint(force, point mgl64.Vec2) {
	b.applied = append(b.applied, appliedForce{force: force, point: point, local: true})
}

func (b *fakeBody) ApplyForceAtWorldOffset(force, offset mgl64.Vec2) {
	b.applied = append(b.applied, appliedForce{force: force, point: offset})
}

func newTestRocket(t *testing.T, opts ...Option) (*Rocket, *fakeBody, *engine.Engine) {
	t.Helper()
	body := &fakeBody{mass: 3e5}
	eng := engine.New(engine.DefaultLimits())
	return New(DefaultGeometry(), body, eng, opts...), body, eng
}

func TestUpdateForces_NotIgnited(t *testing.T) {
	r, body, _ := newTestRocket(t)

	r.UpdateForces(0.001)

	assert.Empty(t, body.applied)
	assert.Zero(t, r.Fuel().FuelUsed)
}

func TestUpdateForces_CutOffAppliesNothing(t *testing.T) {
	r, body, eng := newTestRocket(t)
	eng.Ignite()
	eng.CutOff()
	require.Equal(t, 3.6e8, eng.Thrust())

	r.UpdateForces(0.001)
	assert.Empty(t, body.applied)
}

func TestUpdateForces_GimbaledThrust(t *testing.T) {
	r, body, eng := newTestRocket(t)
	eng.Ignite()
	eng.SetGimbal(0.3)

	r.UpdateForces(0.01)

	require.Len(t, body.applied, 1)
	f := body.applied[0]
	assert.True(t, f.local)
	assert.InDelta(t, 3.6e8*math.Sin(0.3), f.force.X(), 1e-3)
	assert.InDelta(t, 3.6e8*math.Cos(0.3), f.force.Y(), 1e-3)
	assert.Equal(t, mgl64.Vec2{0, -75}, f.point)
	assert.InDelta(t, 3.6e6, r.Fuel().FuelUsed, 1e-6)
}

func TestFuelIsMonotonic(t *testing.T) {
	r, _, eng := newTestRocket(t)
	last := 0.0
	for i := range 200 {
		if i%7 == 0 {
			eng.ToggleIgnition()
		}
		eng.IncreaseThrust(float64(i%5-2) * 1e7)
		r.UpdateForces(0.001)
		require.GreaterOrEqual(t, r.Fuel().FuelUsed, last)
		last = r.Fuel().FuelUsed
	}
	assert.Positive(t, last)
}

func TestTelemetry_NormalizesAngle(t *testing.T) {
	r, body, _ := newTestRocket(t)
	body.pos = mgl64.Vec2{10, 500}
	body.vel = mgl64.Vec2{1, -2}
	body.angle = 4 * math.Pi
	body.omega = 0.5

	tel := r.Telemetry()

	assert.Equal(t, mgl64.Vec2{10, 500}, tel.Position)
	assert.Equal(t, mgl64.Vec2{1, -2}, tel.Velocity)
	assert.InDelta(t, 0, tel.Angle, 1e-9)
	assert.Equal(t, 0.5, tel.AngularVelocity)
}

func TestTelemetry_SensorNoise(t *testing.T) {
	r, body, _ := newTestRocket(t, WithSensorNoise(0.01, 7))
	body.pos = mgl64.Vec2{100, 1000}

	tel := r.Telemetry()

	assert.InEpsilon(t, 1000, tel.Position.Y(), 0.0101)
	assert.NotEqual(t, 1000.0, tel.Position.Y())

	again, body2, _ := newTestRocket(t, WithSensorNoise(0.01, 7))
	body2.pos = body.pos
	assert.Equal(t, tel, again.Telemetry(), "same seed, same noise")
}

func TestTWR(t *testing.T) {
	r, _, eng := newTestRocket(t)
	assert.InDelta(t, 2.0, r.TWR(-600), 1e-12)

	eng.SetThrust(0)
	assert.InDelta(t, 3.5e8/3e5/600, r.TWR(600), 1e-12)
	assert.Zero(t, r.TWR(0))
}

func TestGeometry(t *testing.T) {
	g := DefaultGeometry()
	hull := g.Hull()

	require.Len(t, hull, 5)
	assert.Equal(t, mgl64.Vec2{-7.5, -75}, hull[0])
	assert.Equal(t, mgl64.Vec2{0, 100}, hull[3])
	assert.Equal(t, mgl64.Vec2{0, -75}, g.EngineMount())
}
