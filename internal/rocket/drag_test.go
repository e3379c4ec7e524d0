package rocket

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateDrag_OpposesVelocity(t *testing.T) {
	r, body, _ := newTestRocket(t)
	body.vel = mgl64.Vec2{0, -100}

	r.UpdateDrag()

	require.Len(t, body.applied, 1)
	f := body.applied[0]
	assert.False(t, f.local)
	// falling along the long axis: frontal area is the width
	area := 15.0 * 15.0 * 1e-5
	assert.InDelta(t, 30*area*100*100, f.force.Y(), 1e-9)
	assert.InDelta(t, 0, f.force.X(), 1e-12)
	assert.InDelta(t, -750, f.point.Y(), 1e-9)
}

func TestUpdateDrag_BroadsideArea(t *testing.T) {
	r, body, _ := newTestRocket(t)
	body.vel = mgl64.Vec2{50, 0}

	r.UpdateDrag()

	require.Len(t, body.applied, 1)
	area := 150.0 * 150.0 * 1e-5
	assert.InDelta(t, -30*area*50*50, body.applied[0].force.X(), 1e-9)
}

func TestUpdateDrag_Airbrakes(t *testing.T) {
	plain, plainBody, _ := newTestRocket(t)
	plainBody.vel = mgl64.Vec2{0, -100}
	plain.UpdateDrag()

	braked, brakedBody, _ := newTestRocket(t)
	brakedBody.vel = mgl64.Vec2{0, -100}
	braked.SetAirbrakes(true)
	braked.UpdateDrag()

	p, b := plainBody.applied[0], brakedBody.applied[0]
	assert.InDelta(t, 2*p.force.Y(), b.force.Y(), 1e-9)
	assert.InDelta(t, 225, b.point.Y(), 1e-9, "center of pressure moves above the center of mass")
}

func TestUpdateDrag_RotatesLeverArm(t *testing.T) {
	r, body, _ := newTestRocket(t)
	body.vel = mgl64.Vec2{0, -10}
	body.angle = math.Pi / 2

	r.UpdateDrag()

	require.Len(t, body.applied, 1)
	assert.InDelta(t, 750, body.applied[0].point.X(), 1e-9)
	assert.InDelta(t, 0, body.applied[0].point.Y(), 1e-9)
}

func TestUpdateDrag_SlowAndAngularDecay(t *testing.T) {
	r, body, _ := newTestRocket(t)
	body.vel = mgl64.Vec2{0.01, 0}
	body.omega = 2

	r.UpdateDrag()

	assert.Empty(t, body.applied, "below the speed threshold")
	assert.InDelta(t, 1.998, body.omega, 1e-12)
}
