package core

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenario_Fingerprint(t *testing.T) {
	a := Scenario{Name: "a", Position: mgl64.Vec2{0, 1000}, Mode: ModeLand}
	b := a
	b.Name = "renamed"
	assert.Equal(t, a.Fingerprint(), b.Fingerprint(), "name does not affect the fingerprint")

	c := a
	c.Angle = math.Pi / 2
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())

	d := a
	d.Pilot = []PilotCommand{{Tick: 5, Command: "throttle", Args: []string{"1"}}}
	assert.NotEqual(t, a.Fingerprint(), d.Fingerprint())
}

func TestScenario_DecodeJSON(t *testing.T) {
	raw := `{
		"name": "sideways",
		"position": [0, 6000],
		"velocity": [1000, 0],
		"angle": 1.5707963267948966,
		"mode": "LAND",
		"pilot": [{"tick": 10, "command": "airbrakes_toggle"}]
	}`
	var s Scenario
	require.NoError(t, json.Unmarshal([]byte(raw), &s))

	assert.Equal(t, "sideways", s.Name)
	assert.Equal(t, mgl64.Vec2{0, 6000}, s.Position)
	assert.Equal(t, mgl64.Vec2{1000, 0}, s.Velocity)
	assert.Equal(t, ModeLand, s.Mode)
	require.Len(t, s.Pilot, 1)
	assert.Equal(t, "airbrakes_toggle", s.Pilot[0].Command)
}

func TestNewRun(t *testing.T) {
	r1 := NewRun("baseline", map[string]float64{"landSafety": 1.25})
	r2 := NewRun("baseline", nil)
	assert.NotEqual(t, r1.ID, r2.ID)
	assert.False(t, r1.StartTime.IsZero())
	assert.Equal(t, 1.25, r1.Parameters["landSafety"])
}
