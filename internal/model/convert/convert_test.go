package convert

import (
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flightctl/flightctl/internal/model"
	"github.com/flightctl/flightctl/pkg/core"
)

func TestCoreToRun(t *testing.T) {
	run := core.Run{
		ID:         uuid.MustParse("6f1c1e1a-3b7d-4f3e-9d6e-2a2f5c1b8e01"),
		Label:      "nightly",
		StartTime:  time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
		Parameters: map[string]float64{"landSafety": 1.25},
	}

	got := CoreToRun(run, "regression")

	assert.Equal(t, "6f1c1e1a-3b7d-4f3e-9d6e-2a2f5c1b8e01", got.RunUUID)
	assert.Equal(t, "regression", got.Tag)
	assert.JSONEq(t, `{"landSafety":1.25}`, string(got.Parameters))

	back := RunToCore(got)
	assert.Equal(t, run.ID, back.ID)
	assert.Equal(t, run.Parameters, back.Parameters)
}

func TestCoreToRun_EmptyParameters(t *testing.T) {
	got := CoreToRun(core.Run{}, "")
	assert.Equal(t, "{}", string(got.Parameters))
}

func TestRunToCore_BadUUID(t *testing.T) {
	got := RunToCore(model.Run{RunUUID: "not-a-uuid"})
	assert.Equal(t, uuid.Nil, got.ID)
}

func TestCoreToScenarioResult(t *testing.T) {
	r := core.ScenarioResult{
		Sequence:    3,
		Name:        "land-sideways-left",
		Fingerprint: 0xdeadbeef,
		FuelUsed:    1.5e9,
		TimeTaken:   11.72,
		Ticks:       586,
		Completed:   true,
		MinAltitude: 74,
		MaxTWR:      2,
		Trajectory:  []mgl64.Vec2{{0, 8000}, {1500, 4000}, {2100, 80}},
	}

	got := CoreToScenarioResult(r)

	assert.Equal(t, "deadbeef", got.Fingerprint)
	assert.Equal(t, 3, got.Trajectory.Coordinates().Length())
	final, ok := got.FinalPoint.Coordinates()
	require.True(t, ok)
	assert.Equal(t, geom.XY{X: 2100, Y: 80}, final.XY)
	assert.False(t, got.Time.IsZero())

	back := ScenarioResultToCore(got)
	assert.Equal(t, r, back)
}

func TestCoreToScenarioResult_NoTrajectory(t *testing.T) {
	got := CoreToScenarioResult(core.ScenarioResult{Name: "hover-falling"})

	assert.True(t, got.Trajectory.IsEmpty())
	assert.True(t, got.FinalPoint.IsEmpty())
	assert.Nil(t, ScenarioResultToCore(got).Trajectory)
}

func TestCoreToTelemetrySample(t *testing.T) {
	f := core.TelemetryFrame{
		Tick:      120,
		Time:      2.4,
		Scenario:  "hover-near-ground",
		Telemetry: core.NewTelemetry(mgl64.Vec2{12, 130}, mgl64.Vec2{-1, 0.5}, 0.1, -0.2),
		Thrust:    1.8e8,
		Gimbal:    -0.05,
		Ignited:   true,
		Mode:      core.ModeHover,
		Airbrakes: true,
		FuelUsed:  4.2e8,
	}

	got := CoreToTelemetrySample(f)

	assert.Equal(t, "HOVER", got.Mode)
	pos, ok := got.Position.Coordinates()
	require.True(t, ok)
	assert.Equal(t, geom.XY{X: 12, Y: 130}, pos.XY)

	assert.Equal(t, f, TelemetrySampleToCore(got))
}

func TestTelemetrySampleToCore_UnknownMode(t *testing.T) {
	got := TelemetrySampleToCore(model.TelemetrySample{Mode: "WARP"})
	assert.Equal(t, core.ModeOff, got.Mode)
}
