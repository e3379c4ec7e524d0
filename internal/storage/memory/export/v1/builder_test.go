package v1

import (
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flightctl/flightctl/pkg/core"
)

func testRun() *core.Run {
	return &core.Run{
		ID:         uuid.MustParse("6f1c1e1a-3b7d-4f3e-9d6e-2a2f5c1b8e01"),
		Label:      "nightly",
		StartTime:  time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
		Parameters: map[string]float64{"landSafety": 1.25},
	}
}

func TestBuild_Empty(t *testing.T) {
	export := Build(&RunData{Run: &core.Run{}})

	assert.Equal(t, FormatVersion, export.Version)
	assert.NotNil(t, export.Parameters)
	assert.NotNil(t, export.Scenarios)
	assert.Empty(t, export.Scenarios)
	assert.Zero(t, export.EndTick)
}

func TestBuild_GroupsFramesByScenario(t *testing.T) {
	data := &RunData{
		Run: testRun(),
		Frames: []core.TelemetryFrame{
			{Tick: 1, Scenario: "land-from-rest", Mode: core.ModeLand, Ignited: true},
			{Tick: 2, Scenario: "land-from-rest", Mode: core.ModeOff},
			{Tick: 3, Scenario: "hover-near-ground", Mode: core.ModeHover, Airbrakes: true,
				Telemetry: core.NewTelemetry(mgl64.Vec2{1, 120}, mgl64.Vec2{10, 10}, 0, 4)},
		},
		Results: []core.ScenarioResult{
			{Sequence: 1, Name: "land-from-rest", Fingerprint: 0xabc, Completed: true, TimeTaken: 4.02, Ticks: 201,
				Trajectory: []mgl64.Vec2{{0, 1000}, {0, 80}}},
			{Sequence: 2, Name: "hover-near-ground", TimeTaken: 2},
		},
	}

	export := Build(data)

	assert.Equal(t, "6f1c1e1a-3b7d-4f3e-9d6e-2a2f5c1b8e01", export.RunID)
	assert.Equal(t, "2024-01-15T10:30:00Z", export.StartTime)
	assert.Equal(t, 1.25, export.Parameters["landSafety"])
	assert.Equal(t, int64(3), export.EndTick)
	assert.InDelta(t, 6.02, export.SimDuration, 1e-9)

	require.Len(t, export.Scenarios, 2)
	first := export.Scenarios[0]
	assert.Equal(t, "land-from-rest", first.Name)
	assert.Equal(t, "abc", first.Fingerprint)
	assert.True(t, first.Completed)
	assert.Equal(t, 201, first.Ticks)
	assert.Len(t, first.Frames, 2)
	assert.Equal(t, [][2]float64{{0, 1000}, {0, 80}}, first.Trajectory)

	row := export.Scenarios[1].Frames[0]
	require.Len(t, row, 13)
	assert.Equal(t, int64(3), row[0])
	assert.Equal(t, 1.0, row[2])
	assert.Equal(t, 120.0, row[3])
	assert.Equal(t, 0, row[10])
	assert.Equal(t, "HOVER", row[11])
	assert.Equal(t, 1, row[12])
}

func TestBuild_ResultWithoutFrames(t *testing.T) {
	export := Build(&RunData{
		Run:     testRun(),
		Results: []core.ScenarioResult{{Sequence: 4, Name: "land-sideways-low"}},
	})

	require.Len(t, export.Scenarios, 1)
	assert.Equal(t, 4, export.Scenarios[0].Sequence)
	assert.Empty(t, export.Scenarios[0].Frames)
}
