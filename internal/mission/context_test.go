package mission

import (
	"sync"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"

	"github.com/flightctl/flightctl/internal/logging"
	"github.com/flightctl/flightctl/pkg/core"
)

func TestContext_Defaults(t *testing.T) {
	ctx := NewContext()

	assert.Equal(t, "No run started", ctx.GetRun().Label)
	assert.Equal(t, "idle", ctx.Progress().Scenario)
	assert.Empty(t, ctx.RunInfo().RunID)
}

func TestContext_Lifecycle(t *testing.T) {
	ctx := NewContext()
	run := core.NewRun("nightly", nil)

	ctx.SetRun(&run, 3)
	ctx.StartScenario("land-from-rest", 1)
	ctx.UpdateFrame(core.TelemetryFrame{
		Tick:      42,
		Time:      0.84,
		Telemetry: core.NewTelemetry(mgl64.Vec2{0, 512}, mgl64.Vec2{}, 0, 0),
		Mode:      core.ModeLand,
	})

	p := ctx.Progress()
	assert.Equal(t, run.ID.String(), p.RunID)
	assert.Equal(t, "land-from-rest", p.Scenario)
	assert.Equal(t, 3, p.Total)
	assert.Equal(t, int64(42), p.Ticks)
	assert.Equal(t, 512.0, p.Altitude)
	assert.Equal(t, core.ModeLand, p.Mode)

	assert.Equal(t, logging.RunInfo{
		RunID:    run.ID.String(),
		Scenario: "land-from-rest",
		Mode:     "LAND",
		Tick:     42,
	}, ctx.RunInfo())

	ctx.FinishScenario(true)
	ctx.FinishScenario(false)
	p = ctx.Progress()
	assert.Equal(t, 1, p.Completed)
	assert.Equal(t, 1, p.TimedOut)
	assert.Equal(t, "idle", p.Scenario)
}

func TestContext_ConcurrentAccess(t *testing.T) {
	ctx := NewContext()
	run := core.NewRun("race", nil)
	ctx.SetRun(&run, 100)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := range 1000 {
			ctx.UpdateFrame(core.TelemetryFrame{Tick: int64(i)})
		}
	}()
	go func() {
		defer wg.Done()
		for range 1000 {
			_ = ctx.Progress()
			_ = ctx.RunInfo()
		}
	}()
	wg.Wait()

	assert.Equal(t, int64(999), ctx.Progress().Ticks)
}
