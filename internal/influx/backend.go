package influx

import (
	"context"
	"fmt"
	"sync"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/flightctl/flightctl/pkg/core"
)

// Backend records a run as InfluxDB points. Frames are timestamped at the
// run's wall-clock start plus the simulated time, so a run replays on a
// dashboard at its simulated pace.
type Backend struct {
	manager *Manager
	tag     string

	mu  sync.Mutex
	run *core.Run
}

// NewBackend wraps a manager. Connect is deferred to Init.
func NewBackend(m *Manager, tag string) *Backend {
	return &Backend{manager: m, tag: tag}
}

func (b *Backend) Init() error {
	return b.manager.Connect(context.Background())
}

func (b *Backend) Close() error {
	return b.manager.Close()
}

func (b *Backend) StartRun(run *core.Run) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.run = run
	return nil
}

func (b *Backend) EndRun() error {
	b.mu.Lock()
	b.run = nil
	b.mu.Unlock()
	return b.manager.Flush()
}

func (b *Backend) current() (*core.Run, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.run == nil {
		return nil, fmt.Errorf("influx: no run started")
	}
	return b.run, nil
}

func (b *Backend) RecordFrame(f *core.TelemetryFrame) error {
	run, err := b.current()
	if err != nil {
		return err
	}
	return b.manager.WritePoint(BucketTelemetry, FramePoint(run, b.tag, f))
}

func (b *Backend) RecordResult(r *core.ScenarioResult) error {
	run, err := b.current()
	if err != nil {
		return err
	}
	return b.manager.WritePoint(BucketResults, ResultPoint(run, b.tag, r))
}

func simTimestamp(run *core.Run, simTime float64) time.Time {
	return run.StartTime.Add(time.Duration(simTime * float64(time.Second)))
}

// FramePoint converts a telemetry frame to a "telemetry" point.
func FramePoint(run *core.Run, tag string, f *core.TelemetryFrame) *influxdb2_write.Point {
	t := f.Telemetry
	return withTags(influxdb2_write.NewPoint(
		"telemetry",
		nil,
		map[string]any{
			"tick":             f.Tick,
			"x":                t.Position.X(),
			"y":                t.Position.Y(),
			"vx":               t.Velocity.X(),
			"vy":               t.Velocity.Y(),
			"angle":            t.Angle,
			"angular_velocity": t.AngularVelocity,
			"thrust":           f.Thrust,
			"gimbal":           f.Gimbal,
			"ignited":          f.Ignited,
			"mode":             f.Mode.String(),
			"airbrakes":        f.Airbrakes,
			"fuel_used":        f.FuelUsed,
		},
		simTimestamp(run, f.Time),
	), map[string]string{
		"run":      run.ID.String(),
		"label":    run.Label,
		"tag":      tag,
		"scenario": f.Scenario,
	})
}

// ResultPoint converts a scenario result to a "scenario_result" point.
func ResultPoint(run *core.Run, tag string, r *core.ScenarioResult) *influxdb2_write.Point {
	return withTags(influxdb2_write.NewPoint(
		"scenario_result",
		nil,
		map[string]any{
			"sequence":     r.Sequence,
			"completed":    r.Completed,
			"fuel_used":    r.FuelUsed,
			"time_taken":   r.TimeTaken,
			"ticks":        r.Ticks,
			"min_altitude": r.MinAltitude,
			"max_twr":      r.MaxTWR,
		},
		time.Now(),
	), map[string]string{
		"run":         run.ID.String(),
		"label":       run.Label,
		"tag":         tag,
		"scenario":    r.Name,
		"fingerprint": fmt.Sprintf("%016x", r.Fingerprint),
	})
}

// withTags skips empty values, which line protocol cannot carry.
func withTags(p *influxdb2_write.Point, tags map[string]string) *influxdb2_write.Point {
	for k, v := range tags {
		if v != "" {
			p.AddTag(k, v)
		}
	}
	return p.SortTags()
}
