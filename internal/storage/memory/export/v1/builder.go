package v1

import (
	"strconv"
	"time"

	"github.com/elliotchance/orderedmap/v2"

	"github.com/flightctl/flightctl/pkg/core"
)

// RunData contains all the data needed to build an export
type RunData struct {
	Run     *core.Run
	Frames  []core.TelemetryFrame
	Results []core.ScenarioResult
}

// Build creates an Export from the run data. Scenarios appear in the order
// they were first seen, frames or result, whichever came first.
func Build(data *RunData) Export {
	export := Export{
		Version:    FormatVersion,
		RunID:      data.Run.ID.String(),
		Label:      data.Run.Label,
		StartTime:  data.Run.StartTime.UTC().Format(time.RFC3339),
		Parameters: data.Run.Parameters,
		Scenarios:  make([]Scenario, 0),
	}
	if export.Parameters == nil {
		export.Parameters = map[string]float64{}
	}

	scenarios := orderedmap.NewOrderedMap[string, *Scenario]()
	get := func(name string) *Scenario {
		if s, ok := scenarios.Get(name); ok {
			return s
		}
		s := &Scenario{
			Name:       name,
			Trajectory: make([][2]float64, 0),
			Frames:     make([][]any, 0),
		}
		scenarios.Set(name, s)
		return s
	}

	for _, f := range data.Frames {
		s := get(f.Scenario)
		s.Frames = append(s.Frames, frameRow(f))
		if f.Tick > export.EndTick {
			export.EndTick = f.Tick
		}
	}

	for _, r := range data.Results {
		s := get(r.Name)
		s.Sequence = r.Sequence
		s.Fingerprint = strconv.FormatUint(r.Fingerprint, 16)
		s.Completed = r.Completed
		s.FuelUsed = r.FuelUsed
		s.TimeTaken = r.TimeTaken
		s.Ticks = r.Ticks
		s.MinAltitude = r.MinAltitude
		s.MaxTWR = r.MaxTWR
		for _, p := range r.Trajectory {
			s.Trajectory = append(s.Trajectory, [2]float64{p.X(), p.Y()})
		}
		export.SimDuration += r.TimeTaken
	}

	for el := scenarios.Front(); el != nil; el = el.Next() {
		export.Scenarios = append(export.Scenarios, *el.Value)
	}
	return export
}

func frameRow(f core.TelemetryFrame) []any {
	t := f.Telemetry
	return []any{
		f.Tick,
		f.Time,
		t.Position.X(),
		t.Position.Y(),
		t.Velocity.X(),
		t.Velocity.Y(),
		t.Angle,
		t.AngularVelocity,
		f.Thrust,
		f.Gimbal,
		boolToInt(f.Ignited),
		f.Mode.String(),
		boolToInt(f.Airbrakes),
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
