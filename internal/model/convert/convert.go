package convert

import (
	"encoding/json"
	"strconv"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	geom "github.com/peterstace/simplefeatures/geom"

	"github.com/flightctl/flightctl/internal/model"
	"github.com/flightctl/flightctl/pkg/core"
)

// pointToVec converts a geom.Point to a vector. Empty points map to zero.
func pointToVec(p geom.Point) mgl64.Vec2 {
	coord, ok := p.Coordinates()
	if !ok {
		return mgl64.Vec2{}
	}
	return mgl64.Vec2{coord.XY.X, coord.XY.Y}
}

// lineStringToPath converts a geom.LineString to a trajectory
func lineStringToPath(ls geom.LineString) []mgl64.Vec2 {
	seq := ls.Coordinates()
	if seq.Length() == 0 {
		return nil
	}
	path := make([]mgl64.Vec2, seq.Length())
	for i := 0; i < seq.Length(); i++ {
		pt := seq.GetXY(i)
		path[i] = mgl64.Vec2{pt.X, pt.Y}
	}
	return path
}

// RunToCore converts a GORM Run to a core.Run. An unparseable UUID yields
// the nil UUID.
func RunToCore(r model.Run) core.Run {
	id, _ := uuid.Parse(r.RunUUID)
	var params map[string]float64
	if len(r.Parameters) > 0 {
		_ = json.Unmarshal(r.Parameters, &params)
	}
	return core.Run{
		ID:         id,
		Label:      r.Label,
		StartTime:  r.StartTime,
		Parameters: params,
	}
}

// ScenarioResultToCore converts a GORM ScenarioResult to a core.ScenarioResult.
func ScenarioResultToCore(r model.ScenarioResult) core.ScenarioResult {
	fp, _ := strconv.ParseUint(r.Fingerprint, 16, 64)
	return core.ScenarioResult{
		Sequence:    r.Sequence,
		Name:        r.Name,
		Fingerprint: fp,
		FuelUsed:    r.FuelUsed,
		TimeTaken:   r.TimeTaken,
		Ticks:       r.Ticks,
		Completed:   r.Completed,
		MinAltitude: r.MinAltitude,
		MaxTWR:      r.MaxTWR,
		Trajectory:  lineStringToPath(r.Trajectory),
	}
}

// TelemetrySampleToCore converts a GORM TelemetrySample to a core.TelemetryFrame.
func TelemetrySampleToCore(s model.TelemetrySample) core.TelemetryFrame {
	mode, err := core.ParseMode(s.Mode)
	if err != nil {
		mode = core.ModeOff
	}
	return core.TelemetryFrame{
		Tick:     s.Tick,
		Time:     s.SimTime,
		Scenario: s.ScenarioName,
		Telemetry: core.Telemetry{
			Position:        pointToVec(s.Position),
			Velocity:        mgl64.Vec2{s.VelocityX, s.VelocityY},
			Angle:           s.Angle,
			AngularVelocity: s.AngularVelocity,
		},
		Thrust:    s.Thrust,
		Gimbal:    s.Gimbal,
		Ignited:   s.Ignited,
		Mode:      mode,
		Airbrakes: s.Airbrakes,
		FuelUsed:  s.FuelUsed,
	}
}
