// Package convert provides functions to convert between GORM models and core models
package convert

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"

	"github.com/flightctl/flightctl/internal/model"
	"github.com/flightctl/flightctl/pkg/core"
)

// vecToPoint converts a world-frame vector to a geom.Point
func vecToPoint(v mgl64.Vec2) geom.Point {
	return geom.NewPoint(geom.Coordinates{XY: geom.XY{X: v.X(), Y: v.Y()}})
}

// pathToLineString converts a sampled trajectory to a geom.LineString
func pathToLineString(path []mgl64.Vec2) geom.LineString {
	if len(path) == 0 {
		return geom.LineString{}
	}
	coords := make([]float64, 0, len(path)*2)
	for _, p := range path {
		coords = append(coords, p.X(), p.Y())
	}
	return geom.NewLineString(geom.NewSequence(coords, geom.DimXY))
}

// parametersToJSON converts the run's parameter map for DB storage.
func parametersToJSON(params map[string]float64) datatypes.JSON {
	if len(params) == 0 {
		return datatypes.JSON("{}")
	}
	data, _ := json.Marshal(params)
	return datatypes.JSON(data)
}

// CoreToRun converts a core.Run to a GORM model.Run.
func CoreToRun(r core.Run, tag string) model.Run {
	return model.Run{
		RunUUID:    r.ID.String(),
		Label:      r.Label,
		StartTime:  r.StartTime,
		Tag:        tag,
		Parameters: parametersToJSON(r.Parameters),
	}
}

// CoreToScenarioResult converts a core.ScenarioResult to a GORM model.
// RunID is stamped by the writer.
func CoreToScenarioResult(r core.ScenarioResult) model.ScenarioResult {
	out := model.ScenarioResult{
		Time:        time.Now(),
		Sequence:    r.Sequence,
		Name:        r.Name,
		Fingerprint: strconv.FormatUint(r.Fingerprint, 16),
		Completed:   r.Completed,
		FuelUsed:    r.FuelUsed,
		TimeTaken:   r.TimeTaken,
		Ticks:       r.Ticks,
		MinAltitude: r.MinAltitude,
		MaxTWR:      r.MaxTWR,
		Trajectory:  pathToLineString(r.Trajectory),
	}
	if n := len(r.Trajectory); n > 0 {
		out.FinalPoint = vecToPoint(r.Trajectory[n-1])
	}
	return out
}

// CoreToTelemetrySample converts a core.TelemetryFrame to a GORM model.
func CoreToTelemetrySample(f core.TelemetryFrame) model.TelemetrySample {
	t := f.Telemetry
	return model.TelemetrySample{
		Time:            time.Now(),
		Tick:            f.Tick,
		SimTime:         f.Time,
		ScenarioName:    f.Scenario,
		Position:        vecToPoint(t.Position),
		VelocityX:       t.Velocity.X(),
		VelocityY:       t.Velocity.Y(),
		Angle:           t.Angle,
		AngularVelocity: t.AngularVelocity,
		Thrust:          f.Thrust,
		Gimbal:          f.Gimbal,
		Ignited:         f.Ignited,
		Mode:            f.Mode.String(),
		Airbrakes:       f.Airbrakes,
		FuelUsed:        f.FuelUsed,
	}
}
