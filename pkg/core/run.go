// pkg/core/run.go
package core

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
)

// Run groups the results of one harness execution.
type Run struct {
	ID         uuid.UUID          `json:"id"`
	Label      string             `json:"label"`
	StartTime  time.Time          `json:"startTime"`
	Parameters map[string]float64 `json:"parameters,omitempty"`
}

// NewRun creates a run with a fresh ID.
func NewRun(label string, params map[string]float64) Run {
	return Run{
		ID:         uuid.New(),
		Label:      label,
		StartTime:  time.Now(),
		Parameters: params,
	}
}

// ScenarioResult is the score reported when a scenario completes or times out.
// TimeTaken is simulated seconds.
type ScenarioResult struct {
	Sequence    int          `json:"sequence"`
	Name        string       `json:"name"`
	Fingerprint uint64       `json:"fingerprint"`
	FuelUsed    float64      `json:"fuelUsed"`
	TimeTaken   float64      `json:"timeTaken"`
	Ticks       int          `json:"ticks"`
	Completed   bool         `json:"completed"`
	MinAltitude float64      `json:"minAltitude"`
	MaxTWR      float64      `json:"maxTwr"`
	Trajectory  []mgl64.Vec2 `json:"trajectory,omitempty"`
}

// TelemetryFrame is the per-tick record handed to recording backends.
type TelemetryFrame struct {
	Tick      int64     `json:"tick"`
	Time      float64   `json:"time"`
	Scenario  string    `json:"scenario,omitempty"`
	Telemetry Telemetry `json:"telemetry"`
	Thrust    float64   `json:"thrust"`
	Gimbal    float64   `json:"gimbal"`
	Ignited   bool      `json:"ignited"`
	Mode      Mode      `json:"mode"`
	Airbrakes bool      `json:"airbrakes"`
	FuelUsed  float64   `json:"fuelUsed"`
}

// UploadMetadata describes an exported recording for the results server.
type UploadMetadata struct {
	RunID         string  `json:"runId"`
	Label         string  `json:"label"`
	ScenarioCount int     `json:"scenarioCount"`
	Completed     int     `json:"completed"`
	SimDuration   float64 `json:"simDuration"`
	Tag           string  `json:"tag"`
}
