// Package v1 contains the v1 export format for recorded flight runs.
package v1

// FormatVersion is written into every export.
const FormatVersion = "1"

// Export is the root JSON structure for v1 format
type Export struct {
	Version     string             `json:"version"`
	RunID       string             `json:"runId"`
	Label       string             `json:"label"`
	StartTime   string             `json:"startTime"`
	Parameters  map[string]float64 `json:"parameters"`
	EndTick     int64              `json:"endTick"`
	SimDuration float64            `json:"simDuration"`
	Scenarios   []Scenario         `json:"scenarios"`
}

// Scenario holds one scenario's score and its sampled frames.
//
// Frames format: [tick, time, x, y, vx, vy, angle, angularVelocity,
// thrust, gimbal, ignited, mode, airbrakes]
type Scenario struct {
	Sequence    int          `json:"sequence"`
	Name        string       `json:"name"`
	Fingerprint string       `json:"fingerprint,omitempty"`
	Completed   bool         `json:"completed"`
	FuelUsed    float64      `json:"fuelUsed"`
	TimeTaken   float64      `json:"timeTaken"`
	Ticks       int          `json:"ticks"`
	MinAltitude float64      `json:"minAltitude"`
	MaxTWR      float64      `json:"maxTwr"`
	Trajectory  [][2]float64 `json:"trajectory"`
	Frames      [][]any      `json:"frames"`
}
