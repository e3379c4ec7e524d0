// Package streaming defines the wire envelopes for live run streaming.
package streaming

import (
	"encoding/json"

	"github.com/flightctl/flightctl/pkg/core"
)

// Message type constants matching the streaming protocol.
const (
	TypeStartRun       = "start_run"
	TypeEndRun         = "end_run"
	TypeTelemetryFrame = "telemetry_frame"
	TypeScenarioResult = "scenario_result"
	TypeResume         = "resume"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the server's acknowledgement response.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
}

// StartRunPayload carries the run header.
type StartRunPayload struct {
	Run *core.Run `json:"run"`
	Tag string    `json:"tag,omitempty"`
}

// ResumePayload follows a replayed start_run after a reconnect. It names
// the last scenario result and frame queued before the socket dropped so
// the server can detect a gap.
type ResumePayload struct {
	RunID    string `json:"runId"`
	Sequence int    `json:"sequence"`
	Scenario string `json:"scenario,omitempty"`
	Tick     int64  `json:"tick"`
}
