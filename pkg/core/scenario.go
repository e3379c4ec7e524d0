// pkg/core/scenario.go
package core

import (
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/zeebo/xxh3"
)

// PilotCommand is one scripted pilot input, issued at Tick frames after the
// scenario starts.
type PilotCommand struct {
	Tick    int      `json:"tick"`
	Command string   `json:"command"`
	Args    []string `json:"args,omitempty"`
}

// Scenario is an initial flight condition plus the autopilot mode to engage.
type Scenario struct {
	Name                string         `json:"name"`
	Position            mgl64.Vec2     `json:"position"`
	Velocity            mgl64.Vec2     `json:"velocity"`
	Angle               float64        `json:"angle"`
	AngularVelocity     float64        `json:"angularVelocity"`
	Mode                Mode           `json:"mode"`
	IgnoreAltitudeCheck bool           `json:"ignoreAltitudeCheck,omitempty"`
	Pilot               []PilotCommand `json:"pilot,omitempty"`
}

// Fingerprint identifies the scenario definition, independent of its name.
// Results recorded under the same fingerprint are comparable across runs.
func (s Scenario) Fingerprint() uint64 {
	var b strings.Builder
	fmt.Fprintf(&b, "%g,%g|%g,%g|%g|%g|%s|%t",
		s.Position.X(), s.Position.Y(),
		s.Velocity.X(), s.Velocity.Y(),
		s.Angle, s.AngularVelocity, s.Mode, s.IgnoreAltitudeCheck)
	for _, c := range s.Pilot {
		fmt.Fprintf(&b, "|%d:%s:%s", c.Tick, c.Command, strings.Join(c.Args, " "))
	}
	return xxh3.HashString(b.String())
}
