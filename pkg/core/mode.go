package core

import (
	"fmt"
	"strings"
)

// Mode selects the autopilot control law.
type Mode int

const (
	ModeOff Mode = iota
	ModeAssist
	ModeStabilize
	ModeHover
	ModeLand
)

var modeNames = [...]string{
	ModeOff:       "OFF",
	ModeAssist:    "ASSIST",
	ModeStabilize: "STABILIZE",
	ModeHover:     "HOVER",
	ModeLand:      "LAND",
}

// Modes lists every mode in selector order.
func Modes() []Mode {
	return []Mode{ModeOff, ModeAssist, ModeStabilize, ModeHover, ModeLand}
}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return fmt.Sprintf("Mode(%d)", int(m))
	}
	return modeNames[m]
}

// Valid reports whether m is one of the defined modes.
func (m Mode) Valid() bool {
	return m >= ModeOff && m <= ModeLand
}

// AttitudeHold reports whether the mode runs the attitude controller.
func (m Mode) AttitudeHold() bool {
	return m == ModeStabilize || m == ModeHover || m == ModeLand
}

// ParseMode accepts a mode name (case-insensitive) or its selector digit 0-4.
func ParseMode(s string) (Mode, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for _, m := range Modes() {
		if s == modeNames[m] || s == fmt.Sprint(int(m)) {
			return m, nil
		}
	}
	return ModeOff, fmt.Errorf("unknown autopilot mode %q", s)
}

func (m Mode) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("invalid autopilot mode %d", int(m))
	}
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(b []byte) error {
	parsed, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
