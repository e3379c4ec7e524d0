// Package handlers binds dispatcher commands to the flight loop: pilot
// commands fold into the next tick's input and recording commands forward
// frames and results to the storage backend.
package handlers

import (
	"fmt"
	"sync"

	"github.com/flightctl/flightctl/internal/autopilot"
	"github.com/flightctl/flightctl/internal/dispatcher"
	"github.com/flightctl/flightctl/internal/parser"
	"github.com/flightctl/flightctl/pkg/core"
)

// Pilot command names.
const (
	CmdIgniteToggle    = "ignite_toggle"
	CmdSetMode         = "set_mode"
	CmdThrottle        = "throttle"
	CmdSteer           = "steer"
	CmdAirbrakesToggle = "airbrakes_toggle"
)

// PilotCommands lists every pilot command PilotService registers.
var PilotCommands = []string{CmdIgniteToggle, CmdSetMode, CmdThrottle, CmdSteer, CmdAirbrakesToggle}

// PilotService accumulates pilot commands between ticks. Commands may arrive
// from any goroutine; the flight loop collects them with Drain.
type PilotService struct {
	mu      sync.Mutex
	pending autopilot.Input
	mode    core.Mode
}

// NewPilotService creates an empty pilot service.
func NewPilotService() *PilotService {
	return &PilotService{}
}

// Register installs the pilot command handlers. They run synchronously so a
// command dispatched before a tick always lands in that tick.
func (s *PilotService) Register(d *dispatcher.Dispatcher) {
	d.Register(CmdIgniteToggle, func(e dispatcher.Event) (any, error) {
		s.mu.Lock()
		s.pending.ToggleIgnition = !s.pending.ToggleIgnition
		s.mu.Unlock()
		return nil, nil
	}, dispatcher.Logged())

	d.Register(CmdAirbrakesToggle, func(e dispatcher.Event) (any, error) {
		s.mu.Lock()
		s.pending.ToggleAirbrakes = !s.pending.ToggleAirbrakes
		s.mu.Unlock()
		return nil, nil
	}, dispatcher.Logged())

	d.Register(CmdSetMode, func(e dispatcher.Event) (any, error) {
		if len(e.Args) < 1 {
			return nil, fmt.Errorf("%s: missing mode", CmdSetMode)
		}
		m, err := core.ParseMode(e.Args[0])
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.mode = m
		s.pending.SelectMode = &s.mode
		s.mu.Unlock()
		return m.String(), nil
	}, dispatcher.Logged())

	d.Register(CmdThrottle, s.axisHandler(CmdThrottle, func(in *autopilot.Input, v float64) {
		in.Throttle = v
	}), dispatcher.Logged())

	d.Register(CmdSteer, s.axisHandler(CmdSteer, func(in *autopilot.Input, v float64) {
		in.Steer = v
	}), dispatcher.Logged())
}

func (s *PilotService) axisHandler(name string, set func(*autopilot.Input, float64)) dispatcher.HandlerFunc {
	return func(e dispatcher.Event) (any, error) {
		if len(e.Args) < 1 {
			return nil, fmt.Errorf("%s: missing axis value", name)
		}
		v, err := parser.ParseAxis(e.Args[0])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		s.mu.Lock()
		set(&s.pending, v)
		s.mu.Unlock()
		return v, nil
	}
}

// Drain returns the input accumulated since the last call and resets it.
// Two toggles of the same control within one tick cancel out; the last
// mode selection and axis value win.
func (s *PilotService) Drain() autopilot.Input {
	s.mu.Lock()
	defer s.mu.Unlock()
	in := s.pending
	if in.SelectMode != nil {
		m := *in.SelectMode
		in.SelectMode = &m
	}
	s.pending = autopilot.Input{}
	return in
}

// DispatchScript sends every command in cmds through d. It stops at the
// first error.
func DispatchScript(d *dispatcher.Dispatcher, cmds []core.PilotCommand) error {
	for _, c := range cmds {
		if _, err := d.Dispatch(dispatcher.Event{Command: c.Command, Args: c.Args}); err != nil {
			return fmt.Errorf("tick %d %s: %w", c.Tick, c.Command, err)
		}
	}
	return nil
}
