package handlers

import (
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flightctl/flightctl/internal/dispatcher"
	"github.com/flightctl/flightctl/internal/logging"
	"github.com/flightctl/flightctl/internal/storage"
	"github.com/flightctl/flightctl/pkg/core"
)

// mockBackend implements storage.Backend for testing
type mockBackend struct {
	mu      sync.Mutex
	frames  []core.TelemetryFrame
	results []core.ScenarioResult
	failOn  error
}

func (b *mockBackend) Init() error                  { return nil }
func (b *mockBackend) Close() error                 { return nil }
func (b *mockBackend) StartRun(run *core.Run) error { return nil }
func (b *mockBackend) EndRun() error                { return nil }

func (b *mockBackend) RecordFrame(f *core.TelemetryFrame) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failOn != nil {
		return b.failOn
	}
	b.frames = append(b.frames, *f)
	return nil
}

func (b *mockBackend) RecordResult(r *core.ScenarioResult) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.results = append(b.results, *r)
	return nil
}

var _ storage.Backend = (*mockBackend)(nil)

func newTestDispatcher(t *testing.T) *dispatcher.Dispatcher {
	t.Helper()
	d, err := dispatcher.New(logging.NewDispatcherLogger(zerolog.New(io.Discard)))
	require.NoError(t, err)
	return d
}

func TestPilotService_DrainEmpty(t *testing.T) {
	s := NewPilotService()
	assert.True(t, s.Drain().IsZero())
}

func TestPilotService_FoldsCommands(t *testing.T) {
	d := newTestDispatcher(t)
	s := NewPilotService()
	s.Register(d)

	for _, name := range PilotCommands {
		assert.True(t, d.HasHandler(name), name)
	}

	_, err := d.Dispatch(dispatcher.Event{Command: CmdSetMode, Args: []string{"hover"}})
	require.NoError(t, err)
	_, err = d.Dispatch(dispatcher.Event{Command: CmdThrottle, Args: []string{"0.5"}})
	require.NoError(t, err)
	_, err = d.Dispatch(dispatcher.Event{Command: CmdSteer, Args: []string{"-1"}})
	require.NoError(t, err)
	_, err = d.Dispatch(dispatcher.Event{Command: CmdIgniteToggle})
	require.NoError(t, err)
	_, err = d.Dispatch(dispatcher.Event{Command: CmdAirbrakesToggle})
	require.NoError(t, err)

	in := s.Drain()
	require.NotNil(t, in.SelectMode)
	assert.Equal(t, core.ModeHover, *in.SelectMode)
	assert.Equal(t, 0.5, in.Throttle)
	assert.Equal(t, -1.0, in.Steer)
	assert.True(t, in.ToggleIgnition)
	assert.True(t, in.ToggleAirbrakes)

	assert.True(t, s.Drain().IsZero(), "drain resets pending input")
}

func TestPilotService_DoubleToggleCancels(t *testing.T) {
	d := newTestDispatcher(t)
	s := NewPilotService()
	s.Register(d)

	require.NoError(t, DispatchScript(d, []core.PilotCommand{
		{Command: CmdIgniteToggle},
		{Command: CmdIgniteToggle},
	}))
	assert.False(t, s.Drain().ToggleIgnition)
}

func TestPilotService_DrainedModeIsDetached(t *testing.T) {
	d := newTestDispatcher(t)
	s := NewPilotService()
	s.Register(d)

	require.NoError(t, DispatchScript(d, []core.PilotCommand{{Command: CmdSetMode, Args: []string{"LAND"}}}))
	in := s.Drain()
	require.NoError(t, DispatchScript(d, []core.PilotCommand{{Command: CmdSetMode, Args: []string{"OFF"}}}))

	assert.Equal(t, core.ModeLand, *in.SelectMode)
}

func TestPilotService_RejectsBadArgs(t *testing.T) {
	d := newTestDispatcher(t)
	s := NewPilotService()
	s.Register(d)

	tests := []struct {
		name  string
		event dispatcher.Event
	}{
		{"mode missing", dispatcher.Event{Command: CmdSetMode}},
		{"mode unknown", dispatcher.Event{Command: CmdSetMode, Args: []string{"orbit"}}},
		{"throttle missing", dispatcher.Event{Command: CmdThrottle}},
		{"throttle range", dispatcher.Event{Command: CmdThrottle, Args: []string{"2"}}},
		{"throttle nan", dispatcher.Event{Command: CmdThrottle, Args: []string{"NaN"}}},
		{"steer garbage", dispatcher.Event{Command: CmdSteer, Args: []string{"left"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.Dispatch(tt.event)
			assert.Error(t, err)
		})
	}
	assert.True(t, s.Drain().IsZero())
}

func TestDispatchScript_UnknownCommand(t *testing.T) {
	d := newTestDispatcher(t)
	NewPilotService().Register(d)

	err := DispatchScript(d, []core.PilotCommand{{Tick: 7, Command: "warp"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, dispatcher.ErrUnknownCommand)
	assert.Contains(t, err.Error(), "tick 7")
}

func TestRecordingService_ForwardsDecimatedFrames(t *testing.T) {
	d := newTestDispatcher(t)
	backend := &mockBackend{}
	s := NewRecordingService(backend, 5, nil)
	s.Register(d)

	observe := s.FrameObserver(d)
	for tick := int64(1); tick <= 20; tick++ {
		observe(core.TelemetryFrame{Tick: tick})
	}
	require.NoError(t, s.RecordResult(d, core.ScenarioResult{Name: "land-from-rest", Completed: true}))
	d.Close()

	require.Len(t, backend.frames, 4)
	assert.Equal(t, int64(5), backend.frames[0].Tick)
	assert.Equal(t, int64(20), backend.frames[3].Tick)
	require.Len(t, backend.results, 1)
	assert.Equal(t, "land-from-rest", backend.results[0].Name)
	assert.Zero(t, s.Dropped())
}

func TestRecordingService_IntervalFloor(t *testing.T) {
	d := newTestDispatcher(t)
	backend := &mockBackend{}
	s := NewRecordingService(backend, 0, nil)
	s.Register(d)

	observe := s.FrameObserver(d)
	for tick := int64(1); tick <= 3; tick++ {
		observe(core.TelemetryFrame{Tick: tick})
	}
	d.Close()

	assert.Len(t, backend.frames, 3)
}

func TestRecordingService_BackendErrorDoesNotStopQueue(t *testing.T) {
	d := newTestDispatcher(t)
	backend := &mockBackend{failOn: errors.New("disk full")}
	s := NewRecordingService(backend, 1, nil)
	s.Register(d)

	s.FrameObserver(d)(core.TelemetryFrame{Tick: 1})
	require.NoError(t, s.RecordResult(d, core.ScenarioResult{Name: "after"}))
	d.Close()

	assert.Empty(t, backend.frames)
	assert.Len(t, backend.results, 1)
}

func TestRecordingService_RejectsWrongPayload(t *testing.T) {
	backend := &mockBackend{}
	s := NewRecordingService(backend, 1, nil)

	d := newTestDispatcher(t)
	s.Register(d)

	// Buffered handlers report queue acceptance, so the payload error is
	// only visible as a missing record.
	_, err := d.Dispatch(dispatcher.Event{Command: CmdRecordResult, Payload: "nope"})
	require.NoError(t, err)
	d.Close()
	assert.Empty(t, backend.results)
}
