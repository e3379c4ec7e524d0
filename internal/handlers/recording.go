package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/flightctl/flightctl/internal/dispatcher"
	"github.com/flightctl/flightctl/internal/sim"
	"github.com/flightctl/flightctl/internal/storage"
	"github.com/flightctl/flightctl/pkg/core"
)

// Recording command names.
const (
	CmdRecordFrame  = "record_frame"
	CmdRecordResult = "record_result"
)

// Queue sizes for the recording handlers.
const (
	FrameQueueSize  = 10_000
	ResultQueueSize = 100
)

var ErrBadPayload = errors.New("unexpected payload type")

// RecordingService forwards telemetry frames and scenario results to a
// storage backend off the flight loop's goroutine.
type RecordingService struct {
	backend       storage.Backend
	frameInterval int64
	logger        *slog.Logger

	dropped atomic.Int64
}

// NewRecordingService records every frameInterval-th frame. An interval
// below one records every frame.
func NewRecordingService(backend storage.Backend, frameInterval int, logger *slog.Logger) *RecordingService {
	if frameInterval < 1 {
		frameInterval = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RecordingService{
		backend:       backend,
		frameInterval: int64(frameInterval),
		logger:        logger,
	}
}

// Register installs the recording handlers. Frames are dropped when the
// backend falls behind; results are never dropped.
func (s *RecordingService) Register(d *dispatcher.Dispatcher) {
	d.Register(CmdRecordFrame, func(e dispatcher.Event) (any, error) {
		f, ok := e.Payload.(*core.TelemetryFrame)
		if !ok {
			return nil, fmt.Errorf("%w: %s got %T", ErrBadPayload, CmdRecordFrame, e.Payload)
		}
		if err := s.backend.RecordFrame(f); err != nil {
			s.logger.Warn("Failed to record frame", "tick", f.Tick, "error", err)
			return nil, err
		}
		return nil, nil
	}, dispatcher.Buffered(FrameQueueSize))

	d.Register(CmdRecordResult, func(e dispatcher.Event) (any, error) {
		r, ok := e.Payload.(*core.ScenarioResult)
		if !ok {
			return nil, fmt.Errorf("%w: %s got %T", ErrBadPayload, CmdRecordResult, e.Payload)
		}
		if err := s.backend.RecordResult(r); err != nil {
			s.logger.Error("Failed to record scenario result", "scenario", r.Name, "error", err)
			return nil, err
		}
		return nil, nil
	}, dispatcher.Buffered(ResultQueueSize), dispatcher.Blocking(), dispatcher.Logged())
}

// FrameObserver returns a simulation observer that dispatches every
// frameInterval-th frame for recording.
func (s *RecordingService) FrameObserver(d *dispatcher.Dispatcher) sim.Observer {
	return func(f core.TelemetryFrame) {
		if f.Tick%s.frameInterval != 0 {
			return
		}
		if _, err := d.Dispatch(dispatcher.Event{Command: CmdRecordFrame, Payload: &f}); err != nil {
			s.dropped.Add(1)
		}
	}
}

// RecordResult queues a scenario result. It blocks while the queue is full.
func (s *RecordingService) RecordResult(d *dispatcher.Dispatcher, r core.ScenarioResult) error {
	_, err := d.Dispatch(dispatcher.Event{Command: CmdRecordResult, Payload: &r})
	return err
}

// Dropped is the number of frames discarded because the queue was full.
func (s *RecordingService) Dropped() int64 {
	return s.dropped.Load()
}
