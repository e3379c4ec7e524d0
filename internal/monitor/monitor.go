// Package monitor periodically reports run progress: a log line, a status
// file and OTel gauges.
package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/flightctl/flightctl/internal/logging"
	"github.com/flightctl/flightctl/internal/mission"
	"github.com/flightctl/flightctl/internal/model"
)

const instrumentationName = "github.com/flightctl/flightctl/internal/monitor"

// WriterStats is implemented by backends that batch writes to a database.
type WriterStats interface {
	GetLastDBWriteDuration() time.Duration
	QueueLengths() model.WriteQueueLengths
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	LogManager     *logging.SlogManager
	MissionContext *mission.Context
	// Writer is optional; backends without a DB writer leave it nil.
	Writer     WriterStats
	StatusFile string
	Interval   time.Duration
}

// Status is the snapshot written to the status file.
type Status struct {
	Time                time.Time               `json:"time"`
	Progress            mission.Progress        `json:"progress"`
	WriteQueueLengths   model.WriteQueueLengths `json:"writeQueueLengths"`
	LastWriteDurationMs float64                 `json:"lastWriteDurationMs"`
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	done      chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	if deps.Interval <= 0 {
		deps.Interval = 5 * time.Second
	}
	return &Service{deps: deps}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetStatus returns the current program status
func (s *Service) GetStatus() Status {
	st := Status{
		Time:     time.Now(),
		Progress: s.deps.MissionContext.Progress(),
	}
	if s.deps.Writer != nil {
		st.WriteQueueLengths = s.deps.Writer.QueueLengths()
		st.LastWriteDurationMs = float64(s.deps.Writer.GetLastDBWriteDuration().Microseconds()) / 1000
	}
	return st
}

// WriteStatusFile replaces the status file with st as indented JSON.
func (s *Service) WriteStatusFile(st Status) error {
	if s.deps.StatusFile == "" {
		return nil
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding status: %w", err)
	}
	if err := os.WriteFile(s.deps.StatusFile, data, 0644); err != nil {
		return fmt.Errorf("writing status file: %w", err)
	}
	return nil
}

// registerGauges exposes the progress counters to the global meter.
func (s *Service) registerGauges() (metric.Registration, error) {
	m := otel.Meter(instrumentationName)
	completed, err := m.Int64ObservableGauge("monitor.scenarios.completed",
		metric.WithDescription("Scenarios completed in the current run"))
	if err != nil {
		return nil, fmt.Errorf("creating completed gauge: %w", err)
	}
	timedOut, err := m.Int64ObservableGauge("monitor.scenarios.timed_out",
		metric.WithDescription("Scenarios that hit the tick cap in the current run"))
	if err != nil {
		return nil, fmt.Errorf("creating timed out gauge: %w", err)
	}
	altitude, err := m.Float64ObservableGauge("monitor.altitude",
		metric.WithDescription("Altitude at the latest frame"), metric.WithUnit("m"))
	if err != nil {
		return nil, fmt.Errorf("creating altitude gauge: %w", err)
	}

	return m.RegisterCallback(func(ctx context.Context, o metric.Observer) error {
		p := s.deps.MissionContext.Progress()
		o.ObserveInt64(completed, int64(p.Completed))
		o.ObserveInt64(timedOut, int64(p.TimedOut))
		o.ObserveFloat64(altitude, p.Altitude)
		return nil
	}, completed, timedOut, altitude)
}

// Start starts the status monitor goroutine
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	reg, err := s.registerGauges()
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stopChan, s.done
	s.mu.Unlock()

	go func() {
		defer close(done)
		defer func() {
			_ = reg.Unregister()
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
		}()

		logger := s.deps.LogManager.Logger()
		logger.Debug("Starting status monitor", "interval", s.deps.Interval)

		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				st := s.GetStatus()
				if st.Progress.RunID == "" {
					continue
				}
				p := st.Progress
				logger.Info("Progress",
					"scenario", p.Scenario,
					"sequence", p.Sequence,
					"total", p.Total,
					"completed", p.Completed,
					"timedOut", p.TimedOut,
					"simTime", p.SimTime,
					"altitude", p.Altitude,
					"mode", p.Mode.String())
				if err := s.WriteStatusFile(st); err != nil {
					logger.Error("Error writing status file", "error", err)
				}
			}
		}
	}()

	return nil
}

// Stop stops the status monitor and waits for it to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	close(s.stopChan)
	done := s.done
	s.mu.Unlock()
	<-done
}
