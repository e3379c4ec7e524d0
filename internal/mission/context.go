// Package mission tracks what the flight loop is doing right now so other
// goroutines (log enrichment, progress monitor) can read it safely.
package mission

import (
	"sync"

	"github.com/flightctl/flightctl/internal/logging"
	"github.com/flightctl/flightctl/pkg/core"
)

// Progress is a point-in-time view of a harness execution.
type Progress struct {
	RunID     string
	Label     string
	Scenario  string
	Sequence  int
	Total     int
	Completed int
	TimedOut  int
	Ticks     int64
	SimTime   float64
	Altitude  float64
	Mode      core.Mode
}

// Context holds the active run and scenario.
type Context struct {
	mu       sync.RWMutex
	run      *core.Run
	progress Progress
}

// NewContext creates a new Context with default values
func NewContext() *Context {
	return &Context{
		run:      &core.Run{Label: "No run started"},
		progress: Progress{Scenario: "idle"},
	}
}

// GetRun returns the current run
func (c *Context) GetRun() *core.Run {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.run
}

// SetRun starts tracking a new run of total scenarios.
func (c *Context) SetRun(run *core.Run, total int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.run = run
	c.progress = Progress{
		RunID:    run.ID.String(),
		Label:    run.Label,
		Scenario: "idle",
		Total:    total,
	}
}

// StartScenario records that scenario seq is now flying.
func (c *Context) StartScenario(name string, seq int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.progress.Scenario = name
	c.progress.Sequence = seq
}

// FinishScenario counts a reported result.
func (c *Context) FinishScenario(completed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if completed {
		c.progress.Completed++
	} else {
		c.progress.TimedOut++
	}
	c.progress.Scenario = "idle"
}

// UpdateFrame stores the latest frame summary.
func (c *Context) UpdateFrame(f core.TelemetryFrame) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.progress.Ticks = f.Tick
	c.progress.SimTime = f.Time
	c.progress.Altitude = f.Telemetry.Altitude()
	c.progress.Mode = f.Mode
}

// Progress returns a copy of the current progress.
func (c *Context) Progress() Progress {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.progress
}

// RunInfo is a logging.RunInfoFunc describing the run, scenario and mode
// in flight.
func (c *Context) RunInfo() logging.RunInfo {
	p := c.Progress()
	return logging.RunInfo{
		RunID:    p.RunID,
		Scenario: p.Scenario,
		Mode:     p.Mode.String(),
		Tick:     p.Ticks,
	}
}
