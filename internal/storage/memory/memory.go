// internal/storage/memory/memory.go
package memory

import (
	"errors"
	"sync"

	"github.com/flightctl/flightctl/internal/config"
	"github.com/flightctl/flightctl/pkg/core"
)

var ErrNoRun = errors.New("no run started")

// Backend keeps a run in memory and exports it to JSON when the run ends.
type Backend struct {
	cfg config.MemoryConfig
	run *core.Run

	frames  []core.TelemetryFrame
	results []core.ScenarioResult

	lastExportPath string
	lastMeta       core.UploadMetadata
	mu             sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{cfg: cfg}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// StartRun begins recording a new run
func (b *Backend) StartRun(run *core.Run) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.run = run
	b.frames = nil
	b.results = nil
	return nil
}

// EndRun finalizes and exports the run data
func (b *Backend) EndRun() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.run == nil {
		return ErrNoRun
	}
	return b.exportJSON()
}

// RecordFrame appends a telemetry frame
func (b *Backend) RecordFrame(f *core.TelemetryFrame) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.run == nil {
		return ErrNoRun
	}
	b.frames = append(b.frames, *f)
	return nil
}

// RecordResult appends a scenario result
func (b *Backend) RecordResult(r *core.ScenarioResult) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.run == nil {
		return ErrNoRun
	}
	b.results = append(b.results, *r)
	return nil
}

// Results returns a copy of the results recorded so far.
func (b *Backend) Results() []core.ScenarioResult {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]core.ScenarioResult, len(b.results))
	copy(out, b.results)
	return out
}

// FrameCount returns the number of frames held for the current run.
func (b *Backend) FrameCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.frames)
}

// GetExportedFilePath returns the path of the last export, or "" if none.
func (b *Backend) GetExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}

// GetExportMetadata describes the last export for the results server.
func (b *Backend) GetExportMetadata() core.UploadMetadata {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastMeta
}
