// internal/storage/storage.go
package storage

import (
	"errors"

	"github.com/flightctl/flightctl/pkg/core"
)

var ErrUnknownBackend = errors.New("unknown storage type")

// Backend is the interface all recording implementations must satisfy.
// StartRun precedes any Record call; EndRun flushes the run.
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Run management
	StartRun(run *core.Run) error
	EndRun() error

	// Recording
	RecordFrame(f *core.TelemetryFrame) error
	RecordResult(r *core.ScenarioResult) error
}

// Uploadable is an optional interface for backends that produce a file
// suitable for upload to a results server.
type Uploadable interface {
	GetExportedFilePath() string
	GetExportMetadata() core.UploadMetadata
}

// Lossy is an optional interface for backends that drop records rather
// than block the flight loop.
type Lossy interface {
	Dropped() int64
}
