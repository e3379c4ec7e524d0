// Package gormstorage implements the storage.Backend interface using GORM
// with internal queues and a background DB writer goroutine.
package gormstorage

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"gorm.io/gorm"

	"github.com/flightctl/flightctl/internal/database"
	"github.com/flightctl/flightctl/internal/logging"
	"github.com/flightctl/flightctl/internal/model"
	"github.com/flightctl/flightctl/internal/model/convert"
	"github.com/flightctl/flightctl/internal/queue"
	"github.com/flightctl/flightctl/pkg/core"
)

// DefaultWriteInterval is how often queued rows are flushed.
const DefaultWriteInterval = 2 * time.Second

// MaxQueuedSamples caps the telemetry backlog while the DB is unreachable.
// The oldest samples go first; results are never dropped.
const MaxQueuedSamples = 500_000

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB            *gorm.DB
	LogManager    *logging.SlogManager
	Tag           string
	WriteInterval time.Duration
}

// queues holds the write queues for batch DB insertion.
type queues struct {
	Samples *queue.Queue[model.TelemetrySample]
	Results *queue.Queue[model.ScenarioResult]
}

func newQueues() *queues {
	return &queues{
		Samples: queue.NewBounded[model.TelemetrySample](MaxQueuedSamples),
		Results: queue.New[model.ScenarioResult](),
	}
}

// Backend implements storage.Backend using GORM with queue-based batch writes.
type Backend struct {
	deps     Dependencies
	queues   *queues
	runID    atomic.Uint64
	stopChan chan struct{}
	wg       sync.WaitGroup
	writeMu  sync.Mutex

	lastWrite atomic.Int64
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	if deps.WriteInterval <= 0 {
		deps.WriteInterval = DefaultWriteInterval
	}
	return &Backend{
		deps:   deps,
		queues: newQueues(),
	}
}

// Init runs schema migration and starts the DB writer goroutine.
// If no DB was injected via Dependencies, it creates its own postgres connection.
func (b *Backend) Init() error {
	b.stopChan = make(chan struct{})

	if b.deps.DB == nil {
		db, err := database.GetPostgresDB()
		if err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return fmt.Errorf("failed to access sql interface: %w", err)
		}
		if err = sqlDB.Ping(); err != nil {
			return fmt.Errorf("failed to validate connection: %w", err)
		}
		sqlDB.SetMaxOpenConns(10)
		b.deps.DB = db
	}

	b.deps.LogManager.WriteLog("setupDB", "Migrating schema", "INFO")
	if err := database.Migrate(b.deps.DB); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}

	b.startDBWriter()
	return nil
}

// Close stops the DB writer goroutine and flushes whatever is still queued.
func (b *Backend) Close() error {
	if b.stopChan != nil {
		close(b.stopChan)
		b.wg.Wait()
		b.stopChan = nil
	}
	if b.deps.DB != nil {
		b.writeAll()
	}
	return nil
}

// StartRun inserts the run row so queued rows can reference it.
func (b *Backend) StartRun(run *core.Run) error {
	if b.deps.DB == nil {
		return nil
	}

	// rows queued for a previous run must not be stamped with the new ID
	b.writeAll()

	gormRun := convert.CoreToRun(*run, b.deps.Tag)
	if err := b.deps.DB.Create(&gormRun).Error; err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	b.runID.Store(uint64(gormRun.ID))
	return nil
}

// RunID returns the DB ID of the current run, 0 before StartRun.
func (b *Backend) RunID() uint {
	return uint(b.runID.Load())
}

// EndRun flushes the queues and stamps the run's end time.
func (b *Backend) EndRun() error {
	if b.deps.DB == nil {
		return nil
	}
	b.writeAll()

	id := b.RunID()
	if id == 0 {
		return nil
	}
	if err := b.deps.DB.Model(&model.Run{}).Where("id = ?", id).Update("end_time", time.Now()).Error; err != nil {
		return fmt.Errorf("failed to close run %d: %w", id, err)
	}
	return nil
}

// RecordFrame converts a frame to a telemetry sample and queues it.
func (b *Backend) RecordFrame(f *core.TelemetryFrame) error {
	b.queues.Samples.Push(convert.CoreToTelemetrySample(*f))
	return nil
}

// RecordResult converts a scenario result and queues it.
func (b *Backend) RecordResult(r *core.ScenarioResult) error {
	b.queues.Results.Push(convert.CoreToScenarioResult(*r))
	return nil
}

// writeQueue writes all items from a queue to the database in a transaction.
// Failed batches are pushed back for the next cycle.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], name string, log func(string, string, string), prepare func([]T)) {
	if q.Empty() {
		return
	}

	tx := db.Begin()
	items := q.GetAndEmpty()
	if prepare != nil {
		prepare(items)
	}
	if err := tx.Create(&items).Error; err != nil {
		log(":DB:WRITER:", fmt.Sprintf("Error creating %s: %v", name, err), "ERROR")
		tx.Rollback()
		q.Push(items...)
		return
	}

	tx.Commit()
}

// writeAll drains both queues under the current run ID.
func (b *Backend) writeAll() {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	runID := b.RunID()
	if runID == 0 {
		return
	}
	log := b.deps.LogManager.WriteLog

	pending := model.WriteQueueLengths{
		TelemetrySamples: uint32(b.queues.Samples.Len()),
		ScenarioResults:  uint32(b.queues.Results.Len()),
	}
	if pending.TelemetrySamples == 0 && pending.ScenarioResults == 0 {
		return
	}

	start := time.Now()
	writeQueue(b.deps.DB, b.queues.Samples, "telemetry samples", log, func(items []model.TelemetrySample) {
		for i := range items {
			items[i].RunID = runID
		}
	})
	writeQueue(b.deps.DB, b.queues.Results, "scenario results", log, func(items []model.ScenarioResult) {
		for i := range items {
			items[i].RunID = runID
		}
	})

	elapsed := time.Since(start)
	b.lastWrite.Store(int64(elapsed))
	perf := model.WriterPerformance{
		Time:                time.Now(),
		RunID:               runID,
		WriteQueueLengths:   pending,
		LastWriteDurationMs: float32(elapsed.Seconds() * 1000),
	}
	if err := b.deps.DB.Create(&perf).Error; err != nil {
		log(":DB:WRITER:", fmt.Sprintf("Error recording writer performance: %v", err), "WARN")
	}
}

// GetLastDBWriteDuration is how long the most recent flush took.
func (b *Backend) GetLastDBWriteDuration() time.Duration {
	return time.Duration(b.lastWrite.Load())
}

// QueueLengths reports the rows waiting for the next flush.
func (b *Backend) QueueLengths() model.WriteQueueLengths {
	return model.WriteQueueLengths{
		TelemetrySamples: uint32(b.queues.Samples.Len()),
		ScenarioResults:  uint32(b.queues.Results.Len()),
	}
}

// startDBWriter starts the background goroutine that periodically drains queues into the DB.
func (b *Backend) startDBWriter() {
	stop := b.stopChan
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		ticker := time.NewTicker(b.deps.WriteInterval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				b.writeAll()
			}
		}
	}()
}
