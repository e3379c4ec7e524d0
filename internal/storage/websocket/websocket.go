package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/flightctl/flightctl/internal/config"
	"github.com/flightctl/flightctl/pkg/core"
	"github.com/flightctl/flightctl/pkg/streaming"
)

// Backend streams run data over WebSocket to a results server.
// It implements storage.Backend and storage.Lossy but not storage.Uploadable.
type Backend struct {
	conn *connection
	cfg  config.WebSocketConfig
	tag  string

	mu     sync.Mutex
	start  []byte // start_run envelope of the active run
	resume streaming.ResumePayload
}

// New creates a new WebSocket storage backend.
func New(cfg config.WebSocketConfig, tag string, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Backend{cfg: cfg, tag: tag}
	b.conn = newConnection(logger, b.replay)
	return b
}

// Init connects to the WebSocket server.
func (b *Backend) Init() error {
	return b.conn.dial(b.cfg.URL, b.cfg.Secret)
}

// Close disconnects from the WebSocket server.
func (b *Backend) Close() error {
	return b.conn.close()
}

// Dropped counts messages lost to a full queue or a failed write.
func (b *Backend) Dropped() int64 {
	return b.conn.dropped.Load()
}

// marshalEnvelope builds a JSON-encoded Envelope from a message type and payload.
func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	data, err := json.Marshal(streaming.Envelope{Type: msgType, Payload: raw})
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

// replay gives a fresh socket the run header and, once anything has been
// recorded, where the stream had got to.
func (b *Backend) replay() [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.start == nil {
		return nil
	}
	msgs := [][]byte{b.start}
	if b.resume.Tick > 0 || b.resume.Sequence > 0 {
		if data, err := marshalEnvelope(streaming.TypeResume, b.resume); err == nil {
			msgs = append(msgs, data)
		}
	}
	return msgs
}

// StartRun sends the run header and waits for server ack.
func (b *Backend) StartRun(run *core.Run) error {
	data, err := marshalEnvelope(streaming.TypeStartRun, streaming.StartRunPayload{Run: run, Tag: b.tag})
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.start = data
	b.resume = streaming.ResumePayload{RunID: run.ID.String()}
	b.mu.Unlock()

	return b.conn.request(data, streaming.TypeStartRun, ackTimeout)
}

// EndRun sends end_run and waits for server ack. The run is forgotten
// even when the ack never arrives.
func (b *Backend) EndRun() error {
	data, err := marshalEnvelope(streaming.TypeEndRun, nil)
	if err != nil {
		return err
	}
	err = b.conn.request(data, streaming.TypeEndRun, ackTimeout)

	b.mu.Lock()
	b.start = nil
	b.resume = streaming.ResumePayload{}
	b.mu.Unlock()
	return err
}

// RecordFrame queues a telemetry frame without waiting for the server.
func (b *Backend) RecordFrame(f *core.TelemetryFrame) error {
	data, err := marshalEnvelope(streaming.TypeTelemetryFrame, f)
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.resume.Scenario = f.Scenario
	b.resume.Tick = f.Tick
	b.mu.Unlock()

	b.conn.send(data)
	return nil
}

// RecordResult queues a scenario result without waiting for the server.
func (b *Backend) RecordResult(r *core.ScenarioResult) error {
	data, err := marshalEnvelope(streaming.TypeScenarioResult, r)
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.resume.Sequence = r.Sequence
	b.mu.Unlock()

	b.conn.send(data)
	return nil
}
