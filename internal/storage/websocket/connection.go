package websocket

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	ws "github.com/gorilla/websocket"

	"github.com/flightctl/flightctl/pkg/streaming"
)

const (
	queueSize    = 10_000
	maxReconnect = 10
	maxBackoff   = 30 * time.Second
	writeWait    = 10 * time.Second
	ackTimeout   = 10 * time.Second
)

// firstBackoff is the delay before the first reconnect attempt.
var firstBackoff = time.Second

var errClosed = errors.New("connection closed")

// connection owns at most one live socket. Each socket gets its own reader
// and writer; whichever fails first retires the socket and starts a
// reconnect.
type connection struct {
	url    string
	secret string
	logger *slog.Logger

	// replay returns the messages a fresh socket must carry before any
	// queued traffic.
	replay func() [][]byte

	out     chan []byte
	done    chan struct{}
	dropped atomic.Int64

	mu      sync.Mutex
	conn    *ws.Conn
	closed  bool
	waiters map[string][]chan struct{}
}

func newConnection(logger *slog.Logger, replay func() [][]byte) *connection {
	return &connection{
		logger:  logger,
		replay:  replay,
		out:     make(chan []byte, queueSize),
		done:    make(chan struct{}),
		waiters: make(map[string][]chan struct{}),
	}
}

func (c *connection) dial(rawURL, secret string) error {
	c.url, c.secret = rawURL, secret
	conn, err := c.open()
	if err != nil {
		return err
	}
	c.attach(conn)
	return nil
}

// open dials the server with the shared secret as a query parameter.
func (c *connection) open() (*ws.Conn, error) {
	u, err := url.Parse(c.url)
	if err != nil {
		return nil, fmt.Errorf("invalid websocket URL: %w", err)
	}
	q := u.Query()
	q.Set("secret", c.secret)
	u.RawQuery = q.Encode()

	conn, _, err := ws.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	return conn, nil
}

// attach makes conn the live socket and starts its loops.
func (c *connection) attach(conn *ws.Conn) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = conn.Close()
		return
	}
	c.conn = conn
	c.mu.Unlock()

	lost := make(chan struct{})
	var once sync.Once
	fail := func(err error) {
		once.Do(func() {
			close(lost)
			c.retire(conn, err)
		})
	}
	go c.writeLoop(conn, lost, fail)
	go c.readLoop(conn, fail)
}

func write(conn *ws.Conn, data []byte) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteMessage(ws.TextMessage, data)
}

// writeLoop is the only writer of conn's data frames. A message whose write
// fails is counted as dropped.
func (c *connection) writeLoop(conn *ws.Conn, lost <-chan struct{}, fail func(error)) {
	for {
		select {
		case <-c.done:
			return
		case <-lost:
			return
		case data := <-c.out:
			if err := write(conn, data); err != nil {
				c.dropped.Add(1)
				fail(err)
				return
			}
		}
	}
}

// readLoop routes server acks to waiting requests.
func (c *connection) readLoop(conn *ws.Conn, fail func(error)) {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			fail(err)
			return
		}
		var ack streaming.AckMessage
		if err := json.Unmarshal(msg, &ack); err != nil || ack.Type != "ack" {
			c.logger.Debug("Ignoring server message", "raw", string(msg))
			continue
		}
		c.resolve(ack.For)
	}
}

// retire closes a failed socket and reconnects unless it was already
// replaced or the connection is shutting down.
func (c *connection) retire(conn *ws.Conn, err error) {
	_ = conn.Close()
	c.mu.Lock()
	if c.closed || c.conn != conn {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	c.mu.Unlock()

	c.logger.Warn("WebSocket connection lost", "error", err)
	go c.reconnect()
}

// reconnect redials with exponential backoff. A new socket first carries
// the replay messages, then takes over the queue.
func (c *connection) reconnect() {
	backoff := firstBackoff
	for attempt := 1; attempt <= maxReconnect; attempt++ {
		c.logger.Info("Reconnecting to WebSocket", "attempt", attempt, "backoff", backoff)
		timer := time.NewTimer(backoff)
		select {
		case <-c.done:
			timer.Stop()
			return
		case <-timer.C:
		}
		backoff = min(backoff*2, maxBackoff)

		conn, err := c.open()
		if err != nil {
			c.logger.Warn("Reconnect dial failed", "attempt", attempt, "error", err)
			continue
		}
		if err := c.resume(conn); err != nil {
			c.logger.Warn("Failed to resume run after reconnect", "attempt", attempt, "error", err)
			_ = conn.Close()
			continue
		}
		c.logger.Info("WebSocket reconnected", "attempt", attempt)
		c.attach(conn)
		return
	}
	c.logger.Error("WebSocket reconnect failed after max attempts", "maxAttempts", maxReconnect)
}

func (c *connection) resume(conn *ws.Conn) error {
	if c.replay == nil {
		return nil
	}
	for _, msg := range c.replay() {
		if err := write(conn, msg); err != nil {
			return err
		}
	}
	return nil
}

// send queues data without blocking. A full queue drops the message.
func (c *connection) send(data []byte) {
	select {
	case c.out <- data:
	default:
		if n := c.dropped.Add(1); n == 1 || n%1000 == 0 {
			c.logger.Warn("WebSocket send queue full, dropping messages", "dropped", n)
		}
	}
}

// request queues data and blocks until the server acks msgType, the
// timeout expires or the connection closes.
func (c *connection) request(data []byte, msgType string, timeout time.Duration) error {
	ch := make(chan struct{})
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return fmt.Errorf("%w while waiting for ack of %q", errClosed, msgType)
	}
	c.waiters[msgType] = append(c.waiters[msgType], ch)
	c.mu.Unlock()

	c.send(data)

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-ch:
		return nil
	case <-timer.C:
		c.forget(msgType, ch)
		return fmt.Errorf("timeout waiting for ack of %q", msgType)
	case <-c.done:
		return fmt.Errorf("%w while waiting for ack of %q", errClosed, msgType)
	}
}

// resolve wakes the oldest request waiting on msgType.
func (c *connection) resolve(msgType string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	q := c.waiters[msgType]
	if len(q) == 0 {
		return
	}
	close(q[0])
	c.waiters[msgType] = q[1:]
}

func (c *connection) forget(msgType string, ch chan struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	q := c.waiters[msgType]
	for i, w := range q {
		if w == ch {
			c.waiters[msgType] = append(q[:i:i], q[i+1:]...)
			return
		}
	}
}

// close sends a close frame and stops every goroutine. Queued messages are
// discarded.
func (c *connection) close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	_ = conn.WriteControl(ws.CloseMessage,
		ws.FormatCloseMessage(ws.CloseNormalClosure, ""), time.Now().Add(writeWait))
	return conn.Close()
}
