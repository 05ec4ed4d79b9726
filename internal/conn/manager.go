// Package conn owns the persistent live-update connection to the
// gateway: dialing, the heartbeat, reconnection with backoff, and the
// connection state machine. Decoded frames are handed to the dispatch
// loop through Frames; nothing else reads or writes the socket.
package conn

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sms-terminal/smsterm/internal/bus"
	"github.com/sms-terminal/smsterm/internal/wire"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

// Config holds the connection policy values.
type Config struct {
	URL               string // ws:// or wss:// endpoint
	AuthToken         string
	DialTimeout       time.Duration
	HeartbeatInterval time.Duration
	HeartbeatTimeout  time.Duration // max silence before forcing a reconnect
	BackoffBase       time.Duration
	BackoffMax        time.Duration
}

func (c *Config) defaults() {
	if c.DialTimeout == 0 {
		c.DialTimeout = 10 * time.Second
	}
	if c.HeartbeatInterval == 0 {
		c.HeartbeatInterval = 25 * time.Second
	}
	if c.HeartbeatTimeout == 0 {
		c.HeartbeatTimeout = 75 * time.Second
	}
	if c.BackoffBase == 0 {
		c.BackoffBase = time.Second
	}
	if c.BackoffMax == 0 {
		c.BackoffMax = 30 * time.Second
	}
}

// Manager owns the live connection and its lifecycle.
type Manager struct {
	cfg     Config
	machine *machine
	retry   *retrier
	logger  *zap.Logger

	frames chan *wire.Frame

	mu      sync.Mutex
	cancel  context.CancelFunc
	started bool
	done    chan struct{}
}

// NewManager creates a connection manager. Frames() delivers decoded
// protocol events while connected.
func NewManager(cfg Config, b *bus.Bus, logger *zap.Logger) *Manager {
	cfg.defaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		cfg:     cfg,
		machine: newMachine(b),
		retry:   newRetrier(cfg.BackoffBase, cfg.BackoffMax),
		logger:  logger,
		frames:  make(chan *wire.Frame, 256),
		done:    make(chan struct{}),
	}
}

// Frames returns the stream of decoded inbound frames. The channel is
// closed when the manager shuts down.
func (m *Manager) Frames() <-chan *wire.Frame {
	return m.frames
}

// Status returns a snapshot of the connection state.
func (m *Manager) Status() Status {
	return m.machine.Snapshot()
}

// Connect starts the connect/reconnect loop. Safe to call once.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return errors.New("already started")
	}
	m.started = true
	ctx, m.cancel = context.WithCancel(ctx)
	m.mu.Unlock()

	go m.run(ctx)
	return nil
}

// Disconnect ends the loop and transitions to ShutDown. Idempotent.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	cancel := m.cancel
	m.cancel = nil
	m.mu.Unlock()
	if cancel != nil {
		cancel()
		<-m.done
	}
}

func (m *Manager) run(ctx context.Context) {
	defer close(m.done)
	defer close(m.frames)
	defer m.shutdown()

	for {
		if err := m.machine.transition(Connecting, nil); err != nil {
			return
		}

		ws, connErr := m.dial(ctx)
		if connErr == nil {
			_ = m.machine.transition(Connected, nil)
			m.retry.reset()
			m.logger.Info("live connection established", zap.String("url", m.cfg.URL))

			connErr = m.serve(ctx, ws)
		}

		if ctx.Err() != nil {
			return
		}

		if connErr.Fatal() {
			m.logger.Error("live connection failed permanently", zap.Error(connErr))
			_ = m.machine.transition(Disconnected, func(s *Status) {
				s.Fatal = true
				s.LastError = connErr.Error()
			})
			return
		}

		delay := m.retry.next()
		m.logger.Warn("live connection lost, reconnecting",
			zap.Error(connErr),
			zap.Int("attempt", m.retry.attempt),
			zap.Duration("delay", delay))
		_ = m.machine.transition(Reconnecting, func(s *Status) {
			s.Attempt = m.retry.attempt
			s.NextRetryAt = time.Now().Add(delay)
			s.LastError = connErr.Error()
		})

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return
		}
	}
}

func (m *Manager) shutdown() {
	// Force through whatever state we are in; ShutDown is terminal.
	_ = m.machine.transition(ShutDown, nil)
}

func (m *Manager) dial(ctx context.Context) (*websocket.Conn, *ConnError) {
	dialCtx, cancel := context.WithTimeout(ctx, m.cfg.DialTimeout)
	defer cancel()

	opts := &websocket.DialOptions{HTTPHeader: http.Header{}}
	if m.cfg.AuthToken != "" {
		opts.HTTPHeader.Set("Authorization", "Bearer "+m.cfg.AuthToken)
	}

	ws, resp, err := websocket.Dial(dialCtx, m.cfg.URL, opts)
	if err != nil {
		return nil, classifyDialError(resp, err)
	}
	return ws, nil
}

func classifyDialError(resp *http.Response, err error) *ConnError {
	if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
		return &ConnError{Cause: CauseAuthRejected, Err: fmt.Errorf("HTTP %d", resp.StatusCode)}
	}
	var tlsErr *tls.CertificateVerificationError
	if errors.As(err, &tlsErr) {
		return &ConnError{Cause: CauseTLS, Err: err}
	}
	return &ConnError{Cause: CauseRefused, Err: err}
}

// serve reads frames and runs the heartbeat until the connection drops
// or ctx ends. Always returns a non-nil ConnError describing why the
// connection is gone.
func (m *Manager) serve(ctx context.Context, ws *websocket.Conn) *ConnError {
	connCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	defer func() { _ = ws.Close(websocket.StatusNormalClosure, "") }()

	var trafficMu sync.Mutex
	lastTraffic := time.Now()
	touch := func() {
		trafficMu.Lock()
		lastTraffic = time.Now()
		trafficMu.Unlock()
	}
	silence := func() time.Duration {
		trafficMu.Lock()
		defer trafficMu.Unlock()
		return time.Since(lastTraffic)
	}

	// Heartbeat: send pings on the interval; any server traffic counts
	// as liveness, not just pong replies.
	go func() {
		ticker := time.NewTicker(m.cfg.HeartbeatInterval)
		defer ticker.Stop()
		pingSeq := 0
		for {
			select {
			case <-connCtx.Done():
				return
			case <-ticker.C:
				if silence() > m.cfg.HeartbeatTimeout {
					cancel(&ConnError{Cause: CauseHeartbeatTimeout})
					return
				}
				pingSeq++
				data, err := wire.EncodePing(fmt.Sprintf("ping-%d", pingSeq))
				if err != nil {
					continue
				}
				if err := ws.Write(connCtx, websocket.MessageText, data); err != nil {
					cancel(&ConnError{Cause: CauseClosed, Err: err})
					return
				}
			}
		}
	}()

	for {
		_, data, err := ws.Read(connCtx)
		if err != nil {
			var connErr *ConnError
			if cause := context.Cause(connCtx); errors.As(cause, &connErr) {
				return connErr
			}
			return &ConnError{Cause: CauseClosed, Err: err}
		}
		touch()

		frame, err := wire.Decode(data)
		if err != nil {
			// Malformed frames never stop the loop.
			m.logger.Warn("dropping malformed frame", zap.Error(err))
			continue
		}
		if frame.Type == wire.TypePong {
			continue
		}

		select {
		case m.frames <- frame:
		case <-connCtx.Done():
			var connErr *ConnError
			if cause := context.Cause(connCtx); errors.As(cause, &connErr) {
				return connErr
			}
			return &ConnError{Cause: CauseClosed, Err: connCtx.Err()}
		}
	}
}
