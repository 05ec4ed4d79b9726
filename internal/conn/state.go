package conn

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/sms-terminal/smsterm/internal/bus"
)

// State represents the live-connection lifecycle state.
type State string

const (
	Disconnected State = "DISCONNECTED"
	Connecting   State = "CONNECTING"
	Connected    State = "CONNECTED"
	Reconnecting State = "RECONNECTING"
	ShutDown     State = "SHUT_DOWN"
)

// validTransitions defines allowed state transitions. ShutDown is
// terminal and reachable from everywhere; Disconnected is re-entered
// only on a fatal (non-retried) failure.
var validTransitions = map[State][]State{
	Disconnected: {Connecting, ShutDown},
	Connecting:   {Connected, Reconnecting, Disconnected, ShutDown},
	Connected:    {Reconnecting, ShutDown},
	Reconnecting: {Connecting, ShutDown},
	ShutDown:     {},
}

// Status is an immutable snapshot of the connection state.
type Status struct {
	State       State
	Attempt     int       // reconnect attempt counter, 0 while connected
	NextRetryAt time.Time // zero unless reconnecting
	Fatal       bool      // true once a non-retriable failure was hit
	LastError   string
}

// StateChange is the payload of conn.state_changed bus events.
type StateChange struct {
	From   State
	To     State
	Status Status
}

// machine tracks and enforces connection state transitions, publishing
// every change on the bus.
type machine struct {
	mu      sync.RWMutex
	current Status
	bus     *bus.Bus
}

func newMachine(b *bus.Bus) *machine {
	return &machine{
		current: Status{State: Disconnected},
		bus:     b,
	}
}

// Snapshot returns the current status.
func (m *machine) Snapshot() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// transition moves to a new state, carrying the given status fields.
// Returns an error if the transition is not allowed.
func (m *machine) transition(to State, mutate func(*Status)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	allowed := validTransitions[m.current.State]
	if !slices.Contains(allowed, to) {
		return fmt.Errorf("invalid transition from %s to %s", m.current.State, to)
	}
	from := m.current.State
	m.current.State = to
	if to == Connected {
		m.current.Attempt = 0
		m.current.NextRetryAt = time.Time{}
		m.current.LastError = ""
	}
	if mutate != nil {
		mutate(&m.current)
	}
	if m.bus != nil {
		m.bus.Publish(bus.Event{
			Kind:      bus.KindConnStateChanged,
			Timestamp: time.Now(),
			Payload:   StateChange{From: from, To: to, Status: m.current},
		})
	}
	return nil
}
