// Package connectivity tracks whether the terminal can reach the ledger.
// State changes are driven by the outcomes of real requests and by explicit
// signals from the host, never by a polling loop.
package connectivity

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// State is the terminal's view of the network link
type State string

const (
	StateOnline  State = "ONLINE"
	StateOffline State = "OFFLINE"
)

// Event describes a single state transition
type Event struct {
	From State
	To   State
	At   time.Time
}

// Monitor holds the current link state and fans transitions out to
// subscribers. Reporting the same state twice is a no-op: subscribers
// only ever see edges.
type Monitor struct {
	mu     sync.Mutex
	state  State
	subs   []chan Event
	logger *zap.Logger
}

// NewMonitor starts in the offline state. The terminal treats the link
// as down until a request proves otherwise.
func NewMonitor(logger *zap.Logger) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		state:  StateOffline,
		logger: logger,
	}
}

// State returns the current link state
func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// IsOnline reports whether the ledger is currently reachable
func (m *Monitor) IsOnline() bool {
	return m.State() == StateOnline
}

// ReportOnline records a successful ledger interaction. Returns true
// when this call caused an offline-to-online transition.
func (m *Monitor) ReportOnline() bool {
	return m.transition(StateOnline)
}

// ReportOffline records a failed ledger interaction. Returns true when
// this call caused an online-to-offline transition.
func (m *Monitor) ReportOffline() bool {
	return m.transition(StateOffline)
}

func (m *Monitor) transition(to State) bool {
	m.mu.Lock()
	if m.state == to {
		m.mu.Unlock()
		return false
	}
	ev := Event{From: m.state, To: to, At: time.Now()}
	m.state = to
	subs := make([]chan Event, len(m.subs))
	copy(subs, m.subs)
	m.mu.Unlock()

	m.logger.Info("connectivity changed",
		zap.String("from", string(ev.From)),
		zap.String("to", string(ev.To)),
	)

	for _, ch := range subs {
		// Drop the event rather than block: a subscriber that has not
		// drained its channel still holds the latest edge.
		select {
		case ch <- ev:
		default:
		}
	}
	return true
}

// Subscribe registers for transition events. The returned cancel func
// removes the subscription and closes the channel.
func (m *Monitor) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 1)

	m.mu.Lock()
	m.subs = append(m.subs, ch)
	m.mu.Unlock()

	cancel := func() {
		m.mu.Lock()
		for i, sub := range m.subs {
			if sub == ch {
				m.subs = append(m.subs[:i], m.subs[i+1:]...)
				close(ch)
				break
			}
		}
		m.mu.Unlock()
	}
	return ch, cancel
}
